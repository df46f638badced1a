// Package queue carries link ingestion events between the API and the
// worker over NATS.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	linkSavedSubject = "readitlater.links.saved"
	queueGroup       = "readitlater-worker"
	jobTimeout       = 60 * time.Second
)

// LinkSavedMessage is the payload emitted by the API when a link is stored.
type LinkSavedMessage struct {
	LinkID string `json:"link_id"`
}

// Publisher publishes domain events to NATS.
type Publisher interface {
	PublishLinkSaved(ctx context.Context, linkID uuid.UUID) error
	Close()
}

// NATS wraps a nats.Conn to satisfy Publisher.
type NATS struct {
	conn *nats.Conn
}

// New creates a new NATS publisher connection.
func New(url string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("readitlater-api"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATS{conn: conn}, nil
}

// PublishLinkSaved emits a message indicating a link should be processed.
func (n *NATS) PublishLinkSaved(ctx context.Context, linkID uuid.UUID) error {
	payload := LinkSavedMessage{LinkID: linkID.String()}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal link saved payload: %w", err)
	}
	return n.conn.PublishMsg(&nats.Msg{Subject: linkSavedSubject, Data: data})
}

// Close shuts down the underlying NATS connection.
func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// Handler processes incoming link saved events.
type Handler func(ctx context.Context, linkID uuid.UUID) error

// ReadyCallback is invoked after the subscriber successfully registers
// with NATS and is ready to receive messages.
type ReadyCallback func()

// Subscriber wraps a NATS connection for consuming events.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber connects to NATS and returns a subscriber instance.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url, nats.Name("readitlater-worker"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// Listen subscribes to link saved events until the context is cancelled.
func (s *Subscriber) Listen(ctx context.Context, handler Handler, ready ReadyCallback) error {
	sub, err := s.conn.QueueSubscribe(linkSavedSubject, queueGroup, func(msg *nats.Msg) {
		var payload LinkSavedMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Printf("worker: invalid payload: %v", err)
			return
		}
		linkID, err := uuid.Parse(payload.LinkID)
		if err != nil {
			log.Printf("worker: invalid link id: %v", err)
			return
		}

		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		if err := handler(jobCtx, linkID); err != nil {
			log.Printf("worker: handler error for %s: %v", linkID, err)
			return
		}

		if err := msg.Ack(); err != nil {
			// Ack only succeeds when JetStream is configured; ignore for core NATS.
			log.Printf("worker: ack warning: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to subject: %w", err)
	}
	if err := s.conn.Flush(); err != nil {
		return err
	}

	if ready != nil {
		ready()
	}

	<-ctx.Done()
	return sub.Drain()
}

// Close shuts down the underlying connection.
func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
