package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felipesantoos/read-it-later-backend/internal/extract"
)

// ErrDuplicateURL is returned when a user already saved the same URL.
var ErrDuplicateURL = errors.New("url already saved")

// Store is the API-side persistence layer.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateLinkParams carries a new link row.
type CreateLinkParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	URL         string
	URLHash     string
	Title       string
	ContentType string
}

// CreateLink inserts a link row. Duplicate URLs per user surface as
// ErrDuplicateURL via the unique index on url_hash.
func (s *Store) CreateLink(ctx context.Context, p CreateLinkParams) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO links (id, user_id, url, url_hash, title, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		pgtype.UUID{Bytes: p.ID, Valid: true},
		pgtype.UUID{Bytes: p.UserID, Valid: true},
		p.URL,
		p.URLHash,
		pgtype.Text{String: p.Title, Valid: p.Title != ""},
		p.ContentType,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateURL
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// LinkRow is a stored link with its archive summary.
type LinkRow struct {
	ID          uuid.UUID
	URL         string
	Title       string
	ContentType string
	SiteName    string
	Favicon     string
	CreatedAt   time.Time
	WordCount   *int
	ReadingTime *int
	Lang        string
}

// ListLinks returns a page of the user's links, newest first, with the
// total count for pagination.
func (s *Store) ListLinks(ctx context.Context, userID uuid.UUID, limit, offset int) ([]LinkRow, int64, error) {
	uid := pgtype.UUID{Bytes: userID, Valid: true}

	rows, err := s.pool.Query(ctx, `SELECT
			l.id, l.url, COALESCE(l.title, ''), l.content_type,
			COALESCE(l.site_name, ''), COALESCE(l.favicon, ''), l.created_at,
			a.word_count, a.reading_time, COALESCE(a.lang, '')
		FROM links l
		LEFT JOIN archives a ON a.link_id = l.id
		WHERE l.user_id = $1
		ORDER BY l.created_at DESC
		LIMIT $2 OFFSET $3`, uid, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var items []LinkRow
	for rows.Next() {
		var (
			row       LinkRow
			id        pgtype.UUID
			createdAt pgtype.Timestamptz
			words     pgtype.Int4
			reading   pgtype.Int4
		)
		if err := rows.Scan(&id, &row.URL, &row.Title, &row.ContentType,
			&row.SiteName, &row.Favicon, &createdAt, &words, &reading, &row.Lang); err != nil {
			return nil, 0, fmt.Errorf("scan link: %w", err)
		}
		row.ID = uuid.UUID(id.Bytes)
		row.CreatedAt = createdAt.Time
		if words.Valid {
			v := int(words.Int32)
			row.WordCount = &v
		}
		if reading.Valid {
			v := int(reading.Int32)
			row.ReadingTime = &v
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate links: %w", err)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM links WHERE user_id = $1`, uid).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}
	return items, count, nil
}

// SaveUpload stores a link row and its extraction result for an uploaded
// document in one transaction.
func (s *Store) SaveUpload(ctx context.Context, p CreateLinkParams, meta extract.Metadata) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := pgtype.UUID{Bytes: p.ID, Valid: true}

	if _, err := tx.Exec(ctx, `INSERT INTO links (id, user_id, url, url_hash, title, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id,
		pgtype.UUID{Bytes: p.UserID, Valid: true},
		p.URL,
		p.URLHash,
		pgtype.Text{String: p.Title, Valid: p.Title != ""},
		p.ContentType,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateURL
		}
		return fmt.Errorf("insert upload link: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO archives (
			link_id, content, description, author, word_count, reading_time, total_pages
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		pgtype.Text{String: meta.Content, Valid: true},
		pgtype.Text{String: meta.Description, Valid: meta.Description != ""},
		pgtype.Text{String: meta.Author, Valid: meta.Author != ""},
		optionalInt(meta.WordCount),
		optionalInt(meta.ReadingTime),
		optionalInt(meta.TotalPages),
	); err != nil {
		return fmt.Errorf("insert upload archive: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func optionalInt(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}
