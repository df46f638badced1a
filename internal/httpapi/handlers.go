// Package httpapi exposes the read-it-later HTTP surface: saving links,
// uploading documents, listing the library, and previewing extractions.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
	"github.com/felipesantoos/read-it-later-backend/internal/config"
	"github.com/felipesantoos/read-it-later-backend/internal/extract"
	"github.com/felipesantoos/read-it-later-backend/internal/observability"
	"github.com/felipesantoos/read-it-later-backend/internal/queue"
)

// maxUploadBytes bounds document uploads.
const maxUploadBytes = 50 << 20

// Extractor is the extraction surface the handlers use.
type Extractor interface {
	ExtractFromURL(ctx context.Context, rawurl string, useCache bool) (extract.Metadata, error)
	ExtractFromFile(buf []byte, fileName, mimeType string) extract.Metadata
}

// BlobStore stores uploaded document files.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, buf []byte) error
	Delete(ctx context.Context, key string) error
}

// LinkStore is the persistence surface the handlers use.
type LinkStore interface {
	CreateLink(ctx context.Context, p CreateLinkParams) error
	ListLinks(ctx context.Context, userID uuid.UUID, limit, offset int) ([]LinkRow, int64, error)
	SaveUpload(ctx context.Context, p CreateLinkParams, meta extract.Metadata) error
}

// Server wires together HTTP handlers and dependencies.
type Server struct {
	cfg       config.Config
	pool      *pgxpool.Pool
	store     LinkStore
	publisher queue.Publisher
	extractor Extractor
	blobs     BlobStore
	metrics   *observability.Metrics
}

// NewServer builds a Server instance. blobs may be nil when object
// storage is not configured; document uploads then return 503.
func NewServer(cfg config.Config, pool *pgxpool.Pool, store LinkStore, publisher queue.Publisher, extractor Extractor, blobs BlobStore, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		pool:      pool,
		store:     store,
		publisher: publisher,
		extractor: extractor,
		blobs:     blobs,
		metrics:   metrics,
	}
}

// RegisterRoutes attaches routes to the provided Echo router.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(MetricsMiddleware(s.metrics))
	e.Use(RateLimitMiddleware())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/livez", s.handleLivez)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/links", s.handleCreateLink)
	api.GET("/links", s.handleListLinks)
	api.POST("/documents", s.handleUploadDocument)
	api.GET("/extract", s.handleExtractPreview)
}

func (s *Server) handleHealthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, "SELECT 1"); err != nil {
		if s.metrics != nil {
			s.metrics.ReadinessFailure.Inc()
		}
		c.Logger().Errorf("readiness check: SELECT 1 failed: %v", err)
		return c.JSON(stdhttp.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLivez(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return c.JSON(stdhttp.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
}

type createLinkRequest struct {
	URL   string  `json:"url"`
	Title *string `json:"title"`
}

type linkResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	SiteName    string    `json:"siteName,omitempty"`
	Favicon     string    `json:"favicon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	WordCount   *int      `json:"wordCount,omitempty"`
	ReadingTime *int      `json:"readingTime,omitempty"`
	Lang        string    `json:"lang,omitempty"`
}

type listLinksResponse struct {
	Items      []linkResponse `json:"items"`
	TotalCount int64          `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

func (s *Server) handleCreateLink(c echo.Context) error {
	var req createLinkRequest
	if err := c.Bind(&req); err != nil {
		s.countLinkCreate(false)
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	normalizedURL, err := normalizeURL(strings.TrimSpace(req.URL))
	if err != nil {
		s.countLinkCreate(false)
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid url"})
	}

	linkID := uuid.New()
	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}

	params := CreateLinkParams{
		ID:          linkID,
		UserID:      s.cfg.DevUserID,
		URL:         normalizedURL,
		URLHash:     extract.HashURL(normalizedURL),
		Title:       title,
		ContentType: string(classify.URL(normalizedURL)),
	}

	ctx := c.Request().Context()
	if err := s.store.CreateLink(ctx, params); err != nil {
		s.countLinkCreate(false)
		if errors.Is(err, ErrDuplicateURL) {
			return c.JSON(stdhttp.StatusConflict, map[string]string{"error": "url already saved"})
		}
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "failed to store link"})
	}

	if err := s.publisher.PublishLinkSaved(ctx, linkID); err != nil {
		s.countLinkCreate(false)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "failed to enqueue link"})
	}

	s.countLinkCreate(true)
	return c.JSON(stdhttp.StatusCreated, map[string]string{
		"id":          linkID.String(),
		"url":         normalizedURL,
		"contentType": params.ContentType,
	})
}

func (s *Server) handleListLinks(c echo.Context) error {
	ctx := c.Request().Context()
	limit, offset, err := parsePagination(c.QueryParam("limit"), c.QueryParam("offset"))
	if err != nil {
		s.countLinkList(false)
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	items, count, err := s.store.ListLinks(ctx, s.cfg.DevUserID, limit, offset)
	if err != nil {
		s.countLinkList(false)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "failed to fetch links"})
	}

	responses := make([]linkResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toLinkResponse(item))
	}

	s.countLinkList(true)
	return c.JSON(stdhttp.StatusOK, listLinksResponse{
		Items:      responses,
		TotalCount: count,
		Limit:      limit,
		Offset:     offset,
	})
}

// handleUploadDocument ingests an uploaded file: gate on the type
// allow-list, store the blob, extract, persist. A failed persist deletes
// the stored blob again.
func (s *Server) handleUploadDocument(c echo.Context) error {
	if s.blobs == nil {
		return c.JSON(stdhttp.StatusServiceUnavailable, map[string]string{"error": "uploads not configured"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.countUpload("failure")
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "file field is required"})
	}
	if fileHeader.Size > maxUploadBytes {
		s.countUpload("failure")
		return c.JSON(stdhttp.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !classify.IsAllowedFileType(fileHeader.Filename, mimeType) {
		s.countUpload("rejected")
		return c.JSON(stdhttp.StatusUnsupportedMediaType, map[string]string{"error": "unsupported file type"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.countUpload("failure")
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "unreadable upload"})
	}
	defer src.Close()

	buf, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		s.countUpload("failure")
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "unreadable upload"})
	}
	if int64(len(buf)) > maxUploadBytes {
		s.countUpload("failure")
		return c.JSON(stdhttp.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
	}

	ctx := c.Request().Context()
	digest := extract.HashFile(buf)
	key := fmt.Sprintf("uploads/%s/%s", digest, fileHeader.Filename)

	if err := s.blobs.Put(ctx, key, mimeType, buf); err != nil {
		s.countUpload("failure")
		c.Logger().Errorf("upload: store blob: %v", err)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "failed to store file"})
	}

	meta := s.extractor.ExtractFromFile(buf, fileHeader.Filename, mimeType)

	linkID := uuid.New()
	params := CreateLinkParams{
		ID:          linkID,
		UserID:      s.cfg.DevUserID,
		URL:         "upload://" + digest,
		URLHash:     digest,
		Title:       meta.Title,
		ContentType: string(meta.ContentType),
	}

	if err := s.store.SaveUpload(ctx, params, meta); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			c.Logger().Errorf("upload: compensating blob delete: %v", delErr)
		}
		s.countUpload("failure")
		if errors.Is(err, ErrDuplicateURL) {
			return c.JSON(stdhttp.StatusConflict, map[string]string{"error": "file already uploaded"})
		}
		c.Logger().Errorf("upload: persist: %v", err)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "failed to store document"})
	}

	s.countUpload("success")
	return c.JSON(stdhttp.StatusCreated, map[string]interface{}{
		"id":       linkID.String(),
		"key":      key,
		"metadata": meta,
	})
}

// handleExtractPreview runs an extraction without storing anything.
func (s *Server) handleExtractPreview(c echo.Context) error {
	rawurl := strings.TrimSpace(c.QueryParam("url"))
	useCache := c.QueryParam("nocache") == ""

	meta, err := s.extractor.ExtractFromURL(c.Request().Context(), rawurl, useCache)
	if err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid url"})
	}
	return c.JSON(stdhttp.StatusOK, meta)
}

func (s *Server) countLinkCreate(ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.LinkCreateSuccess.Inc()
	} else {
		s.metrics.LinkCreateFailure.Inc()
	}
}

func (s *Server) countLinkList(ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.LinkListSuccess.Inc()
	} else {
		s.metrics.LinkListFailure.Inc()
	}
}

func (s *Server) countUpload(outcome string) {
	if s.metrics == nil {
		return
	}
	switch outcome {
	case "success":
		s.metrics.UploadSuccess.Inc()
	case "rejected":
		s.metrics.UploadRejected.Inc()
	default:
		s.metrics.UploadFailure.Inc()
	}
}

func toLinkResponse(row LinkRow) linkResponse {
	return linkResponse{
		ID:          row.ID.String(),
		URL:         row.URL,
		Title:       row.Title,
		ContentType: row.ContentType,
		SiteName:    row.SiteName,
		Favicon:     row.Favicon,
		CreatedAt:   row.CreatedAt,
		WordCount:   row.WordCount,
		ReadingTime: row.ReadingTime,
		Lang:        row.Lang,
	}
}

func parsePagination(limitRaw, offsetRaw string) (int, int, error) {
	limit := 20
	offset := 0
	if limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	if offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
		offset = parsed
	}
	return limit, offset, nil
}

func normalizeURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return "", err
		}
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url missing host")
	}
	parsed.Fragment = ""
	return parsed.String(), nil
}
