package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felipesantoos/read-it-later-backend/internal/extract"
)

// ErrLinkNotFound is returned when the link id has no row, typically
// because the link was deleted between save and processing.
var ErrLinkNotFound = errors.New("link not found")

// Store persists ingestion results into Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Link represents the minimal data needed for ingestion.
type Link struct {
	ID  uuid.UUID
	URL string
}

// LookupLink retrieves a link record by identifier.
func (s *Store) LookupLink(ctx context.Context, id uuid.UUID) (Link, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, url FROM links WHERE id = $1`, pgtype.UUID{Bytes: id, Valid: true})
	var link Link
	var idVal pgtype.UUID
	if err := row.Scan(&idVal, &link.URL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, ErrLinkNotFound
		}
		return Link{}, fmt.Errorf("query link: %w", err)
	}
	link.ID = uuid.UUID(idVal.Bytes)
	return link, nil
}

// PersistResult writes extraction output back to the database: the link
// row gets its display fields, the archive row the full content record.
func (s *Store) PersistResult(ctx context.Context, linkID uuid.UUID, meta extract.Metadata, lang string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := pgtype.UUID{Bytes: linkID, Valid: true}

	if _, err := tx.Exec(ctx, `UPDATE links SET
			title = COALESCE(NULLIF($2, ''), title),
			content_type = $3,
			site_name = NULLIF($4, ''),
			favicon = NULLIF($5, '')
		WHERE id = $1`,
		id, meta.Title, string(meta.ContentType), meta.SiteName, meta.Favicon,
	); err != nil {
		return fmt.Errorf("update link: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO archives (
			link_id, content, description, cover_image, author, published_date,
			word_count, reading_time, total_pages, images, lang
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (link_id) DO UPDATE SET
			content = EXCLUDED.content,
			description = EXCLUDED.description,
			cover_image = EXCLUDED.cover_image,
			author = EXCLUDED.author,
			published_date = EXCLUDED.published_date,
			word_count = EXCLUDED.word_count,
			reading_time = EXCLUDED.reading_time,
			total_pages = EXCLUDED.total_pages,
			images = EXCLUDED.images,
			lang = EXCLUDED.lang,
			updated_at = now()`,
		id,
		pgtype.Text{String: meta.Content, Valid: true},
		pgtype.Text{String: meta.Description, Valid: meta.Description != ""},
		pgtype.Text{String: meta.CoverImage, Valid: meta.CoverImage != ""},
		pgtype.Text{String: meta.Author, Valid: meta.Author != ""},
		pgtype.Text{String: meta.PublishedDate, Valid: meta.PublishedDate != ""},
		optionalInt(meta.WordCount),
		optionalInt(meta.ReadingTime),
		optionalInt(meta.TotalPages),
		meta.Images,
		pgtype.Text{String: lang, Valid: lang != ""},
	); err != nil {
		return fmt.Errorf("upsert archive: %w", err)
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
