// Package cache is the persistence gateway for search executions. One
// stored execution is a searches row plus its platform_ratings rows;
// entries never expire, and a re-run of the same query supersedes the
// old entry by being newer rather than by deleting it, so the search
// history stays intact.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookhub/pkg/models"
)

type Gateway struct {
	db *sql.DB
}

func New(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

// Check is a lightweight existence probe: it returns the newest stored
// summary for the query without its ratings, or nil when the query has
// never been crawled. Never triggers a crawl. Queries are compared as
// stored, so callers pass the normalized form.
func (g *Gateway) Check(ctx context.Context, query string) (*models.SearchSummary, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, query, avg_rating, total_reviews, platform_count, created_at
		FROM searches WHERE query = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, query)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: check %q: %w", query, err)
	}
	return summary, nil
}

// Lookup returns the newest stored execution for the query, or nil on a
// miss. The returned ratings carry everything needed to replay the run
// to a client without touching any platform.
func (g *Gateway) Lookup(ctx context.Context, query string) (*models.SearchSummary, []models.PlatformRating, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, query, avg_rating, total_reviews, platform_count, created_at
		FROM searches WHERE query = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, query)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cache: lookup %q: %w", query, err)
	}

	ratings, err := g.ratingsFor(ctx, summary.ExecutionID)
	if err != nil {
		return nil, nil, err
	}
	return summary, ratings, nil
}

// GetByID returns one stored execution regardless of how old it is.
func (g *Gateway) GetByID(ctx context.Context, id string) (*models.SearchSummary, []models.PlatformRating, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, query, avg_rating, total_reviews, platform_count, created_at
		FROM searches WHERE id = ?`, id)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cache: get %s: %w", id, err)
	}

	ratings, err := g.ratingsFor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return summary, ratings, nil
}

// Store persists one finished execution atomically. It always appends:
// earlier entries for the same query remain as history.
func (g *Gateway) Store(ctx context.Context, summary models.SearchSummary, ratings []models.PlatformRating) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: begin store: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO searches (id, query, avg_rating, total_reviews, platform_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		summary.ExecutionID, summary.Query, nullFloat(summary.AvgRating),
		summary.TotalReviews, summary.PlatformCount, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("cache: store search %s: %w", summary.ExecutionID, err)
	}

	for _, r := range ratings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO platform_ratings
				(search_id, platform, book_title, rating, rating_scale, normalized_rating, review_count, url, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.ExecutionID, r.Platform, r.BookTitle, nullFloat(r.RawRating),
			r.RatingScale, nullFloat(r.NormalizedRating), r.ReviewCount, r.URL, r.FetchedAt)
		if err != nil {
			return fmt.Errorf("cache: store rating %s/%s: %w", summary.ExecutionID, r.Platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit store: %w", err)
	}
	return nil
}

// History lists stored executions newest first. limit <= 0 means a
// default page of 50.
func (g *Gateway) History(ctx context.Context, limit int) ([]models.SearchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, query, avg_rating, total_reviews, platform_count, created_at
		FROM searches ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("cache: history: %w", err)
	}
	defer rows.Close()

	var out []models.SearchSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("cache: history scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Delete removes one stored execution and its ratings (cascade). It
// reports whether anything was deleted.
func (g *Gateway) Delete(ctx context.Context, id string) (bool, error) {
	res, err := g.db.ExecContext(ctx, `DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("cache: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cache: delete %s: %w", id, err)
	}
	return n > 0, nil
}

func (g *Gateway) ratingsFor(ctx context.Context, searchID string) ([]models.PlatformRating, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT platform, book_title, rating, rating_scale, normalized_rating, review_count, url, fetched_at
		FROM platform_ratings WHERE search_id = ? ORDER BY id`, searchID)
	if err != nil {
		return nil, fmt.Errorf("cache: ratings for %s: %w", searchID, err)
	}
	defer rows.Close()

	var out []models.PlatformRating
	for rows.Next() {
		var (
			r        models.PlatformRating
			raw, nrm sql.NullFloat64
		)
		if err := rows.Scan(&r.Platform, &r.BookTitle, &raw, &r.RatingScale,
			&nrm, &r.ReviewCount, &r.URL, &r.FetchedAt); err != nil {
			return nil, fmt.Errorf("cache: ratings scan for %s: %w", searchID, err)
		}
		if raw.Valid {
			v := raw.Float64
			r.RawRating = &v
		}
		if nrm.Valid {
			v := nrm.Float64
			r.NormalizedRating = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*models.SearchSummary, error) {
	var (
		s   models.SearchSummary
		avg sql.NullFloat64
	)
	if err := row.Scan(&s.ExecutionID, &s.Query, &avg, &s.TotalReviews,
		&s.PlatformCount, &s.CreatedAt); err != nil {
		return nil, err
	}
	if avg.Valid {
		v := avg.Float64
		s.AvgRating = &v
	}
	return &s, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
