package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_events (
    id          BIGSERIAL PRIMARY KEY,
    type        TEXT NOT NULL,
    query       TEXT NOT NULL,
    total_hits  INTEGER NOT NULL,
    returned    INTEGER NOT NULL,
    max_score   DOUBLE PRECISION NOT NULL,
    latency_ms  BIGINT NOT NULL,
    cache_hit   BOOLEAN NOT NULL,
    shard_count INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    request_id  TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS search_events_occurred_at ON search_events (occurred_at);
`

// Store persists search events in the search_events table and answers
// aggregate questions over them.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Summary aggregates the events recorded since a point in time.
type Summary struct {
	TotalSearches   int64        `json:"total_searches"`
	ZeroResults     int64        `json:"zero_results"`
	ShardFailures   int64        `json:"shard_failures"`
	CacheHits       int64        `json:"cache_hits"`
	AvgLatencyMs    float64      `json:"avg_latency_ms"`
	P95LatencyMs    float64      `json:"p95_latency_ms"`
	TopQueries      []QueryCount `json:"top_queries"`
	ZeroResultTerms []QueryCount `json:"zero_result_queries"`
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// Migrate creates the search_events table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating search_events table: %w", err)
	}
	return nil
}

// Publish inserts a batch in one transaction. It satisfies Sink.
func (s *Store) Publish(ctx context.Context, events []SearchEvent) error {
	if len(events) == 0 {
		return nil
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO search_events
			    (type, query, total_hits, returned, max_score, latency_ms,
			     cache_hit, shard_count, error, request_id, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range events {
			_, err := stmt.ExecContext(ctx,
				string(e.Type), e.Query, e.TotalHits, e.Returned, e.MaxScore, e.LatencyMs,
				e.CacheHit, e.ShardCount, e.Error, e.RequestID, e.Timestamp.UTC(),
			)
			if err != nil {
				return fmt.Errorf("inserting %s event: %w", e.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving %d search events: %w", len(events), err)
	}
	s.logger.Debug("search events saved", "count", len(events))
	return nil
}

// Summary aggregates every event at or after since. limit bounds the
// top-query lists.
func (s *Store) Summary(ctx context.Context, since time.Time, limit int) (Summary, error) {
	var sum Summary
	var avg, p95 sql.NullFloat64
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT
		    COUNT(*),
		    COUNT(*) FILTER (WHERE type = 'zero_result'),
		    COUNT(*) FILTER (WHERE type = 'shard_failure'),
		    COUNT(*) FILTER (WHERE cache_hit),
		    AVG(latency_ms),
		    PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms)
		FROM search_events
		WHERE occurred_at >= $1`, since.UTC(),
	).Scan(&sum.TotalSearches, &sum.ZeroResults, &sum.ShardFailures, &sum.CacheHits, &avg, &p95)
	if err != nil {
		return Summary{}, fmt.Errorf("querying event summary: %w", err)
	}
	sum.AvgLatencyMs = avg.Float64
	sum.P95LatencyMs = p95.Float64

	if sum.TopQueries, err = s.topQueries(ctx, since, limit, false); err != nil {
		return Summary{}, err
	}
	if sum.ZeroResultTerms, err = s.topQueries(ctx, since, limit, true); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Store) topQueries(ctx context.Context, since time.Time, limit int, zeroOnly bool) ([]QueryCount, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT query, COUNT(*) AS n
		FROM search_events
		WHERE occurred_at >= $1 AND ($2 = FALSE OR type = 'zero_result')
		GROUP BY query
		ORDER BY n DESC, query ASC
		LIMIT $3`, since.UTC(), zeroOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing top queries: %w", err)
	}
	defer rows.Close()

	out := make([]QueryCount, 0, limit)
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning query count: %w", err)
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}
