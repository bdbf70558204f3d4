package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mod-localizer/internal/merge"
	"mod-localizer/internal/textutil"
	"mod-localizer/internal/unit"
	"mod-localizer/internal/worker"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const insertChunk = 500

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store persists baseline snapshots and merge history, with an in-memory
// copy of every baseline it has loaded or saved.
type Store struct {
	db        DB
	mu        sync.RWMutex
	baselines map[string][]unit.BaselineUnit
}

// New creates a Store over db.
func New(db DB) *Store {
	return &Store{db: db, baselines: make(map[string][]unit.BaselineUnit)}
}

// Run is one recorded merge.
type Run struct {
	ID        uuid.UUID
	Mod       string
	CreatedAt time.Time
	Stats     merge.Stats
}

// HistoryEntry is one superseded translation recorded by a merge.
type HistoryEntry struct {
	RunID        uuid.UUID
	CreatedAt    time.Time
	Key          string
	Kind         string
	PreviousText string
	CurrentText  string
	EnglishText  string
}

// SaveBaseline replaces the stored snapshot of one language subtree of mod.
// A key that occurs more than once keeps its last unit.
func (s *Store) SaveBaseline(ctx context.Context, mod string, kind unit.Kind, units []unit.BaselineUnit) error {
	if uniq := latestByKey(units); len(uniq) < len(units) {
		log.Warn().Str("mod", mod).Int("duplicates", len(units)-len(uniq)).Msg("Duplicate keys in baseline snapshot, keeping the last")
		units = uniq
	}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		del, args, err := deleteBaselineQuery(mod, kind)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, del, args...); err != nil {
			return fmt.Errorf("clear baseline: %w", err)
		}
		for _, chunk := range worker.Chunk(units, insertChunk) {
			ins, args, err := insertBaselineQuery(mod, chunk)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, ins, args...); err != nil {
				return fmt.Errorf("insert baseline: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}

	s.mu.Lock()
	s.baselines[cacheKey(mod, kind)] = units
	s.mu.Unlock()

	log.Info().Str("mod", mod).Str("kind", kind.String()).Int("units", len(units)).Msg("Saved baseline snapshot")
	return nil
}

// LoadBaseline returns the stored snapshot of one language subtree of mod.
func (s *Store) LoadBaseline(ctx context.Context, mod string, kind unit.Kind) ([]unit.BaselineUnit, error) {
	key := cacheKey(mod, kind)
	s.mu.RLock()
	if units, ok := s.baselines[key]; ok {
		s.mu.RUnlock()
		return units, nil
	}
	s.mu.RUnlock()

	query, args, err := selectBaselineQuery(mod, kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query baseline: %w", err)
	}
	units, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (unit.BaselineUnit, error) {
		b := unit.BaselineUnit{Kind: kind}
		err := row.Scan(&b.Key, &b.Text, &b.Tag, &b.RelativePath, &b.EnglishText)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan baseline: %w", err)
	}

	s.mu.Lock()
	s.baselines[key] = units
	s.mu.Unlock()
	return units, nil
}

// RecordMerge stores the run statistics and every changed record's
// superseded translation. It returns the new run id.
func (s *Store) RecordMerge(ctx context.Context, mod string, res merge.Result) (uuid.UUID, error) {
	id := uuid.New()
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		query, args, err := insertRunQuery(id, mod, res.Stats)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		var changed []unit.MergeRecord
		for _, r := range res.Records {
			if r.Changed() {
				changed = append(changed, r)
			}
		}
		for _, chunk := range worker.Chunk(changed, insertChunk) {
			query, args, err := insertHistoryQuery(id, chunk)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("record merge: %w", err)
	}

	log.Info().Str("mod", mod).Str("run", id.String()).Int("changed", res.Stats.Changed).Msg("Recorded merge run")
	return id, nil
}

// Runs lists the most recent merge runs of mod, newest first.
func (s *Store) Runs(ctx context.Context, mod string, limit uint64) ([]Run, error) {
	query, args, err := selectRunsQuery(mod, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		err := row.Scan(&r.ID, &r.Mod, &r.CreatedAt,
			&r.Stats.Input, &r.Stats.New, &r.Stats.Changed, &r.Stats.Unchanged, &r.Stats.Orphaned)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

// History lists superseded translations of mod, optionally for one key.
func (s *Store) History(ctx context.Context, mod, key string, limit uint64) ([]HistoryEntry, error) {
	query, args, err := selectHistoryQuery(mod, key, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryEntry, error) {
		var h HistoryEntry
		err := row.Scan(&h.RunID, &h.CreatedAt, &h.Key, &h.Kind, &h.PreviousText, &h.CurrentText, &h.EnglishText)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	for _, h := range entries {
		log.Debug().Str("key", h.Key).Str("previous", textutil.Truncate(h.PreviousText, 40)).Msg("History entry")
	}
	return entries, nil
}

func cacheKey(mod string, kind unit.Kind) string {
	return mod + "/" + kind.String()
}
