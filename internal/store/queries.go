package store

import (
	"fmt"
	"slices"

	"mod-localizer/internal/merge"
	"mod-localizer/internal/textutil"
	"mod-localizer/internal/unit"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	tableBaseline = "baseline_units"
	tableRuns     = "merge_runs"
	tableHistory  = "merge_history"
)

func deleteBaselineQuery(mod string, kind unit.Kind) (string, []any, error) {
	query, args, err := psql.Delete(tableBaseline).Where(sq.Eq{"mod": mod, "kind": kind.String()}).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build delete baseline: %w", err)
	}
	return query, args, nil
}

// latestByKey keeps the last unit of each (kind, key), in order of that last
// occurrence. One INSERT ... ON CONFLICT statement cannot touch a row twice.
func latestByKey(units []unit.BaselineUnit) []unit.BaselineUnit {
	rev := slices.Clone(units)
	slices.Reverse(rev)
	uniq := lo.UniqBy(rev, func(b unit.BaselineUnit) string { return b.Kind.String() + "/" + b.Key })
	slices.Reverse(uniq)
	return uniq
}

func insertBaselineQuery(mod string, units []unit.BaselineUnit) (string, []any, error) {
	ins := psql.Insert(tableBaseline).
		Columns("mod", "key", "kind", "text", "tag", "relative_path", "english_text", "english_hash")
	for _, b := range latestByKey(units) {
		ins = ins.Values(mod, b.Key, b.Kind.String(), b.Text, b.Tag, b.RelativePath, b.EnglishText, textutil.Hash(b.EnglishText))
	}
	query, args, err := ins.
		Suffix("ON CONFLICT (mod, kind, key) DO UPDATE SET text = EXCLUDED.text, english_text = EXCLUDED.english_text, english_hash = EXCLUDED.english_hash, updated_at = now()").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert baseline: %w", err)
	}
	return query, args, nil
}

func selectBaselineQuery(mod string, kind unit.Kind) (string, []any, error) {
	query, args, err := psql.
		Select("key", "text", "tag", "relative_path", "english_text").
		From(tableBaseline).
		Where(sq.Eq{"mod": mod, "kind": kind.String()}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select baseline: %w", err)
	}
	return query, args, nil
}

func insertRunQuery(id uuid.UUID, mod string, st merge.Stats) (string, []any, error) {
	query, args, err := psql.Insert(tableRuns).
		Columns("id", "mod", "input_count", "new_count", "changed_count", "unchanged_count", "orphaned_count").
		Values(id, mod, st.Input, st.New, st.Changed, st.Unchanged, st.Orphaned).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert run: %w", err)
	}
	return query, args, nil
}

func insertHistoryQuery(runID uuid.UUID, records []unit.MergeRecord) (string, []any, error) {
	ins := psql.Insert(tableHistory).
		Columns("run_id", "key", "kind", "previous_text", "current_text", "english_text")
	for _, r := range records {
		ins = ins.Values(runID, r.Key, r.Kind.String(), r.HistoryText, r.CurrentText, r.BaselineEnglishText)
	}
	query, args, err := ins.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert history: %w", err)
	}
	return query, args, nil
}

func selectRunsQuery(mod string, limit uint64) (string, []any, error) {
	q := psql.
		Select("id", "mod", "created_at", "input_count", "new_count", "changed_count", "unchanged_count", "orphaned_count").
		From(tableRuns).
		Where(sq.Eq{"mod": mod}).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select runs: %w", err)
	}
	return query, args, nil
}

func selectHistoryQuery(mod, key string, limit uint64) (string, []any, error) {
	q := psql.
		Select("h.run_id", "r.created_at", "h.key", "h.kind", "h.previous_text", "h.current_text", "h.english_text").
		From(tableHistory + " h").
		Join(tableRuns + " r ON r.id = h.run_id").
		Where(sq.Eq{"r.mod": mod}).
		OrderBy("r.created_at DESC", "h.key")
	if key != "" {
		q = q.Where(sq.Eq{"h.key": key})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select history: %w", err)
	}
	return query, args, nil
}
