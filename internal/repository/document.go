package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/metrics"
)

const defaultMaxAttempts = 5

// DocumentStore implements docstore.Store on a single JSONB table.
// Transactions are optimistic: the version read is checked on write.
type DocumentStore struct {
	db          txBeginner
	maxAttempts int
	metrics     *metrics.Metrics
}

// NewDocumentStore creates a store on pool. maxAttempts bounds transaction
// retries; m may be nil.
func NewDocumentStore(pool *pgxpool.Pool, maxAttempts int, m *metrics.Metrics) *DocumentStore {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &DocumentStore{db: pool, maxAttempts: maxAttempts, metrics: m}
}

var _ docstore.Store = (*DocumentStore)(nil)

func (s *DocumentStore) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Data: project(data, q.Select)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return docs, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	data, _, found, err := s.read(ctx, s.db, collection, id, false)
	if err != nil || !found {
		return nil, err
	}
	return &docstore.Document{ID: id, Data: data}, nil
}

func (s *DocumentStore) read(ctx context.Context, db dbtx, collection, id string, lock bool) (map[string]any, int64, bool, error) {
	sql := `SELECT data, version FROM documents WHERE collection = $1 AND id = $2`
	if lock {
		sql += ` FOR UPDATE`
	}
	var raw []byte
	var version int64
	err := db.QueryRow(ctx, sql, collection, id).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	data, err := decodeData(raw)
	if err != nil {
		return nil, 0, false, err
	}
	return data, version, true, nil
}

func (s *DocumentStore) RunTransaction(ctx context.Context, collection, id string, fn docstore.TxFunc) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		current, version, found, err := s.read(ctx, s.db, collection, id, false)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}

		var sql string
		var args []any
		if found {
			sql = `UPDATE documents SET data = $3, version = version + 1, updated_at = now()
			       WHERE collection = $1 AND id = $2 AND version = $4`
			args = []any{collection, id, raw, version}
		} else {
			sql = `INSERT INTO documents (collection, id, data, version, created_at, updated_at)
			       VALUES ($1, $2, $3, 1, now(), now())
			       ON CONFLICT (collection, id) DO NOTHING`
			args = []any{collection, id, raw}
		}
		tag, err := s.db.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		s.metrics.TxConflict(collection)
	}
	return docstore.ErrContention
}

func (s *DocumentStore) BatchWrite(ctx context.Context, writes []docstore.Write) error {
	if len(writes) > docstore.MaxBatchWrites {
		return docstore.ErrBatchTooLarge
	}
	if len(writes) == 0 {
		return nil
	}

	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, w := range writes {
			if err := s.apply(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *DocumentStore) apply(ctx context.Context, tx pgx.Tx, w docstore.Write) error {
	if w.Mode == docstore.ModeDelete {
		if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, w.Collection, w.ID); err != nil {
			return fmt.Errorf("delete %s/%s: %w", w.Collection, w.ID, err)
		}
		return nil
	}

	fields, err := docstore.Encode(w.Fields)
	if err != nil {
		return err
	}
	data := fields
	if w.Mode == docstore.ModeMerge || w.Mode == docstore.ModeUpdate {
		existing, _, found, err := s.read(ctx, tx, w.Collection, w.ID, true)
		if err != nil {
			return err
		}
		if !found && w.Mode == docstore.ModeUpdate {
			return fmt.Errorf("update %s/%s: %w", w.Collection, w.ID, docstore.ErrNotFound)
		}
		data = docstore.MergeFields(existing, fields)
	}
	if data == nil {
		data = map[string]any{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", w.Collection, w.ID, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO documents (collection, id, data, version, created_at, updated_at)
		 VALUES ($1, $2, $3, 1, now(), now())
		 ON CONFLICT (collection, id) DO UPDATE
		 SET data = EXCLUDED.data, version = documents.version + 1, updated_at = now()`,
		w.Collection, w.ID, raw,
	)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", w.Collection, w.ID, err)
	}
	return nil
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func project(data map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return data
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := data[f]; ok {
			out[f] = v
		}
	}
	return out
}

// queryBuilder accumulates positional arguments.
type queryBuilder struct {
	args []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// fieldExpr returns SQL addressing a document field as jsonb and as text.
// Single-segment paths use ->> so the expression indexes apply.
func fieldExpr(field string) (jsonExpr, textExpr string, err error) {
	parts := strings.Split(field, ".")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, `'{},"\`) {
			return "", "", fmt.Errorf("docstore: unsupported field name %q", field)
		}
	}
	if len(parts) == 1 {
		return fmt.Sprintf("(data -> '%s')", parts[0]), fmt.Sprintf("(data ->> '%s')", parts[0]), nil
	}
	path := "{" + strings.Join(parts, ",") + "}"
	return fmt.Sprintf("(data #> '%s')", path), fmt.Sprintf("(data #>> '%s')", path), nil
}

func buildQuery(q docstore.Query) (string, []any, error) {
	b := &queryBuilder{}
	conds := []string{"collection = " + b.arg(q.Collection)}

	for _, f := range q.Filters {
		cond, err := b.filter(f)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, cond)
	}
	if q.StartAfter != "" {
		conds = append(conds, "id COLLATE \"C\" > "+b.arg(q.StartAfter))
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	var order string
	orderField := q.OrderBy
	if orderField == "" {
		for _, f := range q.Filters {
			if f.Op == docstore.OpGte || f.Op == docstore.OpLte {
				orderField = f.Field
				break
			}
		}
	}
	if orderField == "" || orderField == docstore.FieldID {
		order = fmt.Sprintf(`id COLLATE "C" %s`, dir)
	} else {
		jsonExpr, textExpr, err := fieldExpr(orderField)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, jsonExpr+" IS NOT NULL")
		order = fmt.Sprintf(
			`CASE WHEN jsonb_typeof(%[1]s) = 'number' THEN %[2]s::numeric END %[3]s, %[2]s COLLATE "C" %[3]s, id COLLATE "C" %[3]s`,
			jsonExpr, textExpr, dir,
		)
	}

	sql := "SELECT id, data FROM documents WHERE " + strings.Join(conds, " AND ") + " ORDER BY " + order
	if q.Limit > 0 {
		sql += " LIMIT " + b.arg(q.Limit)
	}
	return sql, b.args, nil
}

func (b *queryBuilder) filter(f docstore.Filter) (string, error) {
	if f.Field == docstore.FieldID {
		switch f.Op {
		case docstore.OpEq:
			return "id = " + b.arg(fmt.Sprint(f.Value)), nil
		case docstore.OpGte:
			return `id COLLATE "C" >= ` + b.arg(fmt.Sprint(f.Value)), nil
		case docstore.OpLte:
			return `id COLLATE "C" <= ` + b.arg(fmt.Sprint(f.Value)), nil
		case docstore.OpIn:
			return "id = ANY(" + b.arg(stringValues(f.Value)) + ")", nil
		}
		return "", fmt.Errorf("docstore: operator %s not supported on id", f.Op)
	}

	jsonExpr, textExpr, err := fieldExpr(f.Field)
	if err != nil {
		return "", err
	}
	switch f.Op {
	case docstore.OpEq:
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return "", err
		}
		return jsonExpr + " = " + b.arg(string(raw)) + "::jsonb", nil
	case docstore.OpGte, docstore.OpLte:
		op := string(f.Op)
		if isNumber(f.Value) {
			return fmt.Sprintf("CASE WHEN jsonb_typeof(%s) = 'number' THEN %s::numeric END %s %s",
				jsonExpr, textExpr, op, b.arg(f.Value)), nil
		}
		if s, ok := f.Value.(string); ok {
			return fmt.Sprintf(`jsonb_typeof(%s) = 'string' AND %s COLLATE "C" %s %s`,
				jsonExpr, textExpr, op, b.arg(s)), nil
		}
		return "", fmt.Errorf("docstore: range on unsupported value %T", f.Value)
	case docstore.OpIn:
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s IN (SELECT jsonb_array_elements(%s::jsonb))", jsonExpr, b.arg(string(raw))), nil
	case docstore.OpArrayContains:
		raw, err := json.Marshal([]any{f.Value})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("jsonb_typeof(%s) = 'array' AND %s @> %s::jsonb", jsonExpr, jsonExpr, b.arg(string(raw))), nil
	}
	return "", fmt.Errorf("docstore: unsupported operator %s", f.Op)
}

func stringValues(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, val := range vals {
			out = append(out, fmt.Sprint(val))
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
