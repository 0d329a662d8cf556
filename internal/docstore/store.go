// Package docstore defines the document store the engine reads and writes
// through, together with an in-memory implementation.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Batch and lookup ceilings shared by every backend.
const (
	MaxBatchWrites = 400
	MaxInKeys      = 10
)

// FieldID addresses the document id in filters and ordering.
const FieldID = "__name__"

// PrefixUpperBound is appended to a prefix to build an inclusive range end.
const PrefixUpperBound = "\uf8ff"

var (
	ErrContention    = errors.New("docstore: too much contention on document")
	ErrNotFound      = errors.New("docstore: document not found")
	ErrBatchTooLarge = fmt.Errorf("docstore: batch exceeds %d writes", MaxBatchWrites)
	ErrTooManyKeys   = fmt.Errorf("docstore: in filter exceeds %d keys", MaxInKeys)
)

// Op is a filter operator.
type Op string

const (
	OpEq            Op = "=="
	OpGte           Op = ">="
	OpLte           Op = "<="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

// Filter restricts a query on a single field. Dotted field names address
// nested values.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Filter  { return Filter{Field: field, Op: OpEq, Value: value} }
func Gte(field string, value any) Filter { return Filter{Field: field, Op: OpGte, Value: value} }
func Lte(field string, value any) Filter { return Filter{Field: field, Op: OpLte, Value: value} }

func ArrayContains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// In matches documents whose field equals one of values.
func In(field string, values []string) Filter {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Filter{Field: field, Op: OpIn, Value: vals}
}

// PrefixRange matches string fields starting with prefix.
func PrefixRange(field, prefix string) []Filter {
	return []Filter{Gte(field, prefix), Lte(field, prefix+PrefixUpperBound)}
}

// Query describes a single-collection lookup. Without OrderBy, results are
// ordered by the first range filter field, or by id. StartAfter is an id
// cursor and is only valid with id ordering.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Select     []string
	StartAfter string
}

// Where appends filters and returns the query.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

func (q Query) orderField() string {
	if q.OrderBy != "" {
		return q.OrderBy
	}
	for _, f := range q.Filters {
		if f.Op == OpGte || f.Op == OpLte {
			return f.Field
		}
	}
	return FieldID
}

// Validate rejects queries no backend can serve.
func (q Query) Validate() error {
	if q.Collection == "" {
		return errors.New("docstore: query without collection")
	}
	for _, f := range q.Filters {
		if f.Op == OpIn {
			if vals, ok := f.Value.([]any); ok && len(vals) > MaxInKeys {
				return ErrTooManyKeys
			}
		}
	}
	if q.StartAfter != "" && q.orderField() != FieldID {
		return errors.New("docstore: StartAfter requires id ordering")
	}
	return nil
}

// Document is a stored document.
type Document struct {
	ID   string
	Data map[string]any
}

// Decode unmarshals the document data into v.
func (d Document) Decode(v any) error {
	return Decode(d.Data, v)
}

// WriteMode selects how a write combines with the existing document.
type WriteMode int

const (
	// ModeSet replaces the document.
	ModeSet WriteMode = iota
	// ModeMerge deep-merges fields into the document, creating it if absent.
	ModeMerge
	// ModeUpdate deep-merges fields and fails with ErrNotFound if absent.
	ModeUpdate
	// ModeDelete removes the document.
	ModeDelete
)

// Write is one entry of a batch.
type Write struct {
	Collection string
	ID         string
	Fields     map[string]any
	Mode       WriteMode
}

// TxFunc receives the current document data (nil when absent) and returns
// the replacement. Returning nil data skips the write.
type TxFunc func(current map[string]any) (map[string]any, error)

// Store is the narrow document store contract.
type Store interface {
	Query(ctx context.Context, q Query) ([]Document, error)
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// RunTransaction applies fn atomically to a single document, retrying on
	// conflicting writes and failing with ErrContention when attempts run out.
	RunTransaction(ctx context.Context, collection, id string, fn TxFunc) error
	// BatchWrite applies up to MaxBatchWrites writes all-or-nothing.
	BatchWrite(ctx context.Context, writes []Write) error
}

// Path joins collection and document segments into a collection path.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// Encode converts v into document data.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode converts document data into v.
func Decode(data map[string]any, v any) error {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// DecodeField decodes a single top-level field into v. Missing fields leave v untouched.
func DecodeField(data map[string]any, field string, v any) error {
	value, ok := data[field]
	if !ok || value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("decode field %s: %w", field, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode field %s: %w", field, err)
	}
	return nil
}

// Chunk splits items into slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// BatchWriteAll splits writes into MaxBatchWrites chunks. Each chunk is
// atomic; the sequence is not.
func BatchWriteAll(ctx context.Context, store Store, writes []Write) error {
	for _, chunk := range Chunk(writes, MaxBatchWrites) {
		if err := store.BatchWrite(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}
