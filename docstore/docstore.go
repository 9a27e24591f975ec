// Package docstore is a small document-database abstraction: loosely typed
// records grouped in slash-separated collections, equality queries, merge
// updates and server-assigned timestamps.
//
// Two backends are provided: a gorm/MySQL table of JSON documents and an
// embedded badger key-value store.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is the loosely typed field map a document holds.
type Record map[string]any

type serverTimestamp struct{}

// ServerTimestamp asks the backend to store the write time in a field.
var ServerTimestamp = serverTimestamp{}

// TimeLayout is how timestamps are stored. Fixed width keeps string order
// equal to time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrNotFound = errors.New("document not found")

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Filter struct {
	Field string
	Value any
}

type Order struct {
	Field     string
	Direction Direction
}

type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

func OrderBy(field string, dir Direction) Order {
	return Order{Field: field, Direction: dir}
}

type Snapshot struct {
	ID         string
	Path       string
	Data       Record
	CreateTime time.Time
	UpdateTime time.Time
}

// Write is one operation of a batch. Delete wins over Data; Merge keeps
// fields that Data does not mention.
type Write struct {
	Path   string
	Data   Record
	Merge  bool
	Delete bool
}

type Store interface {
	List(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// Get returns nil without error when the document does not exist.
	Get(ctx context.Context, path string) (*Snapshot, error)
	Create(ctx context.Context, collection string, data Record) (string, error)
	Set(ctx context.Context, path string, data Record) error
	// Update merges data into an existing document, ErrNotFound otherwise.
	Update(ctx context.Context, path string, data Record) error
	Delete(ctx context.Context, path string) error
	// BatchWrite applies writes in order. Backends try to commit them
	// together but callers must not depend on atomicity.
	BatchWrite(ctx context.Context, writes []Write) error
	Close() error
}

// SplitPath splits a document path into its collection and id.
func SplitPath(path string) (collection string, id string, err error) {
	segs := segments(path)
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// Join builds a document path from a collection and an id.
func Join(collection, id string) string {
	return strings.Trim(collection, "/") + "/" + id
}

func checkCollection(collection string) (string, error) {
	segs := segments(collection)
	if len(segs) == 0 || len(segs)%2 != 1 {
		return "", fmt.Errorf("invalid collection path %q", collection)
	}
	return strings.Join(segs, "/"), nil
}

func segments(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	out := raw[:0]
	for _, s := range raw {
		if s == "" {
			return nil
		}
		out = append(out, s)
	}
	return out
}
