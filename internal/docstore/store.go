// Package docstore is the document database the portal shares between drivers,
// passengers and the admin dashboard. Records are flat field maps addressed by
// collection and id; writes merge fields instead of replacing documents.
package docstore

import (
	"context"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

var ErrNotFound = apperrors.ErrNotFound

type Document struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's own clock when written.
var ServerTimestamp = serverTimestamp{}

// Predicate filters documents delivered to a subscription. nil keeps all.
type Predicate func(Document) bool

// Unsubscribe cancels a subscription. It is safe to call more than once and no
// callback runs after it returns.
type Unsubscribe func()

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error
	QueryEqual(ctx context.Context, collection, field string, value any) ([]Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Append(ctx context.Context, collection string, fields map[string]any) (string, error)
	Delete(ctx context.Context, collection, id string) error
	Subscribe(collection string, pred Predicate, onChange func([]Document)) (Unsubscribe, error)
}

// ChangeFeed carries "collection changed" notifications between writers and
// subscribers of the SQL and Mongo stores.
type ChangeFeed interface {
	Publish(topic string, payload []byte)
	Listen(topic string) (<-chan []byte, func())
}

func splitServerFields(fields map[string]any) (map[string]any, []string) {
	plain := make(map[string]any, len(fields))
	var stamped []string
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			stamped = append(stamped, k)
			continue
		}
		plain[k] = v
	}
	return plain, stamped
}

func filter(docs []Document, pred Predicate) []Document {
	if pred == nil {
		return docs
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}
