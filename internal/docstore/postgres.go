package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentsSchema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

const mergeDocumentSQL = `INSERT INTO documents (collection, id, data, updated_at)
VALUES ($1, $2, $3::jsonb || (SELECT COALESCE(jsonb_object_agg(f, to_jsonb(now())), '{}'::jsonb) FROM unnest($4::text[]) AS f), now())
ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`

// Postgres stores every collection in a single jsonb table.
type Postgres struct {
	db   db.Querier
	subs *feedSubscriptions
}

func NewPostgres(q db.Querier, feed ChangeFeed) *Postgres {
	p := &Postgres{db: q}
	p.subs = newFeedSubscriptions(feed, p.List)
	return p
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, documentsSchema)
	return err
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	var updated time.Time
	err := p.db.QueryRow(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&raw, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return decodeRow(id, raw, updated)
}

func (p *Postgres) MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("merge %s: empty id", collection)
	}
	plain, stamped := splitServerFields(fields)
	body, err := json.Marshal(plain)
	if err != nil {
		return err
	}
	if stamped == nil {
		stamped = []string{}
	}
	if _, err := p.db.Exec(ctx, mergeDocumentSQL, collection, id, string(body), stamped); err != nil {
		return err
	}
	p.subs.changed(collection, id)
	return nil
}

func (p *Postgres) QueryEqual(ctx context.Context, collection, field string, value any) ([]Document, error) {
	match, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, err
	}
	return p.query(ctx,
		`SELECT id, data, updated_at FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY id`,
		collection, string(match))
}

func (p *Postgres) List(ctx context.Context, collection string) ([]Document, error) {
	return p.query(ctx,
		`SELECT id, data, updated_at FROM documents WHERE collection = $1 ORDER BY id`,
		collection)
}

func (p *Postgres) Append(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := p.MergeWrite(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return err
	}
	p.subs.changed(collection, id)
	return nil
}

func (p *Postgres) Subscribe(collection string, pred Predicate, onChange func([]Document)) (Unsubscribe, error) {
	return p.subs.subscribe(collection, pred, onChange)
}

func (p *Postgres) query(ctx context.Context, sql string, args ...any) ([]Document, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var id string
		var raw []byte
		var updated time.Time
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, err
		}
		doc, err := decodeRow(id, raw, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func decodeRow(id string, raw []byte, updated time.Time) (Document, error) {
	data := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return Document{}, fmt.Errorf("decode %s: %w", id, err)
		}
	}
	return Document{ID: id, Data: data, UpdatedAt: updated}, nil
}
