// Package storage archives exported trips and keeps an index of them.
package storage

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/db"

	"github.com/google/uuid"
)

type Object struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db       db.Querier
	uploader Uploader
}

func NewService(db db.Querier, uploader Uploader) *Service {
	return &Service{db: db, uploader: uploader}
}

func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS storage_objects (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			url TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS storage_objects_owner_idx ON storage_objects (owner);
	`)
	return err
}

func (s *Service) SaveObject(ctx context.Context, owner, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, owner, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, owner, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Archive uploads body under key and records it for owner. The object kind is
// the key's extension.
func (s *Service) Archive(ctx context.Context, owner, key, contentType string, body []byte) error {
	url, err := s.uploader.Upload(ctx, key, contentType, bytes.NewReader(body))
	if err != nil {
		return err
	}
	_, err = s.SaveObject(ctx, owner, url, strings.TrimPrefix(path.Ext(key), "."))
	return err
}

func (s *Service) Objects(ctx context.Context, owner string) ([]Object, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner, url, kind, created_at
		FROM storage_objects WHERE owner=$1
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objects := []Object{}
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.ID, &o.Owner, &o.URL, &o.Kind, &o.CreatedAt); err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}
