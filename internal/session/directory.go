package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

const collaboratorCollection = "colaboradores"

type Directory interface {
	FindCollaborator(ctx context.Context, badge string) (Collaborator, error)
}

// StoreDirectory looks collaborators up in the document store. Records may be
// keyed by badge or by a surrogate id with the badge in the matricula field.
type StoreDirectory struct {
	store docstore.Store
}

func NewStoreDirectory(store docstore.Store) *StoreDirectory {
	return &StoreDirectory{store: store}
}

func (d *StoreDirectory) FindCollaborator(ctx context.Context, badge string) (Collaborator, error) {
	doc, err := d.store.Get(ctx, collaboratorCollection, badge)
	if err == nil {
		return collaboratorFrom(badge, doc), nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Collaborator{}, fmt.Errorf("lookup %s: %v: %w", badge, err, apperrors.ErrConnectionFailed)
	}

	docs, err := d.store.QueryEqual(ctx, collaboratorCollection, "matricula", badge)
	if err != nil {
		return Collaborator{}, fmt.Errorf("query %s: %v: %w", badge, err, apperrors.ErrConnectionFailed)
	}
	if len(docs) == 0 {
		return Collaborator{}, fmt.Errorf("badge %s: %w", badge, apperrors.ErrNotFound)
	}
	return collaboratorFrom(badge, docs[0]), nil
}

func collaboratorFrom(badge string, doc docstore.Document) Collaborator {
	active, ok := docstore.Bool(doc.Data, "ativo")
	if !ok {
		active = true
	}
	name := docstore.String(doc.Data, "nome")
	if name == "" {
		name = badge
	}
	return Collaborator{
		Badge:  badge,
		Name:   name,
		Email:  docstore.String(doc.Data, "email"),
		Active: active,
	}
}
