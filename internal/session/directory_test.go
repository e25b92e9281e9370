package session

import (
	"context"
	"errors"
	"testing"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

type brokenStore struct {
	docstore.Store
}

func (brokenStore) Get(context.Context, string, string) (docstore.Document, error) {
	return docstore.Document{}, errors.New("unavailable")
}

func TestStoreDirectoryByKey(t *testing.T) {
	store := docstore.NewMemory()
	_ = store.MergeWrite(context.Background(), collaboratorCollection, "AB12", map[string]any{"nome": "Joao", "ativo": true})

	c, err := NewStoreDirectory(store).FindCollaborator(context.Background(), "AB12")
	if err != nil || c.Name != "Joao" || !c.Active {
		t.Fatalf("unexpected collaborator %+v %v", c, err)
	}
}

func TestStoreDirectoryFallsBackToField(t *testing.T) {
	store := docstore.NewMemory()
	_ = store.MergeWrite(context.Background(), collaboratorCollection, "auto-id", map[string]any{"matricula": "AB12", "ativo": false})

	c, err := NewStoreDirectory(store).FindCollaborator(context.Background(), "AB12")
	if err != nil || c.Active || c.Name != "AB12" {
		t.Fatalf("unexpected collaborator %+v %v", c, err)
	}
}

func TestStoreDirectoryMissingAndBroken(t *testing.T) {
	if _, err := NewStoreDirectory(docstore.NewMemory()).FindCollaborator(context.Background(), "ZZ"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := NewStoreDirectory(brokenStore{}).FindCollaborator(context.Background(), "ZZ"); !errors.Is(err, apperrors.ErrConnectionFailed) {
		t.Fatalf("expected connection failed, got %v", err)
	}
}
