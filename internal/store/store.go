package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"document-chat/internal/helper"
	"document-chat/internal/models"
)

// Store persists the documents a user chose to keep between sessions.
type Store interface {
	Load(ctx context.Context) ([]models.Document, error)
	Save(ctx context.Context, docs []models.Document) error
}

// Appender is implemented by stores that can add one document in a single
// step, without another writer slipping in between the read and the write.
type Appender interface {
	Append(ctx context.Context, doc models.Document) error
}

// Append adds doc at the end of the saved documents. Stores that are not an
// Appender are loaded, extended and saved back.
func Append(ctx context.Context, s Store, doc models.Document) error {
	if a, ok := s.(Appender); ok {
		return a.Append(ctx, doc)
	}
	docs, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, append(docs, doc))
}

// ErrUnknownVersion is returned when the file was written by a newer schema.
var ErrUnknownVersion = errors.New("unknown store schema version")

type fileEnvelope struct {
	Version   int               `json:"version"`
	Documents []models.Document `json:"documents"`
}

// JSONStore keeps the documents in a single indented JSON file. Writes
// overwrite the whole file and are not atomic. Calls within one process are
// serialised; other processes sharing the file are not coordinated with.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONStore(path string) *JSONStore {
	if path == "" {
		path = models.DefaultStorePath
	}
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string {
	return s.path
}

// Load returns the saved documents, or an empty list when the file does not
// exist yet. Both the versioned layout and the legacy bare array are read.
func (s *JSONStore) Load(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append loads, extends and rewrites the file under one lock, so concurrent
// appends in this process are never lost.
func (s *JSONStore) Append(ctx context.Context, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(docs, doc))
}

func (s *JSONStore) load() ([]models.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Document{}, nil
	}
	if err != nil {
		return nil, models.NewError(models.KindStoreRead, "load", s.path, err)
	}

	docs, err := decode(data)
	if err != nil {
		return nil, models.NewError(models.KindStoreRead, "load", s.path, err)
	}
	log.Debug().Str("path", s.path).Int("documents", len(docs)).Msg("Loaded saved documents")
	return docs, nil
}

func decode(data []byte) ([]models.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []models.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse legacy document list: %w", err)
		}
		if docs == nil {
			docs = []models.Document{}
		}
		return docs, nil
	}

	var env fileEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("failed to parse document file: %w", err)
	}
	if env.Version != models.StoreSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, env.Version)
	}
	if env.Documents == nil {
		env.Documents = []models.Document{}
	}
	return env.Documents, nil
}

// Save overwrites the file with docs.
func (s *JSONStore) Save(ctx context.Context, docs []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(docs)
}

func (s *JSONStore) save(docs []models.Document) error {
	if docs == nil {
		docs = []models.Document{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(fileEnvelope{Version: models.StoreSchemaVersion, Documents: docs}); err != nil {
		return models.NewError(models.KindStoreWrite, "save", s.path, err)
	}

	if err := helper.CreateParentFolder(s.path); err != nil {
		return models.NewError(models.KindStoreWrite, "save", s.path, err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return models.NewError(models.KindStoreWrite, "save", s.path, err)
	}
	log.Debug().Str("path", s.path).Int("documents", len(docs)).Msg("Saved documents")
	return nil
}
