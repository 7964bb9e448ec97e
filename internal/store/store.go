// Package store persists the learning/memory record.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/model"
)

// DocumentID keys the single memory document in the SQL backends.
const DocumentID = "default"

// Store defines the persistence interface for the memory record.
type Store interface {
	// Load returns the persisted record, or nil when none exists yet.
	Load(ctx context.Context) (*model.MemoryRecord, error)
	Save(ctx context.Context, rec *model.MemoryRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.MemoryConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil
	case "file":
		s = NewFile(cfg.Path)
	case "sqlite":
		s, err = NewSQLite(cfg.Path)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// Nop keeps the record in process only.
type Nop struct{}

func (Nop) Load(context.Context) (*model.MemoryRecord, error) { return nil, nil }
func (Nop) Save(context.Context, *model.MemoryRecord) error   { return nil }
func (Nop) Migrate(context.Context) error                     { return nil }
func (Nop) Close() error                                      { return nil }

func encodeRecord(rec *model.MemoryRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	return data, eris.Wrap(err, "store: marshal record")
}

func decodeRecord(data []byte) (*model.MemoryRecord, error) {
	var rec model.MemoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "store: decode record")
	}
	rec.Normalize()
	return &rec, nil
}
