// Copyright 2025 Certen Protocol
//
// Embedded lifecycle persistence for operators who don't want to stand up
// Postgres: a thin wrapper over CometBFT's dbm.DB with the relay engine
// owning the encoding.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// LocalStore persists PacketLifecycle rows in an embedded goleveldb
// database, for single-operator deployments that would rather not run a
// separate Postgres instance alongside the relayer.
type LocalStore struct {
	db dbm.DB
}

// NewLocalStore opens (creating if absent) a goleveldb database at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	db, err := dbm.NewGoLevelDB("relayer-lifecycles", dir)
	if err != nil {
		return nil, fmt.Errorf("open embedded lifecycle database in %s: %w", dir, err)
	}
	return &LocalStore{db: db}, nil
}

// Save serializes l as JSON under its PacketKey, using SetSync for durable
// writes.
func (s *LocalStore) Save(ctx context.Context, l *PacketLifecycle) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal lifecycle %s: %w", l.Key, err)
	}
	if err := s.db.SetSync([]byte(l.Key.String()), data); err != nil {
		return fmt.Errorf("persist lifecycle %s: %w", l.Key, err)
	}
	return nil
}

// Load iterates every key in the database and decodes it back into a
// PacketLifecycle, skipping terminal states.
func (s *LocalStore) Load(ctx context.Context) ([]*PacketLifecycle, error) {
	iter, err := s.db.Iterator(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("iterate embedded lifecycle database: %w", err)
	}
	defer iter.Close()

	var out []*PacketLifecycle
	for ; iter.Valid(); iter.Next() {
		l := &PacketLifecycle{}
		if err := json.Unmarshal(iter.Value(), l); err != nil {
			return nil, fmt.Errorf("unmarshal lifecycle row %q: %w", string(iter.Key()), err)
		}
		if l.State == StateAcknowledged || l.State == StateTimedOut || l.State == StateFailed {
			continue
		}
		out = append(out, l)
	}
	return out, iter.Error()
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

var _ Store = (*LocalStore)(nil)
