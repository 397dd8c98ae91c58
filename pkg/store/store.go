// Package store persists snapshots and shutdown plans per host and phase.
//
// A phase is written as a unit: every category document, the snapshot
// header and (for precheck) the shutdown plan land together or not at all.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// Backend is a persistence medium for named JSON documents grouped by host
// and phase.
type Backend interface {
	// Commit replaces every document of host/phase with docs, atomically.
	Commit(ctx context.Context, host string, phase model.Phase, docs map[string][]byte) error
	// Read returns one document, or an error wrapping util.ErrNotFound.
	Read(ctx context.Context, host string, phase model.Phase, name string) ([]byte, error)
}

// Store reads and writes snapshots through a Backend.
type Store struct {
	backend Backend
}

// New creates a store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// SaveSnapshot persists snap and, when non-nil, the shutdown plan in one
// commit under the snapshot's phase.
func (s *Store) SaveSnapshot(ctx context.Context, snap *model.Snapshot, plan *model.ShutdownPlan) error {
	docs, err := snap.Documents()
	if err != nil {
		return err
	}
	if plan != nil {
		data, err := model.EncodePlan(plan)
		if err != nil {
			return err
		}
		docs[model.PlanDocument] = data
	}
	if err := s.backend.Commit(ctx, snap.Host, snap.Phase, docs); err != nil {
		return fmt.Errorf("saving %s snapshot for %s: %w", snap.Phase, snap.Host, err)
	}
	util.WithPhase(snap.Host, string(snap.Phase)).Infof("Saved snapshot (%d documents)", len(docs))
	return nil
}

// LoadSnapshot reads a complete snapshot.
func (s *Store) LoadSnapshot(ctx context.Context, host string, phase model.Phase) (*model.Snapshot, error) {
	return model.DecodeSnapshot(host, phase, func(name string) ([]byte, error) {
		return s.backend.Read(ctx, host, phase, name)
	})
}

// LoadPlan reads the shutdown plan saved with the precheck snapshot.
func (s *Store) LoadPlan(ctx context.Context, host string) (*model.ShutdownPlan, error) {
	data, err := s.backend.Read(ctx, host, model.PhasePrecheck, model.PlanDocument)
	if err != nil {
		return nil, err
	}
	return model.DecodePlan(host, data)
}

// ReadCategory returns the raw host-keyed document of one category.
func (s *Store) ReadCategory(ctx context.Context, host string, phase model.Phase, c model.Category) ([]byte, error) {
	return s.backend.Read(ctx, host, phase, string(c))
}

// IsNotFound reports whether err is a store miss.
func IsNotFound(err error) bool {
	return errors.Is(err, util.ErrNotFound)
}

func notFound(host string, phase model.Phase, name string) error {
	return fmt.Errorf("%s/%s/%s: %w", host, phase, name, util.ErrNotFound)
}
