package store

import (
	"context"
	"fmt"
	"log"

	"github.com/etnz/retirement/config"
	"github.com/etnz/retirement/remote"
	"github.com/etnz/retirement/snapshot"
)

// Open returns a Store wired from cfg: a remote client unless offline, and a
// snapshot cache restored into the store when SnapshotPath is set.
//
// The store is not fetched yet. Close it to release the snapshot database.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Store, error) {
	var r Remote
	if !cfg.Offline() {
		r = remote.New(cfg.BackendURL, remote.WithTimeout(cfg.Timeout), remote.WithVerbose(cfg.Verbose))
	}

	if cfg.SnapshotPath != "" {
		snap, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("cannot open snapshots: %w", err)
		}
		opts = append([]Option{WithSnapshots(snap), withCloser(snap)}, opts...)
	}

	s := New(r, cfg.UserID, opts...)
	found, err := s.Restore(ctx)
	if err != nil {
		log.Printf("cannot restore the household snapshot (ignored): %v", err)
	}
	if found && cfg.Verbose {
		log.Printf("restored household %q from %s", cfg.UserID, cfg.SnapshotPath)
	}
	return s, nil
}
