// Package snapshot keeps the last known good state of each household in SQLite.
//
// A snapshot lets the CLI show a household while the retirement service is
// unreachable, and is the only storage when no service is configured.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/snapshot/migrations"
	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// Household is the saved state of one household.
type Household struct {
	Members []retirement.FamilyMember
	Funds   []retirement.RetirementFund
	// Unsynced collections hold local changes the service has not accepted yet.
	MembersUnsynced bool
	FundsUnsynced   bool
	SavedAt         time.Time
}

// Store persists household snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the snapshot of userID. The boolean is false when none was ever saved.
func (s *Store) Load(ctx context.Context, userID string) (Household, bool, error) {
	if err := ctx.Err(); err != nil {
		return Household{}, false, err
	}
	var (
		membersJSON, fundsJSON         string
		membersUnsynced, fundsUnsynced bool
		savedAt                        int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT members_json, funds_json, members_unsynced, funds_unsynced, saved_at FROM households WHERE user_id = ?`,
		userID,
	).Scan(&membersJSON, &fundsJSON, &membersUnsynced, &fundsUnsynced, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Household{}, false, nil
	}
	if err != nil {
		return Household{}, false, fmt.Errorf("load snapshot %q: %w", userID, err)
	}

	h := Household{MembersUnsynced: membersUnsynced, FundsUnsynced: fundsUnsynced, SavedAt: time.UnixMilli(savedAt).UTC()}
	if err := json.Unmarshal([]byte(membersJSON), &h.Members); err != nil {
		return Household{}, false, fmt.Errorf("decode members of snapshot %q: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(fundsJSON), &h.Funds); err != nil {
		return Household{}, false, fmt.Errorf("decode funds of snapshot %q: %w", userID, err)
	}
	return h, true, nil
}

// Save replaces the snapshot of userID.
func (s *Store) Save(ctx context.Context, userID string, h Household) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	members := h.Members
	if members == nil {
		members = []retirement.FamilyMember{}
	}
	funds := h.Funds
	if funds == nil {
		funds = []retirement.RetirementFund{}
	}
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	fundsJSON, err := json.Marshal(funds)
	if err != nil {
		return fmt.Errorf("encode funds: %w", err)
	}
	savedAt := h.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO households (user_id, members_json, funds_json, members_unsynced, funds_unsynced, saved_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    members_json = excluded.members_json,
    funds_json = excluded.funds_json,
    members_unsynced = excluded.members_unsynced,
    funds_unsynced = excluded.funds_unsynced,
    saved_at = excluded.saved_at`,
		userID, string(membersJSON), string(fundsJSON), h.MembersUnsynced, h.FundsUnsynced, savedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", userID, err)
	}
	return nil
}

// Delete removes the snapshot of userID, if any.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM households WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", userID, err)
	}
	return nil
}
