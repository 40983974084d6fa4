// Package jsonfile stores credentials and the metrics snapshot as JSON
// files in one data directory:
//
//	<dir>/users.json      {"alice": {"password": "..."}}
//	<dir>/user_data.json  {"username": ..., "water_intake": ..., "goals": [...]}
//
// These are the files the desktop app wrote, so existing data
// directories keep working. Files are pretty-printed with four-space
// indentation and non-ASCII text is written as-is (goal periods and advice
// are Russian).
//
// Writes are atomic: the payload goes to a temp file in the same directory
// which is then renamed over the target, so a crash mid-write leaves either
// the old file or the new one, never half of each.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository"
)

// File names inside the data directory.
const (
	CredentialsFile = "users.json"
	SnapshotFile    = "user_data.json"
)

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// Store is the JSON file backend.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: creating data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Close is a no-op; files are opened and closed per call.
func (s *Store) Close() error { return nil }

// CredentialsPath returns the full path of the credential table.
func (s *Store) CredentialsPath() string { return filepath.Join(s.dir, CredentialsFile) }

// SnapshotPath returns the full path of the snapshot file.
func (s *Store) SnapshotPath() string { return filepath.Join(s.dir, SnapshotFile) }

// LoadCredentials reads the credential table. A missing or unparseable
// file yields an empty table.
func (s *Store) LoadCredentials(_ context.Context) (model.CredentialTable, error) {
	table := model.CredentialTable{}
	ok, err := s.readJSON(s.CredentialsPath(), &table)
	if err != nil {
		return nil, err
	}
	if !ok || table == nil {
		return model.CredentialTable{}, nil
	}
	return table, nil
}

// SaveCredentials overwrites the credential table.
func (s *Store) SaveCredentials(_ context.Context, table model.CredentialTable) error {
	if table == nil {
		table = model.CredentialTable{}
	}
	return s.writeJSON(s.CredentialsPath(), table)
}

// LoadSnapshot reads the last saved snapshot. A missing or unparseable
// file yields model.DefaultSnapshot().
//
// Files edited by hand are repaired the same way the sqlite backend repairs
// rows: negative metrics become zero and unknown goal periods fall back to
// model.DefaultPeriod.
func (s *Store) LoadSnapshot(_ context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	ok, err := s.readJSON(s.SnapshotPath(), &snap)
	if err != nil {
		return model.Snapshot{}, err
	}
	if !ok {
		return model.DefaultSnapshot(), nil
	}
	if snap.Username == "" {
		snap.Username = model.GuestUsername
	}
	for _, v := range []*float64{&snap.WaterIntake, &snap.TotalCalories, &snap.Steps} {
		if *v < 0 {
			s.logger.Warn("repairing negative metric in snapshot", slog.Float64("value", *v))
			*v = 0
		}
	}
	if snap.Goals == nil {
		snap.Goals = []model.Goal{}
	}
	for i := range snap.Goals {
		g := &snap.Goals[i]
		if !g.Period.Valid() {
			s.logger.Warn("unknown goal period, using default",
				slog.String("period", string(g.Period)),
				slog.String("goal", g.Desc),
			)
			g.Period = model.DefaultPeriod
		}
	}
	return snap, nil
}

// SaveSnapshot overwrites the snapshot file.
func (s *Store) SaveSnapshot(_ context.Context, snap model.Snapshot) error {
	if snap.Goals == nil {
		snap.Goals = []model.Goal{}
	}
	return s.writeJSON(s.SnapshotPath(), snap)
}

// readJSON decodes path into v. ok is false when the file is absent or
// corrupt; corruption is logged and otherwise ignored. Other read errors
// (permissions, I/O) are returned.
func (s *Store) readJSON(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("jsonfile: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("ignoring corrupt data file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return true, nil
}

// writeJSON encodes v and atomically replaces path with it.
func (s *Store) writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("jsonfile: encoding %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("jsonfile: creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	// Remove the temp file on any failure below; after a successful rename
	// it no longer exists and Remove is a harmless no-op.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("jsonfile: setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("jsonfile: replacing %s: %w", path, err)
	}
	return nil
}
