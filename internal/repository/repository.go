// Package repository declares the persistence contracts of the app.
//
// Two backends implement them: jsonfile (the desktop app's on-disk format) and
// sqlite. Both follow the same rules:
//
//   - Loads never fail because of missing or corrupt data. They log a
//     warning and return the default (empty table, Guest snapshot).
//   - Saves overwrite the whole record and return an error when the medium
//     rejects the write. There is no retry and no partial-write rollback.
//   - Every call goes to storage; nothing is cached.
package repository

import (
	"context"

	"github.com/zzzxajak-prog/FitnessApp/internal/model"
)

// CredentialStore persists the username → credential table.
type CredentialStore interface {
	LoadCredentials(ctx context.Context) (model.CredentialTable, error)
	SaveCredentials(ctx context.Context, table model.CredentialTable) error
}

// SnapshotStore persists the single latest metrics snapshot.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (model.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Store is a backend providing both.
type Store interface {
	CredentialStore
	SnapshotStore
	Close() error
}
