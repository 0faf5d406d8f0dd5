// Package export defines the outbound ports for mirroring subscriptions
// to an external backup.
package export

import (
	"context"

	"subtrack/internal/core"
)

type (
	// BackupWriter mirrors subscription records to an external store.
	// Upsert must be idempotent: a second call with the same ID replaces
	// the existing row instead of duplicating it.
	BackupWriter interface {
		Upsert(ctx context.Context, s core.Subscription) (rowRef string, err error)
		Delete(ctx context.Context, id string) error
	}
)
