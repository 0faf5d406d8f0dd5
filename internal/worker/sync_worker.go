// Package worker mirrors subscription records to the backup spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/export"
	"subtrack/internal/storage"
)

// Storage is the repository surface the sync worker needs. Implemented
// by storage.SQLiteRepository.
type Storage interface {
	GetSubscriptionByID(ctx context.Context, id string) (*core.Subscription, error)
	GetPendingSyncSubscriptions(ctx context.Context, limit int) ([]storage.PendingSyncSubscription, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker mirrors subscriptions from SQLite to the backup writer.
type SyncWorker struct {
	storage   Storage
	backup    export.BackupWriter
	batchSize int
}

func NewSyncWorker(storage Storage, backup export.BackupWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		backup:    backup,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single sync message from AMQP. The
// current row is read from SQLite so a stale message always mirrors the
// latest state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SubscriptionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"subscription_id", msg.ID,
		"version", msg.Version,
		"deleted", msg.Deleted)

	if msg.Deleted {
		return w.deleteFromBackup(ctx, msg.ID)
	}

	sub, err := w.storage.GetSubscriptionByID(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and consume; mirror the deletion.
		return w.deleteFromBackup(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get subscription from storage: %w", err)
	}

	return w.mirrorToBackup(ctx, sub)
}

// ProcessPendingSubscriptions sweeps rows that were never mirrored.
// This is the recovery path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingSubscriptions(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains the pending backlog at worker startup with a
// larger batch, to recover from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncSubscriptions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending subscriptions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending subscriptions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending subscriptions on startup, processing",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		if err := w.syncPending(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to sync subscription during startup",
				"subscription_id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingSyncSubscriptions(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending subscriptions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending subscriptions", "count", len(pending))

	for _, p := range pending {
		if err := w.syncPending(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to sync subscription",
				"subscription_id", p.ID, "error", err)
		}
	}
	return nil
}

func (w *SyncWorker) syncPending(ctx context.Context, p storage.PendingSyncSubscription) error {
	if p.Deleted {
		return w.deleteFromBackup(ctx, p.ID)
	}

	sub, err := w.storage.GetSubscriptionByID(ctx, p.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return w.deleteFromBackup(ctx, p.ID)
	}
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, p.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"subscription_id", p.ID, "error", markErr)
		}
		return fmt.Errorf("get subscription: %w", err)
	}

	return w.mirrorToBackup(ctx, sub)
}

func (w *SyncWorker) mirrorToBackup(ctx context.Context, sub *core.Subscription) error {
	ref, err := w.backup.Upsert(ctx, *sub)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, sub.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"subscription_id", sub.ID, "error", markErr)
		}
		return fmt.Errorf("mirror to backup: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, sub.ID); err != nil {
		// The mirror write succeeded; the sweep will retry the flag.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"subscription_id", sub.ID, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored subscription",
		"subscription_id", sub.ID,
		"backup_ref", ref,
		"name", sub.Name)
	return nil
}

func (w *SyncWorker) deleteFromBackup(ctx context.Context, id string) error {
	if err := w.backup.Delete(ctx, id); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"subscription_id", id, "error", markErr)
		}
		return fmt.Errorf("delete from backup: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"subscription_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored subscription deletion", "subscription_id", id)
	return nil
}
