// Package storage persists users and subscriptions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"subtrack/internal/core"
)

// ErrNotFound is returned when a row does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when inserting a user whose email is
// already registered.
var ErrEmailTaken = errors.New("email already taken")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		// Two concurrent registrations can both pass the lookup in
		// auth.Register; the UNIQUE index decides the loser here.
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (*core.User, error) {
	u := &core.User{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE "+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// --- subscriptions ---

const subscriptionColumns = `id, user_id, name, description, price, currency,
	billing_cycle, start_date, next_billing_date, category, website, logo, status`

// ListFilter narrows ListSubscriptions; zero values mean no filtering.
type ListFilter struct {
	Status   core.Status
	Category string
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions
			(`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Name, s.Description, s.Price.String(), s.Currency,
		string(s.Cycle), formatDate(s.StartDate), nullableDate(s.NextBillingDate),
		s.Category, s.Website, s.Logo, string(s.Status),
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved",
		"subscription_id", s.ID,
		"user_id", s.UserID,
		"billing_cycle", string(s.Cycle))
	return nil
}

// GetSubscription returns a single record scoped to its owner.
func (r *SQLiteRepository) GetSubscription(ctx context.Context, userID, id string) (*core.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		id, userID,
	)
	return scanSubscription(row)
}

// GetSubscriptionByID returns a record without ownership scoping. Only
// background workers use this; request handlers must go through
// GetSubscription.
func (r *SQLiteRepository) GetSubscriptionByID(ctx context.Context, id string) (*core.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	return scanSubscription(row)
}

// ListSubscriptions returns a user's records ordered by next billing date
// ascending, one-time purchases last.
func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID string, filter ListFilter) ([]core.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = ? AND deleted_at IS NULL`
	args := []any{userID}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	query += " ORDER BY next_billing_date IS NULL, next_billing_date ASC, name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// UpdateSubscription rewrites the mutable fields of an owned record and
// marks it pending for backup sync. The bumped version is returned for
// the sync message.
func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET name = ?, description = ?, price = ?, currency = ?,
			billing_cycle = ?, start_date = ?, next_billing_date = ?,
			category = ?, website = ?, logo = ?, status = ?,
			version = version + 1, synced = 0, sync_error = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
		RETURNING version`,
		s.Name, s.Description, s.Price.String(), s.Currency,
		string(s.Cycle), formatDate(s.StartDate), nullableDate(s.NextBillingDate),
		s.Category, s.Website, s.Logo, string(s.Status),
		s.ID, s.UserID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update subscription: %w", err)
	}
	return version, nil
}

// SoftDeleteSubscription hides an owned record. The row is kept and
// flagged unsynced so the backup sync can propagate the deletion.
func (r *SQLiteRepository) SoftDeleteSubscription(ctx context.Context, userID, id string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET deleted_at = CURRENT_TIMESTAMP, version = version + 1, synced = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
		RETURNING version`,
		id, userID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("soft delete subscription: %w", err)
	}
	return version, nil
}

// ListCategories returns the distinct category labels a user has applied,
// for form autocomplete.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM subscriptions
		WHERE user_id = ? AND deleted_at IS NULL AND category != ''
		ORDER BY category`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// --- renewal processing ---

// ListDueSubscriptions returns active recurring subscriptions across all
// users whose next billing date is on or before asOf.
func (r *SQLiteRepository) ListDueSubscriptions(ctx context.Context, asOf core.Date) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE deleted_at IS NULL
		  AND status = ?
		  AND next_billing_date IS NOT NULL
		  AND next_billing_date <= ?
		ORDER BY next_billing_date ASC`,
		string(core.StatusActive), formatDate(asOf),
	)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// AdvanceNextBilling moves a subscription's next billing date forward
// after a renewal and flags the row for backup sync.
func (r *SQLiteRepository) AdvanceNextBilling(ctx context.Context, id string, next core.Date) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET next_billing_date = ?, version = version + 1, synced = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL
		RETURNING version`,
		formatDate(next), id,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("advance next billing date: %w", err)
	}
	return version, nil
}

// --- backup sync bookkeeping ---

// PendingSyncSubscription is the minimal row data queued for backup sync.
type PendingSyncSubscription struct {
	ID      string
	Version int64
	Deleted bool
}

// GetPendingSyncSubscriptions returns rows not yet mirrored to the
// backup spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingSyncSubscriptions(ctx context.Context, limit int) ([]PendingSyncSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, deleted_at IS NOT NULL
		FROM subscriptions
		WHERE synced = 0 AND sync_error = 0
		ORDER BY updated_at ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending sync subscriptions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncSubscription
	for rows.Next() {
		var p PendingSyncSubscription
		if err := rows.Scan(&p.ID, &p.Version, &p.Deleted); err != nil {
			return nil, fmt.Errorf("scan pending sync row: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks a subscription as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET synced = 1, sync_error = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkSyncError marks a subscription as having failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET sync_error = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Subscription marked with sync error", "subscription_id", id)
	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*core.Subscription, error) {
	var (
		s         core.Subscription
		price     string
		cycle     string
		status    string
		startDate string
		nextDate  sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Description, &price, &s.Currency,
		&cycle, &startDate, &nextDate, &s.Category, &s.Website, &s.Logo, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}

	s.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse stored price %q: %w", price, err)
	}
	s.Cycle = core.BillingCycle(cycle)
	s.Status = core.Status(status)

	s.StartDate, err = parseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("parse stored start date %q: %w", startDate, err)
	}
	if nextDate.Valid {
		s.NextBillingDate, err = parseDate(nextDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse stored next billing date %q: %w", nextDate.String, err)
		}
	}
	return &s, nil
}

func formatDate(d core.Date) string {
	return d.Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

// nullableDate maps an empty Date to SQL NULL: one-time purchases carry
// no next billing date.
func nullableDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return formatDate(d)
}
