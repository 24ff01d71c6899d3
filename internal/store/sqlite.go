package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lqviet/boardhub/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const insertNotificationSQL = `
	INSERT OR REPLACE INTO notifications (
		id, title, message, type, priority, read, created_at,
		sender, related_type, related_id, related_name,
		client_only, correlation_id, position
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceNotifications atomically swaps the persisted collection. The
// slice order is preserved via the position column.
func (s *SQLiteStore) ReplaceNotifications(
	ctx context.Context,
	notifications []model.Notification,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertNotificationSQL)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, n := range notifications {
		if err := execInsert(ctx, stmt, n, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetNotifications returns the persisted collection newest-first.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM notifications ORDER BY position ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// UpsertNotification inserts or replaces a single notification at the
// head of the persisted order.
func (s *SQLiteStore) UpsertNotification(
	ctx context.Context,
	n model.Notification,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Shift everything down so the new row sits at the head.
	if _, err := tx.ExecContext(ctx, "UPDATE notifications SET position = position + 1"); err != nil {
		return fmt.Errorf("shifting notification positions: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertNotificationSQL)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	if err := execInsert(ctx, stmt, n, 0); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteNotification removes a notification by ID.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every persisted notification.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notifications")
	if err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// DeleteRead removes every read notification.
func (s *SQLiteStore) DeleteRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE read = 1")
	if err != nil {
		return fmt.Errorf("clearing read notifications: %w", err)
	}
	return nil
}

// MarkRead marks a single notification as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification as read.
func (s *SQLiteStore) MarkAllRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1")
	if err != nil {
		return fmt.Errorf("marking all notifications as read: %w", err)
	}
	return nil
}

// SetPreference stores a realtime sub-preference flag.
func (s *SQLiteStore) SetPreference(ctx context.Context, key string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO preferences (key, enabled, updated_at)
		VALUES (?, ?, ?)`,
		key, boolToInt(enabled), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting preference %q: %w", key, err)
	}
	return nil
}

// GetPreferences returns the stored realtime preference map.
func (s *SQLiteStore) GetPreferences(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT key, enabled FROM preferences")
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]bool)
	for rows.Next() {
		var (
			key     string
			enabled int
		)
		if err := rows.Scan(&key, &enabled); err != nil {
			return nil, fmt.Errorf("scanning preference row: %w", err)
		}
		prefs[key] = enabled != 0
	}

	return prefs, rows.Err()
}

// execInsert writes one notification row at the given position.
func execInsert(ctx context.Context, stmt *sqlx.Stmt, n model.Notification, position int) error {
	var relatedType, relatedID, relatedName string
	if n.Related != nil {
		relatedType = n.Related.Type
		relatedID = n.Related.ID
		relatedName = n.Related.Name
	}

	_, err := stmt.ExecContext(ctx,
		n.ID, n.Title, n.Message, string(n.Type), string(n.Priority),
		boolToInt(n.Read), n.CreatedAt.UTC(),
		n.Sender, relatedType, relatedID, relatedName,
		boolToInt(n.ClientOnly), n.CorrelationID, position,
	)
	if err != nil {
		return fmt.Errorf("upserting notification %s: %w", n.ID, err)
	}
	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n           model.Notification
		typ         string
		priority    string
		readInt     int
		createdAt   time.Time
		relatedType string
		relatedID   string
		relatedName string
		clientOnly  int
		position    int
	)

	err := rows.Scan(
		&n.ID, &n.Title, &n.Message, &typ, &priority,
		&readInt, &createdAt,
		&n.Sender, &relatedType, &relatedID, &relatedName,
		&clientOnly, &n.CorrelationID, &position,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Type = model.NotificationType(typ)
	n.Priority = model.Priority(priority)
	n.Read = readInt != 0
	n.CreatedAt = createdAt
	n.ClientOnly = clientOnly != 0

	if relatedType != "" || relatedID != "" {
		n.Related = &model.RelatedEntity{
			Type: relatedType,
			ID:   relatedID,
			Name: relatedName,
		}
	}

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
