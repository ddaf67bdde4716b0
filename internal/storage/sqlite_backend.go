// Package storage provides row backends for the notification metrics store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedsync/internal/models"

	_ "modernc.org/sqlite"
)

var (
	ErrDuplicateRow = errors.New("metrics row already exists")
	ErrRowNotFound  = errors.New("metrics row not found")
)

// SQLiteBackend stores metrics rows in a single SQLite table.
type SQLiteBackend struct {
	conn *sql.DB
}

// NewSQLiteBackend opens or creates the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serializes writers.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	b := &SQLiteBackend{conn: conn}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notification_groups (
		row_key TEXT PRIMARY KEY,
		server TEXT NOT NULL,
		account_id TEXT NOT NULL,
		group_key TEXT NOT NULL,
		type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		most_recent_id INTEGER NOT NULL DEFAULT 0,
		most_recent_at INTEGER NOT NULL,
		day_start INTEGER NOT NULL,
		related_status_id TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_notification_groups_account
		ON notification_groups (server, account_id, day_start);
	`
	_, err := b.conn.Exec(schema)
	return err
}

const selectColumns = "server, account_id, group_key, type, count, most_recent_id, most_recent_at, day_start, related_status_id"

func (b *SQLiteBackend) Fetch(ctx context.Context, filter models.MetricsFilter) ([]models.MetricsNotificationGroup, error) {
	where := []string{"server = ?", "account_id = ?"}
	args := []any{filter.Server, filter.AccountID}
	if filter.GroupKey != "" {
		where = append(where, "group_key = ?")
		args = append(args, filter.GroupKey)
	}
	if !filter.DayStartBefore.IsZero() {
		where = append(where, "day_start < ?")
		args = append(args, filter.DayStartBefore.UnixNano())
	}
	query := "SELECT " + selectColumns + " FROM notification_groups WHERE " +
		strings.Join(where, " AND ") + " ORDER BY group_key"

	rows, err := b.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MetricsNotificationGroup
	for rows.Next() {
		var (
			row                 models.MetricsNotificationGroup
			typ                 string
			mostRecent, dayNano int64
			related             sql.NullString
		)
		if err := rows.Scan(&row.Server, &row.AccountID, &row.GroupKey, &typ, &row.Count,
			&row.MostRecentID, &mostRecent, &dayNano, &related); err != nil {
			return nil, err
		}
		row.Type = models.NotificationType(typ)
		row.MostRecentAt = time.Unix(0, mostRecent).UTC()
		row.DayStart = time.Unix(0, dayNano).UTC()
		row.RelatedStatusID = related.String
		out = append(out, row)
	}
	return out, rows.Err()
}

func (b *SQLiteBackend) Insert(ctx context.Context, row models.MetricsNotificationGroup) error {
	_, err := b.conn.ExecContext(ctx,
		`INSERT INTO notification_groups (row_key, `+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RowKey(), row.Server, row.AccountID, row.GroupKey, string(row.Type), row.Count,
		row.MostRecentID, row.MostRecentAt.UnixNano(), row.DayStart.UnixNano(), row.RelatedStatusID)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %s", ErrDuplicateRow, row.RowKey())
	}
	return err
}

func (b *SQLiteBackend) Update(ctx context.Context, row models.MetricsNotificationGroup) error {
	res, err := b.conn.ExecContext(ctx,
		`UPDATE notification_groups
		 SET type = ?, count = ?, most_recent_id = ?, most_recent_at = ?, day_start = ?, related_status_id = ?
		 WHERE row_key = ?`,
		string(row.Type), row.Count, row.MostRecentID, row.MostRecentAt.UnixNano(), row.DayStart.UnixNano(),
		row.RelatedStatusID, row.RowKey())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, row.RowKey())
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, rows []models.MetricsNotificationGroup) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM notification_groups WHERE row_key = ?")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.RowKey()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
