package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vitatrack/health-sync/internal/model"
)

// ConsentRepo encapsulates database operations for device_consents.
type ConsentRepo struct{ DB *sql.DB }

func NewConsentRepo(db *sql.DB) *ConsentRepo { return &ConsentRepo{DB: db} }

// ReplaceForDevice replaces the full consent set for a device: all existing
// rows for (user, device, platform) are deleted and one row per submitted
// category inserted.  Grants are never merged incrementally — the submitted
// map is the complete truth.  granted_at/revoked_at are stamped from the
// boolean so the audit trail shows when each category last flipped.  Delete
// and insert run inside one transaction: a failed insert rolls the delete
// back, so a registered device is never left stripped of its consent rows.
func (r *ConsentRepo) ReplaceForDevice(ctx context.Context, userID uint64, deviceID, platform string, consents map[string]bool) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM device_consents WHERE user_id=? AND device_id=? AND platform=?",
		userID, deviceID, platform); err != nil {
		return err
	}
	if len(consents) == 0 {
		return nil
	}
	now := time.Now().UTC()
	// Build a multi-row INSERT with placeholders for each category.  Iterate
	// the known category list for a stable insert order.
	query := `INSERT INTO device_consents (user_id, device_id, platform, category, granted, granted_at, revoked_at) VALUES `
	args := make([]interface{}, 0, len(consents)*7)
	first := true
	for _, cat := range model.ConsentCategories {
		granted, ok := consents[cat]
		if !ok {
			continue
		}
		if !first {
			query += ","
		}
		first = false
		query += "(?, ?, ?, ?, ?, ?, ?)"
		var grantedAt, revokedAt interface{}
		if granted {
			grantedAt = now
		} else {
			revokedAt = now
		}
		args = append(args, userID, deviceID, platform, cat, granted, grantedAt, revokedAt)
	}
	if first {
		return nil // nothing matched the known categories
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// MapForDevice returns the stored consent rows for a device flattened into
// a category→granted map.  Unregistered devices yield an empty map.
func (r *ConsentRepo) MapForDevice(ctx context.Context, userID uint64, deviceID, platform string) (map[string]bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT category, granted FROM device_consents WHERE user_id=? AND device_id=? AND platform=?",
		userID, deviceID, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool, len(model.ConsentCategories))
	for rows.Next() {
		var (
			category string
			granted  bool
		)
		if err := rows.Scan(&category, &granted); err != nil {
			return nil, err
		}
		out[category] = granted
	}
	return out, rows.Err()
}
