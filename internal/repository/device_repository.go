package repository

import (
    "context"
    "database/sql"

    "github.com/vitatrack/health-sync/internal/model"
)

// DeviceRepo encapsulates database operations for the devices table.
type DeviceRepo struct{ DB *sql.DB }

func NewDeviceRepo(db *sql.DB) *DeviceRepo { return &DeviceRepo{DB: db} }

// Upsert registers a device or, when (user_id, device_id, platform) already
// exists, updates the row in place: the secret is replaced (rotation), the
// name/version refreshed and the device re-activated.  The ON DUPLICATE KEY
// form makes the lookup-then-write race-free under concurrent registration
// calls, and the LAST_INSERT_ID(id) trick makes LastInsertId return the
// existing row's id on the update path.
func (r *DeviceRepo) Upsert(ctx context.Context, d model.Device) (uint64, error) {
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO devices (user_id, device_id, platform, device_name, app_version, hmac_secret, is_active)
         VALUES (?,?,?,?,?,?,1)
         ON DUPLICATE KEY UPDATE
           id=LAST_INSERT_ID(id),
           device_name=VALUES(device_name),
           app_version=VALUES(app_version),
           hmac_secret=VALUES(hmac_secret),
           is_active=1,
           updated_at=NOW()`,
        d.UserID, d.DeviceID, d.Platform, d.DeviceName, d.AppVersion, d.HMACSecret)
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// Get fetches a device by its logical key.  sql.ErrNoRows means the device
// was never registered, which callers treat as a normal outcome.
func (r *DeviceRepo) Get(ctx context.Context, userID uint64, deviceID, platform string) (model.Device, error) {
    var (
        d        model.Device
        lastUsed sql.NullTime
    )
    err := r.DB.QueryRowContext(ctx,
        `SELECT id,user_id,device_id,platform,device_name,app_version,hmac_secret,is_active,created_at,updated_at,last_used_at
         FROM devices WHERE user_id=? AND device_id=? AND platform=? LIMIT 1`,
        userID, deviceID, platform).
        Scan(&d.ID, &d.UserID, &d.DeviceID, &d.Platform, &d.DeviceName, &d.AppVersion,
            &d.HMACSecret, &d.IsActive, &d.CreatedAt, &d.UpdatedAt, &lastUsed)
    if err != nil {
        return model.Device{}, err
    }
    if lastUsed.Valid {
        t := lastUsed.Time
        d.LastUsedAt = &t
    }
    return d, nil
}

// TouchLastUsed stamps last_used_at after a successfully verified sync.
func (r *DeviceRepo) TouchLastUsed(ctx context.Context, id uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE devices SET last_used_at=NOW() WHERE id=?", id)
    return err
}

// Deactivate revokes a device without deleting it.  Returns sql.ErrNoRows
// when no matching device exists.  MySQL reports zero affected rows both
// for "no such row" and "row unchanged" (already inactive, NOW() equal
// within the same second), so a zero count falls through to an existence
// check: revoking an already-revoked device is a success, not a 404.
func (r *DeviceRepo) Deactivate(ctx context.Context, userID uint64, deviceID, platform string) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE devices SET is_active=0, updated_at=NOW() WHERE user_id=? AND device_id=? AND platform=?",
        userID, deviceID, platform)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var id uint64
        err := r.DB.QueryRowContext(ctx,
            "SELECT id FROM devices WHERE user_id=? AND device_id=? AND platform=? LIMIT 1",
            userID, deviceID, platform).Scan(&id)
        if err != nil {
            return err // sql.ErrNoRows: the device really does not exist
        }
    }
    return nil
}
