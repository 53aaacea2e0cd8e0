package repository

import (
    "context"
    "database/sql"

    "github.com/vitatrack/health-sync/internal/model"
)

// SyncLogRepo encapsulates database operations for sync_logs.  A log row is
// inserted when ingress processing starts and finalized exactly once with
// the terminal status and counts; rows are append-only otherwise.
type SyncLogRepo struct{ DB *sql.DB }

func NewSyncLogRepo(db *sql.DB) *SyncLogRepo { return &SyncLogRepo{DB: db} }

// Insert creates the initial log row.  When the insert collides with the
// (user_id, idempotency_key) unique index it returns
// ErrDuplicateIdempotencyKey without writing anything: the caller then looks
// up the prior log and short-circuits the whole batch.  Relying on the index
// rather than a query-first check closes the window where two retries of the
// same request both pass an existence check.
func (r *SyncLogRepo) Insert(ctx context.Context, l model.SyncLog) (uint64, error) {
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO sync_logs (user_id, source, sync_type, device_id, hmac_valid, idempotency_key, range_start, range_end, status)
         VALUES (?,?,?,?,?,?,?,?,'started')`,
        l.UserID, l.Source, l.SyncType, l.DeviceID, l.HMACValid, l.IdempotencyKey, l.RangeStart, l.RangeEnd)
    if err != nil {
        if isDuplicateKey(err) {
            return 0, ErrDuplicateIdempotencyKey
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// FindByIdempotencyKey returns the id of the log previously recorded for
// (user, key).  Used on the duplicate-insert path to answer a retried
// request with the original log identifier.
func (r *SyncLogRepo) FindByIdempotencyKey(ctx context.Context, userID uint64, key string) (uint64, error) {
    var id uint64
    err := r.DB.QueryRowContext(ctx,
        "SELECT id FROM sync_logs WHERE user_id=? AND idempotency_key=? LIMIT 1",
        userID, key).Scan(&id)
    return id, err
}

// Finalize stamps the terminal status, completion time and counters on a
// log row.  Called exactly once per sync.
func (r *SyncLogRepo) Finalize(ctx context.Context, id uint64, status string, recordsSynced int, errorMessage string) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE sync_logs SET status=?, records_synced=?, error_message=?, completed_at=NOW() WHERE id=?",
        status, recordsSynced, errorMessage, id)
    return err
}

// RecentForUser returns the user's latest sync attempts, newest first.
func (r *SyncLogRepo) RecentForUser(ctx context.Context, userID uint64, limit int) ([]model.SyncLog, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT id,user_id,source,sync_type,device_id,hmac_valid,idempotency_key,
                DATE_FORMAT(range_start,'%Y-%m-%d'),DATE_FORMAT(range_end,'%Y-%m-%d'),
                started_at,completed_at,status,records_synced,COALESCE(error_message,'')
         FROM sync_logs WHERE user_id=? ORDER BY started_at DESC, id DESC LIMIT ?`,
        userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.SyncLog
    for rows.Next() {
        var (
            l         model.SyncLog
            completed sql.NullTime
        )
        if err := rows.Scan(&l.ID, &l.UserID, &l.Source, &l.SyncType, &l.DeviceID, &l.HMACValid,
            &l.IdempotencyKey, &l.RangeStart, &l.RangeEnd, &l.StartedAt, &completed,
            &l.Status, &l.RecordsSynced, &l.ErrorMessage); err != nil {
            return nil, err
        }
        if completed.Valid {
            t := completed.Time
            l.CompletedAt = &t
        }
        out = append(out, l)
    }
    return out, rows.Err()
}
