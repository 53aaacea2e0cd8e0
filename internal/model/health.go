package model

import "time"

// Sync log status values.  A log row starts as StatusStarted and is
// finalized exactly once with one of the terminal statuses.
const (
    SyncStatusStarted        = "started"
    SyncStatusSuccess        = "success"
    SyncStatusPartialSuccess = "partial_success"
    SyncStatusError          = "error"
)

// Sync type values recorded in the log: signed companion-app batches versus
// unsigned manual/web submissions.
const (
    SyncTypeCompanionApp = "companion_app"
    SyncTypeManual       = "manual"
)

// HealthMetric is one row per (user, calendar date) in the `health_metrics`
// table.  All metric fields are optional; a sync targeting an existing date
// overwrites the stored values rather than accumulating them.  Rows are
// never deleted by the sync subsystem.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owning user.
//  MetricDate – calendar date the values describe (DATE column).
//  Steps      – step count for the day (nullable).
//  HeartRate  – heart rate for the day (nullable).
//  SleepHours – hours slept (nullable).
//  Calories   – calories burned (nullable).
//  CreatedAt  – timestamp of first sync for the date.
//  UpdatedAt  – timestamp of last overwrite.
type HealthMetric struct {
    ID         uint64    // health_metrics.id
    UserID     uint64    // health_metrics.user_id
    MetricDate string    // health_metrics.metric_date, "YYYY-MM-DD"
    Steps      *int64    // health_metrics.steps (nullable)
    HeartRate  *float64  // health_metrics.heart_rate (nullable)
    SleepHours *float64  // health_metrics.sleep_hours (nullable)
    Calories   *float64  // health_metrics.calories (nullable)
    CreatedAt  time.Time // health_metrics.created_at
    UpdatedAt  time.Time // health_metrics.updated_at
}

// SyncLog is an immutable audit record of one sync ingress call, stored in
// the `sync_logs` table.  The row is inserted when processing starts and
// updated exactly once with the final status and counts.  The pair
// (UserID, IdempotencyKey) is unique; inserting a duplicate key is how a
// retried companion-app request is detected and short-circuited.
//
// Fields:
//  ID             – primary key identifier returned to the caller.
//  UserID         – user the batch belongs to.
//  Source         – "android", "ios" or "web".
//  SyncType       – companion_app or manual.
//  DeviceID       – app-supplied device identifier ("" for manual syncs).
//  HMACValid      – whether the batch carried a verified signature.
//  IdempotencyKey – client-chosen retry token (null for manual syncs).
//  RangeStart     – earliest item date in the batch (nullable).
//  RangeEnd       – latest item date in the batch (nullable).
//  StartedAt      – when processing began.
//  CompletedAt    – when processing finished (null while in flight).
//  Status         – started, success, partial_success or error.
//  RecordsSynced  – count of items persisted successfully.
//  ErrorMessage   – human-readable failure summary ("" when clean).
type SyncLog struct {
    ID             uint64     // sync_logs.id
    UserID         uint64     // sync_logs.user_id
    Source         string     // sync_logs.source
    SyncType       string     // sync_logs.sync_type
    DeviceID       string     // sync_logs.device_id
    HMACValid      bool       // sync_logs.hmac_valid
    IdempotencyKey *string    // sync_logs.idempotency_key (nullable)
    RangeStart     *string    // sync_logs.range_start (nullable DATE)
    RangeEnd       *string    // sync_logs.range_end (nullable DATE)
    StartedAt      time.Time  // sync_logs.started_at
    CompletedAt    *time.Time // sync_logs.completed_at (nullable)
    Status         string     // sync_logs.status
    RecordsSynced  int        // sync_logs.records_synced
    ErrorMessage   string     // sync_logs.error_message
}
