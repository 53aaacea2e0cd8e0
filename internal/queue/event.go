// Package queue defines message payloads exchanged over the message broker.
package queue

// SyncCompletedEvent is published after a health-data sync finishes
// processing, whatever its final status.  It carries enough information for
// downstream consumers (audit logging, notifications, analytics) without
// querying the primary database.  The device HMAC secret is never part of
// the event.
type SyncCompletedEvent struct {
    SyncLogID     uint64 `json:"sync_log_id"`
    UserID        uint64 `json:"user_id"`
    Source        string `json:"source"`    // android | ios | web
    SyncType      string `json:"sync_type"` // companion_app | manual
    DeviceID      string `json:"device_id,omitempty"`
    HMACValid     bool   `json:"hmac_valid"`
    Status        string `json:"status"` // success | partial_success | error
    RecordsSynced int    `json:"records_synced"`
    FailedItems   int    `json:"failed_items"`
    RangeStart    string `json:"range_start,omitempty"`
    RangeEnd      string `json:"range_end,omitempty"`
    CompletedAt   string `json:"completed_at"`
}
