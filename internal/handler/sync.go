package handler

import (
    "bytes"
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "io"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/vitatrack/health-sync/internal/config"
    "github.com/vitatrack/health-sync/internal/model"
    "github.com/vitatrack/health-sync/internal/queue"
    "github.com/vitatrack/health-sync/internal/repository"
    queue_publisher "github.com/vitatrack/health-sync/internal/service"
    "github.com/vitatrack/health-sync/internal/utils"
)

// Header names used by the companion-app sync path.
const (
    HeaderSignature      = "X-Signature"
    HeaderIdempotencyKey = "X-Idempotency-Key"
)

// SyncHandler implements the health-data sync ingress and read path.
type SyncHandler struct {
    Cfg     config.Config
    Devices *repository.DeviceRepo
    Metrics *repository.HealthMetricRepo
    Logs    *repository.SyncLogRepo
}

func NewSyncHandler(cfg config.Config, devices *repository.DeviceRepo, metrics *repository.HealthMetricRepo, logs *repository.SyncLogRepo) *SyncHandler {
    if devices == nil || metrics == nil || logs == nil {
        panic("nil repository passed to NewSyncHandler")
    }
    return &SyncHandler{Cfg: cfg, Devices: devices, Metrics: metrics, Logs: logs}
}

// ----- DTOs -----

// dayRecord is one day's worth of metrics as submitted by a client.  All
// metric fields are optional; only the date is required.
type dayRecord struct {
    Date       string   `json:"date"`
    Steps      *int64   `json:"steps,omitempty"`
    HeartRate  *float64 `json:"heart_rate,omitempty"`
    SleepHours *float64 `json:"sleep_hours,omitempty"`
    Calories   *float64 `json:"calories,omitempty"`
}

// syncEnvelope is the companion-app request shape: device identity, the
// covered time window (informational) and the batch under "data".
type syncEnvelope struct {
    DeviceID string `json:"deviceId"`
    Platform string `json:"platform"`
    Window   *struct {
        From string `json:"from"`
        To   string `json:"to"`
    } `json:"window,omitempty"`
    Data []dayRecord `json:"data"`
}

// itemResult is the per-item outcome reported back to the caller.  Item
// failures never change the transport status; callers inspect this list.
type itemResult struct {
    Date   string `json:"date,omitempty"`
    Status string `json:"status"` // "success" | "error"
    Error  string `json:"error,omitempty"`
}

// parseSyncBody decodes the raw request body.  Three shapes are accepted:
// a bare array of day records, a bare single day record (both manual path),
// or an envelope object carrying deviceId/platform and the array under
// "data" (companion path).  The two paths are distinguished solely by the
// presence of the deviceId and platform fields in the parsed body.
func parseSyncBody(raw []byte) (records []dayRecord, env *syncEnvelope, err error) {
    trimmed := bytes.TrimLeft(raw, " \t\r\n")
    if len(trimmed) == 0 {
        return nil, nil, fmt.Errorf("empty body")
    }
    if trimmed[0] == '[' {
        if err := json.Unmarshal(raw, &records); err != nil {
            return nil, nil, err
        }
        return records, nil, nil
    }

    var probe struct {
        DeviceID string `json:"deviceId"`
        Platform string `json:"platform"`
    }
    if err := json.Unmarshal(raw, &probe); err != nil {
        return nil, nil, err
    }
    if probe.DeviceID != "" && probe.Platform != "" {
        var e syncEnvelope
        if err := json.Unmarshal(raw, &e); err != nil {
            return nil, nil, err
        }
        return e.Data, &e, nil
    }

    // A bare single object is accepted as a one-element manual batch.
    var one dayRecord
    if err := json.Unmarshal(raw, &one); err != nil {
        return nil, nil, err
    }
    return []dayRecord{one}, nil, nil
}

// batchDateRange computes the earliest and latest valid item dates in the
// batch.  The range is computed explicitly rather than trusting the client
// to have sorted the array.  Returns nils when no item carries a valid date.
func batchDateRange(records []dayRecord) (start, end *string) {
    for i := range records {
        d := records[i].Date
        if !validMetricDate(d) {
            continue
        }
        if start == nil || d < *start {
            s := d
            start = &s
        }
        if end == nil || d > *end {
            e := d
            end = &e
        }
    }
    return start, end
}

// validMetricDate reports whether s is a well-formed YYYY-MM-DD date.
func validMetricDate(s string) bool {
    if s == "" {
        return false
    }
    _, err := time.Parse("2006-01-02", s)
    return err == nil
}

// Sync accepts one batch of daily health metrics.  Companion-app batches
// must carry a valid HMAC signature over the exact raw body plus an
// idempotency key; manual/web batches carry neither.  Item failures are
// isolated: the batch-level HTTP status says whether the call was processed
// at all, not whether every item inside it succeeded.
func (h *SyncHandler) Sync(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    // The signature covers the exact raw bytes, so the body is read before
    // any JSON decoding.
    raw, err := io.ReadAll(c.Request().Body)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
    }

    records, env, err := parseSyncBody(raw)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed JSON body"})
    }
    if len(records) > h.Cfg.SyncMaxBatch {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("batch exceeds %d items", h.Cfg.SyncMaxBatch)})
    }

    entry := model.SyncLog{
        UserID:   uid,
        Source:   "web",
        SyncType: model.SyncTypeManual,
    }
    var deviceRowID uint64

    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    if env != nil {
        // Companion path: headers first, then device lookup, then the
        // signature — each failure class terminates before the next stage
        // and nothing is written on any of them.
        platform := strings.ToLower(strings.TrimSpace(env.Platform))
        if !validPlatform(platform) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "platform must be android or ios"})
        }
        signature := c.Request().Header.Get(HeaderSignature)
        idemKey := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
        if signature == "" || idemKey == "" {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "X-Signature and X-Idempotency-Key headers are required"})
        }

        device, err := h.Devices.Get(ctx, uid, strings.TrimSpace(env.DeviceID), platform)
        if err != nil {
            if err == sql.ErrNoRows {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "device not registered"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        if !device.IsActive {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "device is deactivated"})
        }
        if !utils.VerifySignature(device.HMACSecret, raw, signature) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
        }

        deviceRowID = device.ID
        entry.Source = platform
        entry.SyncType = model.SyncTypeCompanionApp
        entry.DeviceID = device.DeviceID
        entry.HMACValid = true
        entry.IdempotencyKey = &idemKey
    }

    entry.RangeStart, entry.RangeEnd = batchDateRange(records)

    logID, err := h.Logs.Insert(ctx, entry)
    if err != nil {
        if err == repository.ErrDuplicateIdempotencyKey && entry.IdempotencyKey != nil {
            // Retried request: the unique index caught the duplicate key.
            // Answer with the original log id, touching nothing.
            priorID, err := h.Logs.FindByIdempotencyKey(ctx, uid, *entry.IdempotencyKey)
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
            }
            return c.JSON(http.StatusOK, echo.Map{
                "message":   "Request already processed",
                "syncLogId": priorID,
            })
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    results := make([]itemResult, 0, len(records))
    succeeded := 0
    for _, rec := range records {
        if rec.Date == "" {
            results = append(results, itemResult{Status: "error", Error: "missing date"})
            continue
        }
        if !validMetricDate(rec.Date) {
            results = append(results, itemResult{Date: rec.Date, Status: "error", Error: "invalid date, expected YYYY-MM-DD"})
            continue
        }
        err := h.Metrics.Upsert(ctx, model.HealthMetric{
            UserID:     uid,
            MetricDate: rec.Date,
            Steps:      rec.Steps,
            HeartRate:  rec.HeartRate,
            SleepHours: rec.SleepHours,
            Calories:   rec.Calories,
        })
        if err != nil {
            log.Printf("sync: upsert failed for user=%d date=%s: %v", uid, rec.Date, err)
            results = append(results, itemResult{Date: rec.Date, Status: "error", Error: "failed to save record"})
            continue
        }
        results = append(results, itemResult{Date: rec.Date, Status: "success"})
        succeeded++
    }
    failed := len(records) - succeeded

    status := model.SyncStatusSuccess
    errMsg := ""
    if failed > 0 {
        status = model.SyncStatusPartialSuccess
        errMsg = fmt.Sprintf("%d of %d records failed", failed, len(records))
    }
    if err := h.Logs.Finalize(ctx, logID, status, succeeded, errMsg); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    if entry.HMACValid {
        if err := h.Devices.TouchLastUsed(ctx, deviceRowID); err != nil {
            log.Printf("sync: touch last_used failed for user=%d device=%s: %v", uid, entry.DeviceID, err)
        }
    }

    // Best-effort audit event; the response is already decided.
    ev := queue.SyncCompletedEvent{
        SyncLogID:     logID,
        UserID:        uid,
        Source:        entry.Source,
        SyncType:      entry.SyncType,
        DeviceID:      entry.DeviceID,
        HMACValid:     entry.HMACValid,
        Status:        status,
        RecordsSynced: succeeded,
        FailedItems:   failed,
        CompletedAt:   time.Now().UTC().Format(time.RFC3339),
    }
    if entry.RangeStart != nil {
        ev.RangeStart = *entry.RangeStart
    }
    if entry.RangeEnd != nil {
        ev.RangeEnd = *entry.RangeEnd
    }
    _ = queue_publisher.PublishSyncCompleted(ctx, ev)

    return c.JSON(http.StatusOK, echo.Map{
        "message":   "sync processed",
        "syncLogId": logID,
        "results":   results,
        "summary": echo.Map{
            "total":      len(records),
            "successful": succeeded,
            "failed":     failed,
        },
    })
}

// Data returns the user's own metric rows filtered by an optional inclusive
// date range, newest first.
func (h *SyncHandler) Data(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    startDate := strings.TrimSpace(c.QueryParam("start_date"))
    endDate := strings.TrimSpace(c.QueryParam("end_date"))
    if (startDate != "" && !validMetricDate(startDate)) || (endDate != "" && !validMetricDate(endDate)) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
    }
    limit := parseLimit(c, "limit", 30, 365)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rows, err := h.Metrics.QueryRange(ctx, uid, startDate, endDate, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    data := make([]echo.Map, 0, len(rows))
    for _, m := range rows {
        data = append(data, echo.Map{
            "date":        m.MetricDate,
            "steps":       m.Steps,
            "heart_rate":  m.HeartRate,
            "sleep_hours": m.SleepHours,
            "calories":    m.Calories,
            "updated_at":  m.UpdatedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"data": data})
}

// History returns the user's recent sync attempts, newest first, for
// operational visibility into the audit trail.
func (h *SyncHandler) History(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit := parseLimit(c, "limit", 20, 100)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    logs, err := h.Logs.RecentForUser(ctx, uid, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    data := make([]echo.Map, 0, len(logs))
    for _, l := range logs {
        data = append(data, echo.Map{
            "syncLogId":     l.ID,
            "source":        l.Source,
            "syncType":      l.SyncType,
            "deviceId":      l.DeviceID,
            "hmacValid":     l.HMACValid,
            "rangeStart":    l.RangeStart,
            "rangeEnd":      l.RangeEnd,
            "startedAt":     l.StartedAt,
            "completedAt":   l.CompletedAt,
            "status":        l.Status,
            "recordsSynced": l.RecordsSynced,
            "errorMessage":  l.ErrorMessage,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"data": data})
}
