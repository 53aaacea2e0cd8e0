package repository

import (
    "context"
    "database/sql"

    "github.com/vitatrack/health-sync/internal/model"
)

// HealthMetricRepo encapsulates database operations for health_metrics.
type HealthMetricRepo struct{ DB *sql.DB }

func NewHealthMetricRepo(db *sql.DB) *HealthMetricRepo { return &HealthMetricRepo{DB: db} }

// Upsert writes the metric values for one (user, date).  The unique key on
// (user_id, metric_date) guarantees at most one row per day; a sync that
// targets an existing date overwrites the stored values — including setting
// omitted fields back to NULL — rather than accumulating them.
func (r *HealthMetricRepo) Upsert(ctx context.Context, m model.HealthMetric) error {
    _, err := r.DB.ExecContext(ctx,
        `INSERT INTO health_metrics (user_id, metric_date, steps, heart_rate, sleep_hours, calories)
         VALUES (?,?,?,?,?,?)
         ON DUPLICATE KEY UPDATE
           steps=VALUES(steps),
           heart_rate=VALUES(heart_rate),
           sleep_hours=VALUES(sleep_hours),
           calories=VALUES(calories),
           updated_at=NOW()`,
        m.UserID, m.MetricDate, m.Steps, m.HeartRate, m.SleepHours, m.Calories)
    return err
}

// QueryRange returns the user's own metric rows, optionally bounded by an
// inclusive [start, end] date range, newest date first, capped at limit.
func (r *HealthMetricRepo) QueryRange(ctx context.Context, userID uint64, startDate, endDate string, limit int) ([]model.HealthMetric, error) {
    query := `SELECT id,user_id,DATE_FORMAT(metric_date,'%Y-%m-%d'),steps,heart_rate,sleep_hours,calories,created_at,updated_at
              FROM health_metrics WHERE user_id=?`
    args := []interface{}{userID}
    if startDate != "" {
        query += " AND metric_date>=?"
        args = append(args, startDate)
    }
    if endDate != "" {
        query += " AND metric_date<=?"
        args = append(args, endDate)
    }
    query += " ORDER BY metric_date DESC LIMIT ?"
    args = append(args, limit)

    rows, err := r.DB.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.HealthMetric
    for rows.Next() {
        var m model.HealthMetric
        if err := rows.Scan(&m.ID, &m.UserID, &m.MetricDate, &m.Steps, &m.HeartRate,
            &m.SleepHours, &m.Calories, &m.CreatedAt, &m.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}
