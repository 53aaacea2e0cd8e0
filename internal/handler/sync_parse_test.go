package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSyncBody_BareArray(t *testing.T) {
	t.Parallel()

	records, env, err := parseSyncBody([]byte(`[{"date":"2024-01-01","steps":5000},{"date":"2024-01-02"}]`))
	require.NoError(t, err)
	assert.Nil(t, env, "a bare array is the manual path")
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-01", records[0].Date)
	require.NotNil(t, records[0].Steps)
	assert.EqualValues(t, 5000, *records[0].Steps)
	assert.Nil(t, records[1].Steps)
}

func TestParseSyncBody_BareSingleObject(t *testing.T) {
	t.Parallel()

	records, env, err := parseSyncBody([]byte(`{"date":"2024-01-01","sleep_hours":7.5}`))
	require.NoError(t, err)
	assert.Nil(t, env)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].SleepHours)
	assert.Equal(t, 7.5, *records[0].SleepHours)
}

func TestParseSyncBody_Envelope(t *testing.T) {
	t.Parallel()

	body := `{"deviceId":"dev-1","platform":"android","window":{"from":"2024-01-01","to":"2024-01-07"},"data":[{"date":"2024-01-03","heart_rate":61}]}`
	records, env, err := parseSyncBody([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, env, "deviceId+platform select the companion path")
	assert.Equal(t, "dev-1", env.DeviceID)
	assert.Equal(t, "android", env.Platform)
	require.NotNil(t, env.Window)
	assert.Equal(t, "2024-01-01", env.Window.From)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-03", records[0].Date)
}

func TestParseSyncBody_DeviceIDWithoutPlatform(t *testing.T) {
	t.Parallel()

	// Only both fields together select the companion path; a lone deviceId
	// key is treated as a (dateless) manual record.
	records, env, err := parseSyncBody([]byte(`{"deviceId":"dev-1"}`))
	require.NoError(t, err)
	assert.Nil(t, env)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Date)
}

func TestParseSyncBody_Malformed(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "   ", "{", "[{]", `"just a string"`} {
		_, _, err := parseSyncBody([]byte(body))
		assert.Errorf(t, err, "body %q must be rejected", body)
	}
}

func TestBatchDateRange_Unordered(t *testing.T) {
	t.Parallel()

	records := []dayRecord{
		{Date: "2024-01-05"},
		{Date: "2024-01-02"},
		{Date: ""}, // skipped
		{Date: "2024-01-09"},
		{Date: "not-a-date"}, // skipped
	}
	start, end := batchDateRange(records)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, "2024-01-02", *start, "range is computed, not taken from array order")
	assert.Equal(t, "2024-01-09", *end)
}

func TestBatchDateRange_NoValidDates(t *testing.T) {
	t.Parallel()

	start, end := batchDateRange([]dayRecord{{Date: ""}, {Date: "bogus"}})
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestValidMetricDate(t *testing.T) {
	t.Parallel()

	assert.True(t, validMetricDate("2024-01-01"))
	assert.True(t, validMetricDate("2024-02-29")) // leap day
	assert.False(t, validMetricDate(""))
	assert.False(t, validMetricDate("2024-13-01"))
	assert.False(t, validMetricDate("2023-02-29"))
	assert.False(t, validMetricDate("01/02/2024"))
}

func TestValidateConsents(t *testing.T) {
	t.Parallel()

	full := map[string]bool{"steps": true, "heart_rate": false, "sleep": true, "calories": false}
	assert.Empty(t, validateConsents(full))

	assert.NotEmpty(t, validateConsents(nil))
	assert.NotEmpty(t, validateConsents(map[string]bool{"steps": true}), "missing categories are rejected")

	extra := map[string]bool{"steps": true, "heart_rate": false, "sleep": true, "calories": false, "blood_oxygen": true}
	assert.NotEmpty(t, validateConsents(extra), "unknown categories are rejected")
}
