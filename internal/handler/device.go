package handler

import (
    "context"
    "database/sql"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/vitatrack/health-sync/internal/model"
    "github.com/vitatrack/health-sync/internal/repository"
    "github.com/vitatrack/health-sync/internal/utils"
)

// DeviceHandler bundles repositories for the device registrar endpoints.
type DeviceHandler struct {
    Devices  *repository.DeviceRepo
    Consents *repository.ConsentRepo
}

func NewDeviceHandler(devices *repository.DeviceRepo, consents *repository.ConsentRepo) *DeviceHandler {
    if devices == nil || consents == nil {
        panic("nil repository passed to NewDeviceHandler")
    }
    return &DeviceHandler{Devices: devices, Consents: consents}
}

// ----- DTOs -----

type registerDeviceReq struct {
    DeviceID   string          `json:"deviceId"`
    Platform   string          `json:"platform"`
    DeviceName string          `json:"deviceName"`
    AppVersion string          `json:"appVersion"`
    Consents   map[string]bool `json:"consents"`
}

type deviceStatusPart struct {
    DeviceID   string     `json:"deviceId"`
    Platform   string     `json:"platform"`
    DeviceName string     `json:"deviceName,omitempty"`
    AppVersion string     `json:"appVersion,omitempty"`
    IsActive   bool       `json:"isActive"`
    CreatedAt  time.Time  `json:"createdAt"`
    UpdatedAt  time.Time  `json:"updatedAt"`
    LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// validPlatform reports whether p is one of the two supported platforms.
func validPlatform(p string) bool {
    return p == model.PlatformAndroid || p == model.PlatformIOS
}

// validateConsents checks that the submitted map covers exactly the four
// known categories — no missing ones, no unknown ones.  The consent write
// replaces all rows for the device, so a partial map would silently drop
// grants.
func validateConsents(consents map[string]bool) string {
    if consents == nil {
        return "consents is required"
    }
    for _, cat := range model.ConsentCategories {
        if _, ok := consents[cat]; !ok {
            return "consents must include " + cat
        }
    }
    if len(consents) != len(model.ConsentCategories) {
        return "consents contains unknown categories"
    }
    return ""
}

// Register binds a device to the authenticated user, issues a fresh HMAC
// secret and records the submitted consent map.  Re-registering an existing
// device rotates the secret; the previous secret stops verifying as soon as
// the row is updated.  The secret is returned exactly once — it is not
// retrievable by any later call.
func (h *DeviceHandler) Register(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req registerDeviceReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.DeviceID = strings.TrimSpace(req.DeviceID)
    req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
    if req.DeviceID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "deviceId is required"})
    }
    if !validPlatform(req.Platform) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "platform must be android or ios"})
    }
    if msg := validateConsents(req.Consents); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    secret, err := utils.NewDeviceSecret()
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "secret generation failed"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, err := h.Devices.Upsert(ctx, model.Device{
        UserID:     uid,
        DeviceID:   req.DeviceID,
        Platform:   req.Platform,
        DeviceName: req.DeviceName,
        AppVersion: req.AppVersion,
        HMACSecret: secret,
    })
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if err := h.Consents.ReplaceForDevice(ctx, uid, req.DeviceID, req.Platform, req.Consents); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "success":    true,
        "deviceId":   id,
        "hmacSecret": secret,
        "message":    "device registered; store the secret, it cannot be retrieved again",
    })
}

// Status reports whether a device is registered for this user and, if so,
// its metadata plus the flattened consent map.  An unregistered device is a
// normal result, not an error.
func (h *DeviceHandler) Status(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    deviceID := strings.TrimSpace(c.QueryParam("deviceId"))
    platform := strings.ToLower(strings.TrimSpace(c.QueryParam("platform")))
    if deviceID == "" || !validPlatform(platform) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "deviceId and platform are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    d, err := h.Devices.Get(ctx, uid, deviceID, platform)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusOK, echo.Map{"registered": false})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    consents, err := h.Consents.MapForDevice(ctx, uid, deviceID, platform)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "registered": true,
        "device": deviceStatusPart{
            DeviceID:   d.DeviceID,
            Platform:   d.Platform,
            DeviceName: d.DeviceName,
            AppVersion: d.AppVersion,
            IsActive:   d.IsActive,
            CreatedAt:  d.CreatedAt,
            UpdatedAt:  d.UpdatedAt,
            LastUsedAt: d.LastUsedAt,
        },
        "consents": consents,
    })
}

// Revoke deactivates a device.  The row is kept — history and audit logs
// still reference it — but sync calls signed with its secret stop passing
// the device lookup.
func (h *DeviceHandler) Revoke(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req struct {
        DeviceID string `json:"deviceId"`
        Platform string `json:"platform"`
    }
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.DeviceID = strings.TrimSpace(req.DeviceID)
    req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
    if req.DeviceID == "" || !validPlatform(req.Platform) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "deviceId and platform are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Devices.Deactivate(ctx, uid, req.DeviceID, req.Platform); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "device not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}
