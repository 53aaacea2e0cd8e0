package model

import "time"

// Platform values accepted for a registered device.  Anything else is
// rejected at the handler boundary before any row is touched.
const (
    PlatformAndroid = "android"
    PlatformIOS     = "ios"
)

// ConsentCategories lists the health-data categories a device can be
// authorized to collect.  A registration call must cover exactly this set.
var ConsentCategories = []string{"steps", "heart_rate", "sleep", "calories"}

// Device represents one registered physical device for one user, as stored
// in the `devices` table.  The triplet (UserID, DeviceID, Platform) is
// unique: re-registration updates the existing row and rotates the HMAC
// secret rather than creating a duplicate.  Devices are deactivated when
// revoked, never deleted.
//
// Fields:
//  ID         – primary key identifier of the row.
//  UserID     – owning user.
//  DeviceID   – app-supplied device identifier string.
//  Platform   – "android" or "ios".
//  DeviceName – human-readable name (optional).
//  AppVersion – companion app version at registration (optional).
//  HMACSecret – 64 hex chars; shared key used to sign sync payloads.
//  IsActive   – false once the device has been revoked.
//  CreatedAt  – timestamp of first registration.
//  UpdatedAt  – timestamp of last registration/update.
//  LastUsedAt – set when a signed sync succeeds (null until then).
type Device struct {
    ID         uint64     // devices.id
    UserID     uint64     // devices.user_id
    DeviceID   string     // devices.device_id
    Platform   string     // devices.platform
    DeviceName string     // devices.device_name
    AppVersion string     // devices.app_version
    HMACSecret string     // devices.hmac_secret
    IsActive   bool       // devices.is_active
    CreatedAt  time.Time  // devices.created_at
    UpdatedAt  time.Time  // devices.updated_at
    LastUsedAt *time.Time // devices.last_used_at (nullable)
}

// DeviceConsent is one row per (device, category) in the `device_consents`
// table, expressing whether the user authorized collection of that category.
// Consents are replaced wholesale on every registration call for the device,
// not merged incrementally.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owning user.
//  DeviceID  – app-supplied device identifier the grant belongs to.
//  Platform  – device platform, part of the device key.
//  Category  – one of ConsentCategories.
//  Granted   – whether collection of the category is authorized.
//  GrantedAt – stamped when Granted is true.
//  RevokedAt – stamped when Granted is false.
type DeviceConsent struct {
    ID        uint64     // device_consents.id
    UserID    uint64     // device_consents.user_id
    DeviceID  string     // device_consents.device_id
    Platform  string     // device_consents.platform
    Category  string     // device_consents.category
    Granted   bool       // device_consents.granted
    GrantedAt *time.Time // device_consents.granted_at (nullable)
    RevokedAt *time.Time // device_consents.revoked_at (nullable)
}
