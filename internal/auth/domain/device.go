package domain

import "time"

// TrustedDevice is a client fingerprint that completed a full second-factor
// challenge. Trust exempts the device from re-challenging the second factor;
// it never substitutes for the primary credential.
type TrustedDevice struct {
	ID             string
	IdentityID     string
	Fingerprint    string
	DisplayName    string
	DeviceType     string
	Browser        string
	OS             string
	NetworkAddress string
	AddedAt        time.Time
	LastUsedAt     time.Time
}

// TrustedDeviceView is a TrustedDevice annotated for display.
type TrustedDeviceView struct {
	TrustedDevice
	IsCurrentDevice bool `json:"is_current_device"`
}
