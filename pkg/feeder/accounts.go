package feeder

import "time"

// User is an account row. Accounts are keyed by the identity provider pair
// (provider, providerUserId); upserting the same pair refreshes the profile.
type User struct {
	ID              int64     `json:"id"`
	Provider        string    `json:"provider"`
	ProviderUserID  string    `json:"providerUserId"`
	Nickname        *string   `json:"nickname"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Device is a registered feeder. DeviceID is the stable identifier devices
// publish under; ID is the surrogate key the ownership edge references.
type Device struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"deviceId"`
	DeviceName *string   `json:"deviceName"`
	Location   *string   `json:"location"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PushToken is one registered push target. Only enabled tokens are valid
// recipients.
type PushToken struct {
	ID        int64     `json:"id"`
	UserPK    int64     `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}
