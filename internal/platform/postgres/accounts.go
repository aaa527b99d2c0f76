package postgres

import (
	"context"
	"fmt"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

const userColumns = `id, provider, provider_user_id, nickname, profile_image_url, created_at`

// UpsertUser inserts or refreshes an account keyed by
// (provider, provider_user_id) and returns the stored row.
func (s *Store) UpsertUser(ctx context.Context, provider, providerUserID string, nickname, profileImageURL *string) (*feeder.User, error) {
	var u feeder.User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (provider, provider_user_id, nickname, profile_image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_user_id)
		DO UPDATE SET
			nickname = EXCLUDED.nickname,
			profile_image_url = EXCLUDED.profile_image_url
		RETURNING `+userColumns,
		provider, providerUserID, nickname, profileImageURL,
	).Scan(&u.ID, &u.Provider, &u.ProviderUserID, &u.Nickname, &u.ProfileImageURL, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// UserByProviderID looks up an account by its identity-provider pair. Used by
// the auth middleware to resolve the caller's surrogate key.
func (s *Store) UserByProviderID(ctx context.Context, provider, providerUserID string) (*feeder.User, error) {
	var u feeder.User
	err := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&u.ID, &u.Provider, &u.ProviderUserID, &u.Nickname, &u.ProfileImageURL, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &u, nil
}

// RegisterDevice inserts the device row and its ownership edge in one
// transaction. The registration path is the only multi-row write in the
// service; the ingestion core relies on single-row inserts only.
func (s *Store) RegisterDevice(ctx context.Context, userPK int64, deviceID string, deviceName, location *string) (*feeder.Device, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin register device: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var d feeder.Device
	err = tx.QueryRowContext(ctx, `
		INSERT INTO devices (device_id, device_name, location)
		VALUES ($1, $2, $3)
		RETURNING id, device_id, device_name, location, created_at`,
		deviceID, deviceName, location,
	).Scan(&d.ID, &d.DeviceID, &d.DeviceName, &d.Location, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert device: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_devices (user_pk, device_pk, role)
		VALUES ($1, $2, 'owner')`,
		userPK, d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ownership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit register device: %w", err)
	}
	return &d, nil
}

// RegisterPushToken upserts a push token for the user and re-enables it.
// Registering an already-known token refreshes its platform and flips it
// back on.
func (s *Store) RegisterPushToken(ctx context.Context, userPK int64, token, platform string) (*feeder.PushToken, error) {
	var pt feeder.PushToken
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO push_tokens (user_pk, token, platform, enabled)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_pk, token)
		DO UPDATE SET
			platform = EXCLUDED.platform,
			enabled = TRUE
		RETURNING id, user_pk, token, platform, enabled, created_at`,
		userPK, token, platform,
	).Scan(&pt.ID, &pt.UserPK, &pt.Token, &pt.Platform, &pt.Enabled, &pt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("register push token: %w", err)
	}
	return &pt, nil
}
