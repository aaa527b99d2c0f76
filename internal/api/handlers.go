package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/niw5924/smart-feeder-remote-api/internal/platform/postgres"
	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// AccountStore is the persistence surface the handlers depend on.
type AccountStore interface {
	UpsertUser(ctx context.Context, provider, providerUserID string, nickname, profileImageURL *string) (*feeder.User, error)
	UserByProviderID(ctx context.Context, provider, providerUserID string) (*feeder.User, error)
	RegisterDevice(ctx context.Context, userPK int64, deviceID string, deviceName, location *string) (*feeder.Device, error)
	RegisterPushToken(ctx context.Context, userPK int64, token, platform string) (*feeder.PushToken, error)
	LogsForUser(ctx context.Context, userPK int64) ([]*feeder.LogRecord, error)
}

// API holds the dependencies for the stateless HTTP handlers.
type API struct {
	store  AccountStore
	logger *slog.Logger
}

// NewAPI creates a new, stateless API handler.
func NewAPI(store AccountStore, logger *slog.Logger) *API {
	return &API{
		store:  store,
		logger: logger,
	}
}

// callerPK resolves the authenticated caller's account row. The middleware
// guarantees a uid is present; a missing row means the client skipped the
// upsertMe bootstrap call.
func (a *API) callerPK(r *http.Request) (int64, bool) {
	uid, ok := UIDFromContext(r.Context())
	if !ok {
		return 0, false
	}
	u, err := a.store.UserByProviderID(r.Context(), AuthProvider, uid)
	if err != nil {
		a.logger.Warn("Failed to resolve caller account", "uid", uid, "err", err)
		return 0, false
	}
	return u.ID, true
}

type upsertMeRequest struct {
	Provider        string  `json:"provider"`
	ProviderUserID  string  `json:"providerUserId"`
	Nickname        *string `json:"nickname"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// UpsertMeHandler creates or refreshes the caller's account row.
func (a *API) UpsertMeHandler(w http.ResponseWriter, r *http.Request) {
	var req upsertMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, "잘못된 요청입니다.", nil)
		return
	}
	if req.Provider == "" || req.ProviderUserID == "" {
		writeJSON(w, http.StatusBadRequest, "잘못된 요청입니다.", nil)
		return
	}

	u, err := a.store.UpsertUser(r.Context(), req.Provider, req.ProviderUserID, req.Nickname, req.ProfileImageURL)
	if err != nil {
		a.logger.Error("Failed to upsert user", "err", err)
		writeJSON(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, "유저 정보가 성공적으로 저장되었습니다.", u)
}

type registerDeviceRequest struct {
	DeviceID   string  `json:"deviceId"`
	DeviceName *string `json:"deviceName"`
	Location   *string `json:"location"`
}

// RegisterDeviceHandler registers a feeder and its ownership edge for the
// caller.
func (a *API) RegisterDeviceHandler(w http.ResponseWriter, r *http.Request) {
	userPK, ok := a.callerPK(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, "유저 정보를 찾을 수 없습니다.", nil)
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, "잘못된 요청입니다.", nil)
		return
	}

	d, err := a.store.RegisterDevice(r.Context(), userPK, req.DeviceID, req.DeviceName, req.Location)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, "이미 등록된 기기입니다.", nil)
			return
		}
		a.logger.Error("Failed to register device", "device_id", req.DeviceID, "err", err)
		writeJSON(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, "기기가 성공적으로 등록되었습니다.", d)
}

type registerPushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterPushTokenHandler registers (or re-enables) a push token for the
// caller. Only enabled tokens are valid notification recipients.
func (a *API) RegisterPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	userPK, ok := a.callerPK(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, "유저 정보를 찾을 수 없습니다.", nil)
		return
	}

	var req registerPushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, "잘못된 요청입니다.", nil)
		return
	}

	pt, err := a.store.RegisterPushToken(r.Context(), userPK, req.Token, req.Platform)
	if err != nil {
		a.logger.Error("Failed to register push token", "err", err)
		writeJSON(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, "푸시 토큰이 성공적으로 등록되었습니다.", pt)
}

// LogsHandler returns the event log rows for every device the caller owns,
// newest first.
func (a *API) LogsHandler(w http.ResponseWriter, r *http.Request) {
	userPK, ok := a.callerPK(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, "유저 정보를 찾을 수 없습니다.", nil)
		return
	}

	logs, err := a.store.LogsForUser(r.Context(), userPK)
	if err != nil {
		a.logger.Error("Failed to list logs", "err", err)
		writeJSON(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, "MQTT 로그 조회에 성공했습니다.", logs)
}
