package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/niw5924/smart-feeder-remote-api/internal/api"
	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// --- Mocks ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertUser(ctx context.Context, provider, providerUserID string, nickname, profileImageURL *string) (*feeder.User, error) {
	args := m.Called(ctx, provider, providerUserID, nickname, profileImageURL)
	var u *feeder.User
	if val, ok := args.Get(0).(*feeder.User); ok {
		u = val
	}
	return u, args.Error(1)
}

func (m *mockStore) UserByProviderID(ctx context.Context, provider, providerUserID string) (*feeder.User, error) {
	args := m.Called(ctx, provider, providerUserID)
	var u *feeder.User
	if val, ok := args.Get(0).(*feeder.User); ok {
		u = val
	}
	return u, args.Error(1)
}

func (m *mockStore) RegisterDevice(ctx context.Context, userPK int64, deviceID string, deviceName, location *string) (*feeder.Device, error) {
	args := m.Called(ctx, userPK, deviceID, deviceName, location)
	var d *feeder.Device
	if val, ok := args.Get(0).(*feeder.Device); ok {
		d = val
	}
	return d, args.Error(1)
}

func (m *mockStore) RegisterPushToken(ctx context.Context, userPK int64, token, platform string) (*feeder.PushToken, error) {
	args := m.Called(ctx, userPK, token, platform)
	var pt *feeder.PushToken
	if val, ok := args.Get(0).(*feeder.PushToken); ok {
		pt = val
	}
	return pt, args.Error(1)
}

func (m *mockStore) LogsForUser(ctx context.Context, userPK int64) ([]*feeder.LogRecord, error) {
	args := m.Called(ctx, userPK)
	var logs []*feeder.LogRecord
	if val, ok := args.Get(0).([]*feeder.LogRecord); ok {
		logs = val
	}
	return logs, args.Error(1)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	var tok *auth.Token
	if val, ok := args.Get(0).(*auth.Token); ok {
		tok = val
	}
	return tok, args.Error(1)
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (bool, string, json.RawMessage) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Success, body.Message, body.Data
}

func authedHandler(store *mockStore, verifier *mockVerifier, handler http.HandlerFunc) http.Handler {
	_ = store
	middleware := api.NewFirebaseAuthMiddleware(verifier, testLogger())
	return middleware(handler)
}

func testUser() *feeder.User {
	return &feeder.User{ID: 9, Provider: "firebase", ProviderUserID: "uid-1", CreatedAt: time.Now().UTC()}
}

// --- Tests ---

func TestUpsertMeHandler(t *testing.T) {
	t.Run("Upserts and returns the account row", func(t *testing.T) {
		store := new(mockStore)
		store.On("UpsertUser", mock.Anything, "firebase", "uid-1", mock.Anything, mock.Anything).
			Return(testUser(), nil)
		a := api.NewAPI(store, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/users/upsertMe",
			strings.NewReader(`{"provider":"firebase","providerUserId":"uid-1","nickname":"냥집사"}`))
		w := httptest.NewRecorder()

		a.UpsertMeHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		success, message, _ := decodeEnvelope(t, w)
		assert.True(t, success)
		assert.Equal(t, "유저 정보가 성공적으로 저장되었습니다.", message)
	})

	t.Run("Missing provider pair is a bad request", func(t *testing.T) {
		a := api.NewAPI(new(mockStore), testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/users/upsertMe", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		a.UpsertMeHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegisterDeviceHandler(t *testing.T) {
	newAuthedRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/devices/register", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer good-token")
		return req
	}

	t.Run("Registers device for the caller", func(t *testing.T) {
		store := new(mockStore)
		verifier := new(mockVerifier)
		verifier.On("VerifyIDToken", mock.Anything, "good-token").Return(&auth.Token{UID: "uid-1"}, nil)
		store.On("UserByProviderID", mock.Anything, "firebase", "uid-1").Return(testUser(), nil)
		store.On("RegisterDevice", mock.Anything, int64(9), "SF-1", mock.Anything, mock.Anything).
			Return(&feeder.Device{ID: 3, DeviceID: "SF-1"}, nil)
		a := api.NewAPI(store, testLogger())

		w := httptest.NewRecorder()
		authedHandler(store, verifier, a.RegisterDeviceHandler).
			ServeHTTP(w, newAuthedRequest(`{"deviceId":"SF-1","deviceName":"주방 피더"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		success, message, _ := decodeEnvelope(t, w)
		assert.True(t, success)
		assert.Equal(t, "기기가 성공적으로 등록되었습니다.", message)
	})

	t.Run("Duplicate device returns 409", func(t *testing.T) {
		store := new(mockStore)
		verifier := new(mockVerifier)
		verifier.On("VerifyIDToken", mock.Anything, "good-token").Return(&auth.Token{UID: "uid-1"}, nil)
		store.On("UserByProviderID", mock.Anything, "firebase", "uid-1").Return(testUser(), nil)
		store.On("RegisterDevice", mock.Anything, int64(9), "SF-1", mock.Anything, mock.Anything).
			Return(nil, &pq.Error{Code: "23505"})
		a := api.NewAPI(store, testLogger())

		w := httptest.NewRecorder()
		authedHandler(store, verifier, a.RegisterDeviceHandler).
			ServeHTTP(w, newAuthedRequest(`{"deviceId":"SF-1"}`))

		assert.Equal(t, http.StatusConflict, w.Code)
		success, message, _ := decodeEnvelope(t, w)
		assert.False(t, success)
		assert.Equal(t, "이미 등록된 기기입니다.", message)
	})

	t.Run("Invalid token is rejected by middleware", func(t *testing.T) {
		store := new(mockStore)
		verifier := new(mockVerifier)
		verifier.On("VerifyIDToken", mock.Anything, "good-token").
			Return(nil, errors.New("expired"))
		a := api.NewAPI(store, testLogger())

		w := httptest.NewRecorder()
		authedHandler(store, verifier, a.RegisterDeviceHandler).
			ServeHTTP(w, newAuthedRequest(`{"deviceId":"SF-1"}`))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		_, message, _ := decodeEnvelope(t, w)
		assert.Equal(t, "유효하지 않은 토큰입니다.", message)
		store.AssertNotCalled(t, "RegisterDevice",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRegisterPushTokenHandler(t *testing.T) {
	store := new(mockStore)
	verifier := new(mockVerifier)
	verifier.On("VerifyIDToken", mock.Anything, "good-token").Return(&auth.Token{UID: "uid-1"}, nil)
	store.On("UserByProviderID", mock.Anything, "firebase", "uid-1").Return(testUser(), nil)
	store.On("RegisterPushToken", mock.Anything, int64(9), "tok-a", "android").
		Return(&feeder.PushToken{ID: 1, Token: "tok-a", Platform: "android", Enabled: true}, nil)
	a := api.NewAPI(store, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/devices/pushTokens",
		strings.NewReader(`{"token":"tok-a","platform":"android"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	authedHandler(store, verifier, a.RegisterPushTokenHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	success, _, data := decodeEnvelope(t, w)
	assert.True(t, success)
	var pt feeder.PushToken
	require.NoError(t, json.Unmarshal(data, &pt))
	assert.True(t, pt.Enabled)
}

func TestLogsHandler(t *testing.T) {
	store := new(mockStore)
	verifier := new(mockVerifier)
	verifier.On("VerifyIDToken", mock.Anything, "good-token").Return(&auth.Token{UID: "uid-1"}, nil)
	store.On("UserByProviderID", mock.Anything, "firebase", "uid-1").Return(testUser(), nil)
	store.On("LogsForUser", mock.Anything, int64(9)).Return([]*feeder.LogRecord{
		{ID: 2, DeviceID: "SF-1", Topic: "feeder/SF-1/presence"},
		{ID: 1, DeviceID: "SF-1", Topic: "feeder/SF-1/feed_button"},
	}, nil)
	a := api.NewAPI(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/mqttLogs/all", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	authedHandler(store, verifier, a.LogsHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	success, message, data := decodeEnvelope(t, w)
	assert.True(t, success)
	assert.Equal(t, "MQTT 로그 조회에 성공했습니다.", message)
	var logs []*feeder.LogRecord
	require.NoError(t, json.Unmarshal(data, &logs))
	assert.Len(t, logs, 2)
}
