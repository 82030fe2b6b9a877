package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/store"
	"github.com/hstu-emis/admin-gateway/internal/upstream"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
)

func TestLoginEndpoint(t *testing.T) {
	backend := &backendStub{
		loginPair: &upstream.TokenPair{AccessToken: accessToken(time.Now().Add(time.Hour)), RefreshToken: "refresh-1"},
		loginUser: &models.User{ID: "u-1", Username: "admin1", FirstName: "Admin", LastName: "User", Role: models.RoleAdministrator},
	}
	f := newGateway(t, backend)

	payload, _ := json.Marshal(map[string]string{"username": "admin1", "password": "secret"})
	w := f.do(http.MethodPost, "/api/v1/auth/login", "", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.SessionID)
	assert.Equal(t, "admin1", envelope.Data.User.Username)

	// The new session is usable as a bearer credential.
	me := f.do(http.MethodGet, "/api/v1/auth/me", envelope.Data.SessionID, nil)
	assert.Equal(t, http.StatusOK, me.Code)
}

func TestLoginEndpointInvalidCredentials(t *testing.T) {
	backend := &backendStub{loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "")}
	f := newGateway(t, backend)

	payload, _ := json.Marshal(map[string]string{"username": "admin1", "password": "wrong"})
	w := f.do(http.MethodPost, "/api/v1/auth/login", "", payload)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, envelope.Error.Code)
}

func TestLoginEndpointBadPayload(t *testing.T) {
	f := newGateway(t, &backendStub{})

	w := f.do(http.MethodPost, "/api/v1/auth/login", "", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	f := newGateway(t, &backendStub{})
	f.seedSession(t, "sess-1", &models.User{Username: "admin1", Role: models.RoleAdministrator})

	w := f.do(http.MethodPost, "/api/v1/auth/logout", "sess-1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, f.backend.blacklistCalls)

	_, err := f.store.Find(context.Background(), "sess-1")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	// The cleared session no longer authorizes requests.
	again := f.do(http.MethodGet, "/api/v1/auth/me", "sess-1", nil)
	assert.Equal(t, http.StatusUnauthorized, again.Code)
}

func TestMeEndpoint(t *testing.T) {
	f := newGateway(t, &backendStub{})
	f.seedSession(t, "sess-1", &models.User{Username: "admin1", FirstName: "Admin", LastName: "User", Role: models.RoleAdministrator})

	w := f.do(http.MethodGet, "/api/v1/auth/me", "sess-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "admin1", envelope.Data.Username)
	assert.Equal(t, models.RoleAdministrator, envelope.Data.Role)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/auth/me", "", nil).Code)
}
