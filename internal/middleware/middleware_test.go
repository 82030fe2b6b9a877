package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/service"
	"github.com/hstu-emis/admin-gateway/internal/store"
	"github.com/hstu-emis/admin-gateway/internal/upstream"
)

type noopBackend struct{}

func (noopBackend) Login(ctx context.Context, username, password string) (*upstream.TokenPair, *models.User, error) {
	return nil, nil, nil
}
func (noopBackend) Verify(ctx context.Context, accessToken string) error { return nil }
func (noopBackend) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return "", nil
}
func (noopBackend) Blacklist(ctx context.Context, refreshToken string) error { return nil }

func freshToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte("backend-signing-key"))
	require.NoError(t, err)
	return raw
}

func seedSession(t *testing.T, st store.SessionStore, id string, user *models.User) {
	t.Helper()
	require.NoError(t, st.Save(context.Background(), &models.Session{
		ID:          id,
		AccessToken: freshToken(t),
		User:        user,
		State:       models.SessionAuthenticated,
	}))
}

func newProtectedRouter(t *testing.T, extra ...gin.HandlerFunc) (*gin.Engine, *service.SessionService, store.SessionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	sessions := service.NewSessionService(st, noopBackend{}, nil, nil, nil, nil, service.SessionConfig{})

	r := gin.New()
	handlers := append([]gin.HandlerFunc{Session(sessions)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected/:username", handlers...)
	return r, sessions, st
}

func get(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddlewareRequiresBearer(t *testing.T) {
	r, _, _ := newProtectedRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/protected/x", "").Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/x", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionMiddlewareRejectsUnknownSession(t *testing.T) {
	r, _, _ := newProtectedRouter(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/protected/x", "missing-session").Code)
}

func TestSessionMiddlewareResolvesSession(t *testing.T) {
	r, _, st := newProtectedRouter(t)
	seedSession(t, st, "sess-1", &models.User{Username: "admin1", Role: models.RoleAdministrator})

	assert.Equal(t, http.StatusOK, get(r, "/protected/x", "sess-1").Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	r, _, st := newProtectedRouter(t, RequireRoles(models.RoleAdministrator, models.RoleStaff))
	seedSession(t, st, "sess-staff", &models.User{Username: "staff1", Role: models.RoleStaff})
	seedSession(t, st, "sess-teacher", &models.User{Username: "teach1", Role: models.RoleTeacher})

	assert.Equal(t, http.StatusOK, get(r, "/protected/x", "sess-staff").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/protected/x", "sess-teacher").Code)
}

func TestRequireRolesStudentSelfAccess(t *testing.T) {
	r, _, st := newProtectedRouter(t, RequireRoles(models.RoleAdministrator))
	seedSession(t, st, "sess-student", &models.User{Username: "1802042", Role: models.RoleStudent})

	assert.Equal(t, http.StatusOK, get(r, "/protected/1802042", "sess-student").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/protected/1802001", "sess-student").Code)
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	sessions := service.NewSessionService(st, noopBackend{}, nil, nil, nil, nil, service.SessionConfig{})

	r := gin.New()
	r.GET("/gated", Session(sessions), RequirePermission(sessions, "view_audit_log"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	seedSession(t, st, "sess-admin", &models.User{Username: "admin1", Role: models.RoleAdministrator})
	seedSession(t, st, "sess-auditor", &models.User{Username: "staff1", Role: models.RoleStaff, Permissions: []string{"view_audit_log"}})
	seedSession(t, st, "sess-staff", &models.User{Username: "staff2", Role: models.RoleStaff})

	assert.Equal(t, http.StatusOK, get(r, "/gated", "sess-admin").Code)
	assert.Equal(t, http.StatusOK, get(r, "/gated", "sess-auditor").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/gated", "sess-staff").Code)
}
