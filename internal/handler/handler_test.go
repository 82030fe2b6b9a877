package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/hstu-emis/admin-gateway/internal/middleware"
	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/service"
	"github.com/hstu-emis/admin-gateway/internal/store"
	"github.com/hstu-emis/admin-gateway/internal/upstream"
	"github.com/hstu-emis/admin-gateway/pkg/storage"
)

// backendStub stands in for the EMIS REST backend across handler tests.
type backendStub struct {
	loginPair *upstream.TokenPair
	loginUser *models.User
	loginErr  error

	student    *models.Student
	studentErr error
	bundle     *models.RecordBundle
	bundleErr  error

	blacklistCalls int
}

func (b *backendStub) Login(ctx context.Context, username, password string) (*upstream.TokenPair, *models.User, error) {
	if b.loginErr != nil {
		return nil, nil, b.loginErr
	}
	return b.loginPair, b.loginUser, nil
}

func (b *backendStub) Verify(ctx context.Context, accessToken string) error { return nil }

func (b *backendStub) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return accessToken(time.Now().Add(time.Hour)), nil
}

func (b *backendStub) Blacklist(ctx context.Context, refreshToken string) error {
	b.blacklistCalls++
	return nil
}

func (b *backendStub) StudentByUsername(ctx context.Context, token, username string) (*models.Student, error) {
	if b.studentErr != nil {
		return nil, b.studentErr
	}
	return b.student, nil
}

func (b *backendStub) AcademicRecords(ctx context.Context, token, studentID string) (*models.RecordBundle, error) {
	if b.bundleErr != nil {
		return nil, b.bundleErr
	}
	return b.bundle, nil
}

func accessToken(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	raw, _ := token.SignedString([]byte("backend-signing-key"))
	return raw
}

type gatewayFixture struct {
	router   *gin.Engine
	sessions *service.SessionService
	exports  *service.ExportService
	store    *store.MemoryStore
	backend  *backendStub
}

// newGateway wires the handlers into a router the way the gateway
// binary does.
func newGateway(t *testing.T, backend *backendStub) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	sessions := service.NewSessionService(st, backend, nil, nil, nil, nil, service.SessionConfig{})
	records := service.NewRecordService(sessions, backend, nil)

	fs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exports := service.NewExportService(sessions, records, fs, signer, nil, nil, service.ExportConfig{APIPrefix: "/api/v1"}, nil)

	authHandler := NewAuthHandler(sessions)
	recordHandler := NewRecordHandler(records)
	exportHandler := NewExportHandler(exports)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)
	api.GET("/exports/download/:token", exportHandler.DownloadArtifact)

	authed := api.Group("")
	authed.Use(middleware.Session(sessions))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)
	staffRoles := middleware.RequireRoles(models.RoleAdministrator, models.RoleStaff, models.RoleTeacher)
	authed.GET("/students/:username", staffRoles, recordHandler.GetStudent)
	authed.GET("/students/:username/academic-records", staffRoles, recordHandler.ListRecords)
	authed.GET("/students/:username/academic-records/export", staffRoles, exportHandler.Download)
	authed.POST("/students/:username/academic-records/export-jobs", staffRoles, exportHandler.CreateJob)
	authed.GET("/export-jobs/:id", exportHandler.JobStatus)

	return &gatewayFixture{router: r, sessions: sessions, exports: exports, store: st, backend: backend}
}

func (f *gatewayFixture) seedSession(t *testing.T, id string, user *models.User) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), &models.Session{
		ID:           id,
		AccessToken:  accessToken(time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
		User:         user,
		State:        models.SessionAuthenticated,
	}))
}

func (f *gatewayFixture) do(method, path, bearer string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	f.router.ServeHTTP(w, req)
	return w
}
