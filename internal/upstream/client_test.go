package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hstu-emis/admin-gateway/internal/models"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL, 5*time.Second, nil), server
}

func TestLoginSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin1", creds["username"])
		assert.Equal(t, "secret", creds["password"])
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-1", "refresh": "refresh-1"})
	})
	mux.HandleFunc("/users/me/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(models.User{
			ID:        "u-1",
			Username:  "admin1",
			FirstName: "Admin",
			LastName:  "User",
			Role:      models.RoleAdministrator,
		})
	})
	client, server := newTestClient(mux)
	defer server.Close()

	pair, user, err := client.Login(context.Background(), "admin1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
	assert.Equal(t, "admin1", user.Username)
	assert.Equal(t, models.RoleAdministrator, user.Role)
}

func TestLoginInvalidCredentials(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "No active account found"})
	}))
	defer server.Close()

	_, _, err := client.Login(context.Background(), "admin1", "wrong")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginBlockedAccount(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "account_blocked", "detail": "Account blocked by the registrar"})
	}))
	defer server.Close()

	_, _, err := client.Login(context.Background(), "admin1", "secret")
	require.Error(t, err)
	e := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAccountBlocked.Code, e.Code)
	assert.Equal(t, "Account blocked by the registrar", e.Message)
}

func TestLoginUnverifiedEmail(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "email_unverified"})
	}))
	defer server.Close()

	_, _, err := client.Login(context.Background(), "admin1", "secret")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmailUnverified.Code, appErrors.FromError(err).Code)
}

func TestLoginFieldErrors(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"field_errors": map[string][]string{
				"username": {"This field is required."},
			},
		})
	}))
	defer server.Close()

	_, _, err := client.Login(context.Background(), "", "secret")
	require.Error(t, err)
	e := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, e.Code)
	assert.Equal(t, "username: This field is required.", e.Message)
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-1", "refresh": "refresh-1"})
	})
	mux.HandleFunc("/users/me/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"username": "x", "role": "superuser"})
	})
	client, server := newTestClient(mux)
	defer server.Close()

	_, _, err := client.Login(context.Background(), "admin1", "secret")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}

func TestVerifyExpiredToken(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token/verify/", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Token is invalid or expired"})
	}))
	defer server.Close()

	err := client.Verify(context.Background(), "stale-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
	assert.True(t, appErrors.IsAuthRejection(err))
}

func TestRefresh(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token/refresh/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh"])
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-2"})
	}))
	defer server.Close()

	access, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
}

func TestBlacklist(t *testing.T) {
	var gotPath string
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, client.Blacklist(context.Background(), "refresh-1"))
	assert.Equal(t, "/logout/", gotPath)
}

func TestConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := NewClient(server.URL, time.Second, nil)
	server.Close()

	err := client.Verify(context.Background(), "token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConnectivity.Code, appErrors.FromError(err).Code)
	assert.False(t, appErrors.IsAuthRejection(err))
}

func TestStudentByUsername(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/student/id/1802042", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(models.Student{ID: "st-1", Username: "1802042", FullName: "Jamil Ahmed"})
	}))
	defer server.Close()

	student, err := client.StudentByUsername(context.Background(), "access-1", "1802042")
	require.NoError(t, err)
	assert.Equal(t, "st-1", student.ID)
	assert.Equal(t, "Jamil Ahmed", student.FullName)
}

func TestStudentNotFound(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Student not found"})
	}))
	defer server.Close()

	_, err := client.StudentByUsername(context.Background(), "access-1", "nobody")
	require.Error(t, err)
	e := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, e.Code)
	assert.Equal(t, "Student not found", e.Message)
}

func TestAcademicRecords(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/academy/students/st-1/academic-records/", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"academic_records": []map[string]interface{}{
				{
					"course":       map[string]interface{}{"name": "Structured Programming", "acronym": "CSE", "code": 101, "credit_hours": 3},
					"semester":     map[string]interface{}{"term_name": "Fall", "year": 2021, "code": "2021-1"},
					"status":       "passed",
					"is_published": true,
					"is_regular":   true,
					"grade_point":  3.75,
					"letter_grade": "A",
				},
			},
			"average_cgpa":       3.75,
			"total_credit_hours": 3,
		})
	}))
	defer server.Close()

	bundle, err := client.AcademicRecords(context.Background(), "access-1", "st-1")
	require.NoError(t, err)
	require.Len(t, bundle.Records, 1)
	assert.Equal(t, "CSE-101", bundle.Records[0].CodeLabel())
	assert.Equal(t, 3.75, bundle.AverageCGPA)
	assert.Equal(t, 3.0, bundle.TotalCreditHours)
}
