package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/store"
	"github.com/hstu-emis/admin-gateway/internal/upstream"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
)

type sessionUpstream interface {
	Login(ctx context.Context, username, password string) (*upstream.TokenPair, *models.User, error)
	Verify(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Blacklist(ctx context.Context, refreshToken string) error
}

// AuditRecorder persists audit trail entries. A nil recorder disables
// the trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

type renewalObserver interface {
	ObserveTokenRenewal(outcome string)
}

// SessionConfig tunes session behaviour.
type SessionConfig struct {
	// TokenLeeway is subtracted from the access token expiry when
	// deciding whether a fresh token can skip the backend round trip.
	TokenLeeway time.Duration
}

// SessionService owns the access/refresh token pair for every signed-in
// browser and is the single source of truth for "is this user logged
// in, and as whom". Screens never see tokens; they see the end state.
type SessionService struct {
	store     store.SessionStore
	upstream  sessionUpstream
	audit     AuditRecorder
	metrics   renewalObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionConfig

	// renewals deduplicates concurrent renewal attempts per session so
	// simultaneous failed calls share a single refresh round trip.
	renewMu  sync.Mutex
	renewals map[string]*renewal
}

type renewal struct {
	done  chan struct{}
	token string
	err   error
}

// NewSessionService constructs a SessionService.
func NewSessionService(st store.SessionStore, up sessionUpstream, audit AuditRecorder, metrics renewalObserver, validate *validator.Validate, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TokenLeeway <= 0 {
		cfg.TokenLeeway = 30 * time.Second
	}
	return &SessionService{
		store:     st,
		upstream:  up,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		renewals:  make(map[string]*renewal),
	}
}

// Login authenticates against the backend and creates a persisted
// session holding the token pair and cached profile.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	pair, user, err := s.upstream.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:           uuid.NewString(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
		State:        models.SessionAuthenticated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	s.recordAudit(ctx, session, models.AuditActionLogin, "auth", map[string]string{"status": "success"}, req.IP, req.UserAgent)

	return session, nil
}

// Resolve loads the session for an opaque session ID.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.store.Find(ctx, sessionID)
	if err != nil {
		if err == store.ErrSessionNotFound {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// IsAuthenticated reports whether the session is in its authenticated
// stable state.
func (s *SessionService) IsAuthenticated(session *models.Session) bool {
	return session.Authenticated()
}

// HasPermission checks a fine-grained capability code. Administrators
// bypass the capability set entirely.
func (s *SessionService) HasPermission(session *models.Session, code string) bool {
	if !session.Authenticated() {
		return false
	}
	return session.User.HasPermission(code)
}

// GetValidAccessToken returns an access token known to be accepted by
// the backend, renewing it silently when required. A token whose expiry
// claim is comfortably in the future is returned without any network
// round trip. Otherwise one validity check is made and, on rejection,
// exactly one renewal attempt. Renewal failure clears the session.
func (s *SessionService) GetValidAccessToken(ctx context.Context, session *models.Session) (string, error) {
	if session == nil || session.AccessToken == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}

	if s.tokenFresh(session.AccessToken) {
		return session.AccessToken, nil
	}

	session.State = models.SessionChecking
	err := s.upstream.Verify(ctx, session.AccessToken)
	if err == nil {
		session.State = models.SessionAuthenticated
		return session.AccessToken, nil
	}
	if !appErrors.IsAuthRejection(err) {
		// Connectivity and backend failures are never treated as an
		// invalid token.
		session.State = models.SessionAuthenticated
		return "", err
	}

	return s.renew(ctx, session)
}

// Authorized runs an authenticated upstream call under the renewal
// policy: on an authentication rejection the token is renewed once and
// the call retried once. A second rejection is fatal to the call and
// destroys the session. Connectivity failures pass through untouched.
func (s *SessionService) Authorized(ctx context.Context, session *models.Session, call func(accessToken string) error) error {
	token, err := s.GetValidAccessToken(ctx, session)
	if err != nil {
		return err
	}

	err = call(token)
	if err == nil || !appErrors.IsAuthRejection(err) {
		return err
	}

	token, renewErr := s.renew(ctx, session)
	if renewErr != nil {
		return renewErr
	}

	err = call(token)
	if err != nil && appErrors.IsAuthRejection(err) {
		s.destroy(ctx, session, "rejected after renewal")
		return appErrors.Clone(appErrors.ErrRefreshFailed, "")
	}
	return err
}

// Logout clears the session unconditionally. The server-side refresh
// token blacklist call is best-effort: its failure is logged, never
// surfaced, and never blocks the local clear.
func (s *SessionService) Logout(ctx context.Context, session *models.Session, ip, userAgent string) {
	if session == nil {
		return
	}

	if session.RefreshToken != "" {
		if err := s.upstream.Blacklist(ctx, session.RefreshToken); err != nil {
			s.logger.Warn("refresh token blacklist failed", zap.Error(err))
		}
	}

	s.recordAudit(ctx, session, models.AuditActionLogout, "auth", map[string]string{"status": "logout"}, ip, userAgent)

	if err := s.store.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to delete persisted session", zap.Error(err))
	}
	session.Clear()
}

// renew performs at most one in-flight refresh per session. Concurrent
// callers whose calls failed at the same time share the outcome.
func (s *SessionService) renew(ctx context.Context, session *models.Session) (string, error) {
	s.renewMu.Lock()
	if inflight, ok := s.renewals[session.ID]; ok {
		s.renewMu.Unlock()
		select {
		case <-inflight.done:
		case <-ctx.Done():
			return "", appErrors.Wrap(ctx.Err(), appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, appErrors.ErrConnectivity.Message)
		}
		if inflight.err != nil {
			return "", inflight.err
		}
		session.AccessToken = inflight.token
		session.State = models.SessionAuthenticated
		return inflight.token, nil
	}
	r := &renewal{done: make(chan struct{})}
	s.renewals[session.ID] = r
	s.renewMu.Unlock()

	r.token, r.err = s.renewOnce(ctx, session)

	s.renewMu.Lock()
	delete(s.renewals, session.ID)
	s.renewMu.Unlock()
	close(r.done)

	return r.token, r.err
}

func (s *SessionService) renewOnce(ctx context.Context, session *models.Session) (string, error) {
	session.State = models.SessionRenewing

	if session.RefreshToken == "" {
		s.destroy(ctx, session, "no refresh token")
		return "", appErrors.Clone(appErrors.ErrRefreshFailed, "")
	}

	access, err := s.upstream.Refresh(ctx, session.RefreshToken)
	if err != nil {
		e := appErrors.FromError(err)
		if e.Code == appErrors.ErrConnectivity.Code {
			// The refresh token may still be good; keep the session.
			session.State = models.SessionAuthenticated
			s.observeRenewal("connectivity")
			return "", err
		}
		s.destroy(ctx, session, "refresh rejected")
		s.observeRenewal("failure")
		return "", appErrors.Clone(appErrors.ErrRefreshFailed, "")
	}

	session.AccessToken = access
	session.State = models.SessionAuthenticated
	session.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, session); err != nil {
		s.logger.Warn("failed to persist renewed session", zap.Error(err))
	}
	s.observeRenewal("success")
	return access, nil
}

// destroy wipes the session after a terminal auth failure, forcing the
// login screen on the next request.
func (s *SessionService) destroy(ctx context.Context, session *models.Session, reason string) {
	s.logger.Info("session destroyed",
		zap.String("session_id", session.ID),
		zap.String("username", session.Username()),
		zap.String("reason", reason),
	)
	s.recordAudit(ctx, session, models.AuditActionRenewalFailed, "auth", map[string]string{"reason": reason}, "", "")
	if err := s.store.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to delete persisted session", zap.Error(err))
	}
	session.Clear()
}

// tokenFresh reads the unverified expiry claim of the access token. The
// gateway does not hold the backend's signing key; the claim is only a
// freshness hint that lets valid tokens skip the verify round trip.
func (s *SessionService) tokenFresh(raw string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(s.cfg.TokenLeeway).Before(claims.ExpiresAt.Time)
}

func (s *SessionService) recordAudit(ctx context.Context, session *models.Session, action, resource string, detail map[string]string, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(detail)
	sessionID := session.ID
	entry := &models.AuditLog{
		SessionID: &sessionID,
		Username:  session.Username(),
		Action:    action,
		Resource:  resource,
		Detail:    payload,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}

func (s *SessionService) observeRenewal(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTokenRenewal(outcome)
	}
}
