package wbauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	internalaudit "github.com/inkstone/wbauth/internal/audit"
	internalflows "github.com/inkstone/wbauth/internal/flows"
	"github.com/inkstone/wbauth/jwt"
	"go.uber.org/zap"
)

// Engine is the session service. It issues token pairs, exchanges refresh tokens for
// access tokens, authenticates bearer tokens and revokes every refresh token of a user.
//
// An Engine is built once by [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config       Config
	store        RevocationStore
	jwtManager   *jwt.Manager
	passwordHash PasswordHasher
	userProvider UserProvider
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
	flows        internalflows.Service
	dummyHash    string
}

// Close flushes and stops the audit dispatcher. It does not close the Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Issue mints an access token and a refresh token for userID and registers the refresh
// token's id in the revocation store. Tokens are returned only after the store write
// succeeded; on any failure no tokens are returned.
//
// A store failure yields an error matching [ErrStoreUnavailable].
func (e *Engine) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrTokenIssueFailed)
	}

	res := e.flows.Issue(ctx, userID)
	if res.Failure != internalflows.IssueFailureNone {
		e.metricInc(MetricIssueFailure)
		err := e.issueError(res)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, res.TokenID, err, func() map[string]string {
			return map[string]string{
				"reason": issueFailureReason(res.Failure),
			}
		})
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventTokensIssued, true, userID, res.TokenID, nil, nil)

	return &TokenPair{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		ExpiresIn:        res.ExpiresIn,
		RefreshExpiresIn: res.RefreshExpiresIn,
	}, nil
}

func (e *Engine) issueError(res internalflows.IssueResult) error {
	if res.Failure == internalflows.IssueFailureSave {
		return e.storeUnavailable("issue", res.Err)
	}
	e.logger.Error("token signing failed", zap.String("user_id", res.UserID), zap.Error(res.Err))
	return fmt.Errorf("%w: %v", ErrTokenIssueFailed, res.Err)
}

func issueFailureReason(kind internalflows.IssueFailureKind) string {
	switch kind {
	case internalflows.IssueFailureTokenID:
		return "token_id_generation"
	case internalflows.IssueFailureSignAccess:
		return "sign_access"
	case internalflows.IssueFailureSignRefresh:
		return "sign_refresh"
	case internalflows.IssueFailureSave:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// Refresh exchanges a refresh token for a new access token. The refresh token is not
// rotated and stays valid until it expires or the user logs out.
//
// Every token rejection, including an id no longer present in the store or owned by a
// different user, yields [ErrRefreshFailed]. A store failure yields an error matching
// [ErrStoreUnavailable] instead.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AccessGrant, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricRefreshLatency, start)

	res := e.flows.Refresh(ctx, refreshToken)
	switch res.Failure {
	case internalflows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.TokenID, nil, nil)
		return &AccessGrant{
			AccessToken: res.AccessToken,
			ExpiresIn:   res.ExpiresIn,
		}, nil
	case internalflows.RefreshFailureStore:
		err := e.storeUnavailable("refresh", res.Err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, err, func() map[string]string {
			return map[string]string{
				"reason": "store_unavailable",
			}
		})
		return nil, err
	case internalflows.RefreshFailureNotFound, internalflows.RefreshFailureSubjectMismatch:
		e.metricInc(MetricRefreshRevoked)
		reason := "revoked_or_expired"
		if res.Failure == internalflows.RefreshFailureSubjectMismatch {
			reason = "subject_mismatch"
			e.logger.Warn("refresh token subject does not match stored owner",
				zap.String("user_id", res.UserID),
				zap.String("token_id", res.TokenID),
			)
		}
		e.emitAudit(ctx, auditEventRefreshRevoked, false, res.UserID, res.TokenID, ErrRefreshFailed, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, ErrRefreshFailed
	case internalflows.RefreshFailureIssueAccess:
		e.metricInc(MetricRefreshFailure)
		e.logger.Error("access token signing failed", zap.String("user_id", res.UserID), zap.Error(res.Err))
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, ErrTokenIssueFailed, func() map[string]string {
			return map[string]string{
				"reason": "issue_access_failed",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrTokenIssueFailed, res.Err)
	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshFailed, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil, ErrRefreshFailed
	}
}

// RequireIdentity authenticates a bearer access token and returns its subject. It never
// consults the revocation store, so an access token stays usable until it expires even
// after Logout. Any failure yields [ErrUnauthenticated].
func (e *Engine) RequireIdentity(ctx context.Context, accessToken string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	start := time.Now()
	defer e.observeSince(MetricIdentityLatency, start)

	res := e.flows.RequireIdentity(accessToken)
	if res.Failure != internalflows.IdentityFailureNone {
		e.metricInc(MetricIdentityRejected)
		return "", ErrUnauthenticated
	}
	return res.UserID, nil
}

// Logout revokes every refresh token of userID on every device. Access tokens already
// handed out keep working until their own expiry.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthenticated
	}

	if err := e.flows.LogoutAll(ctx, userID); err != nil {
		err = e.storeUnavailable("logout", err)
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", err, nil)
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, nil)
	return nil
}

// HealthCheck pings the revocation store when it supports it.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	pinger, ok := e.store.(interface {
		Ping(ctx context.Context) (time.Duration, error)
	})
	if !ok {
		return nil
	}
	if _, err := pinger.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (e *Engine) storeUnavailable(op string, cause error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("revocation store unavailable", zap.String("op", op), zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
}
