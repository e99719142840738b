package wbauth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	internalflows "github.com/inkstone/wbauth/internal/flows"
	"go.uber.org/zap"
)

const (
	maxEmailLength    = 255
	minUsernameLength = 2
	maxUsernameLength = 100
)

// ValidationError describes one rejected registration field. It matches
// [ErrRegistrationInvalid] under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrRegistrationInvalid
}

// NormalizeEmail trims surrounding space and lower-cases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks email and password against the user provider and issues a token pair.
// Unknown emails and wrong passwords both yield [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.userProvider == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_credentials",
			}
		})
		return nil, ErrInvalidCredentials
	}

	res := e.flows.VerifyCredentials(ctx, email, password)
	if res.Failure != internalflows.LoginFailureNone {
		if res.Failure == internalflows.LoginFailureLookup {
			e.logger.Error("user lookup failed", zap.Error(res.Err))
			return nil, fmt.Errorf("user lookup: %w", res.Err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.UserID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": loginFailureReason(res.Failure),
			}
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := e.Issue(ctx, res.User.UserID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.User.UserID, "", nil, nil)

	return &LoginResult{
		User:   fromFlowUser(res.User),
		Tokens: *pair,
	}, nil
}

func loginFailureReason(kind internalflows.LoginFailureKind) string {
	switch kind {
	case internalflows.LoginFailureUserNotFound:
		return "user_not_found"
	case internalflows.LoginFailureVerify:
		return "hash_unreadable"
	case internalflows.LoginFailureMismatch:
		return "password_mismatch"
	default:
		return "unknown"
	}
}

// Register validates input, creates the account and issues a token pair for it.
//
// Invalid input yields a [*ValidationError]; a taken email yields [ErrAccountExists].
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.userProvider == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	input.Email = NormalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	if err := e.validateRegistration(input); err != nil {
		e.metricInc(MetricRegisterInvalid)
		var verr *ValidationError
		errors.As(err, &verr)
		e.emitAudit(ctx, auditEventRegisterInvalid, false, "", "", err, func() map[string]string {
			return map[string]string{
				"field": verr.Field,
			}
		})
		return nil, err
	}

	res := e.flows.Register(ctx, internalflows.RegisterRequest{
		Email:    input.Email,
		Username: input.Username,
		Password: input.Password,
	})
	switch res.Failure {
	case internalflows.RegisterFailureNone:
	case internalflows.RegisterFailureExists:
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrAccountExists, nil)
		return nil, ErrAccountExists
	default:
		e.logger.Error("account creation failed", zap.Error(res.Err))
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", res.Err, nil)
		return nil, fmt.Errorf("create account: %w", res.Err)
	}

	user := fromFlowUser(res.User)
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, "", nil, nil)

	pair, err := e.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:   user,
		Tokens: *pair,
	}, nil
}

func (e *Engine) validateRegistration(input RegisterInput) error {
	if input.Email == "" {
		return &ValidationError{Field: "email", Message: "is required"}
	}
	if len(input.Email) > maxEmailLength {
		return &ValidationError{Field: "email", Message: "is too long"}
	}
	addr, err := mail.ParseAddress(input.Email)
	if err != nil || addr.Address != input.Email {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	n := utf8.RuneCountInString(input.Username)
	if n < minUsernameLength || n > maxUsernameLength {
		return &ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("must be between %d and %d characters", minUsernameLength, maxUsernameLength),
		}
	}

	p := utf8.RuneCountInString(input.Password)
	if p < e.config.Password.MinLength || p > e.config.Password.MaxLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be between %d and %d characters", e.config.Password.MinLength, e.config.Password.MaxLength),
		}
	}

	return nil
}

// User returns the account for userID.
func (e *Engine) User(ctx context.Context, userID string) (UserRecord, error) {
	if !e.ready() || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	return e.userProvider.GetUserByID(ctx, userID)
}

func fromFlowUser(u internalflows.UserRecord) UserRecord {
	return UserRecord{
		ID:           u.UserID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func toFlowUser(u UserRecord) internalflows.UserRecord {
	return internalflows.UserRecord{
		UserID:       u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}
