package wbauth

import (
	"context"
	"errors"
	"time"

	"github.com/inkstone/wbauth/internal"
	internalaudit "github.com/inkstone/wbauth/internal/audit"
	internalflows "github.com/inkstone/wbauth/internal/flows"
	"github.com/inkstone/wbauth/jwt"
	"github.com/inkstone/wbauth/password"
	"github.com/inkstone/wbauth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use: Build may succeed once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  RevocationStore

	userProvider UserProvider
	passwordHash PasswordHasher
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the revocation store with client. Ignored when WithRevocationStore
// is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRevocationStore supplies a custom revocation store instead of the Redis one.
func (b *Builder) WithRevocationStore(store RevocationStore) *Builder {
	b.store = store
	return b
}

// WithUserProvider enables Login, Register and User.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordHasher overrides the argon2id hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.passwordHash = h
	return b
}

// WithAuditSink sets where audit events go. Audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Defaults to zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces the token codec's clock. Tests use it to move past expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- REVOCATION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or revocation store required")
		}
		store = session.NewStore(b.redis, cfg.Store.KeyPrefix)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
		Issuer:        cfg.JWT.Issuer,
		Now:           b.now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	ph := b.passwordHash
	if ph == nil {
		argon, err := password.NewArgon2(password.Config{
			Memory:           cfg.Password.Memory,
			Time:             cfg.Password.Time,
			Parallelism:      cfg.Password.Parallelism,
			SaltLength:       cfg.Password.SaltLength,
			KeyLength:        cfg.Password.KeyLength,
			MinPasswordBytes: cfg.Password.MinLength,
			MaxPasswordBytes: cfg.Password.MaxLength * utf8MaxBytes,
		})
		if err != nil {
			return nil, err
		}
		ph = argon
	}

	var dummyHash string
	if b.userProvider != nil {
		dummyHash, err = ph.Hash(dummyPassword)
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:       cfg,
		store:        store,
		jwtManager:   jm,
		passwordHash: ph,
		userProvider: b.userProvider,
		logger:       logger,
		dummyHash:    dummyHash,
	}

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NoOpSink{}
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, sink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = internalflows.New(engine.buildFlowDeps())

	b.built = true

	return engine, nil
}

const (
	dummyPassword = "wbauth-timing-equalizer"
	utf8MaxBytes  = 4
)

func (e *Engine) buildFlowDeps() internalflows.Deps {
	deps := internalflows.Deps{
		Issue: internalflows.IssueDeps{
			NewTokenID:  internal.NewTokenID,
			SignAccess:  e.jwtManager.SignAccess,
			SignRefresh: e.jwtManager.SignRefresh,
			RefreshTTL:  e.jwtManager.RefreshTTL(),
			Store:       e.store,
		},
		Refresh: internalflows.RefreshDeps{
			ParseRefresh: e.jwtManager.ParseRefresh,
			SignAccess:   e.jwtManager.SignAccess,
			Store:        e.store,
		},
		Identity: internalflows.IdentityDeps{
			ParseAccess: e.jwtManager.ParseAccess,
		},
		Logout: internalflows.LogoutDeps{
			Store: e.store,
		},
	}

	if e.userProvider != nil {
		deps.Login = internalflows.LoginDeps{
			FindUserByEmail: func(ctx context.Context, email string) (internalflows.UserRecord, error) {
				u, err := e.userProvider.FindUserByEmail(ctx, email)
				if err != nil {
					return internalflows.UserRecord{}, err
				}
				return toFlowUser(u), nil
			},
			VerifyPassword: e.passwordHash.Verify,
			DummyHash:      e.dummyHash,
			UserNotFound:   ErrUserNotFound,
		}
		deps.Register = internalflows.RegisterDeps{
			HashPassword: e.passwordHash.Hash,
			CreateUser: func(ctx context.Context, email, username, passwordHash string) (internalflows.UserRecord, error) {
				u, err := e.userProvider.CreateUser(ctx, CreateUserInput{
					Email:        email,
					Username:     username,
					PasswordHash: passwordHash,
				})
				if err != nil {
					return internalflows.UserRecord{}, err
				}
				return toFlowUser(u), nil
			},
			AccountExists: ErrAccountExists,
		}
	}

	return deps
}
