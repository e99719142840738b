package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every failure to reach or talk to Redis. It is never returned
// for a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidEntry is returned when a caller passes an empty user id, token id or a
// non-positive TTL.
var ErrInvalidEntry = errors.New("invalid revocation entry")

const (
	refreshKeyPrefix = "refresh:"
	userSetKeyPrefix = "user_refresh_set:"
)

// Store is the Redis-backed revocation store for refresh tokens.
//
// It keeps two kinds of keys:
//
//	refresh:<tokenId>          -> userId, expiring with the refresh token
//	user_refresh_set:<userId>  -> set of tokenIds, expiry pushed forward on each add
//
// The per-token key is authoritative. The per-user set is only an index used by
// RevokeAllRefreshTokens and may hold ids whose token key has already expired.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a revocation [Store] backed by the given Redis client. prefix is
// prepended to every key and may be empty.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) tokenKey(tokenID string) string {
	return s.prefix + refreshKeyPrefix + tokenID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + userSetKeyPrefix + userID
}

// SaveRefreshToken records tokenID as a live refresh token owned by userID.
//
// The three writes (SET EX, SADD, EXPIRE) go out in one pipelined round trip but are not
// wrapped in MULTI/EXEC. If the connection drops midway the token key may exist without
// its set membership; such a token stays refreshable until its TTL but is missed by
// logout-all. Repeating the call is harmless.
func (s *Store) SaveRefreshToken(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tokenID) == "" || ttl <= 0 {
		return ErrInvalidEntry
	}

	userKey := s.userKey(userID)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(tokenID), userID, ttl)
		pipe.SAdd(ctx, userKey, tokenID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetRefreshTokenUserID returns the owner of tokenID. A revoked, expired or never-saved
// token yields found=false with a nil error.
func (s *Store) GetRefreshTokenUserID(ctx context.Context, tokenID string) (string, bool, error) {
	if tokenID == "" {
		return "", false, nil
	}

	userID, err := s.redis.Get(ctx, s.tokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return userID, true, nil
}

// RevokeAllRefreshTokens deletes every refresh token indexed for userID and then the
// index itself. Calling it for a user with no tokens only deletes the (absent) set key.
//
// ATOMICITY NOTE: the set is read with SMEMBERS before the deletes are sent, so a token
// saved between the two phases is added to a set that is then deleted. That token keeps
// working until its own TTL. The window is one round trip wide.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidEntry
	}
	userKey := s.userKey(userID)

	tokenIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(tokenIDs) > 0 {
			keys := make([]string, 0, len(tokenIDs))
			for _, id := range tokenIDs {
				keys = append(keys, s.tokenKey(id))
			}
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveTokenIDs returns the token ids currently indexed for userID. Ids whose token key
// already expired may still be listed.
func (s *Store) ActiveTokenIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
