package wbauth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/inkstone/wbauth"
	"github.com/redis/go-redis/v9"
)

// ExampleEngine demonstrates the issue, refresh, logout cycle against an in-memory Redis.
func ExampleEngine() {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := wbauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("example-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("example-refresh-secret-012345678")

	engine, err := wbauth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	ctx := context.Background()
	pair, _ := engine.Issue(ctx, "u1")
	fmt.Println("expires in", pair.ExpiresIn)

	grant, _ := engine.Refresh(ctx, pair.RefreshToken)
	userID, _ := engine.RequireIdentity(ctx, grant.AccessToken)
	fmt.Println("user", userID)

	_ = engine.Logout(ctx, "u1")
	_, err = engine.Refresh(ctx, pair.RefreshToken)
	fmt.Println("refresh after logout:", errors.Is(err, wbauth.ErrRefreshFailed))

	userID, _ = engine.RequireIdentity(ctx, grant.AccessToken)
	fmt.Println("access token still valid for", userID)

	// Output:
	// expires in 7200
	// user u1
	// refresh after logout: true
	// access token still valid for u1
}

// ExampleEngine_MetricsSnapshot shows how to read in-process counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *wbauth.Engine
	snapshot := engine.MetricsSnapshot()
	fmt.Println(len(snapshot.Counters))
	// Output: 0
}
