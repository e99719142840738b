package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/inkstone/wbauth/internal"
	"github.com/inkstone/wbauth/session"
	"github.com/redis/go-redis/v9"
)

type seeded struct {
	userID   string
	tokenIDs []string
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		devices     = flag.Int("devices", 4, "refresh tokens seeded per user")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (lookup + save)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "wb:", "revocation key prefix")
	)
	flag.Parse()

	if *users <= 0 || *devices <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, devices, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, *prefix)
	ttl := 24 * time.Hour

	states := make([]seeded, *users)
	fmt.Printf("seeding %d users x %d devices...\n", *users, *devices)
	startSeed := time.Now()
	for i := range states {
		states[i].userID = fmt.Sprintf("user-%d", i)
		for d := 0; d < *devices; d++ {
			id, err := internal.NewTokenID()
			if err != nil {
				fmt.Fprintf(os.Stderr, "token id: %v\n", err)
				os.Exit(1)
			}
			if err := store.SaveRefreshToken(ctx, states[i].userID, id, ttl); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
				os.Exit(1)
			}
			states[i].tokenIDs = append(states[i].tokenIDs, id)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	lookupStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		s := states[r.Intn(len(states))]
		owner, found, err := store.GetRefreshTokenUserID(ctx, s.tokenIDs[r.Intn(len(s.tokenIDs))])
		if err != nil {
			return err
		}
		if !found || owner != s.userID {
			return fmt.Errorf("token of %s resolved to %q (found=%v)", s.userID, owner, found)
		}
		return nil
	})

	saveStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		id, err := internal.NewTokenID()
		if err != nil {
			return err
		}
		return store.SaveRefreshToken(ctx, states[r.Intn(len(states))].userID, id, ttl)
	})

	// one logout-all per user, each user's set has grown during the save phase
	logoutStats := runPhase(len(states), *concurrency, 3571, func(_ *rand.Rand, i int) error {
		return store.RevokeAllRefreshTokens(ctx, states[i].userID)
	})

	var leftovers int64
	for _, s := range states {
		for _, id := range s.tokenIDs {
			if _, found, _ := store.GetRefreshTokenUserID(ctx, id); found {
				leftovers++
			}
		}
	}

	fmt.Println("---- results ----")
	printStats("lookup", lookupStats)
	printStats("save", saveStats)
	printStats("logout-all", logoutStats)
	fmt.Printf("tokens surviving logout-all: %d\n", leftovers)
}

// runPhase runs ops calls of fn across concurrency workers. fn receives a per-worker
// rand source and the operation index.
func runPhase(ops, concurrency int, seed int64, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
