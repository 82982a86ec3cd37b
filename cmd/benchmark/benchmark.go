package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	resolver "github.com/krisalay/advert-resolver"
	"github.com/krisalay/advert-resolver/cache"
	"github.com/krisalay/advert-resolver/eviction"
	"github.com/krisalay/advert-resolver/provider"
	"github.com/krisalay/advert-resolver/types"
)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	const (
		shards     = 16
		capacity   = 50000
		catalog    = 100000
		goroutines = 200
		opsPerG    = 5000
		failEvery  = 10
		latency    = 200 * time.Microsecond
	)

	fmt.Println("\n================ RESOLVER LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", shards)
	fmt.Println("Capacity     :", capacity)
	fmt.Println("Catalog      :", catalog)
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", opsPerG)
	fmt.Println("Latency      :", latency)
	fmt.Println("---------------------------------")

	// ---------------- Providers ----------------
	ads := make([]*types.Advertisement, catalog)
	for i := range ads {
		ads[i] = &types.Advertisement{ID: fmt.Sprintf("ad-%d", i)}
	}
	primary := provider.NewStatic(ads...).WithDelay(latency)
	backup := provider.NewStatic(ads...)

	// every failEvery-th primary call fails
	var n atomic.Int64
	flaky := types.ProviderFunc(func(ctx context.Context, id string) (*types.Advertisement, error) {
		if n.Add(1)%failEvery == 0 {
			return nil, provider.ErrUnavailable
		}
		return primary.Fetch(ctx, id)
	})

	// ---------------- Resolver ----------------
	c := cache.New[*types.Advertisement](cache.Options{
		Shards:   shards,
		Capacity: capacity,
		Eviction: eviction.LRU,
	})
	defer c.Close()

	cfg := resolver.DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	cfg.ErrorThreshold = 1 << 20
	r, err := resolver.New(flaky, backup, cfg, resolver.WithCache(c))
	if err != nil {
		fmt.Println("resolver:", err)
		return
	}
	defer r.Close()

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	var notFound atomic.Int64
	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				// a skewed key space so a share of lookups hit the cache
				key := fmt.Sprintf("ad-%d", (j*j+id)%catalog)
				if _, err := r.Resolve(ctx, key); err != nil {
					notFound.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Primary Calls    : %d\n", primary.Calls())
	fmt.Printf("Backup Calls     : %d\n", backup.Calls())
	fmt.Printf("Not Found        : %d\n", notFound.Load())
	fmt.Printf("Cached Entries   : %d\n", c.Len())
	fmt.Println("=========================================")
}
