package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogcontext "github.com/veqryn/slog-context"

	resolver "github.com/krisalay/advert-resolver"
	"github.com/krisalay/advert-resolver/cache"
	"github.com/krisalay/advert-resolver/config"
	"github.com/krisalay/advert-resolver/metrics"
	"github.com/krisalay/advert-resolver/provider"
	"github.com/krisalay/advert-resolver/telemetry"
	"github.com/krisalay/advert-resolver/types"
	"github.com/krisalay/advert-resolver/window"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "advert-resolver:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := slogcontext.NewCtx(context.Background(), logger)

	shutdown, err := telemetry.Setup(ctx, "advert-resolver", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var sink types.Metrics = types.NoopMetrics{}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		sink = metrics.NewPrometheus(reg, "demo")
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	fmt.Println("\n==================== SYSTEM BOOT ====================")
	fmt.Println("RETRY COUNT     :", cfg.RetryCount)
	fmt.Println("RETRY BACKOFF   :", cfg.RetryBackoff)
	fmt.Println("CACHE TTL       :", cfg.CacheTTL)
	fmt.Println("ERROR WINDOW    :", cfg.ErrorWindow)
	fmt.Println("ERROR THRESHOLD :", cfg.ErrorThreshold)
	fmt.Println("SERIALIZE       :", cfg.Serialize)

	// ---------------- Shared state ----------------
	shared := cache.New[*types.Advertisement](cfg.CacheOptions(sink))
	defer shared.Close()
	if cfg.SweepInterval > 0 {
		shared.StartSweeper(ctx, cfg.SweepInterval)
	}
	failures := window.New(cfg.MinRetainedErrors)

	// ---------------- Providers ----------------
	catalog := []*types.Advertisement{
		{ID: "42", Name: "Summer sale", Description: "Everything -30%"},
		{ID: "7", Name: "Free shipping", Description: "Orders over 50"},
		{ID: "99", Name: "Loyalty bonus", Description: "Double points this week"},
	}
	primary := provider.NewFlaky(provider.NewStatic(catalog...))
	backup := provider.NewStatic(catalog...)

	r, err := resolver.New(primary, backup, cfg.ResolverConfig(),
		resolver.WithCache(shared),
		resolver.WithErrorCounter(failures),
		resolver.WithMetrics(sink),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	show := func(id string) {
		ad, err := r.GetAdvertisement(ctx, id)
		if err != nil {
			fmt.Printf("RESOLVER → GET %s = error: %v\n", id, err)
			return
		}
		fmt.Printf("RESOLVER → GET %s = %q\n", id, ad.Name)
	}

	// ====================================================
	fmt.Println("\n==================== A) PRIMARY + CACHE ====================")
	show("42")
	show("42")
	fmt.Println("PRIMARY  → calls:", primary.Calls())

	// ====================================================
	fmt.Println("\n==================== B) PRIMARY DOWN, BACKUP ====================")
	primary.SetDown(true)
	before := primary.Calls()
	show("7")
	fmt.Println("PRIMARY  → calls:", primary.Calls()-before)
	fmt.Println("BACKUP   → calls:", backup.Calls())

	// ====================================================
	fmt.Println("\n==================== C) CIRCUIT OPEN ====================")
	for i := 0; i < cfg.ErrorThreshold; i++ {
		failures.Record(time.Now())
	}
	fmt.Println("CIRCUIT  → open:", r.CircuitOpen())
	before = primary.Calls()
	show("99")
	fmt.Println("PRIMARY  → calls:", primary.Calls()-before)

	// ====================================================
	fmt.Println("\n==================== D) NOT FOUND ====================")
	show("404")

	// ====================================================
	fmt.Println("\n==================== E) RESET ====================")
	primary.SetDown(false)
	r.ResetCircuit()
	r.Invalidate("42")
	fmt.Println("CIRCUIT  → open:", r.CircuitOpen())
	show("42")

	fmt.Println("\n==================== SHUTDOWN ====================")
	fmt.Println("SYSTEM → resolver closed cleanly")
	return nil
}
