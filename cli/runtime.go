package cli

import (
	"context"
	"fmt"
	"log"

	"bounty-board/config"
	"bounty-board/services"
	"bounty-board/store"
)

// runtime is the wired service graph shared by every command.
type runtime struct {
	cfg      *config.Config
	store    store.RecordStore
	engine   *services.BountyService
	resolver *services.AutoResolver
}

func loadRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.StoreBackend != "" {
		cfg.StoreBackend = opts.StoreBackend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return newRuntime(ctx, cfg)
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	st, err := store.Open(ctx, storeOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	engine := services.NewBountyService(st, newGateway(cfg), services.BountyOptionsFromConfig(cfg))

	resolverOpts := services.DefaultAutoResolverOptions()
	resolverOpts.GracePeriod = cfg.GracePeriod()
	resolverOpts.Interval = cfg.SchedulerInterval()

	return &runtime{
		cfg:      cfg,
		store:    st,
		engine:   engine,
		resolver: services.NewAutoResolver(engine, resolverOpts),
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.resolver.Stop(); err != nil {
		log.Printf("[Scheduler] Stop error: %v", err)
	}
	if err := rt.store.Close(); err != nil {
		log.Printf("[Store] Close error: %v", err)
	}
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Backend:     cfg.StoreBackend,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
		R2: store.R2Options{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			Prefix:          cfg.R2Prefix,
			Endpoint:        cfg.R2Endpoint,
		},
	}
}

func newGateway(cfg *config.Config) services.PaymentGateway {
	if cfg.PaymentMode == config.PaymentModeHTTP {
		log.Printf("[Payment] Using settlement service at %s", cfg.PaymentURL)
		return services.NewHTTPGateway(cfg.PaymentURL, cfg.PaymentToken, cfg.PaymentRatePerSec)
	}
	log.Println("⚠️  [Payment] PAYMENT_MODE=simulated, rewards are only logged")
	return services.NewSimulatedGateway()
}
