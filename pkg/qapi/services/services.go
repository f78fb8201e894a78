package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quatton/qgen/pkg/kv"
	"github.com/quatton/qgen/pkg/qapi/config"
	"github.com/quatton/qgen/pkg/qart"
	"github.com/quatton/qgen/pkg/qbatch"
	"github.com/quatton/qgen/pkg/qlog"
	"github.com/quatton/qgen/pkg/qmedia"
	"github.com/quatton/qgen/pkg/qschema"
	"github.com/quatton/qgen/pkg/qsdk"
)

type Services struct {
	Client    *qsdk.Client
	Schemas   *qschema.Cache
	Catalog   *qbatch.Catalog
	Batch     *qbatch.Orchestrator
	Artifacts qart.Store
	Defaults  Defaults

	cache kv.Store
	log   *qlog.Logger
}

// Defaults are the wait settings used when a request names none.
type Defaults struct {
	PredictionTimeout int // seconds
	PollInterval      int // seconds
}

// NewServices wires the gateway, caches and artifact sink from cfg.
func NewServices(ctx context.Context, cfg *config.EnvConfig, log *qlog.Logger) (*Services, error) {
	log = qlog.OrNop(log)

	var cache kv.Store
	if cfg.ValkeyAddr != "" {
		store, err := kv.NewValkeyStore(kv.ValkeyConfig{
			Addr:     cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to valkey: %w", err)
		}
		cache = store
	} else {
		cache = kv.NewMemoryStore()
	}

	artifacts, err := newArtifactStore(ctx, cfg)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	client, err := qsdk.NewClient(cfg.ReplicateToken,
		qsdk.WithBaseURL(cfg.ReplicateBaseURL),
		qsdk.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		qsdk.WithCache(cache),
		qsdk.WithCacheTTL(cfg.CacheTTL),
		qsdk.WithLogger(log),
	)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	svcs := New(client, artifacts, log)
	svcs.cache = cache
	svcs.Defaults = Defaults{
		PredictionTimeout: int(cfg.PredictionTimeout.Seconds()),
		PollInterval:      int(cfg.PollInterval.Seconds()),
	}
	return svcs, nil
}

// New builds the services around an existing client. artifacts may be nil.
func New(client *qsdk.Client, artifacts qart.Store, log *qlog.Logger) *Services {
	log = qlog.OrNop(log)
	schemas := qschema.NewCache(client)

	opts := []qbatch.Option{
		qbatch.WithLogger(log),
		qbatch.WithParser(qmedia.NewParser(qmedia.WithLogger(log))),
	}
	if artifacts != nil {
		opts = append(opts, qbatch.WithSink(artifacts))
	}

	return &Services{
		Client:    client,
		Schemas:   schemas,
		Catalog:   qbatch.DefaultCatalog(),
		Batch:     qbatch.New(client, schemas, opts...),
		Artifacts: artifacts,
		log:       log,
	}
}

func newArtifactStore(ctx context.Context, cfg *config.EnvConfig) (qart.Store, error) {
	var store qart.Store
	switch {
	case cfg.S3Endpoint != "":
		s3, err := qart.NewS3Store(qart.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		store = s3
	case cfg.ArtifactDir != "":
		local, err := qart.NewLocalStore(cfg.ArtifactDir)
		if err != nil {
			return nil, err
		}
		store = local
	default:
		return nil, nil
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare artifact store: %w", err)
	}
	return store, nil
}

func (s *Services) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
