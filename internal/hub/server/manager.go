package server

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"buswatch.io/buswatch/internal/hub/auth"
	"buswatch.io/buswatch/internal/hub/broadcast"
	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/internal/hub/notifier"
	"buswatch.io/buswatch/internal/hub/registry"
	"buswatch.io/buswatch/internal/hub/server/http"
	"buswatch.io/buswatch/internal/hub/server/mqtt"
	"buswatch.io/buswatch/internal/hub/server/ws"
	"buswatch.io/buswatch/internal/hub/storage"
	"buswatch.io/buswatch/internal/hub/storage/redisstore"
	"buswatch.io/buswatch/pkg/log"
	pkgmqtt "buswatch.io/buswatch/pkg/mqtt"
	"buswatch.io/buswatch/pkg/mqtt/topic"
)

// Server defines the common interface for all sub-servers (http, mqtt).
type Server interface {
	Start(ctx context.Context) error
}

// Manager wires the tracking core to its protocol servers and manages
// their lifecycle.
type Manager struct {
	servers []Server
}

// NewManager builds the full hub: storage, auth, registry, fan-out, the
// tracking service and every enabled protocol server.
func NewManager(cfg *Config) (*Manager, error) {
	rdb := cfg.RedisOptions.NewClient()

	store := redisstore.NewStore(rdb, cfg.RedisOptions.HistoryRetention)
	catalog := redisstore.NewCatalog(rdb)
	stops := redisstore.NewStopIndex(rdb)

	verifier := auth.NewJWTVerifier(cfg.AuthOptions)
	reg := registry.New()

	notifiers := []core.UpdateNotifier{broadcast.New(reg)}

	var servers []Server

	// The bridge uses separate clients for ingress and egress so a slow
	// mirror never backpressures report intake.
	var ingressClient pkgmqtt.Client
	var topics *topic.Builder
	if cfg.MqttOptions.Enabled {
		topics = topic.NewBuilder(cfg.MqttOptions.TopicRoot)

		egressCfg := cfg.MqttOptions.ToClientConfig()
		if egressCfg.ClientID != "" {
			egressCfg.ClientID += "-mirror"
		}
		egressClient, err := pkgmqtt.NewClient(egressCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt egress client: %w", err)
		}
		mirror := notifier.NewMQTTNotifier(egressClient, topics)
		notifiers = append(notifiers, mirror)
		servers = append(servers, mirror)

		ingressClient, err = pkgmqtt.NewClient(cfg.MqttOptions.ToClientConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt ingress client: %w", err)
		}
	}

	svc := service.New(catalog, store, stops, notifiers...)
	if ingressClient != nil {
		servers = append(servers, mqtt.NewServer(ingressClient, topics, verifier, svc))
	}

	var media *storage.MediaStore
	if cfg.S3Options.Enabled {
		m, err := storage.NewMediaStore(cfg.S3Options)
		if err != nil {
			return nil, fmt.Errorf("failed to init media store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = m.CheckBucket(ctx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("media bucket check failed: %w", err)
		}
		media = m
	}

	gateway := ws.NewServer(verifier, svc, reg, cfg.GatewayOptions)
	ready := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	httpSrv := http.NewServer(cfg.HttpOptions, cfg.GatewayOptions.Path, gateway, svc, media, ready)
	servers = append(servers, httpSrv)

	return &Manager{servers: servers}, nil
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		srv := s
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...")
	return g.Wait()
}
