// Package redis manages the go-redis clients that back the rate limiter
// and exposes them through the command executor contract the limiter
// consumes.
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/up2jj/redlimit/logger"
	"go.uber.org/zap"
)

// Manager holds named Redis clients (standalone and cluster).
type Manager struct {
	instances map[string]*redis.Client
	clusters  map[string]*redis.ClusterClient
	logger    *logger.Logger
	mu        sync.RWMutex
}

// NewManager connects every configured instance and pings it once.
// log must not be nil.
func NewManager(configs map[string]Config, log *logger.Logger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	ctx := context.Background()
	m := &Manager{
		instances: make(map[string]*redis.Client),
		clusters:  make(map[string]*redis.ClusterClient),
		logger:    log,
	}

	for name, cfg := range configs {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		switch cfg.Mode {
		case "standalone":
			client, err := m.createClient(cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create client %s: %w", name, err)
			}
			m.instances[name] = client
		case "cluster":
			cluster, err := m.createClusterClient(cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create cluster %s: %w", name, err)
			}
			m.clusters[name] = cluster
		}

		m.logger.DebugCtx(ctx, "redis connection established",
			zap.String("name", name),
			zap.String("mode", cfg.Mode),
			zap.Strings("addrs", cfg.Addrs))
	}

	return m, nil
}

func (m *Manager) createClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addrs[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return client, nil
}

func (m *Manager) createClusterClient(cfg Config) (*redis.ClusterClient, error) {
	cluster := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        cfg.Addrs,
		Password:     cfg.Password,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := cluster.Ping(context.Background()).Err(); err != nil {
		cluster.Close()
		return nil, fmt.Errorf("ping cluster failed: %w", err)
	}
	return cluster, nil
}

// Client returns the named standalone client, or nil when absent.
func (m *Manager) Client(name string) *redis.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[name]
}

// Cluster returns the named cluster client, or nil when absent.
func (m *Manager) Cluster(name string) *redis.ClusterClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clusters[name]
}

// Executor returns the command executor for the named instance,
// resolving standalone instances first, then clusters. Returns nil when
// the name is unknown.
func (m *Manager) Executor(name string) *Executor {
	if client := m.Client(name); client != nil {
		return NewExecutor(client)
	}
	if cluster := m.Cluster(name); cluster != nil {
		return NewExecutor(cluster)
	}
	return nil
}

// Ping checks every connection.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, client := range m.instances {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping %s failed: %w", name, err)
		}
	}
	for name, cluster := range m.clusters {
		if err := cluster.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping cluster %s failed: %w", name, err)
		}
	}
	return nil
}

// Close closes every connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := context.Background()
	for name, client := range m.instances {
		if err := client.Close(); err != nil {
			m.logger.ErrorCtx(ctx, "failed to close redis connection",
				zap.String("name", name), zap.Error(err))
		}
	}
	for name, cluster := range m.clusters {
		if err := cluster.Close(); err != nil {
			m.logger.ErrorCtx(ctx, "failed to close redis cluster connection",
				zap.String("name", name), zap.Error(err))
		}
	}
	return nil
}
