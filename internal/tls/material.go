package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/avarelay/internal/observability"
)

const defaultDebounce = 250 * time.Millisecond

// Material holds the current key and trust material of one TLS endpoint.
// Either store may be absent.
type Material struct {
	name       string
	keyStore   *StoreConfig
	trustStore *StoreConfig

	cert  atomic.Pointer[tls.Certificate]
	roots atomic.Pointer[x509.CertPool]

	logger   observability.Logger
	metrics  *observability.Metrics
	debounce time.Duration

	watchOnce sync.Once
}

// Option configures Material and the builders that create it.
type Option func(*Material)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(m *Material) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics sink for expiry and reload metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Material) {
		m.metrics = metrics
	}
}

// WithDebounce sets how long file events settle before a reload.
func WithDebounce(d time.Duration) Option {
	return func(m *Material) {
		m.debounce = d
	}
}

// NewMaterial loads the given stores.
func NewMaterial(name string, keyStore, trustStore *StoreConfig, opts ...Option) (*Material, error) {
	m := &Material{
		name:       name,
		keyStore:   keyStore,
		trustStore: trustStore,
		logger:     observability.NopLogger(),
		debounce:   defaultDebounce,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Certificate returns the current key store certificate, or nil.
func (m *Material) Certificate() *tls.Certificate {
	return m.cert.Load()
}

// Roots returns the current trust pool, or nil.
func (m *Material) Roots() *x509.CertPool {
	return m.roots.Load()
}

// Reload reads both stores again. The current material is replaced only
// when every configured store loads.
func (m *Material) Reload() error {
	var (
		cert       *tls.Certificate
		roots      *x509.CertPool
		trustCerts []*x509.Certificate
		err        error
	)

	if m.keyStore != nil {
		cert, err = LoadKeyStore(*m.keyStore)
		if err != nil {
			m.metrics.RecordTLSReload(m.name, "failure")
			return fmt.Errorf("%s key store: %w", m.name, err)
		}
	}
	if m.trustStore != nil {
		roots, trustCerts, err = LoadTrustStore(*m.trustStore)
		if err != nil {
			m.metrics.RecordTLSReload(m.name, "failure")
			return fmt.Errorf("%s trust store: %w", m.name, err)
		}
	}

	if cert != nil {
		m.cert.Store(cert)
		m.metrics.SetCertificateExpiry(m.name+"-keystore", cert.Leaf.Subject.CommonName, cert.Leaf.NotAfter)
		m.logger.Info("key store loaded",
			observability.String("store", m.name),
			observability.String("subject", cert.Leaf.Subject.String()),
			observability.Time("not_after", cert.Leaf.NotAfter),
		)
	}
	if roots != nil {
		m.roots.Store(roots)
		for _, c := range trustCerts {
			m.metrics.SetCertificateExpiry(m.name+"-truststore", c.Subject.CommonName, c.NotAfter)
		}
		m.logger.Info("trust store loaded",
			observability.String("store", m.name),
			observability.Int("certificates", len(trustCerts)),
		)
	}

	m.metrics.RecordTLSReload(m.name, "success")
	return nil
}

func (m *Material) paths() []string {
	var out []string
	if m.keyStore != nil {
		out = append(out, filepath.Clean(m.keyStore.Path))
	}
	if m.trustStore != nil {
		out = append(out, filepath.Clean(m.trustStore.Path))
	}
	return out
}

// Watch reloads the material whenever a store file is written or replaced,
// until ctx is cancelled. Failed reloads keep the previous material.
func (m *Material) Watch(ctx context.Context) error {
	var startErr error
	m.watchOnce.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			startErr = fmt.Errorf("failed to create file watcher: %w", err)
			return
		}

		dirs := make(map[string]bool)
		for _, p := range m.paths() {
			dir := filepath.Dir(p)
			if dirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				_ = watcher.Close()
				startErr = fmt.Errorf("failed to watch %s: %w", dir, err)
				return
			}
			dirs[dir] = true
			m.logger.Info("watching TLS store directory",
				observability.String("store", m.name),
				observability.String("path", dir),
			)
		}

		go m.watchLoop(ctx, watcher)
	})
	return startErr
}

func (m *Material) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	relevant := make(map[string]bool)
	for _, p := range m.paths() {
		relevant[p] = true
	}

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			m.logger.Debug("TLS store watcher stopped", observability.String("store", m.name))
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevant[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(m.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			if err := m.Reload(); err != nil {
				m.logger.Error("failed to reload TLS material, keeping previous",
					observability.String("store", m.name),
					observability.Error(err),
				)
				continue
			}
			m.logger.Info("TLS material reloaded", observability.String("store", m.name))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("file watcher error", observability.Error(err))
		}
	}
}
