// Package offline keeps the app shell available without a network. Manager is
// an http.RoundTripper: same-origin GETs are answered from a versioned cache
// generation according to its policy, everything else goes straight to the
// network.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/phambaophuc/meal-analyzer/internal/services/storage"
	"go.uber.org/zap"
)

type Policy string

const (
	NetworkFirst Policy = "network-first"
	CacheFirst   Policy = "cache-first"
)

const (
	DefaultOfflinePath    = "/offline.html"
	DefaultMaxEntrySize   = 5 << 20
	DefaultRefreshTimeout = 30 * time.Second
)

type Options struct {
	OfflinePath    string
	MaxEntrySize   int64
	RefreshTimeout time.Duration
	Now            func() time.Time
}

type generation struct {
	name        string
	policy      Policy
	manifest    []string
	installedAt time.Time
	state       models.GenerationState
	store       storage.Store
}

func (g *generation) info() *models.GenerationInfo {
	return &models.GenerationInfo{
		Name:        g.name,
		State:       g.state,
		Policy:      string(g.policy),
		Manifest:    append([]string(nil), g.manifest...),
		InstalledAt: g.installedAt,
	}
}

type Manager struct {
	storage storage.Storage
	network http.RoundTripper
	origin  *url.URL
	opts    Options
	logger  *zap.Logger

	// lifecycle serializes Install and Activate.
	lifecycle sync.Mutex
	// writes is held shared by runtime cache writes and exclusively while
	// Activate purges, so no write lands in a store after it was deleted.
	writes sync.RWMutex

	mu         sync.RWMutex
	active     *generation
	waiting    *generation
	installing *generation

	refreshes sync.WaitGroup
	inflight  sync.Map
}

func NewManager(st storage.Storage, network http.RoundTripper, origin string, logger *zap.Logger, opts Options) (*Manager, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q", origin)
	}
	if network == nil {
		network = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OfflinePath == "" {
		opts.OfflinePath = DefaultOfflinePath
	}
	if opts.MaxEntrySize <= 0 {
		opts.MaxEntrySize = DefaultMaxEntrySize
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		storage: st,
		network: network,
		origin:  &url.URL{Scheme: u.Scheme, Host: u.Host},
		opts:    opts,
		logger:  logger,
	}, nil
}

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case NetworkFirst, CacheFirst:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown cache policy %q", s)
}

func (m *Manager) Origin() *url.URL {
	u := *m.origin
	return &u
}

func (m *Manager) resolve(path string) *url.URL {
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	return m.origin.ResolveReference(ref)
}

// Install precaches the manifest plus the offline document into a new store
// named version. It is all or nothing: on any failure the store is removed and
// the generation never becomes waiting. Installing the active version again is
// a no-op.
func (m *Manager) Install(ctx context.Context, version string, policy Policy, manifest []string) error {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return err
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()
	if active != nil && active.name == version {
		m.logger.Info("Cache generation already active", zap.String("generation", version))
		return nil
	}

	paths := m.precacheList(manifest)
	gen := &generation{
		name:     version,
		policy:   policy,
		manifest: paths,
		state:    models.GenerationInstalling,
	}
	m.mu.Lock()
	m.installing = gen
	m.mu.Unlock()

	m.logger.Info("Installing cache generation",
		zap.String("generation", version),
		zap.String("policy", string(policy)),
		zap.Int("assets", len(paths)),
	)

	store, err := m.precache(ctx, version, paths)
	if err != nil {
		m.mu.Lock()
		gen.state = models.GenerationRedundant
		m.installing = nil
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.waiting != nil {
		m.waiting.state = models.GenerationRedundant
	}
	gen.store = store
	gen.installedAt = m.opts.Now()
	gen.state = models.GenerationWaiting
	m.waiting = gen
	m.installing = nil
	m.mu.Unlock()

	m.logger.Info("Cache generation installed", zap.String("generation", version))
	return nil
}

// precache fetches every path before touching storage, then writes them all
// into the store named version. A failed write removes the store.
func (m *Manager) precache(ctx context.Context, version string, paths []string) (storage.Store, error) {
	entries := make(map[string]*models.CacheEntry, len(paths))
	for _, path := range paths {
		u := m.resolve(path)
		entry, err := m.fetchForInstall(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errs.ErrInstallFailed, path, err)
		}
		entries[cacheKey(u)] = entry
	}

	store, err := m.storage.Open(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInstallFailed, err)
	}
	for key, entry := range entries {
		if err := store.Put(ctx, key, entry); err != nil {
			m.dropWaiting(version)
			if _, derr := m.storage.Delete(ctx, version); derr != nil {
				m.logger.Warn("Failed to remove partially installed generation",
					zap.String("generation", version), zap.Error(derr))
			}
			return nil, fmt.Errorf("%w: storing %s: %v", errs.ErrInstallFailed, key, err)
		}
	}
	return store, nil
}

// dropWaiting forgets the waiting generation named version, whose store is
// about to be removed.
func (m *Manager) dropWaiting(version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting != nil && m.waiting.name == version {
		m.waiting.state = models.GenerationRedundant
		m.waiting = nil
	}
}

func (m *Manager) precacheList(manifest []string) []string {
	seen := make(map[string]bool, len(manifest)+1)
	paths := make([]string, 0, len(manifest)+1)
	for _, p := range append(append([]string(nil), manifest...), m.opts.OfflinePath) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

func (m *Manager) fetchForInstall(ctx context.Context, u *url.URL) (*models.CacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := m.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, m.opts.MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > m.opts.MaxEntrySize {
		return nil, fmt.Errorf("asset larger than %d bytes", m.opts.MaxEntrySize)
	}

	return snapshot(cacheKey(u), resp, body, m.opts.Now()), nil
}

// Activate purges every store except the waiting generation's and only then
// promotes it, so two generations never serve side by side.
func (m *Manager) Activate(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	next := m.waiting
	m.mu.RUnlock()
	if next == nil {
		return errs.ErrNoWaitingGeneration
	}

	m.writes.Lock()
	defer m.writes.Unlock()

	names, err := m.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache stores: %w", err)
	}

	var purgeErrs []error
	for _, name := range names {
		if name == next.name {
			continue
		}
		if _, err := m.storage.Delete(ctx, name); err != nil {
			purgeErrs = append(purgeErrs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		m.logger.Info("Deleted stale cache generation", zap.String("generation", name))
	}
	if len(purgeErrs) > 0 {
		return fmt.Errorf("failed to purge stale generations: %w", errors.Join(purgeErrs...))
	}

	m.mu.Lock()
	if m.active != nil {
		m.active.state = models.GenerationRedundant
	}
	next.state = models.GenerationActive
	m.active = next
	m.waiting = nil
	m.mu.Unlock()

	m.logger.Info("Cache generation activated",
		zap.String("generation", next.name),
		zap.String("policy", string(next.policy)),
	)
	return nil
}

// Start installs a generation and activates it right away.
func (m *Manager) Start(ctx context.Context, version string, policy Policy, manifest []string) error {
	if err := m.Install(ctx, version, policy, manifest); err != nil {
		return err
	}

	m.mu.RLock()
	pending := m.waiting != nil
	m.mu.RUnlock()
	if !pending {
		return nil
	}
	return m.Activate(ctx)
}

func (m *Manager) current() *generation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

func (m *Manager) Status(ctx context.Context) (models.CacheStatus, error) {
	m.mu.RLock()
	status := models.CacheStatus{Backend: m.storage.Type()}
	if m.active != nil {
		status.Active = m.active.info()
	}
	if m.waiting != nil {
		status.Waiting = m.waiting.info()
	}
	if m.installing != nil {
		status.Installing = m.installing.info()
	}
	m.mu.RUnlock()

	names, err := m.storage.Names(ctx)
	if err != nil {
		return status, err
	}
	status.Stores = names
	return status, nil
}

// Drain waits for background refreshes to finish.
func (m *Manager) Drain() {
	m.refreshes.Wait()
}
