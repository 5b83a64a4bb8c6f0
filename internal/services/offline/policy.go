package offline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/metrics"
	"go.uber.org/zap"
)

// RoundTrip intercepts same-origin GETs once a generation is active. Any other
// request reaches the network untouched.
func (m *Manager) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.URL == nil || !sameOrigin(req.URL, m.origin) {
		return m.network.RoundTrip(req)
	}

	gen := m.current()
	if gen == nil {
		return m.network.RoundTrip(req)
	}

	if gen.policy == CacheFirst {
		return m.cacheFirst(req, gen)
	}
	return m.networkFirst(req, gen)
}

// fetched is a network response whose body has been read up to the entry
// size limit.
type fetched struct {
	resp      *http.Response
	body      []byte
	cacheable bool
}

func (m *Manager) fetch(req *http.Request) (*fetched, error) {
	resp, err := m.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, m.opts.MaxEntrySize+1))
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	if int64(len(buf)) > m.opts.MaxEntrySize {
		// too large to keep; stream the rest through
		resp.Body = readCloser{io.MultiReader(bytes.NewReader(buf), resp.Body), resp.Body}
		resp.Header.Set(SourceHeader, sourceNetwork)
		return &fetched{resp: resp}, nil
	}

	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(buf))
	resp.ContentLength = int64(len(buf))
	resp.Header.Set(SourceHeader, sourceNetwork)

	return &fetched{
		resp:      resp,
		body:      buf,
		cacheable: resp.StatusCode >= 200 && resp.StatusCode < 300,
	}, nil
}

// store is best-effort: failures are logged and counted, never returned.
func (m *Manager) store(ctx context.Context, gen *generation, key string, f *fetched) {
	if !f.cacheable || ctx.Err() != nil {
		return
	}

	m.writes.RLock()
	defer m.writes.RUnlock()
	if m.current() != gen {
		return
	}

	entry := snapshot(key, f.resp, f.body, m.opts.Now())
	if err := gen.store.Put(ctx, key, entry); err != nil {
		metrics.CacheWriteFailures.Inc()
		m.logger.Warn("Failed to cache response",
			zap.String("generation", gen.name),
			zap.String("url", key),
			zap.Error(err),
		)
	}
}

func (m *Manager) lookup(ctx context.Context, gen *generation, key string) (*http.Response, bool) {
	entry, err := gen.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			m.logger.Warn("Cache read failed",
				zap.String("generation", gen.name),
				zap.String("url", key),
				zap.Error(err),
			)
		}
		return nil, false
	}
	return entryResponse(nil, entry, sourceCache), true
}

func (m *Manager) offlineDocument(req *http.Request, gen *generation) *http.Response {
	key := cacheKey(m.resolve(m.opts.OfflinePath))
	entry, err := gen.store.Get(req.Context(), key)
	if err != nil {
		return unavailableResponse(req)
	}
	return entryResponse(req, entry, sourceOffline)
}

func (m *Manager) networkFirst(req *http.Request, gen *generation) (*http.Response, error) {
	key := cacheKey(req.URL)
	policy := string(NetworkFirst)

	f, err := m.fetch(req)
	if err == nil {
		m.store(req.Context(), gen, key, f)
		metrics.CacheLookups.WithLabelValues(policy, sourceNetwork).Inc()
		return f.resp, nil
	}

	if req.Context().Err() != nil {
		return nil, err
	}

	m.logger.Debug("Network unavailable, serving from cache",
		zap.String("url", key),
		zap.Error(err),
	)

	if resp, ok := m.lookup(req.Context(), gen, key); ok {
		resp.Request = req
		metrics.CacheLookups.WithLabelValues(policy, sourceCache).Inc()
		return resp, nil
	}

	metrics.CacheLookups.WithLabelValues(policy, sourceOffline).Inc()
	return m.offlineDocument(req, gen), nil
}

func (m *Manager) cacheFirst(req *http.Request, gen *generation) (*http.Response, error) {
	key := cacheKey(req.URL)
	policy := string(CacheFirst)

	if resp, ok := m.lookup(req.Context(), gen, key); ok {
		resp.Request = req
		metrics.CacheLookups.WithLabelValues(policy, sourceCache).Inc()
		if req.Context().Err() == nil {
			m.refresh(req, gen, key)
		}
		return resp, nil
	}

	f, err := m.fetch(req)
	if err == nil {
		m.store(req.Context(), gen, key, f)
		metrics.CacheLookups.WithLabelValues(policy, sourceNetwork).Inc()
		return f.resp, nil
	}

	if req.Context().Err() != nil {
		return nil, err
	}

	metrics.CacheLookups.WithLabelValues(policy, sourceOffline).Inc()
	return m.offlineDocument(req, gen), nil
}

// refresh revalidates a cached entry in the background. At most one refresh
// per key runs at a time, and it is owned by the manager rather than the
// request so it outlives the response.
func (m *Manager) refresh(req *http.Request, gen *generation, key string) {
	if _, running := m.inflight.LoadOrStore(key, struct{}{}); running {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), m.opts.RefreshTimeout)
	bg := req.Clone(ctx)

	m.refreshes.Add(1)
	go func() {
		defer m.refreshes.Done()
		defer m.inflight.Delete(key)
		defer cancel()

		f, err := m.fetch(bg)
		if err != nil {
			m.logger.Debug("Background refresh failed", zap.String("url", key), zap.Error(err))
			return
		}
		defer f.resp.Body.Close()

		m.store(ctx, gen, key, f)
	}()
}
