package extractor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoCookies is returned by capability checks when a caller requires
// authenticated extraction but no cookie jar is configured.
var ErrNoCookies = errors.New("no cookie jar configured for authenticated extraction")

// ErrProbeUnsupported is returned by ProbeDuration when the active
// Extractor doesn't implement DurationProber.
var ErrProbeUnsupported = errors.New("active extractor does not support duration probing")

// Manager holds the active Extractor implementation behind a mutex, so a
// fixture toggle flipped at runtime (tests, an admin endpoint) swaps the
// backing implementation without restarting the process.
type Manager struct {
	mu          sync.RWMutex
	extractor   Extractor
	cookiesFile string
}

// NewManager constructs a Manager around the given initial Extractor.
func NewManager(e Extractor) *Manager {
	return &Manager{extractor: e}
}

// Set swaps the active Extractor.
func (m *Manager) Set(e Extractor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractor = e
}

// Get returns the active Extractor.
func (m *Manager) Get() Extractor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.extractor
}

// SetCookiesFile records the configured cookie jar path for age-restricted
// extraction. An empty path disables the capability.
func (m *Manager) SetCookiesFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookiesFile = path
}

// CookiesConfigured reports whether a cookie jar path is set, without
// exposing its contents or location.
func (m *Manager) CookiesConfigured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cookiesFile != ""
}

func (m *Manager) cookiesPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cookiesFile
}

// Search delegates to the active Extractor.
func (m *Manager) Search(ctx context.Context, q Query, opts SearchOptions) ([]RawCandidate, error) {
	return m.Get().Search(ctx, q, opts)
}

// Download delegates to the active Extractor, attaching the configured
// cookie jar path when the caller didn't already set one.
func (m *Manager) Download(ctx context.Context, externalIDOrURL string, opts DownloadOptions) (DownloadResult, error) {
	if opts.CookiesFile == "" {
		opts.CookiesFile = m.cookiesPath()
	}
	return m.Get().Download(ctx, externalIDOrURL, opts)
}

// ProbeDuration delegates to the active Extractor's DurationProber
// capability, or returns ErrProbeUnsupported if it has none.
func (m *Manager) ProbeDuration(ctx context.Context, videoURL string) (time.Duration, error) {
	prober, ok := m.Get().(DurationProber)
	if !ok {
		return 0, ErrProbeUnsupported
	}
	return prober.ProbeDuration(ctx, videoURL)
}
