package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"lumacheckin/internal/shared/constants"
	"lumacheckin/internal/shared/metrics"
	"lumacheckin/pkg/cache"
	"lumacheckin/pkg/loader"
	"lumacheckin/pkg/logger"
)

const (
	// ScriptName is the file name the scanner page requests
	ScriptName = "html5-qrcode.min.js"

	// scannerGlobal must be defined by a usable script
	scannerGlobal = "Html5Qrcode"

	maxScriptBytes = 4 << 20
)

var errMissingGlobal = errors.New("script does not define " + scannerGlobal)

// Config holds the decoder script sources
type Config struct {
	Sources []string
	Timeout time.Duration
	TTL     time.Duration
}

// ScriptProvider keeps a same-origin copy of the QR decoder script. Lookups go
// memory, then Redis, then the source list in order.
type ScriptProvider struct {
	config *Config
	cache  cache.Service
	client *http.Client
	log    *logger.Logger

	mu       sync.RWMutex
	body     string
	source   string
	loadedAt time.Time

	// serializes downloads
	loadMu sync.Mutex
}

// NewScriptProvider creates a provider. cacheService may be nil when Redis is
// not in use.
func NewScriptProvider(config *Config, cacheService cache.Service, log *logger.Logger) *ScriptProvider {
	if log == nil {
		log = logger.GetDefault()
	}
	if config.TTL <= 0 {
		config.TTL = constants.TTL_ASSET_SCRIPT
	}
	return &ScriptProvider{
		config: config,
		cache:  cacheService,
		client: &http.Client{},
		log:    log,
	}
}

// EnsureLoaded makes the script available, downloading it if needed
func (p *ScriptProvider) EnsureLoaded(ctx context.Context) error {
	_, err := p.Script(ctx)
	return err
}

// Loaded reports whether a copy is held in memory
func (p *ScriptProvider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.body != ""
}

// Source returns where the held copy came from
func (p *ScriptProvider) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// LoadedAt returns when the held copy was stored
func (p *ScriptProvider) LoadedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadedAt
}

// Script returns the decoder script body
func (p *ScriptProvider) Script(ctx context.Context) (string, error) {
	if body := p.memory(); body != "" {
		return body, nil
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	// another caller may have finished while we waited
	if body := p.memory(); body != "" {
		return body, nil
	}

	if p.cache == nil {
		return p.download(ctx)
	}

	var body, source string
	err := p.cache.GetOrSet(ctx, p.cacheKey(), p.config.TTL, func() (interface{}, error) {
		fetched, src, err := p.load(ctx)
		if err != nil {
			return nil, err
		}
		source = src
		return fetched, nil
	}, &body)
	if err != nil {
		return "", err
	}

	if source == "" {
		if !strings.Contains(body, scannerGlobal) {
			p.log.WarnContext(ctx, "Cached decoder script is unusable, dropping it", "key", p.cacheKey())
			if err := p.cache.Delete(ctx, p.cacheKey()); err != nil {
				p.log.WithError(err).WarnContext(ctx, "Script cache delete failed")
			}
			return p.download(ctx)
		}
		source = "cache"
	}

	p.store(body, source)
	return body, nil
}

// Refresh downloads the script again and replaces the held copy on success.
// A failed refresh keeps the previous copy. Every cached asset is invalidated
// before the new copy is written.
func (p *ScriptProvider) Refresh(ctx context.Context) error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	body, src, err := p.load(ctx)
	if err != nil {
		return err
	}
	p.store(body, src)

	if p.cache != nil {
		if err := p.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_ASSETS_ALL); err != nil {
			p.log.WithError(err).WarnContext(ctx, "Asset cache invalidation failed")
		}
		p.writeCache(ctx, body)
	}
	return nil
}

// Cached reports whether Redis holds a copy
func (p *ScriptProvider) Cached(ctx context.Context) bool {
	return p.cache != nil && p.cache.Exists(ctx, p.cacheKey())
}

func (p *ScriptProvider) download(ctx context.Context) (string, error) {
	body, src, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	p.store(body, src)
	p.writeCache(ctx, body)
	return body, nil
}

func (p *ScriptProvider) load(ctx context.Context) (string, string, error) {
	body, src, err := loader.Load(ctx, p.config.Sources, p.config.Timeout, p.fetch)
	if err != nil {
		return "", "", fmt.Errorf("load decoder script: %w", err)
	}
	p.log.InfoWithContext(ctx, "Decoder script loaded", map[string]interface{}{
		"source": src,
		"bytes":  len(body),
	})
	return body, src, nil
}

func (p *ScriptProvider) writeCache(ctx context.Context, body string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, p.cacheKey(), body, p.config.TTL); err != nil {
		p.log.WithError(err).WarnContext(ctx, "Script cache write failed")
	}
}

func (p *ScriptProvider) fetch(ctx context.Context, src string) (string, error) {
	body, err := p.get(ctx, src)
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result = "timeout"
		}
	}
	metrics.ScriptLoadsTotal.WithLabelValues(src, result).Inc()
	return body, err
}

func (p *ScriptProvider) get(ctx context.Context, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("network: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("network: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return "", fmt.Errorf("network: %w", err)
	}
	body := string(data)
	if !strings.Contains(body, scannerGlobal) {
		return "", errMissingGlobal
	}
	return body, nil
}

func (p *ScriptProvider) memory() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.body
}

func (p *ScriptProvider) store(body, src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.body = body
	p.source = src
	p.loadedAt = time.Now()
}

func (p *ScriptProvider) cacheKey() string {
	return constants.BuildAssetScriptKey(ScriptName)
}
