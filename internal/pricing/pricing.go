// Package pricing fetches, caches, and calculates per-token costs for models.
//
// Pricing data can come from three source types: the LiteLLM pricing map by
// URL, a local file in the same format, or static inline values defined in
// config. For URL and file sources a double-fallback strategy applies:
// primary source, then on-disk cache. If both fail, no pricing data is
// available and estimated costs show as zero — never a failed pass.
package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"sessionlamp/internal/atomicfile"
	"sessionlamp/internal/paths"
)

// DefaultURL is the LiteLLM community pricing map, which carries per-token
// cache read and cache creation costs alongside input costs.
const DefaultURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

var (
	fetchClient     *retryablehttp.Client
	fetchClientOnce sync.Once
)

// sharedClient lazily builds the retryable HTTP client used for all pricing
// fetches. Logger is nil to keep retryablehttp quiet in the daemon log.
func sharedClient() *retryablehttp.Client {
	fetchClientOnce.Do(func() {
		fetchClient = retryablehttp.NewClient()
		fetchClient.RetryMax = 2
		fetchClient.HTTPClient.Timeout = 10 * time.Second
		fetchClient.Logger = nil
	})
	return fetchClient
}

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// SourceConfig describes where and how to load pricing data.
// Built from config.PricingConfig at startup.
type SourceConfig struct {
	Source string // "url", "file", "static"
	URL    string // custom URL (overrides DefaultURL)
	File   string // local file path (for source = "file")

	// Static model prices (for source = "static").
	Models map[string]ModelPricing
}

// Data holds per-model pricing ready for estimation.
type Data struct {
	Models map[string]ModelPricing `json:"models"`
}

// ModelPricing holds per-token pricing for a model.
type ModelPricing struct {
	InputPerToken         float64 `json:"input_per_token"`
	CacheReadPerToken     float64 `json:"cache_read_per_token"`
	CacheCreationPerToken float64 `json:"cache_creation_per_token"`
}

// Estimate computes the USD cost for a model and token counters.
// Returns 0 when the model is unknown.
func (d *Data) Estimate(model string, input, cacheRead, cacheCreation int64) float64 {
	if d == nil {
		return 0
	}
	mp, ok := d.Models[model]
	if !ok {
		return 0
	}
	return float64(input)*mp.InputPerToken +
		float64(cacheRead)*mp.CacheReadPerToken +
		float64(cacheCreation)*mp.CacheCreationPerToken
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Fetch retrieves pricing data based on the source config.
//
// For "url" and "file" sources, uses double fallback: primary -> cache.
// For "static" source, returns the inline prices directly (no fallback).
//
// Returns nil with an error when all sources fail. The returned error is
// non-nil when the data came from a cache fallback.
func Fetch(src SourceConfig, cacheDir string) (*Data, error) {
	switch src.Source {
	case "static":
		return fetchStatic(src.Models)
	case "file":
		return fetchWithFallback(cacheDir, func() (*Data, error) {
			return fetchFromFile(src.File)
		})
	default: // "url"
		url := src.URL
		if url == "" {
			url = DefaultURL
		}
		return fetchWithFallback(cacheDir, func() (*Data, error) {
			return fetchFromURL(url)
		})
	}
}

// ///////////////////////////////////////////////
// Fallback Logic
// ///////////////////////////////////////////////

// fetchWithFallback attempts the primary fetch, then cache.
func fetchWithFallback(cacheDir string, primary func() (*Data, error)) (*Data, error) {
	d, err := primary()
	if err == nil {
		if len(d.Models) == 0 {
			return nil, fmt.Errorf("primary source returned empty pricing data")
		}
		if cacheErr := WriteCache(cacheDir, d); cacheErr != nil {
			slog.Warn("failed to write pricing cache", "error", cacheErr)
		}
		return d, nil
	}
	slog.Warn("failed to fetch pricing from primary source, trying cache", "error", err)

	d, cacheErr := ReadCache(cacheDir)
	if cacheErr == nil {
		return d, fmt.Errorf("using cached pricing: primary fetch failed: %w", err)
	}

	return nil, fmt.Errorf("all pricing sources failed: primary: %w; cache: %w", err, cacheErr)
}

// fetchStatic builds Data from config-defined prices. No fallback.
func fetchStatic(models map[string]ModelPricing) (*Data, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("static pricing has no models defined")
	}
	d := &Data{Models: make(map[string]ModelPricing, len(models))}
	for k, v := range models {
		d.Models[k] = v
	}
	return d, nil
}

// fetchFromURL downloads the LiteLLM pricing map and parses it.
func fetchFromURL(url string) (*Data, error) {
	const maxResponseBytes = 10 << 20 // 10 MiB

	resp, err := sharedClient().Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if int64(len(body)) > maxResponseBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxResponseBytes)
	}

	return ParseLiteLLM(body)
}

// fetchFromFile reads pricing data from a local file and parses it.
func fetchFromFile(path string) (*Data, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file %s: %w", path, err)
	}
	return ParseLiteLLM(body)
}

// ///////////////////////////////////////////////
// LiteLLM Format
// ///////////////////////////////////////////////

// liteLLMModel represents a single entry in LiteLLM's flat model pricing map.
// The upstream format is {"model-id": {"input_cost_per_token": N, ...}}.
type liteLLMModel struct {
	InputCostPerToken           float64 `json:"input_cost_per_token"`
	CacheReadInputTokenCost     float64 `json:"cache_read_input_token_cost"`
	CacheCreationInputTokenCost float64 `json:"cache_creation_input_token_cost"`
}

// ParseLiteLLM parses LiteLLM's flat model pricing map, keeping models with
// any non-zero input-side pricing.
func ParseLiteLLM(body []byte) (*Data, error) {
	var raw map[string]liteLLMModel
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing litellm pricing: %w", err)
	}

	d := &Data{Models: make(map[string]ModelPricing)}
	for id, m := range raw {
		if m.InputCostPerToken == 0 && m.CacheReadInputTokenCost == 0 && m.CacheCreationInputTokenCost == 0 {
			continue
		}
		d.Models[id] = ModelPricing{
			InputPerToken:         m.InputCostPerToken,
			CacheReadPerToken:     m.CacheReadInputTokenCost,
			CacheCreationPerToken: m.CacheCreationInputTokenCost,
		}
	}
	return d, nil
}

// ///////////////////////////////////////////////
// Cache
// ///////////////////////////////////////////////

// WriteCache writes pricing data to the cache file in the given directory.
func WriteCache(cacheDir string, data *Data) error {
	if data == nil {
		return fmt.Errorf("pricing data is nil")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating pricing cache directory: %w", err)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshalling pricing data: %w", err)
	}
	return atomicfile.Write(filepath.Join(cacheDir, paths.PricingCacheFile), b, 0o644)
}

// ReadCache reads pricing data from the cache file in the given directory.
func ReadCache(cacheDir string) (*Data, error) {
	b, err := os.ReadFile(filepath.Join(cacheDir, paths.PricingCacheFile))
	if err != nil {
		return nil, fmt.Errorf("reading pricing cache: %w", err)
	}
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parsing pricing cache: %w", err)
	}
	return &d, nil
}
