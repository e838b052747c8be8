// Tests for the pricing package: LiteLLM parsing, cost estimation, static
// sources, and the cache fallback path.
package pricing

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// ///////////////////////////////////////////////
// Parsing Tests
// ///////////////////////////////////////////////

const litellmSample = `{
  "claude-opus-4-6": {
    "input_cost_per_token": 0.000005,
    "cache_read_input_token_cost": 0.0000005,
    "cache_creation_input_token_cost": 0.00000625
  },
  "claude-haiku-4-5": {
    "input_cost_per_token": 0.000001
  },
  "free-model": {
    "input_cost_per_token": 0
  }
}`

func TestParseLiteLLM(t *testing.T) {
	d, err := ParseLiteLLM([]byte(litellmSample))
	if err != nil {
		t.Fatalf("ParseLiteLLM: %v", err)
	}

	mp, ok := d.Models["claude-opus-4-6"]
	if !ok {
		t.Fatal("claude-opus-4-6 missing")
	}
	if mp.InputPerToken != 0.000005 || mp.CacheReadPerToken != 0.0000005 || mp.CacheCreationPerToken != 0.00000625 {
		t.Errorf("pricing = %+v", mp)
	}
	if _, ok := d.Models["free-model"]; ok {
		t.Error("zero-cost model should be skipped")
	}
	if _, ok := d.Models["claude-haiku-4-5"]; !ok {
		t.Error("input-only model should be kept")
	}
}

func TestParseLiteLLM_Invalid(t *testing.T) {
	if _, err := ParseLiteLLM([]byte("not json")); err == nil {
		t.Error("expected error for invalid json")
	}
}

// ///////////////////////////////////////////////
// Estimation Tests
// ///////////////////////////////////////////////

func TestEstimate(t *testing.T) {
	d := &Data{Models: map[string]ModelPricing{
		"claude-opus-4-6": {
			InputPerToken:         0.000005,
			CacheReadPerToken:     0.0000005,
			CacheCreationPerToken: 0.00000625,
		},
	}}

	got := d.Estimate("claude-opus-4-6", 1000, 100000, 2000)
	want := 1000*0.000005 + 100000*0.0000005 + 2000*0.00000625
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Estimate = %v, want %v", got, want)
	}

	if d.Estimate("unknown-model", 1000, 0, 0) != 0 {
		t.Error("unknown model must estimate as 0")
	}

	var nilData *Data
	if nilData.Estimate("claude-opus-4-6", 1000, 0, 0) != 0 {
		t.Error("nil data must estimate as 0")
	}
}

// ///////////////////////////////////////////////
// Source Tests
// ///////////////////////////////////////////////

func TestFetch_Static(t *testing.T) {
	src := SourceConfig{
		Source: "static",
		Models: map[string]ModelPricing{"m": {InputPerToken: 0.01}},
	}
	d, err := Fetch(src, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if d.Models["m"].InputPerToken != 0.01 {
		t.Errorf("static price = %v, want 0.01", d.Models["m"].InputPerToken)
	}
}

func TestFetch_StaticEmpty(t *testing.T) {
	if _, err := Fetch(SourceConfig{Source: "static"}, t.TempDir()); err == nil {
		t.Error("expected error for static source without models")
	}
}

func TestFetch_FileSourceWritesCache(t *testing.T) {
	cacheDir := t.TempDir()
	srcFile := filepath.Join(t.TempDir(), "prices.json")
	os.WriteFile(srcFile, []byte(litellmSample), 0o644)

	d, err := Fetch(SourceConfig{Source: "file", File: srcFile}, cacheDir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(d.Models) == 0 {
		t.Fatal("no models parsed")
	}

	cached, err := ReadCache(cacheDir)
	if err != nil {
		t.Fatalf("ReadCache: %v", err)
	}
	if len(cached.Models) != len(d.Models) {
		t.Errorf("cache holds %d models, want %d", len(cached.Models), len(d.Models))
	}
}

func TestFetch_FallsBackToCache(t *testing.T) {
	cacheDir := t.TempDir()
	srcFile := filepath.Join(t.TempDir(), "prices.json")
	os.WriteFile(srcFile, []byte(litellmSample), 0o644)

	if _, err := Fetch(SourceConfig{Source: "file", File: srcFile}, cacheDir); err != nil {
		t.Fatalf("initial Fetch: %v", err)
	}
	os.Remove(srcFile)

	d, err := Fetch(SourceConfig{Source: "file", File: srcFile}, cacheDir)
	if err == nil {
		t.Error("cache fallback should surface a non-nil error")
	}
	if d == nil || len(d.Models) == 0 {
		t.Fatal("cache fallback returned no data")
	}
}

func TestFetch_AllSourcesFail(t *testing.T) {
	d, err := Fetch(SourceConfig{Source: "file", File: "/nonexistent/prices.json"}, t.TempDir())
	if err == nil {
		t.Error("expected error when primary and cache both fail")
	}
	if d != nil {
		t.Errorf("data = %+v, want nil", d)
	}
}
