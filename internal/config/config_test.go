package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDictionaryDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DICTIONARY_TTL", "")
	t.Setenv("DICTIONARY_REBUILD_TIMEOUT", "")
	t.Setenv("SEARCH_LEXICAL_WEIGHT", "")
	t.Setenv("SEARCH_VECTOR_WEIGHT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DictionaryTTL != 24*time.Hour {
		t.Fatalf("expected default dictionary ttl 24h, got %v", cfg.DictionaryTTL)
	}
	if cfg.RebuildTimeout != 5*time.Minute {
		t.Fatalf("expected default rebuild timeout 5m, got %v", cfg.RebuildTimeout)
	}
	if cfg.LexicalWeight != 0.6 || cfg.VectorWeight != 0.4 {
		t.Fatalf("expected default score weights 0.6/0.4, got %v/%v", cfg.LexicalWeight, cfg.VectorWeight)
	}
}

func TestLoadParsesEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DICTIONARY_TTL", "12h")
	t.Setenv("SEARCH_HYBRID_CANDIDATES", "40")
	t.Setenv("API_RATE_LIMIT_RPS", "25.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DictionaryTTL != 12*time.Hour {
		t.Fatalf("expected ttl override 12h, got %v", cfg.DictionaryTTL)
	}
	if cfg.HybridCandidates != 40 {
		t.Fatalf("expected candidates override 40, got %d", cfg.HybridCandidates)
	}
	if cfg.RateLimitRPS != 25.5 {
		t.Fatalf("expected rps override 25.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadAppliesYAMLFileOverEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := `
api_port: "9999"
dictionary_ttl: 6h
search_top_k: 25
api_rate_limit_rps: 50
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "8080")
	t.Setenv("NATS_SUBJECT", "corpus.changed.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9999" {
		t.Fatalf("expected file override for api port, got %q", cfg.APIPort)
	}
	if cfg.DictionaryTTL != 6*time.Hour {
		t.Fatalf("expected file override for ttl, got %v", cfg.DictionaryTTL)
	}
	if cfg.SearchTopK != 25 {
		t.Fatalf("expected file override for top k, got %d", cfg.SearchTopK)
	}
	if cfg.NATSSubject != "corpus.changed.test" {
		t.Fatalf("keys absent from the file must keep env values, got %q", cfg.NATSSubject)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("dictionary_ttl: soon\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}
