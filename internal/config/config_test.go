package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalEnvYAML = `
server:
  port: "8080"
agent:
  command: "agent-cli"
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "dev.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// chdirTemp moves into a fresh temp dir holding the given config file and
// restores the working directory and HF_TOKEN afterwards.
func chdirTemp(t *testing.T, yaml string) string {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	dir := t.TempDir()
	writeEnvFile(t, dir, yaml)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	return dir
}

func withToken(t *testing.T, token string) {
	t.Helper()
	saved, had := os.LookupEnv("HF_TOKEN")
	if token == "" {
		os.Unsetenv("HF_TOKEN")
	} else {
		os.Setenv("HF_TOKEN", token)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv("HF_TOKEN", saved)
		} else {
			os.Unsetenv("HF_TOKEN")
		}
	})
}

func TestLoad_FailsWhenNoToken(t *testing.T) {
	withToken(t, "")
	chdirTemp(t, minimalEnvYAML)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error when no HF_TOKEN and no secrets file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "HF_TOKEN") {
		t.Errorf("Load() error = %v, want message containing HF_TOKEN", err)
	}
}

func TestLoad_TokenFromSecretsFile(t *testing.T) {
	withToken(t, "")
	dir := chdirTemp(t, minimalEnvYAML)
	writeSecretsFile(t, dir, "agent_token: token-from-secrets\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AgentToken != "token-from-secrets" {
		t.Errorf("AgentToken = %q, want token from secrets file", cfg.AgentToken)
	}
}

func TestLoad_FailsWhenNoAgentCommand(t *testing.T) {
	withToken(t, "test-token")
	chdirTemp(t, "server:\n  port: \"8080\"\n")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error when agent.command missing, got nil")
	}
	if !strings.Contains(err.Error(), "agent.command") {
		t.Errorf("Load() error = %v, want message about agent.command", err)
	}
}

func TestLoad_ConfigFileNotFound(t *testing.T) {
	withToken(t, "test-token")
	origWd, _ := os.Getwd()
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing config file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load() error = %v, want message about config file not found", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	withToken(t, "test-token")
	chdirTemp(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.AgentCommand != "agent-cli" {
		t.Errorf("AgentCommand = %q", cfg.AgentCommand)
	}
	if cfg.AgentTimeout != 5*time.Minute {
		t.Errorf("AgentTimeout = %v, want 5m default", cfg.AgentTimeout)
	}
	if cfg.SearchEndpoint != "https://lite.duckduckgo.com/lite/" {
		t.Errorf("SearchEndpoint = %q", cfg.SearchEndpoint)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory default", cfg.CacheBackend)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h default", cfg.CacheTTL)
	}
	if cfg.QueryMaxLength != 500 {
		t.Errorf("QueryMaxLength = %d, want 500 default", cfg.QueryMaxLength)
	}
	if cfg.BreakerFailureThreshold != 5 {
		t.Errorf("BreakerFailureThreshold = %d, want 5 default", cfg.BreakerFailureThreshold)
	}
	if cfg.TestingMode {
		t.Error("TestingMode = true, want false default")
	}
	if cfg.WarmSchedule != "" {
		t.Errorf("WarmSchedule = %q, want empty default", cfg.WarmSchedule)
	}
}

func TestLoad_FullFile(t *testing.T) {
	withToken(t, "test-token")
	chdirTemp(t, `
testing_mode: true
server:
  port: "9090"
agent:
  command: "smolagent"
  args: ["run", "--verbose"]
  timeout: "3m"
search:
  endpoint: "http://localhost:9999/lite/"
  timeout: "5s"
cache:
  backend: "memcached"
  ttl: "30m"
  memcached:
    addrs: "cache1:11211,cache2:11211"
    timeout: "250ms"
    max_idle_conns: 8
reliability:
  rate_limit_rps: 50
  rate_limit_burst: 100
  breaker_failure_threshold: 3
  breaker_timeout: "10s"
lifecycle:
  degraded_window: "2m"
  degraded_error_pct: 25
limits:
  query_max_length: 300
metrics:
  tracked_cities: ["mumbai", "delhi", "tokyo"]
warming:
  schedule: "@every 15m"
  timeout: "90s"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.TestingMode {
		t.Error("TestingMode = false, want true")
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.AgentCommand != "smolagent" || len(cfg.AgentArgs) != 2 || cfg.AgentArgs[0] != "run" {
		t.Errorf("agent = %q %v", cfg.AgentCommand, cfg.AgentArgs)
	}
	if cfg.AgentTimeout != 3*time.Minute {
		t.Errorf("AgentTimeout = %v", cfg.AgentTimeout)
	}
	if cfg.SearchTimeout != 5*time.Second {
		t.Errorf("SearchTimeout = %v", cfg.SearchTimeout)
	}
	if cfg.CacheBackend != "memcached" || cfg.MemcachedAddrs != "cache1:11211,cache2:11211" {
		t.Errorf("cache = %q %q", cfg.CacheBackend, cfg.MemcachedAddrs)
	}
	if cfg.MemcachedMaxIdleConns != 8 {
		t.Errorf("MemcachedMaxIdleConns = %d", cfg.MemcachedMaxIdleConns)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Errorf("rate limit = %d/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.BreakerFailureThreshold != 3 || cfg.BreakerTimeout != 10*time.Second {
		t.Errorf("breaker = %d/%v", cfg.BreakerFailureThreshold, cfg.BreakerTimeout)
	}
	if cfg.DegradedWindow != 2*time.Minute || cfg.DegradedErrorPct != 25 {
		t.Errorf("degraded = %v/%d", cfg.DegradedWindow, cfg.DegradedErrorPct)
	}
	if cfg.QueryMaxLength != 300 {
		t.Errorf("QueryMaxLength = %d", cfg.QueryMaxLength)
	}
	if len(cfg.TrackedCities) != 3 || cfg.TrackedCities[2] != "tokyo" {
		t.Errorf("TrackedCities = %v", cfg.TrackedCities)
	}
	if cfg.WarmSchedule != "@every 15m" || cfg.WarmTimeout != 90*time.Second {
		t.Errorf("warming = %q/%v", cfg.WarmSchedule, cfg.WarmTimeout)
	}
}

func TestLoad_InvalidCacheBackend(t *testing.T) {
	withToken(t, "test-token")
	chdirTemp(t, minimalEnvYAML+"cache:\n  backend: \"redis\"\n")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for invalid cache backend, got nil")
	}
	if !strings.Contains(err.Error(), "cache.backend") {
		t.Errorf("Load() error = %v, want message about cache.backend", err)
	}
}

func TestLoad_RequestTimeoutCoversSearch(t *testing.T) {
	withToken(t, "test-token")
	chdirTemp(t, minimalEnvYAML+`
search:
  timeout: "10s"
request:
  timeout: "2s"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout <= cfg.SearchTimeout {
		t.Errorf("RequestTimeout = %v not adjusted above SearchTimeout = %v", cfg.RequestTimeout, cfg.SearchTimeout)
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(empty) = %v", got)
	}
	if got := parseDuration("garbage", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(garbage) = %v", got)
	}
	if got := parseDuration("-5s", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(-5s) = %v", got)
	}
	if got := parseDuration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("parseDuration(90s) = %v", got)
	}
}
