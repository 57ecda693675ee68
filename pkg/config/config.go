package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetBackendKeys returns a copy of configured backend keys.
func GetBackendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.BackendKeys == nil {
		return out
	}
	for k := range runtimeCfg.BackendKeys {
		out[k] = struct{}{}
	}
	return out
}

// GetSigningKeys returns a copy of configured signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

// Addr returns host:port for HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// returns derived backend and signing key maps plus whether env vars were used.
func LoadEnvOverrides(cfg *Config) (map[string]struct{}, map[string]struct{}, bool) {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("CHATKEYS_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("CHATKEYS_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("CHATKEYS_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("CHATKEYS_DB_PATH"); v != "" {
		envUsed = true
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("CHATKEYS_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("CHATKEYS_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CHATKEYS_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("CHATKEYS_IP_WHITELIST"); v != "" {
		envUsed = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("CHATKEYS_API_BACKEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("CHATKEYS_API_FRONTEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Frontend = parseList(v)
	}
	if v := os.Getenv("CHATKEYS_API_ADMIN_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Admin = parseList(v)
	}
	if c := os.Getenv("CHATKEYS_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("CHATKEYS_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}

	backendKeys := map[string]struct{}{}
	for _, k := range cfg.Security.APIKeys.Backend {
		backendKeys[k] = struct{}{}
	}
	signingKeys := map[string]struct{}{}
	for k := range backendKeys {
		signingKeys[k] = struct{}{}
	}
	// Signing keys are identical to backend API keys (no separate fallback).
	return backendKeys, signingKeys, envUsed
}

// LoadEffective loads config from the given path (file) and applies environment
// overrides. It returns the effective config, runtime key maps and a boolean
// indicating whether env vars were used.
func LoadEffective(path string) (*Config, map[string]struct{}, map[string]struct{}, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	backendKeys, signingKeys, envUsed := LoadEnvOverrides(cfg)
	return cfg, backendKeys, signingKeys, envUsed, nil
}

// ResolveConfigPath decides the config file path using the flag-provided value
// and the environment variable `CHATKEYS_CONFIG` when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CHATKEYS_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
