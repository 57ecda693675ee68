package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"chatkeys/internal/sweeper"
	"chatkeys/pkg/api"
	"chatkeys/pkg/auth"
	"chatkeys/pkg/banner"
	"chatkeys/pkg/config"
	"chatkeys/pkg/logger"
	"chatkeys/pkg/security"
	"chatkeys/pkg/shutdown"
	"chatkeys/pkg/store"
	"chatkeys/pkg/validation"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, backendKeys, signingKeys, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithLevel(cfg.Logging.Level)

	// Flags explicitly set win over env/config.
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := dbVal
	if !setFlags["db"] && cfg.Server.DBPath != "" {
		dbPath = cfg.Server.DBPath
	}

	if cfg.Limits.MaxKeyBytes > 0 {
		validation.SetMaxKeyBytes(cfg.Limits.MaxKeyBytes.Int64())
	}

	if err := store.Open(dbPath); err != nil {
		shutdown.Abort("failed to open pebble database", err, dbPath)
	}

	// Populate the global runtime config with backend and signing keys.
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for k := range backendKeys {
		runtimeCfg.BackendKeys[k] = struct{}{}
	}
	for k := range signingKeys {
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	ctx, cancel := context.WithCancel(context.Background())
	stopSweeper, err := sweeper.Start(ctx, cfg.Sweeper)
	if err != nil {
		shutdown.Abort("failed to start sweeper", err, dbPath)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("signal_received", "signal", s.String())
		stopSweeper()
		cancel()
		if err := store.Close(); err != nil {
			logger.Error("store_close_failed", "err", err)
		}
		os.Exit(0)
	}()

	srcs := []string{}
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}
	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr = verStr + " @ " + buildDate
	}
	banner.Print(cfg, addr, dbPath, strings.Join(srcs, ", "), verStr)

	mux := http.NewServeMux()

	// Liveness probe used by deployment systems and CI; mounted outside the
	// signed-user middleware.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/", auth.RequireSignedUser(api.Handler()))

	secCfg := security.SecConfig{
		AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, cfg.Security.IPWhitelist...),
		BackendKeys:    map[string]struct{}{},
		FrontendKeys:   map[string]struct{}{},
		AdminKeys:      map[string]struct{}{},
	}
	for k := range backendKeys {
		secCfg.BackendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Frontend {
		secCfg.FrontendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Admin {
		secCfg.AdminKeys[k] = struct{}{}
	}

	wrapped := security.AuthenticateRequestMiddleware(secCfg)(mux)

	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	var errServe error
	if cert != "" && key != "" {
		errServe = http.ListenAndServeTLS(addr, cert, key, wrapped)
	} else {
		errServe = http.ListenAndServe(addr, wrapped)
	}
	if errServe != nil {
		log.Fatal(errServe)
	}
}
