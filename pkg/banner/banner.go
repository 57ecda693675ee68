package banner

import (
	"fmt"

	"chatkeys/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██╗  ██╗███████╗██╗   ██╗███████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██║ ██╔╝██╔════╝╚██╗ ██╔╝██╔════╝
██║     ███████║███████║   ██║   █████╔╝ █████╗   ╚████╔╝ ███████╗
██║     ██╔══██║██╔══██║   ██║   ██╔═██╗ ██╔══╝    ╚██╔╝  ╚════██║
╚██████╗██║  ██║██║  ██║   ██║   ██║  ██╗███████╗   ██║   ███████║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝   ╚═╝   ╚══════╝
`

// Print writes the startup banner and a short readiness checklist.
func Print(cfg *config.Config, addr, dbPath, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/keys                            - Register your public key")
	fmt.Println("GET  /v1/keys?user_ids=a,b               - Fetch registered public keys")
	fmt.Println("POST /v1/rooms/{id}/encryption           - Enable room encryption")
	fmt.Println("GET  /v1/rooms/{id}/encryption           - Encryption readiness status")
	fmt.Println("PUT  /v1/rooms/{id}/keys/{participant}   - Store a wrapped room key")
	fmt.Println("GET  /v1/rooms/{id}/keys/me              - Fetch your wrapped room key")

	fmt.Println("\n== Production? =================================================")
	if cfg == nil {
		fmt.Println("- No config loaded; running on defaults")
		return
	}
	if n := len(cfg.Security.APIKeys.Backend); n > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", n)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services and request signing)")
	}
	if n := len(cfg.Security.APIKeys.Frontend); n > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", n)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}
	if cfg.Sweeper.Enabled {
		if cfg.Sweeper.Cron != "" {
			fmt.Printf("- Orphan key sweeper: enabled (cron=%s)\n", cfg.Sweeper.Cron)
		} else {
			fmt.Println("- Orphan key sweeper: enabled")
		}
	} else {
		fmt.Println("- Orphan key sweeper: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
