package banner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"guidecache/pkg/config"
	"guidecache/pkg/store"
)

const banner = `
 ██████╗ ██╗   ██╗██╗██████╗ ███████╗ ██████╗ █████╗  ██████╗██╗  ██╗███████╗
██╔════╝ ██║   ██║██║██╔══██╗██╔════╝██╔════╝██╔══██╗██╔════╝██║  ██║██╔════╝
██║  ███╗██║   ██║██║██║  ██║█████╗  ██║     ███████║██║     ███████║█████╗  
██║   ██║██║   ██║██║██║  ██║██╔══╝  ██║     ██╔══██║██║     ██╔══██║██╔══╝  
╚██████╔╝╚██████╔╝██║██████╔╝███████╗╚██████╗██║  ██║╚██████╗██║  ██║███████╗
 ╚═════╝  ╚═════╝ ╚═╝╚═════╝ ╚══════╝ ╚═════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚══════╝
`

// PrintWithEff prints the startup banner using an EffectiveConfigResult.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:     %s\n", addr)
	fmt.Printf("Cache path: %s\n", dbPath)
	if eff.Config != nil {
		fmt.Printf("Origin:     %s\n", eff.Config.Origin.BaseURL)
	}
	if version != "" {
		fmt.Printf("Version:    %s\n", version)
	}
	fmt.Printf("Config:     %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST   /v1/position       - Report visitor position (JSON: roomId, paintingId, locale)")
	fmt.Println("GET    /v1/data/{locale}  - Cached room data for a locale")
	fmt.Println("POST   /v1/cache/{locale} - Cache all assets for a locale")
	fmt.Println("DELETE /v1/cache          - Purge all cache partitions")
	fmt.Println("GET    /v1/cache/status   - Cache entry counts, sizes, fully cached locales")
	fmt.Println("GET    /*                 - Cache-first gateway for pages, assets and static files")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/position' -d '{\"room_id\":\"room1\",\"locale\":\"nl-NL\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/cache/status'\n", addr)

	fmt.Println("\n== Status =====================================================")
	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}
	if eff.Config != nil && eff.Config.Sweep.Enabled {
		fmt.Printf("- Sweep: enabled (cron=%s)\n", eff.Config.Sweep.Cron)
	} else {
		fmt.Println("- Sweep: disabled")
	}
	if store.Ready() {
		total := int64(0)
		for _, p := range store.Partitions {
			if n, err := store.SizeBytes(p); err == nil {
				total += n
			}
		}
		fmt.Printf("- Cache size: %s\n", humanize.Bytes(uint64(total)))
	}

	fmt.Println("\n== Logs: =================================================")
}
