package banner

import (
	"fmt"

	"suggestbox/pkg/config"
)

const banner = `
███████╗██╗   ██╗ ██████╗  ██████╗ ███████╗███████╗████████╗██████╗  ██████╗ ██╗  ██╗
██╔════╝██║   ██║██╔════╝ ██╔════╝ ██╔════╝██╔════╝╚══██╔══╝██╔══██╗██╔═══██╗╚██╗██╔╝
███████╗██║   ██║██║  ███╗██║  ███╗█████╗  ███████╗   ██║   ██████╔╝██║   ██║ ╚███╔╝
╚════██║██║   ██║██║   ██║██║   ██║██╔══╝  ╚════██║   ██║   ██╔══██╗██║   ██║ ██╔██╗
███████║╚██████╔╝╚██████╔╝╚██████╔╝███████╗███████║   ██║   ██████╔╝╚██████╔╝██╔╝ ██╗
╚══════╝ ╚═════╝  ╚═════╝  ╚═════╝ ╚══════╝╚══════╝   ╚═╝   ╚═════╝  ╚═════╝ ╚═╝  ╚═╝
`

// PrintWithEff prints the startup banner using the effective config so
// operators can see what the server resolved at a glance.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", eff.Addr)
	fmt.Printf("Storage:   %s (%s)\n", eff.Path, backendName(eff.Backend))
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Config:    %s\n", eff.Source)

	if cfg != nil {
		fmt.Println("\n== Policy =====================================================")
		if q := cfg.Quota(); q > 0 {
			fmt.Printf("- Quota: %d suggestions per author\n", q)
		} else {
			fmt.Println("- Quota: unlimited")
		}
		fmt.Printf("- Title/description limits: %d/%d chars\n", cfg.Suggestions.MaxTitleLength, cfg.Suggestions.MaxDescriptionLength)
		fmt.Printf("- Page size: %d, default sort: %s\n", cfg.Suggestions.PageSize, cfg.Suggestions.DefaultSort)
		if cfg.Suggestions.AllowSelfVote {
			fmt.Println("- Self-votes: allowed")
		} else {
			fmt.Println("- Self-votes: rejected")
		}
		fmt.Printf("- Session timeout: %s, sweep: %s\n", cfg.Sessions.Timeout.Duration(), cfg.Sessions.SweepCron)
		if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
			fmt.Println("- TLS: configured")
		} else {
			fmt.Println("- TLS: unconfigured")
		}
	}

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/suggestions' -H 'X-Identity: u1' -d '{\"title\":\"...\",\"description\":\"...\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/suggestions?sort=popular' -H 'X-Identity: u1'")

	fmt.Println("\n== Logs: =================================================")
}

func backendName(b string) string {
	if b == "" {
		return "yaml"
	}
	return b
}
