package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/adhocore/gronx"

	"guidecache/pkg/config"
)

// validateConfig checks the effective config early and fails fast.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("no effective config")
	}
	if strings.TrimSpace(eff.DBPath) == "" {
		return fmt.Errorf("cache path is required (--db or GUIDECACHE_DB_PATH)")
	}
	origin := strings.TrimSpace(eff.Origin)
	if origin == "" {
		return fmt.Errorf("content origin is required (--origin or GUIDECACHE_ORIGIN)")
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("content origin must be an absolute URL: %q", origin)
	}

	tls := eff.Config.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("TLS requires both cert_file and key_file")
	}

	if eff.Config.Sweep.Enabled && eff.Config.Sweep.Cron != "" {
		if !gronx.IsValid(eff.Config.Sweep.Cron) {
			return fmt.Errorf("invalid sweep cron expression: %q", eff.Config.Sweep.Cron)
		}
	}
	return nil
}
