package config

import (
	"fmt"

	"github.com/marmos91/dittofm/internal/ratelimiter"
	"github.com/marmos91/dittofm/pkg/adapter"
	"github.com/marmos91/dittofm/pkg/adapter/httpadapter"
	"github.com/marmos91/dittofm/pkg/fileserver"
	"github.com/marmos91/dittofm/pkg/metrics"
	"github.com/marmos91/dittofm/pkg/web"
)

// CreateSite builds what the HTTP adapter serves from the server section:
// the path resolver, the handler options and the rate limiter.
func CreateSite(cfg *ServerConfig) (httpadapter.Site, error) {
	resolver, err := fileserver.NewResolver(cfg.BaseDir, cfg.ContentRoot, cfg.PublicRoot)
	if err != nil {
		return httpadapter.Site{}, err
	}

	opts := fileserver.Options{Hidden: cfg.Hidden}
	if !cfg.DisableEmbeddedAssets {
		opts.Assets = web.Assets()
	}

	site := httpadapter.Site{Resolver: resolver, Options: opts}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		site.Limiter = ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	return site, nil
}

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete DittoFM configuration
//   - httpMetrics: Optional HTTP metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: List of enabled adapters ready to be added to the server
//   - error: Any error during adapter creation
func CreateAdapters(cfg *Config, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.HTTP.Enabled {
		site, err := CreateSite(&cfg.Server)
		if err != nil {
			return nil, fmt.Errorf("invalid server layout: %w", err)
		}
		adapters = append(adapters, httpadapter.New(cfg.Adapters.HTTP, site, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
