package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"

	"github.com/marmos91/dittofm/pkg/fileserver"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Validate at least one adapter is enabled
	if !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	// The content and public roots must be valid and must not overlap
	if _, err := fileserver.NewResolver(cfg.Server.BaseDir, cfg.Server.ContentRoot, cfg.Server.PublicRoot); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	for i, pattern := range cfg.Server.Hidden {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("server.hidden[%d]: invalid pattern %q: %w", i, pattern, err)
		}
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == cfg.Adapters.HTTP.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by the HTTP adapter", cfg.Server.Metrics.Port)
	}

	if cfg.Server.RateLimit.RequestsPerSecond > 0 && cfg.Server.RateLimit.Burst == 0 {
		return fmt.Errorf("server.rate_limit.burst: must be > 0 when requests_per_second is set")
	}

	u, err := url.Parse(cfg.Client.URL)
	if err != nil {
		return fmt.Errorf("client.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("client.url: unsupported scheme %q", u.Scheme)
	}

	if cfg.Client.Retry.MaxDelay > 0 && cfg.Client.Retry.MaxDelay < cfg.Client.Retry.InitialDelay {
		return fmt.Errorf("client.retry.max_delay: must be >= initial_delay")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
