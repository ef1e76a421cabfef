package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Throttle scope names. Each scope carries its own rate limit configuration.
const (
	ScopeAuth             = "auth"
	ScopeLibrary          = "library"
	ScopeUpload           = "upload"
	ScopeAdmin            = "admin"
	ScopeBurst            = "burst"
	ScopeAnonymousDefault = "anonymous-default"
)

// ScopeLimit holds the rate limit settings for one throttle scope.
type ScopeLimit struct {
	// Rate is the sustained number of requests per second.
	Rate float64 `yaml:"rate"`
	// Burst is the maximum burst size.
	Burst int `yaml:"burst"`
}

// ScopeLimits maps throttle scope names to their limits.
type ScopeLimits map[string]ScopeLimit

type throttleFile struct {
	Scopes ScopeLimits `yaml:"scopes"`
}

// DefaultScopeLimits returns the built-in limits for every known scope.
func DefaultScopeLimits() ScopeLimits {
	return ScopeLimits{
		ScopeAuth:             {Rate: 1, Burst: 5},
		ScopeLibrary:          {Rate: 10, Burst: 20},
		ScopeUpload:           {Rate: 0.5, Burst: 3},
		ScopeAdmin:            {Rate: 5, Burst: 10},
		ScopeBurst:            {Rate: 50, Burst: 100},
		ScopeAnonymousDefault: {Rate: 2, Burst: 10},
	}
}

// LoadScopeLimits reads scope limits from a YAML file, overlaying the
// defaults. An empty path returns the defaults unchanged.
func LoadScopeLimits(path string) (ScopeLimits, error) {
	limits := DefaultScopeLimits()
	if path == "" {
		return limits, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read throttle config: %w", err)
	}

	var file throttleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid throttle config: %w", err)
	}

	for scope, limit := range file.Scopes {
		if limit.Rate <= 0 || limit.Burst <= 0 {
			return nil, fmt.Errorf("throttle scope %q must have positive rate and burst", scope)
		}
		limits[scope] = limit
	}

	return limits, nil
}
