package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound        = goerr.New("configuration file not found")
	ErrInvalidConfig         = goerr.New("invalid configuration")
	ErrDuplicateOrganization = goerr.New("duplicate organization ID")
	ErrDuplicateCategory     = goerr.New("duplicate category ID")
	ErrInvalidCadence        = goerr.New("invalid cadence")
	ErrMissingName           = goerr.New("name is required")
	ErrInvalidArchiveBucket  = goerr.New("invalid archive bucket name")
)

// Context keys for error values
const (
	ConfigPathKey     = "config_path"
	OrganizationIDKey = "organization_id"
	CategoryIDKey     = "category_id"
)
