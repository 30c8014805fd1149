package constants

import "errors"

// Configuration errors.
var (
	ErrNoSiteConfigured = errors.New("no site configured, pass --site or set site in the config file")
	ErrNoClientID       = errors.New("no client ID configured, set client_id in the config file")
	ErrNoClientSecret   = errors.New("no client secret configured")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
)

// Command argument errors.
var (
	ErrMissingMethod        = errors.New("at least one method is required")
	ErrInvalidParameterPair = errors.New("parameters must be given as name=value")
	ErrUnsupportedOutput    = errors.New("unsupported output format")
	ErrCodeRequired         = errors.New("--code flag is required")
	ErrRedirectURIRequired  = errors.New("--redirect-uri flag is required")
	ErrQueriesFailed        = errors.New("some queries failed")
)
