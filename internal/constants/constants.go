package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// API location.
const (
	// APIHost is the host serving the StackExchange API.
	APIHost = "api.stackexchange.com"

	// APIVersion is the versioned path prefix requests are sent to.
	APIVersion = "2.1"

	// APIEndpoint is the host and version prefix combined.
	APIEndpoint = APIHost + "/" + APIVersion

	// SchemeHTTP is used until an access token is attached to a request.
	SchemeHTTP = "http"

	// SchemeHTTPS is used for authenticated requests.
	SchemeHTTPS = "https"
)

// OAuth endpoints.
const (
	// OAuthExplicitURL starts the authorization code flow.
	OAuthExplicitURL = "https://stackexchange.com/oauth"

	// OAuthImplicitURL starts the implicit flow.
	OAuthImplicitURL = "https://stackexchange.com/oauth/dialog"

	// OAuthTokenURL exchanges an authorization code for an access token.
	OAuthTokenURL = "https://stackexchange.com/oauth/access_token"
)

// Request defaults.
const (
	// DefaultFilter is the filter sent with every request unless another one is configured.
	DefaultFilter = "default"

	// DefaultTTL is how long GET responses stay cached.
	DefaultTTL = 600 * time.Second

	// SiteInfoFilter returns the site object embedded in /info responses.
	SiteInfoFilter = "!*qYPS3vhc(3"

	// IDSeparator joins multiple identifiers or parameter values.
	IDSeparator = ";"

	// TimestampSuffix selects the raw integer of a date field.
	TimestampSuffix = "_timestamp"

	// DefaultUserAgent identifies the client to the API.
	DefaultUserAgent = "stackapi-go/1.0"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultDialTimeout bounds connection setup for cache backends.
	DefaultDialTimeout = 5 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryMax is zero: failed calls surface immediately unless retries are configured.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultConcurrencyLimit limits concurrent batch resolutions.
	DefaultConcurrencyLimit = 5

	// DefaultRateLimit is the documented per-IP request ceiling of the API.
	DefaultRateLimit = 30
)

// Cache defaults.
const (
	// DefaultCacheSize bounds the in-memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheKeyPrefix namespaces keys in shared backends.
	DefaultCacheKeyPrefix = "stackapi:cache:"

	// DefaultNATSBucket is the JetStream KV bucket used for cached responses.
	DefaultNATSBucket = "stackapi_cache"

	// DefaultSQLitePath keeps the SQLite cache in memory.
	DefaultSQLitePath = ":memory:"

	// DefaultCacheTable is the table name used by SQL backends.
	DefaultCacheTable = "cache"
)

// Circuit breaker defaults.
const (
	// CircuitBreakerThreshold is the number of failures before opening.
	CircuitBreakerThreshold = 5

	// CircuitBreakerTimeout is the time before a half-open probe.
	CircuitBreakerTimeout = 60 * time.Second

	// CircuitBreakerSuccessThreshold is the number of successes needed to close.
	CircuitBreakerSuccessThreshold = 2
)

// State and status constants.
const (
	// StatusClosed indicates a closed circuit.
	StatusClosed = "closed"

	// StatusOpen indicates an open state.
	StatusOpen = "open"

	// StatusHalfOpen indicates a half-open state.
	StatusHalfOpen = "half-open"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Examples server.
const (
	// ExamplesPort is the port the examples server listens on.
	ExamplesPort = 7000

	// ExamplesSite is the site queried by the examples.
	ExamplesSite = "stackoverflow"

	// ExamplesReadHeaderTimeout bounds slow clients on the examples server.
	ExamplesReadHeaderTimeout = 5 * time.Second
)
