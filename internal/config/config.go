package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values follow typical platform rate limits and keep the default
// traversal conservative enough not to draw attention to the account.
const (
	// DefaultAddr is the HTTP listen address of the API server.
	DefaultAddr = ":8000"

	// DefaultParticipantLimit bounds how many chat members are enumerated
	// when seeding a scan. Very large groups are sampled, not exhausted;
	// a full enumeration of a 100k-member group would take hours under
	// the request delay anyway.
	DefaultParticipantLimit = 400

	// DefaultMemberListLimit bounds the member-listing endpoint. It is
	// larger than the scan seeding limit because listing is a single
	// paginated call, not one probe per member.
	DefaultMemberListLimit = 500

	// DefaultGiftLimit is the maximum number of gifts fetched per user.
	DefaultGiftLimit = 100

	// DefaultDialogCacheScan is how many recent dialogs are scanned when
	// upgrading a numeric id to a resolved entity.
	DefaultDialogCacheScan = 200

	// DefaultCommonChatLimit bounds the common-groups endpoint.
	DefaultCommonChatLimit = 50

	// DefaultDelay is the pause between user probes during a scan.
	// 1.5 seconds keeps a depth-2 scan of a mid-sized group under the
	// platform's flood thresholds in practice.
	DefaultDelay = 1500 * time.Millisecond

	// DefaultDepth is the default recursion depth. Depth 1 follows gift
	// edges one hop out from the seed set.
	DefaultDepth = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "telephasma"
)

// Config holds all configuration options for Telephasma.
// This struct is designed to be populated from CLI flags and the config
// file, then passed through the application via dependency injection
// rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ScanConfig, ServerConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Addr is the HTTP listen address in "host:port" format.
	Addr string

	// APIID is the platform application id issued to this deployment.
	APIID int

	// APIHash is the platform application secret. It also seeds the
	// at-rest encryption of stored session auth keys.
	APIHash string

	// Phone is the account phone number used for login.
	Phone string

	// FixturePath, when set, backs the platform client with a YAML
	// fixture instead of a live connection. Used for development and
	// demos.
	FixturePath string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// DBDir is the directory for the scan-history SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SessionDir is the directory for the session store.
	// Defaults to the XDG data directory.
	SessionDir string

	// ParticipantLimit bounds chat member enumeration during seeding.
	ParticipantLimit int

	// MemberListLimit bounds the member-listing endpoint.
	MemberListLimit int

	// GiftLimit bounds per-user gift fetches.
	GiftLimit int

	// DialogCacheScan bounds dialog-cache scans for id resolution.
	DialogCacheScan int

	// CommonChatLimit bounds the common-groups endpoint.
	CommonChatLimit int

	// Delay is the default pause between user probes.
	Delay time.Duration

	// Depth is the default traversal depth.
	Depth int

	// AllowedOrigins lists origins permitted by the CORS layer.
	// Empty means allow all, which suits a localhost-only deployment.
	AllowedOrigins []string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .telephasma in the current
	// directory and then in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., delay, limits).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Addr:             DefaultAddr,
		DBDir:            XDGDataDir(),
		SessionDir:       XDGDataDir(),
		ParticipantLimit: DefaultParticipantLimit,
		MemberListLimit:  DefaultMemberListLimit,
		GiftLimit:        DefaultGiftLimit,
		DialogCacheScan:  DefaultDialogCacheScan,
		CommonChatLimit:  DefaultCommonChatLimit,
		Delay:            DefaultDelay,
		Depth:            DefaultDepth,
	}
}

// XDGDataDir returns the XDG data directory for Telephasma.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/telephasma
// On macOS: ~/Library/Application Support/telephasma
// On Windows: %LOCALAPPDATA%\telephasma
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for Telephasma.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the server starts.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrNoListenAddr
	}

	// Without a fixture we need real platform credentials.
	if c.FixturePath == "" {
		if c.APIID <= 0 {
			return ErrMissingAPIID
		}
		if c.APIHash == "" {
			return ErrMissingAPIHash
		}
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.ParticipantLimit <= 0 || c.MemberListLimit <= 0 || c.GiftLimit <= 0 {
		return ErrInvalidLimit
	}

	return nil
}
