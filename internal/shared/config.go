package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Playback    PlaybackConfig    `toml:"playback"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and, after `auth login`, the CLI session tokens.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	Expiry       string `toml:"expiry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Production bool   `toml:"production"`
	TLSCert    string `toml:"tls_cert"`
	TLSKey     string `toml:"tls_key"`
}

// SyncConfig holds pagination and enrichment pacing. Delays are milliseconds.
type SyncConfig struct {
	PageSize          int     `toml:"page_size"`
	InlineBatchSize   int     `toml:"inline_batch_size"`
	InlineItemDelay   int     `toml:"inline_item_delay_ms"`
	InlineBatchDelay  int     `toml:"inline_batch_delay_ms"`
	DeferredBatchSize int     `toml:"deferred_batch_size"`
	DeferredItemDelay int     `toml:"deferred_item_delay_ms"`
	DeferredBatchWait int     `toml:"deferred_batch_delay_ms"`
	MutationRate      float64 `toml:"mutation_rate"`
}

// PlaybackConfig holds player settings. Delays are milliseconds.
type PlaybackConfig struct {
	DeviceName   string `toml:"device_name"`
	Volume       int    `toml:"volume"`
	SwitchDelay  int    `toml:"switch_delay_ms"`
	RetryDelay   int    `toml:"retry_delay_ms"`
	InitTimeout  int    `toml:"init_timeout_ms"`
	PollInterval int    `toml:"poll_interval_ms"`
}

// Millis converts a millisecond config value to a [time.Duration].
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TLS reports whether both certificate and key are configured.
func (s ServerConfig) TLS() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (s ServerConfig) SecureCookies() bool {
	return s.Production || s.TLS()
}

// Token returns the stored CLI session as an [oauth2.Token], or nil when no access token is stored.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	tok := &oauth2.Token{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, TokenType: "Bearer"}
	if s.Expiry != "" {
		if t, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
			tok.Expiry = t
		}
	}
	return tok
}

// Update stores tok as the CLI session. A token without a refresh token keeps the previous one.
func (s *SpotifyConfig) Update(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	s.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	if tok.Expiry.IsZero() {
		s.Expiry = ""
	} else {
		s.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: spotify %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Sync.PageSize <= 0 || c.Sync.PageSize > 50 {
		return fmt.Errorf("%w: sync page_size must be between 1 and 50", ErrInvalidConfig)
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 100 {
		return fmt.Errorf("%w: playback volume must be between 0 and 100", ErrInvalidConfig)
	}
	return nil
}

// Map flattens the configuration into dotted keys with secrets masked.
func (c *Config) Map() map[string]string {
	sp := c.Credentials.Spotify
	return map[string]string{
		"credentials.spotify.client_id":     sp.ClientID,
		"credentials.spotify.client_secret": mask(sp.ClientSecret),
		"credentials.spotify.redirect_uri":  sp.RedirectURI,
		"credentials.spotify.access_token":  mask(sp.AccessToken),
		"credentials.spotify.refresh_token": mask(sp.RefreshToken),
		"credentials.spotify.expiry":        sp.Expiry,
		"database.path":                     c.Database.Path,
		"server.addr":                       c.Server.Addr(),
		"server.production":                 strconv.FormatBool(c.Server.Production),
		"server.tls":                        strconv.FormatBool(c.Server.TLS()),
		"sync.page_size":                    strconv.Itoa(c.Sync.PageSize),
		"sync.mutation_rate":                strconv.FormatFloat(c.Sync.MutationRate, 'f', -1, 64),
		"playback.device_name":              c.Playback.DeviceName,
		"playback.volume":                   strconv.Itoa(c.Playback.Volume),
	}
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:4] + strings.Repeat("*", 8)
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Load reads the config file at path, falling back to the defaults when it does not exist,
// then applies environment overrides. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var (
		config *Config
		err    error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	} else {
		config = DefaultConfig()
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SPOTIFY_CLIENT_ID"); ok && v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v, ok := lookup("SPOTIFY_CLIENT_SECRET"); ok && v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := lookup("REDIRECT_URI"); ok && v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("APP_ENV"); ok {
		c.Server.Production = v == "production"
	}
	if v, ok := lookup("TLS_CERT_FILE"); ok && v != "" {
		c.Server.TLSCert = v
	}
	if v, ok := lookup("TLS_KEY_FILE"); ok && v != "" {
		c.Server.TLSKey = v
	}
	if v, ok := lookup("DATABASE_PATH"); ok && v != "" {
		c.Database.Path = v
	}
	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
