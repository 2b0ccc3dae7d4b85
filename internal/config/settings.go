package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (YTBATCH_CLIENT_SECRET, ...).
const EnvPrefix = "YTBATCH"

// Defaults for optional settings.
const (
	DefaultRedirectURI  = "http://localhost:8080/redirect"
	DefaultAPIBaseURL   = "https://api.tracker.yandex.net"
	DefaultOAuthBaseURL = "https://oauth.yandex.ru"
	DefaultListenAddr   = "127.0.0.1:8080"
	DefaultAuthTimeout  = 60 * time.Second
	DefaultCallDelay    = time.Second

	TokenBackendFile    = "file"
	TokenBackendKeyring = "keyring"
)

// ErrMissingSetting is returned by Validate when a required key is empty.
var ErrMissingSetting = errors.New("missing configuration value")

// Settings is the user-editable configuration read from config.toml.
type Settings struct {
	OrganizationID string        `mapstructure:"organization_id"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	RedirectURI    string        `mapstructure:"redirect_uri"`
	DefaultQueue   string        `mapstructure:"default_queue"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	OAuthBaseURL   string        `mapstructure:"oauth_base_url"`
	ListenAddr     string        `mapstructure:"listen_addr"`
	AuthTimeout    time.Duration `mapstructure:"auth_timeout"`
	CallDelay      time.Duration `mapstructure:"call_delay"`
	TokenBackend   string        `mapstructure:"token_backend"`
	JournalPath    string        `mapstructure:"journal_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("organization_id", "")
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("redirect_uri", DefaultRedirectURI)
	v.SetDefault("default_queue", "")
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("oauth_base_url", DefaultOAuthBaseURL)
	v.SetDefault("listen_addr", "")
	v.SetDefault("auth_timeout", DefaultAuthTimeout)
	v.SetDefault("call_delay", DefaultCallDelay)
	v.SetDefault("token_backend", TokenBackendFile)
	v.SetDefault("journal_path", "")
}

// LoadSettings reads settings from the TOML file at path, the optional
// dotenv file at envPath and YTBATCH_* environment variables. A missing
// settings file is not an error; defaults and environment apply.
func LoadSettings(path, envPath string) (*Settings, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", envPath, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var s Settings
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&s, hook); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	s.TokenBackend = strings.ToLower(strings.TrimSpace(s.TokenBackend))
	return &s, nil
}

// Validate checks that every value needed to talk to the tracker is set.
func (s *Settings) Validate() error {
	var missing []string
	if s.OrganizationID == "" {
		missing = append(missing, "organization_id")
	}
	if s.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if s.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if s.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	if _, err := s.RedirectListenAddr(); err != nil {
		return err
	}
	switch s.TokenBackend {
	case TokenBackendFile, TokenBackendKeyring:
	default:
		return fmt.Errorf("invalid token_backend %q (want %q or %q)", s.TokenBackend, TokenBackendFile, TokenBackendKeyring)
	}
	return nil
}

// RedirectListenAddr returns the address the OAuth redirect listener binds.
// Without listen_addr it is the loopback interface on the redirect_uri
// port. A listen_addr on another port could never receive the redirect and
// is rejected.
func (s *Settings) RedirectListenAddr() (string, error) {
	u, err := url.Parse(s.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect_uri: %w", err)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	if s.ListenAddr == "" {
		return net.JoinHostPort("127.0.0.1", port), nil
	}
	_, listenPort, err := net.SplitHostPort(s.ListenAddr)
	if err != nil {
		return "", fmt.Errorf("invalid listen_addr %q: %w", s.ListenAddr, err)
	}
	if listenPort != port {
		return "", fmt.Errorf("listen_addr %s does not match redirect_uri port %s", s.ListenAddr, port)
	}
	return s.ListenAddr, nil
}

const sampleSettings = `# ytbatch settings
organization_id = ""
client_id = ""
client_secret = ""
redirect_uri = "` + DefaultRedirectURI + `"

# Queue used for creations that do not name one.
default_queue = ""

# token_backend = "file"     # or "keyring"
# Without a native keyring the keyring backend falls back to an encrypted
# file; its password comes from YTBATCH_KEYRING_PASSWORD or a prompt.
# call_delay = "1s"
# auth_timeout = "60s"
# listen_addr defaults to 127.0.0.1 on the redirect_uri port.
# listen_addr = "` + DefaultListenAddr + `"
`

// ErrExists is returned when a file would be overwritten without force.
var ErrExists = errors.New("file already exists")

// WriteSampleSettings writes a commented settings template to path. The
// directory must exist.
func WriteSampleSettings(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	return os.WriteFile(path, []byte(sampleSettings), 0600)
}
