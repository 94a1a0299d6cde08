// Package config loads account configuration shared with emx-mail.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/emx-mail/compose/pkgs/compose"
)

const (
	// EnvConfigJSONPath is the env var that points to the JSON config file
	// used when emx-config is not available.
	EnvConfigJSONPath = "EMX_MAIL_CONFIG_JSON"
)

// ProtocolSettings holds IMAP connection settings.
type ProtocolSettings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`

	// Auth is "login" (default) or "plain".
	Auth string `json:"auth,omitempty"`

	// SSL enables implicit TLS (connect directly over TLS).
	SSL bool `json:"ssl"`
	// StartTLS enables opportunistic TLS upgrade after connecting in plaintext.
	StartTLS bool `json:"starttls"`
}

// AccountConfig holds email account configuration
//
// NOTE: This structure mirrors the emx-config nested config schema.
// See ExampleRootConfig for the expected JSON shape.
type AccountConfig struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	FromName string `json:"from_name,omitempty"`

	// Aliases are additional addresses the account may send as. They are
	// never added as recipients of a reply-all.
	Aliases []string `json:"aliases,omitempty"`

	// Locale selects the language of reply labels and attributions,
	// e.g. "en" or "de". Defaults to English.
	Locale string `json:"locale,omitempty"`

	IMAP  ProtocolSettings `json:"imap"`
	Store StoreConfig      `json:"store"`
}

// Identity returns the sending identity of the account.
func (a *AccountConfig) Identity() compose.Identity {
	return compose.Identity{
		Email:   a.Email,
		Name:    a.FromName,
		Aliases: append([]string(nil), a.Aliases...),
	}
}

// IdentityAs returns the identity sending from addr, which must be the
// account address or one of its aliases. The other addresses become
// aliases of the returned identity.
func (a *AccountConfig) IdentityAs(addr string) (compose.Identity, error) {
	want := bareAddress(addr)
	if want == "" || strings.EqualFold(want, bareAddress(a.Email)) {
		return a.Identity(), nil
	}
	for i, alias := range a.Aliases {
		parsed, err := mail.ParseAddress(alias)
		if err != nil || !strings.EqualFold(parsed.Address, want) {
			continue
		}
		name := parsed.Name
		if name == "" {
			name = a.FromName
		}
		aliases := append([]string{a.Email}, a.Aliases[:i]...)
		aliases = append(aliases, a.Aliases[i+1:]...)
		return compose.Identity{Email: parsed.Address, Name: name, Aliases: aliases}, nil
	}
	return compose.Identity{}, fmt.Errorf("%s is not an address of account %s", addr, a.Name)
}

func bareAddress(s string) string {
	if bare := compose.BareAddress(s); bare != "" {
		return bare
	}
	return strings.TrimSpace(s)
}

// LocaleTag parses Locale. An empty or invalid locale yields English.
func (a *AccountConfig) LocaleTag() language.Tag {
	if a.Locale == "" {
		return language.English
	}
	tag, err := language.Parse(a.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// StoreConfig holds the locations of local message stores.
type StoreConfig struct {
	Dir  string `json:"dir,omitempty"`  // Directory of .eml files named after Message-IDs
	Mbox string `json:"mbox,omitempty"` // Mbox file
	// Drafts is the mbox file prepared drafts are appended to.
	Drafts string `json:"drafts,omitempty"`
}

// Config holds the application configuration
//
// accounts is a map keyed by account name.
// default_account selects the account when none is specified.
type Config struct {
	Accounts       map[string]AccountConfig `json:"accounts"`
	DefaultAccount string                   `json:"default_account,omitempty"`
}

// RootConfig wraps the app config to align with emx-config list --json output.
type RootConfig struct {
	Mail Config `json:"mail"`
}

// HasEmxConfig returns true when the emx-config CLI is available in PATH.
func HasEmxConfig() bool {
	_, err := exec.LookPath("emx-config")
	return err == nil
}

// LoadConfig loads configuration based on the new emx-config-first mechanism.
//
// 1) If emx-config exists: read config from `emx-config list --json`.
// 2) Otherwise: read config from the JSON file specified by EnvConfigJSONPath.
func LoadConfig() (*Config, error) {
	if HasEmxConfig() {
		return loadFromEmxConfig()
	}
	return loadFromEnvJSON()
}

// LoadConfigFile loads configuration from a JSON file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseRootConfig(data)
}

// SaveConfig saves configuration to a JSON file path.
func SaveConfig(path string, root *RootConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads environment variables from a .env file without
// overriding variables that are already set. A missing file is ignored
// unless it was named explicitly.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// GetEnvConfigPath returns the config file path from EnvConfigJSONPath.
func GetEnvConfigPath() (string, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigJSONPath))
	if path == "" {
		return "", fmt.Errorf("%s is not set", EnvConfigJSONPath)
	}
	return path, nil
}

// GetAccount returns an account by name or email.
func (c *Config) GetAccount(identifier string) (*AccountConfig, error) {
	if c.Accounts == nil || len(c.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}

	if identifier == "" {
		if c.DefaultAccount != "" {
			identifier = c.DefaultAccount
		} else {
			// Deterministic fallback to the first key
			keys := make([]string, 0, len(c.Accounts))
			for k := range c.Accounts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			identifier = keys[0]
		}
	}

	// Direct name match (map key)
	if acc, ok := c.Accounts[identifier]; ok {
		return &acc, nil
	}

	// Search by name or email fields
	for name, acc := range c.Accounts {
		if acc.Name == identifier || acc.Email == identifier {
			if acc.Name == "" {
				acc.Name = name
			}
			return &acc, nil
		}
	}

	return nil, fmt.Errorf("account not found: %s", identifier)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Accounts == nil || len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	for name, acc := range c.Accounts {
		if acc.Name == "" {
			acc.Name = name
		}
		if acc.Email == "" {
			return fmt.Errorf("account %s: email is required", acc.Name)
		}

		if _, err := mail.ParseAddress(acc.Email); err != nil {
			return fmt.Errorf("account %s: invalid email %q: %w", acc.Name, acc.Email, err)
		}
		for _, alias := range acc.Aliases {
			if _, err := mail.ParseAddress(alias); err != nil {
				return fmt.Errorf("account %s: invalid alias %q: %w", acc.Name, alias, err)
			}
		}
		if acc.Locale != "" {
			if _, err := language.Parse(acc.Locale); err != nil {
				return fmt.Errorf("account %s: invalid locale %q: %w", acc.Name, acc.Locale, err)
			}
		}
	}

	if c.DefaultAccount != "" {
		if _, ok := c.Accounts[c.DefaultAccount]; !ok {
			return fmt.Errorf("default_account not found: %s", c.DefaultAccount)
		}
	}

	return nil
}

// ExampleRootConfig returns an example configuration for "init".
func ExampleRootConfig() *RootConfig {
	return &RootConfig{
		Mail: Config{
			DefaultAccount: "work",
			Accounts: map[string]AccountConfig{
				"work": {
					Name:     "Work Account",
					Email:    "user@example.com",
					FromName: "Your Name",
					Aliases:  []string{"you@example.org"},
					Locale:   "en",
					IMAP: ProtocolSettings{
						Host:     "imap.example.com",
						Port:     993,
						Username: "user@example.com",
						SSL:      true,
					},
					Store: StoreConfig{
						Dir:    "~/.emx-mail/messages",
						Drafts: "~/.emx-mail/drafts.mbox",
					},
				},
			},
		},
	}
}

// --- internal helpers ---

func loadFromEnvJSON() (*Config, error) {
	path, err := GetEnvConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

func loadFromEmxConfig() (*Config, error) {
	cmd := exec.Command("emx-config", "list", "--json")
	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		stderr := strings.TrimSpace(errOut.String())
		if stderr != "" {
			return nil, fmt.Errorf("emx-config list --json failed: %w: %s", err, stderr)
		}
		return nil, fmt.Errorf("emx-config list --json failed: %w", err)
	}

	return parseRootConfig(out.Bytes())
}

func parseRootConfig(data []byte) (*Config, error) {
	var root RootConfig
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &root.Mail
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("missing required key: mail.accounts")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
