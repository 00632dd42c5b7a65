// Package config resolves the server configuration.
//
// Raw configuration comes from up to three layers, merged in order of
// precedence:
//
//  1. Explicit overrides (CLI flags, highest priority)
//  2. Configuration file (TOML, read through viper)
//  3. Built-in defaults (lowest priority)
//
// Resolve validates the merged result and produces an immutable Settings
// snapshot; nothing past this package touches a loosely-typed map. A new
// configuration is a new Settings value, never a mutation of an old one —
// replacing the snapshot is how reload is modeled.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/ftpkeeper/pkg/engine"
	"github.com/marmos91/ftpkeeper/pkg/perm"
)

// Settings is the fully-resolved, validated configuration snapshot that
// drives one engine lifecycle. Immutable once returned by Resolve.
type Settings struct {
	// Port is the control-connection port
	Port int `validate:"min=1,max=65535"`

	// ListenAddress is the interface address to bind
	ListenAddress string `validate:"required"`

	// MaxConnections caps concurrent client connections
	MaxConnections int `validate:"gt=0"`

	// MaxConnectionsPerIP caps concurrent connections per client address
	MaxConnectionsPerIP int `validate:"gt=0"`

	// ConnRate caps connection attempts per second, 0 means unlimited
	ConnRate int `validate:"gte=0"`

	// PassivePorts restricts passive-mode data ports when non-nil
	PassivePorts *engine.PortRange

	// Banner is the optional greeting sent to connecting clients
	Banner string

	// Language is the normalized language tag (zh_CN or en_US)
	Language string

	// SharedDir is the absolute server-wide shared directory, the home
	// for every user without an explicit one
	SharedDir string

	// Users holds the validated user records, in file order
	Users []UserConfig

	// NeedsPersist reports that the configuration was synthesized from
	// defaults (no file, or no users section) and that the caller should
	// persist a default configuration file. Resolve itself never writes.
	NeedsPersist bool
}

// UserConfig is a validated, immutable user record. Records are created
// here and handed to the user registry for the lifetime of one resolved
// configuration generation.
type UserConfig struct {
	Username    string
	Password    string
	Permissions perm.Set

	// HomeDir is the user's absolute home directory. Empty means the user
	// is bound to the server-wide shared directory.
	HomeDir string
}

// Overrides carries explicit values that win over both the configuration
// file and the built-in defaults. Zero values mean "not supplied".
type Overrides struct {
	Port      int
	SharedDir string
	Language  string
}

// fileConfig mirrors the raw configuration file tree. Pointer fields
// distinguish "absent" (default applies) from an explicit zero (validated
// and rejected). Unknown top-level keys are ignored for forward
// compatibility.
type fileConfig struct {
	Port         *int        `mapstructure:"port"`
	Listen       string      `mapstructure:"listen"`
	MaxCons      *int        `mapstructure:"max_cons"`
	MaxConsPerIP *int        `mapstructure:"max_cons_per_ip"`
	ConnRate     *int        `mapstructure:"conn_rate"`
	PassivePorts []int       `mapstructure:"passive_ports"`
	Banner       string      `mapstructure:"banner"`
	Language     string      `mapstructure:"language"`
	Users        []userEntry `mapstructure:"users"`
}

// userEntry is one raw [[users]] table.
type userEntry struct {
	Username string  `mapstructure:"username"`
	Password string  `mapstructure:"password"`
	Perm     *string `mapstructure:"perm"`
	Home     string  `mapstructure:"home"`
}

// Load reads the configuration file at path and resolves it together with
// the given overrides.
//
// A missing file is not an error: resolution proceeds from pure defaults
// plus a synthesized default user, and the returned Settings has
// NeedsPersist set so the caller can create the file.
//
// Environment variables with the FTPKEEPER_ prefix override file values
// for the scalar keys (e.g. FTPKEEPER_PORT=2222).
func Load(path string, ov Overrides) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("FTPKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"port", "listen", "max_cons", "max_cons_per_ip", "conn_rate", "banner", "language"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind environment for %q: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// First run: no file at all. Resolve from pure defaults.
			return Resolve(nil, ov)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Resolve(v.AllSettings(), ov)
}

// Resolve merges the raw configuration tree with overrides and defaults
// and validates the result.
//
// Resolve is pure: it performs no I/O and has no side effects. raw may be
// nil, meaning no configuration file was supplied at all; resolution then
// proceeds from built-in defaults plus a synthesized default user and the
// returned Settings reports NeedsPersist.
//
// Validation is all-or-nothing: on any violation Resolve returns a
// *ConfigError and no Settings.
func Resolve(raw map[string]any, ov Overrides) (*Settings, error) {
	var fc fileConfig
	if raw != nil {
		if err := decodeFile(raw, &fc); err != nil {
			return nil, err
		}
	}

	s := defaultSettings()
	s.NeedsPersist = raw == nil

	// File layer.
	if fc.Port != nil {
		s.Port = *fc.Port
	}
	if fc.Listen != "" {
		s.ListenAddress = fc.Listen
	}
	if fc.MaxCons != nil {
		s.MaxConnections = *fc.MaxCons
	}
	if fc.MaxConsPerIP != nil {
		s.MaxConnectionsPerIP = *fc.MaxConsPerIP
	}
	if fc.ConnRate != nil {
		s.ConnRate = *fc.ConnRate
	}
	if fc.Banner != "" {
		s.Banner = fc.Banner
	}
	if fc.Language != "" {
		s.Language = fc.Language
	}
	if len(fc.PassivePorts) > 0 {
		if len(fc.PassivePorts) != 2 {
			return nil, newError(ErrInvalidPassivePortRange, "passive_ports",
				fmt.Sprintf("must be a two-element array, got %d element(s)", len(fc.PassivePorts)))
		}
		s.PassivePorts = &engine.PortRange{Start: fc.PassivePorts[0], End: fc.PassivePorts[1]}
	}

	// Override layer.
	if ov.Port != 0 {
		s.Port = ov.Port
	}
	if ov.SharedDir != "" {
		s.SharedDir = ov.SharedDir
	}
	if ov.Language != "" {
		s.Language = ov.Language
	}

	sharedDir, err := filepath.Abs(s.SharedDir)
	if err != nil {
		return nil, fmt.Errorf("resolve shared directory: %w", err)
	}
	s.SharedDir = sharedDir

	// Language tags normalize before validation so downstream consumers
	// only ever see canonical values.
	lang, ok := normalizeLanguage(s.Language)
	if !ok {
		return nil, newError(ErrUnsupportedLanguage, "language",
			fmt.Sprintf("unsupported language %q", s.Language))
	}
	s.Language = lang

	// Users. An absent (or empty) section synthesizes the default account
	// so a first run yields a complete, runnable configuration in one pass.
	if len(fc.Users) == 0 {
		s.Users = []UserConfig{defaultUser()}
		s.NeedsPersist = true
	} else {
		users, err := resolveUsers(fc.Users)
		if err != nil {
			return nil, err
		}
		s.Users = users
	}

	if err := validateSettings(s); err != nil {
		return nil, err
	}

	return s, nil
}

// decodeFile decodes the raw key/value tree into fileConfig. Unknown keys
// are ignored; type mismatches fail resolution.
func decodeFile(raw map[string]any, fc *fileConfig) error {
	// Weak typing lets numeric values arrive as strings, which is how
	// environment overrides are delivered.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           fc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// resolveUsers validates the raw user entries and produces immutable
// records. Usernames are case-sensitive; duplicates after whitespace
// trimming are rejected.
func resolveUsers(entries []userEntry) ([]UserConfig, error) {
	users := make([]UserConfig, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for i, e := range entries {
		username := strings.TrimSpace(e.Username)
		password := strings.TrimSpace(e.Password)

		if username == "" {
			return nil, newError(ErrMissingField,
				fmt.Sprintf("users[%d].username", i), "username is required")
		}
		if password == "" {
			return nil, newError(ErrMissingField,
				fmt.Sprintf("users[%d].password", i), "password is required")
		}

		if _, dup := seen[username]; dup {
			return nil, newError(ErrDuplicateUsername,
				fmt.Sprintf("users[%d].username", i),
				fmt.Sprintf("duplicate username %q", username))
		}
		seen[username] = struct{}{}

		permissions := perm.Full
		if e.Perm != nil {
			parsed, err := perm.Parse(*e.Perm)
			if err != nil {
				return nil, newError(ErrInvalidPermissionCharacter,
					fmt.Sprintf("users[%d].perm", i), err.Error())
			}
			permissions = parsed
		}

		home := ""
		if e.Home != "" {
			abs, err := filepath.Abs(e.Home)
			if err != nil {
				return nil, fmt.Errorf("resolve home for user %q: %w", username, err)
			}
			home = abs
		}

		users = append(users, UserConfig{
			Username:    username,
			Password:    password,
			Permissions: permissions,
			HomeDir:     home,
		})
	}

	return users, nil
}
