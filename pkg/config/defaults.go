package config

import "github.com/marmos91/ftpkeeper/pkg/perm"

// Built-in defaults, applied when neither the configuration file nor an
// explicit override supplies a value.
const (
	// DefaultConfigName is the configuration file looked up when --config
	// is not given.
	DefaultConfigName = "config.toml"

	// DefaultSharedDir is the server-wide shared directory created next
	// to the working directory when --shared-dir is not given.
	DefaultSharedDir = "shared"

	DefaultPort                = 2121
	DefaultListenAddress       = "0.0.0.0"
	DefaultMaxConnections      = 256
	DefaultMaxConnectionsPerIP = 10
	DefaultLanguage            = "zh_CN"
)

// Default credentials for the account synthesized when the configuration
// carries no users section.
const (
	DefaultUsername = "user"
	DefaultPassword = "123456"
)

// defaultSettings returns a Settings pre-populated with every built-in
// default. Resolve layers file values and overrides on top.
func defaultSettings() *Settings {
	return &Settings{
		Port:                DefaultPort,
		ListenAddress:       DefaultListenAddress,
		MaxConnections:      DefaultMaxConnections,
		MaxConnectionsPerIP: DefaultMaxConnectionsPerIP,
		Language:            DefaultLanguage,
		SharedDir:           DefaultSharedDir,
	}
}

// defaultUser returns the account synthesized for configurations without
// a users section: full permissions, home bound to the shared directory.
func defaultUser() UserConfig {
	return UserConfig{
		Username:    DefaultUsername,
		Password:    DefaultPassword,
		Permissions: perm.Full,
	}
}
