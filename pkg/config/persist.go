package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// defaultHeader is prepended to the auto-created configuration file so a
// first-time operator can read it without documentation.
const defaultHeader = `# FTP server configuration file
#
# Created automatically on first run. Adjust and restart the server to
# apply changes.
#
# Optional keys: passive_ports = [50000, 50100], banner = "welcome",
# conn_rate = 100 (connection attempts per second, 0 = unlimited)
#
# Permission flags for the users' perm field:
#   e enter directory   l list contents    r read            a append
#   d delete            f rename           m make directory  w write

`

// defaultDoc is the serialized form of the built-in default configuration.
type defaultDoc struct {
	Port         int              `toml:"port"`
	Listen       string           `toml:"listen"`
	MaxCons      int              `toml:"max_cons"`
	MaxConsPerIP int              `toml:"max_cons_per_ip"`
	Language     string           `toml:"language"`
	Users        []defaultUserDoc `toml:"users"`
}

type defaultUserDoc struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Perm     string `toml:"perm"`
}

// WriteDefault persists the built-in default configuration to path.
//
// Resolve reports NeedsPersist when it had to synthesize this
// configuration; the caller decides whether and where to persist it.
// Loading the written file resolves to the same Settings (with
// NeedsPersist cleared).
func WriteDefault(path string) error {
	doc := defaultDoc{
		Port:         DefaultPort,
		Listen:       DefaultListenAddress,
		MaxCons:      DefaultMaxConnections,
		MaxConsPerIP: DefaultMaxConnectionsPerIP,
		Language:     DefaultLanguage,
		Users: []defaultUserDoc{
			{
				Username: DefaultUsername,
				Password: DefaultPassword,
				Perm:     defaultUser().Permissions.String(),
			},
		},
	}

	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}
