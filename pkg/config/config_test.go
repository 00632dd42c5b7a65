package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/ftpkeeper/pkg/perm"
)

// requireConfigError asserts that err is a *ConfigError with the given code.
func requireConfigError(t *testing.T, err error, code ErrorCode) *ConfigError {
	t.Helper()

	if err == nil {
		t.Fatal("expected a configuration error, got nil")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T (%v), want *ConfigError", err, err)
	}
	if cfgErr.Code != code {
		t.Fatalf("error code = %d (%v), want %d", cfgErr.Code, cfgErr, code)
	}
	return cfgErr
}

func TestResolve_PureDefaults(t *testing.T) {
	// No file, no overrides: the auto-create path. Must yield a fully
	// populated configuration in one pass.
	s, err := Resolve(nil, Overrides{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if s.Port != 2121 {
		t.Errorf("port = %d, want 2121", s.Port)
	}
	if s.ListenAddress != "0.0.0.0" {
		t.Errorf("listen = %q, want 0.0.0.0", s.ListenAddress)
	}
	if s.MaxConnections != 256 {
		t.Errorf("max_cons = %d, want 256", s.MaxConnections)
	}
	if s.MaxConnectionsPerIP != 10 {
		t.Errorf("max_cons_per_ip = %d, want 10", s.MaxConnectionsPerIP)
	}
	if s.Language != "zh_CN" {
		t.Errorf("language = %q, want zh_CN", s.Language)
	}
	if s.PassivePorts != nil {
		t.Errorf("passive ports = %v, want nil", s.PassivePorts)
	}
	if !s.NeedsPersist {
		t.Error("NeedsPersist = false, want true for the no-file path")
	}

	if len(s.Users) != 1 {
		t.Fatalf("users = %d, want exactly one synthesized user", len(s.Users))
	}
	u := s.Users[0]
	if u.Username != "user" || u.Password != "123456" {
		t.Errorf("synthesized user = %q/%q, want user/123456", u.Username, u.Password)
	}
	if u.Permissions != perm.Full {
		t.Errorf("synthesized permissions = %v, want full access", u.Permissions)
	}
	if u.HomeDir != "" {
		t.Errorf("synthesized home = %q, want unset (shared directory)", u.HomeDir)
	}
	if !filepath.IsAbs(s.SharedDir) {
		t.Errorf("shared dir %q is not absolute", s.SharedDir)
	}
}

func TestResolve_FileValues(t *testing.T) {
	raw := map[string]any{
		"port":            2222,
		"listen":          "192.168.1.10",
		"max_cons":        64,
		"max_cons_per_ip": 4,
		"conn_rate":       100,
		"passive_ports":   []int{50000, 50100},
		"banner":          "welcome",
		"language":        "en_US",
		"users": []map[string]any{
			{"username": "alice", "password": "pw", "perm": "elr", "home": "./data/alice"},
		},
	}

	s, err := Resolve(raw, Overrides{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if s.Port != 2222 {
		t.Errorf("port = %d, want 2222", s.Port)
	}
	if s.ListenAddress != "192.168.1.10" {
		t.Errorf("listen = %q, want 192.168.1.10", s.ListenAddress)
	}
	if s.MaxConnections != 64 || s.MaxConnectionsPerIP != 4 {
		t.Errorf("limits = %d/%d, want 64/4", s.MaxConnections, s.MaxConnectionsPerIP)
	}
	if s.ConnRate != 100 {
		t.Errorf("conn_rate = %d, want 100", s.ConnRate)
	}
	if s.PassivePorts == nil || s.PassivePorts.Start != 50000 || s.PassivePorts.End != 50100 {
		t.Errorf("passive ports = %v, want [50000, 50100]", s.PassivePorts)
	}
	if s.Banner != "welcome" {
		t.Errorf("banner = %q, want welcome", s.Banner)
	}
	if s.NeedsPersist {
		t.Error("NeedsPersist = true for a configured file, want false")
	}

	if len(s.Users) != 1 {
		t.Fatalf("users = %d, want 1", len(s.Users))
	}
	u := s.Users[0]
	if u.Permissions != perm.EnterDir|perm.List|perm.Read {
		t.Errorf("permissions = %v, want elr", u.Permissions)
	}
	if !filepath.IsAbs(u.HomeDir) {
		t.Errorf("home %q was not normalized to an absolute path", u.HomeDir)
	}
}

func TestResolve_OverridePrecedence(t *testing.T) {
	raw := map[string]any{"port": 2122}

	s, err := Resolve(raw, Overrides{Port: 9999, Language: "english"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if s.Port != 9999 {
		t.Errorf("port = %d, want override value 9999", s.Port)
	}
	if s.Language != "en_US" {
		t.Errorf("language = %q, want normalized override en_US", s.Language)
	}
}

func TestResolve_UnknownKeysIgnored(t *testing.T) {
	raw := map[string]any{
		"port":               2121,
		"some_future_option": true,
		"another":            "value",
	}

	if _, err := Resolve(raw, Overrides{}); err != nil {
		t.Fatalf("unknown top-level keys must be ignored, got: %v", err)
	}
}

func TestResolve_UserValidation(t *testing.T) {
	tests := []struct {
		name  string
		users []map[string]any
		code  ErrorCode
	}{
		{
			name:  "missing username",
			users: []map[string]any{{"password": "pw"}},
			code:  ErrMissingField,
		},
		{
			name:  "missing password",
			users: []map[string]any{{"username": "alice"}},
			code:  ErrMissingField,
		},
		{
			name:  "whitespace-only password",
			users: []map[string]any{{"username": "alice", "password": "   "}},
			code:  ErrMissingField,
		},
		{
			name: "invalid permission character",
			users: []map[string]any{
				{"username": "alice", "password": "pw", "perm": "xyz"},
			},
			code: ErrInvalidPermissionCharacter,
		},
		{
			name: "duplicate username",
			users: []map[string]any{
				{"username": "a", "password": "pw1"},
				{"username": "a", "password": "pw2"},
			},
			code: ErrDuplicateUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(map[string]any{"users": tt.users}, Overrides{})
			requireConfigError(t, err, tt.code)
		})
	}
}

func TestResolve_CaseSensitiveUsernames(t *testing.T) {
	raw := map[string]any{
		"users": []map[string]any{
			{"username": "a", "password": "pw1"},
			{"username": "A", "password": "pw2"},
		},
	}

	s, err := Resolve(raw, Overrides{})
	if err != nil {
		t.Fatalf("usernames differing only in case must be distinct, got: %v", err)
	}
	if len(s.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(s.Users))
	}
}

func TestResolve_DefaultPermissions(t *testing.T) {
	raw := map[string]any{
		"users": []map[string]any{
			{"username": "alice", "password": "pw"},
			{"username": "bob", "password": "pw", "perm": ""},
		},
	}

	s, err := Resolve(raw, Overrides{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Omitted perm defaults to full access; an explicit empty string is a
	// valid empty set.
	if s.Users[0].Permissions != perm.Full {
		t.Errorf("alice permissions = %v, want full", s.Users[0].Permissions)
	}
	if s.Users[1].Permissions != 0 {
		t.Errorf("bob permissions = %v, want empty set", s.Users[1].Permissions)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
port = 2150
listen = "127.0.0.1"
max_cons = 32
language = "en"

[[users]]
username = "alice"
password = "secret"
perm = "elradfmw"

[[users]]
username = "bob"
password = "hunter2"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	s, err := Load(configPath, Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.Port != 2150 {
		t.Errorf("port = %d, want 2150", s.Port)
	}
	if s.MaxConnections != 32 {
		t.Errorf("max_cons = %d, want 32", s.MaxConnections)
	}
	// Defaults still fill the gaps.
	if s.MaxConnectionsPerIP != 10 {
		t.Errorf("max_cons_per_ip = %d, want default 10", s.MaxConnectionsPerIP)
	}
	if s.Language != "en_US" {
		t.Errorf("language = %q, want en_US", s.Language)
	}
	if len(s.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(s.Users))
	}
	if s.Users[0].Username != "alice" || s.Users[1].Username != "bob" {
		t.Errorf("user order not preserved: %q, %q", s.Users[0].Username, s.Users[1].Username)
	}
	if s.NeedsPersist {
		t.Error("NeedsPersist = true for an existing file, want false")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "nonexistent.toml")

	s, err := Load(missing, Overrides{})
	if err != nil {
		t.Fatalf("a missing config file must resolve from defaults, got: %v", err)
	}

	if s.Port != 2121 {
		t.Errorf("port = %d, want default 2121", s.Port)
	}
	if !s.NeedsPersist {
		t.Error("NeedsPersist = false, want true for a missing file")
	}
	if len(s.Users) != 1 || s.Users[0].Username != "user" {
		t.Errorf("expected the synthesized default user, got %v", s.Users)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "broken.toml")

	if err := os.WriteFile(configPath, []byte("port = [[[\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath, Overrides{}); err == nil {
		t.Fatal("expected error for unparseable TOML, got nil")
	}
}
