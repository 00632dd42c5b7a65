package config

import "testing"

func TestResolve_PortOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"above range", 70000},
		{"zero", 0},
		{"negative", -1},
		{"just above", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(map[string]any{"port": tt.port}, Overrides{})
			requireConfigError(t, err, ErrPortOutOfRange)
		})
	}
}

func TestResolve_PortBoundaries(t *testing.T) {
	for _, port := range []int{1, 65535} {
		s, err := Resolve(map[string]any{"port": port}, Overrides{})
		if err != nil {
			t.Fatalf("port %d must be accepted, got: %v", port, err)
		}
		if s.Port != port {
			t.Errorf("port = %d, want %d", s.Port, port)
		}
	}
}

func TestResolve_InvalidConnectionLimits(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"zero max_cons", map[string]any{"max_cons": 0}},
		{"negative max_cons", map[string]any{"max_cons": -5}},
		{"zero max_cons_per_ip", map[string]any{"max_cons_per_ip": 0}},
		{"negative max_cons_per_ip", map[string]any{"max_cons_per_ip": -1}},
		{"negative conn_rate", map[string]any{"conn_rate": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.raw, Overrides{})
			requireConfigError(t, err, ErrInvalidConnectionLimit)
		})
	}
}

func TestResolve_InvalidPassivePortRange(t *testing.T) {
	tests := []struct {
		name  string
		ports []int
	}{
		{"descending", []int{100, 50}},
		{"single element", []int{50000}},
		{"three elements", []int{1, 2, 3}},
		{"start below range", []int{0, 100}},
		{"end above range", []int{50000, 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(map[string]any{"passive_ports": tt.ports}, Overrides{})
			requireConfigError(t, err, ErrInvalidPassivePortRange)
		})
	}
}

func TestResolve_EqualPassivePortsValid(t *testing.T) {
	// A single-port interval (start == end) is a legal range.
	s, err := Resolve(map[string]any{"passive_ports": []int{50000, 50000}}, Overrides{})
	if err != nil {
		t.Fatalf("equal bounds must be accepted, got: %v", err)
	}
	if s.PassivePorts.Start != 50000 || s.PassivePorts.End != 50000 {
		t.Errorf("passive ports = %v, want [50000, 50000]", s.PassivePorts)
	}
}

func TestResolve_LanguageNormalization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"zh_CN", "zh_CN"},
		{"zh", "zh_CN"},
		{"ZH-CN", "zh_CN"},
		{"chinese", "zh_CN"},
		{"en_US", "en_US"},
		{"en", "en_US"},
		{"English", "en_US"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s, err := Resolve(map[string]any{"language": tt.input}, Overrides{})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if s.Language != tt.want {
				t.Errorf("language %q normalized to %q, want %q", tt.input, s.Language, tt.want)
			}
		})
	}
}

func TestResolve_UnsupportedLanguage(t *testing.T) {
	for _, tag := range []string{"fr", "de_DE", "klingon"} {
		t.Run(tag, func(t *testing.T) {
			_, err := Resolve(map[string]any{"language": tag}, Overrides{})
			requireConfigError(t, err, ErrUnsupportedLanguage)
		})
	}
}
