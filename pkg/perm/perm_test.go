package perm

import (
	"errors"
	"testing"
)

// TestParse verifies the compact string decoding against known inputs.
func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Set
	}{
		{
			name:  "empty string is the empty set",
			input: "",
			want:  0,
		},
		{
			name:  "full access",
			input: "elradfmw",
			want:  Full,
		},
		{
			name:  "read-only subset",
			input: "elr",
			want:  EnterDir | List | Read,
		},
		{
			name:  "order does not matter",
			input: "wle",
			want:  Write | List | EnterDir,
		},
		{
			name:  "repeated characters are harmless",
			input: "rrrr",
			want:  Read,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestParse_InvalidCharacter verifies that unknown characters are rejected
// and the offending character is reported.
func TestParse_InvalidCharacter(t *testing.T) {
	tests := []struct {
		input string
		char  rune
	}{
		{"xyz", 'x'},
		{"elx", 'x'},
		{"z", 'z'},
		{"elradfmwq", 'q'},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}

			var invalidChar *InvalidCharError
			if !errors.As(err, &invalidChar) {
				t.Fatalf("Parse(%q) error = %T, want *InvalidCharError", tt.input, err)
			}
			if invalidChar.Char != tt.char {
				t.Errorf("offending char = %q, want %q", invalidChar.Char, tt.char)
			}
		})
	}
}

// TestRoundTrip verifies that String and Parse are inverses for every
// possible set.
func TestRoundTrip(t *testing.T) {
	for i := 0; i <= int(Full); i++ {
		set := Set(i)
		parsed, err := Parse(set.String())
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", set.String(), err)
		}
		if parsed != set {
			t.Errorf("round trip of %08b through %q gave %08b", uint8(set), set.String(), uint8(parsed))
		}
	}
}

// TestString verifies canonical encoding order.
func TestString(t *testing.T) {
	if got := Full.String(); got != "elradfmw" {
		t.Errorf("Full.String() = %q, want %q", got, "elradfmw")
	}
	if got := (Write | EnterDir).String(); got != "ew" {
		t.Errorf("(Write|EnterDir).String() = %q, want %q", got, "ew")
	}
	if got := Set(0).String(); got != "" {
		t.Errorf("empty set String() = %q, want empty", got)
	}
}

// TestHas verifies membership checks.
func TestHas(t *testing.T) {
	set := EnterDir | List | Read

	if !set.Has(Read) {
		t.Error("set should contain Read")
	}
	if !set.Has(EnterDir | List) {
		t.Error("set should contain EnterDir|List")
	}
	if set.Has(Write) {
		t.Error("set should not contain Write")
	}
	if set.Has(Read | Write) {
		t.Error("Has requires all flags present, Write is missing")
	}
}
