// Package perm models the per-user permission flags understood by the
// transfer engine.
//
// Permissions travel through configuration as a compact string encoding,
// one character per flag (e.g. "elradfmw"). Parse converts the compact
// form into a Set; Set.String converts back. The two are inverses for
// every valid set, so permissions survive a config round-trip unchanged.
package perm

import "fmt"

// Set is a bitmask of permission flags.
//
// The zero value is the empty set: the user may connect and authenticate
// but perform no operations.
type Set uint8

const (
	// EnterDir allows changing into a directory ('e').
	EnterDir Set = 1 << iota

	// List allows listing directory contents ('l').
	List

	// Read allows retrieving file data ('r').
	Read

	// Append allows appending to an existing file ('a').
	Append

	// Delete allows deleting files and directories ('d').
	Delete

	// Rename allows renaming files and directories ('f').
	Rename

	// MakeDir allows creating directories ('m').
	MakeDir

	// Write allows storing new files and overwriting existing ones ('w').
	Write
)

// Full grants every operation. This is the default the configuration
// validator applies when a user entry omits the perm field.
const Full = EnterDir | List | Read | Append | Delete | Rename | MakeDir | Write

// canonical defines the flag order used by String. It matches the order
// the compact encoding is conventionally written in ("elradfmw").
var canonical = []struct {
	flag Set
	ch   byte
}{
	{EnterDir, 'e'},
	{List, 'l'},
	{Read, 'r'},
	{Append, 'a'},
	{Delete, 'd'},
	{Rename, 'f'},
	{MakeDir, 'm'},
	{Write, 'w'},
}

// InvalidCharError reports a character in a compact permission string that
// does not name a known flag.
type InvalidCharError struct {
	// Char is the offending character.
	Char rune
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("invalid permission character %q", e.Char)
}

// Parse decodes a compact permission string into a Set.
//
// Each recognized character enables the corresponding flag; repeated
// characters are harmless. The empty string is a valid empty set. Any
// unrecognized character fails with *InvalidCharError and no Set is
// returned.
func Parse(s string) (Set, error) {
	var set Set
	for _, r := range s {
		flag, ok := flagFor(r)
		if !ok {
			return 0, &InvalidCharError{Char: r}
		}
		set |= flag
	}
	return set, nil
}

func flagFor(r rune) (Set, bool) {
	for _, c := range canonical {
		if rune(c.ch) == r {
			return c.flag, true
		}
	}
	return 0, false
}

// Has reports whether every flag in the argument is present in the set.
func (s Set) Has(flag Set) bool {
	return s&flag == flag
}

// String re-encodes the set in canonical order. Parse(s.String()) yields
// s again for every set.
func (s Set) String() string {
	buf := make([]byte, 0, len(canonical))
	for _, c := range canonical {
		if s.Has(c.flag) {
			buf = append(buf, c.ch)
		}
	}
	return string(buf)
}
