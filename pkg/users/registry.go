// Package users holds the in-memory user registry for one configuration
// generation.
//
// The registry is built once from validated configuration records and is
// read-only afterwards; a configuration reload builds a fresh registry
// rather than mutating an existing one, so lookups never need a lock.
package users

import (
	"fmt"

	"github.com/marmos91/ftpkeeper/pkg/config"
	"github.com/marmos91/ftpkeeper/pkg/perm"
)

// User is one registered account.
type User struct {
	Username    string
	Password    string
	Permissions perm.Set

	// HomeDir is the account's absolute home directory. Empty means the
	// account lives in the server-wide shared directory.
	HomeDir string
}

// Registry is an immutable username-indexed view over a resolved
// configuration's accounts.
type Registry struct {
	byName map[string]User
	order  []string
}

// Build indexes the given account records by username.
//
// Usernames are case-sensitive. The configuration layer already rejects
// duplicates, but Build re-checks because it also accepts
// programmatically assembled slices.
func Build(accounts []config.UserConfig) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]User, len(accounts)),
		order:  make([]string, 0, len(accounts)),
	}

	for i, a := range accounts {
		if _, dup := r.byName[a.Username]; dup {
			return nil, &config.ConfigError{
				Code:    config.ErrDuplicateUsername,
				Field:   fmt.Sprintf("users[%d].username", i),
				Message: fmt.Sprintf("duplicate username %q", a.Username),
			}
		}
		r.byName[a.Username] = User{
			Username:    a.Username,
			Password:    a.Password,
			Permissions: a.Permissions,
			HomeDir:     a.HomeDir,
		}
		r.order = append(r.order, a.Username)
	}

	return r, nil
}

// Lookup returns the account for username, if registered.
func (r *Registry) Lookup(username string) (User, bool) {
	u, ok := r.byName[username]
	return u, ok
}

// Authenticate verifies a username/password pair by exact match and
// returns the account on success. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (r *Registry) Authenticate(username, password string) (User, bool) {
	u, ok := r.byName[username]
	if !ok || u.Password != password {
		return User{}, false
	}
	return u, true
}

// ResolveHome returns the effective home directory for an account: its
// own home when set, otherwise the server-wide shared directory.
func (r *Registry) ResolveHome(u User, sharedDir string) string {
	if u.HomeDir != "" {
		return u.HomeDir
	}
	return sharedDir
}

// Users returns the accounts in registration order. The returned slice
// is a copy.
func (r *Registry) Users() []User {
	out := make([]User, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered accounts.
func (r *Registry) Len() int {
	return len(r.byName)
}
