package store

import (
	"net/url"
	"strings"
)

// authUser is the user name presented when a target carries a password.
const authUser = "admin"

// Target identifies a database file and its optional password.
type Target struct {
	Path     string
	Password string
}

// DSN renders the go-sqlite3 connection string for the target.
//
// The file is opened read-write without create, so a missing file is a
// connection failure rather than a silently created empty database.
// A password is presented through the user-authentication parameters,
// which are enforced when the driver is built with the sqlite_userauth tag.
func (t Target) DSN() string {
	q := url.Values{}
	q.Set("mode", "rw")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	if t.Password != "" {
		q.Set("_auth_user", authUser)
		q.Set("_auth_pass", t.Password)
	}
	return "file:" + escapePath(t.Path) + "?" + q.Encode()
}

func (t Target) String() string {
	return t.Path
}

// escapePath percent-encodes the characters that would otherwise end the
// path part of an SQLite URI filename.
func escapePath(path string) string {
	return strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
}
