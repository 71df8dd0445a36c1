package wiki

import "time"

// OpenHost is the permissive Host the standalone CLI runs with when no
// wiki engine is attached: every page exists, every user is known, and
// nothing is access restricted.
type OpenHost struct{}

func (OpenHost) PageExists(string) bool        { return true }
func (OpenHost) PageTitle(id string) string    { return id }
func (OpenHost) LastModified(string) time.Time { return time.Time{} }
func (OpenHost) Touch(string, string) error    { return nil }
func (OpenHost) CanRead(string, string) bool   { return true }
func (OpenHost) CanEdit(string, string) bool   { return true }
func (OpenHost) IsAdmin(string) bool           { return true }
func (OpenHost) UserExists(string) bool        { return true }
