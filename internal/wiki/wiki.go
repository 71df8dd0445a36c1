// Package wiki defines the boundary contracts pagegrid needs from its
// host wiki engine: page storage, permissions, and the per-request
// evaluation context. The core never reads ambient globals; everything
// request-scoped travels through Context.
package wiki

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// PageStore is the slice of the host content store the core consumes.
type PageStore interface {
	// PageExists reports whether the page id resolves to stored content.
	PageExists(id string) bool

	// PageTitle returns the display title for a page, falling back to
	// the id itself when the host has no title metadata.
	PageTitle(id string) string

	// LastModified returns the page's last content revision time.
	LastModified(id string) time.Time

	// Touch asks the host to record a new content revision for a page
	// whose structured data changed without a text change.
	Touch(id, summary string) error
}

// Permissions is the slice of the host permission system the core
// consumes.
type Permissions interface {
	// CanRead reports whether user may read the page.
	CanRead(pageID, user string) bool

	// CanEdit reports whether user may edit the page.
	CanEdit(pageID, user string) bool

	// IsAdmin reports whether user belongs to the admin group.
	IsAdmin(user string) bool

	// UserExists reports whether the user name is known to the host.
	UserExists(user string) bool
}

// Host bundles everything the core needs from the wiki engine.
type Host interface {
	PageStore
	Permissions
}

// Context carries the request-scoped state for one externally triggered
// event: the acting user, the page being processed, the UI language and
// the clock. It is threaded explicitly through schema resolution,
// permission checks and rendering.
type Context struct {
	Page     string
	User     string
	Groups   []string
	Language string
	// Clock returns the current time; tests override it for
	// deterministic revisions.
	Clock func() time.Time
}

// NewContext builds a context with a real clock.
func NewContext(page, user, lang string) *Context {
	return &Context{Page: page, User: user, Language: lang, Clock: time.Now}
}

// Now returns the context time, defaulting to the wall clock.
func (c *Context) Now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Lang returns the normalized base language of the context ("de-AT"
// becomes "de"), defaulting to English. Used when resolving
// language-suffixed column labels.
func (c *Context) Lang() string {
	if c.Language == "" {
		return "en"
	}
	tag, err := language.Parse(c.Language)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

// InGroup reports whether the context user carries the given group. A
// leading @ on the group name is accepted.
func (c *Context) InGroup(group string) bool {
	group = strings.TrimPrefix(group, "@")
	for _, g := range c.Groups {
		if strings.TrimPrefix(g, "@") == group {
			return true
		}
	}
	return false
}
