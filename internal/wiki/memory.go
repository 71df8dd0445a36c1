package wiki

import (
	"sort"
	"sync"
	"time"
)

// MemoryHost is an in-memory Host used by the CLI and by tests. Pages
// and users are plain maps; permissions default to world-readable,
// editable by any known user.
type MemoryHost struct {
	mu     sync.RWMutex
	pages  map[string]*memPage
	users  map[string]bool
	admins map[string]bool
	// ReadDeny lists page ids hidden from everyone but admins.
	readDeny map[string]bool
}

type memPage struct {
	title    string
	modified time.Time
}

// NewMemoryHost creates an empty host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{
		pages:    make(map[string]*memPage),
		users:    make(map[string]bool),
		admins:   make(map[string]bool),
		readDeny: make(map[string]bool),
	}
}

// AddPage registers a page with a display title.
func (h *MemoryHost) AddPage(id, title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pages[id] = &memPage{title: title, modified: time.Now()}
}

// AddUser registers a user; admin users also pass IsAdmin.
func (h *MemoryHost) AddUser(name string, admin bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[name] = true
	if admin {
		h.admins[name] = true
	}
}

// DenyRead hides a page from non-admin readers.
func (h *MemoryHost) DenyRead(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readDeny[id] = true
}

// Pages returns all known page ids, sorted.
func (h *MemoryHost) Pages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.pages))
	for id := range h.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *MemoryHost) PageExists(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.pages[id]
	return ok
}

func (h *MemoryHost) PageTitle(id string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.pages[id]; ok && p.title != "" {
		return p.title
	}
	return id
}

func (h *MemoryHost) LastModified(id string) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.pages[id]; ok {
		return p.modified
	}
	return time.Time{}
}

func (h *MemoryHost) Touch(id, summary string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.pages[id]; ok {
		p.modified = time.Now()
	} else {
		h.pages[id] = &memPage{title: id, modified: time.Now()}
	}
	return nil
}

func (h *MemoryHost) CanRead(pageID, user string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.readDeny[pageID] {
		return h.admins[user]
	}
	return true
}

func (h *MemoryHost) CanEdit(pageID, user string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.readDeny[pageID] {
		return h.admins[user]
	}
	return h.users[user]
}

func (h *MemoryHost) IsAdmin(user string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.admins[user]
}

func (h *MemoryHost) UserExists(user string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.users[user]
}
