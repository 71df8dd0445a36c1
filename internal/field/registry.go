package field

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pagegrid/pagegrid/pkg/types"
)

// factory builds a type instance from its stored configuration.
type factory func(raw json.RawMessage, hooks Hooks) (Type, error)

// factories maps canonical type names to constructors. Schema loading
// resolves names here so unknown type names fail fast instead of
// surfacing as a runtime dispatch failure.
var factories = map[string]factory{
	"Text":        newText,
	"Decimal":     newDecimal,
	"Increment":   newIncrement,
	"Date":        newDate,
	"DateTime":    newDateTime,
	"Dropdown":    newDropdown,
	"Tag":         newTag,
	"Page":        newPage,
	"Media":       newMedia,
	"User":        newUser,
	"Mail":        newMail,
	"Url":         newURL,
	"Lookup":      newLookup,
	"AutoSummary": newAutoSummary,
}

// New instantiates the named type with its configuration. Names match
// case-insensitively; the canonical spelling is what Export writes.
func New(name string, raw json.RawMessage, hooks Hooks) (Type, error) {
	f, ok := factories[name]
	if !ok {
		for canonical, candidate := range factories {
			if strings.EqualFold(canonical, name) {
				f, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrTypeUnknown, name)
	}
	return f(raw, hooks)
}

// Known reports whether a type name resolves.
func Known(name string) bool {
	for canonical := range factories {
		if strings.EqualFold(canonical, name) {
			return true
		}
	}
	return false
}

// Names returns the canonical type names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BaseConfig carries the keys every type accepts regardless of its own
// configuration shape. Unknown keys are discarded on load.
type BaseConfig struct {
	Hint string `json:"hint,omitempty"`
}

// decodeConfig merges a stored configuration against the type's own
// defaults (the zero value of cfg), discarding unknown keys, and
// returns the canonical re-encoding kept for lossless export.
func decodeConfig(raw json.RawMessage, cfg any) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing type config: %w", err)
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding type config: %w", err)
	}
	if string(out) == "{}" {
		return nil, nil
	}
	return out, nil
}
