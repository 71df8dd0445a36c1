package field

import (
	"encoding/json"
	"strings"

	"github.com/pagegrid/pagegrid/pkg/types"
)

type dropdownConfig struct {
	BaseConfig
	Values []string `json:"values"`
}

// Dropdown restricts values to a fixed list from its configuration.
type Dropdown struct {
	BaseType
	cfg dropdownConfig
}

func newDropdown(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Dropdown{BaseType: newBase("Dropdown", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *Dropdown) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	for _, v := range t.cfg.Values {
		if v == clean {
			return clean, nil
		}
	}
	return "", types.NewValidationError("dropdown", clean)
}

// Values returns the configured options, for editors.
func (t *Dropdown) Values() []string { return t.cfg.Values }

// Tag is free text meant for keyword-style values; it behaves like the
// base type and is the natural column for cloud aggregations.
type Tag struct {
	BaseType
}

func newTag(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Tag{BaseType: newBase("Tag", hooks)}
	cfg, err := decodeConfig(raw, &struct{ BaseConfig }{})
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}
