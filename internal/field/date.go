package field

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pagegrid/pagegrid/pkg/types"
)

const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04:05"
)

type dateConfig struct {
	BaseConfig
	// PrefillToday makes the editor default to the current date; the
	// stored data is unaffected.
	PrefillToday bool `json:"prefilltoday,omitempty"`
}

// Date stores ISO dates (YYYY-MM-DD). The lexical order of the stored
// form is chronological, so the default comparisons apply.
type Date struct {
	BaseType
	cfg dateConfig
}

func newDate(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Date{BaseType: newBase("Date", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *Date) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	parsed, err := time.Parse(dateFormat, clean)
	if err != nil {
		return "", types.NewValidationError("date", clean)
	}
	return parsed.Format(dateFormat), nil
}

// DateTime stores "YYYY-MM-DD HH:MM:SS". Input may omit the seconds or
// use a T separator; the stored form is normalized.
type DateTime struct {
	BaseType
	cfg dateConfig
}

func newDateTime(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &DateTime{BaseType: newBase("DateTime", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

// dateTimeFormats lists the accepted input layouts, most specific first.
var dateTimeFormats = []string{
	dateTimeFormat,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dateFormat,
}

func (t *DateTime) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	for _, layout := range dateTimeFormats {
		if parsed, err := time.Parse(layout, clean); err == nil {
			return parsed.Format(dateTimeFormat), nil
		}
	}
	return "", types.NewValidationError("datetime", clean)
}
