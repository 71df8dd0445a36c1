package field

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pagegrid/pagegrid/pkg/types"
)

func mustType(t *testing.T, name, config string) Type {
	t.Helper()
	typ, err := New(name, json.RawMessage(config), Hooks{
		UserExists: func(u string) bool { return u == "alice" },
		PageExists: func(string) bool { return true },
		PageTitle:  func(p string) string { return "Title of " + p },
	})
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	return typ
}

func TestRegistry(t *testing.T) {
	if _, err := New("NoSuchType", nil, Hooks{}); !errors.Is(err, types.ErrTypeUnknown) {
		t.Errorf("unknown type error = %v", err)
	}
	// Names match case-insensitively.
	if _, err := New("decimal", nil, Hooks{}); err != nil {
		t.Errorf("New(decimal): %v", err)
	}
	if !Known("DATETIME") {
		t.Error("Known should be case-insensitive")
	}
	if Known("Widget") {
		t.Error("Known(Widget) should be false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		config  string
		in      string
		want    string
		wantErr string // validation reason code, empty for success
	}{
		{name: "text trims", typ: "Text", in: "  hello  ", want: "hello"},
		{name: "empty always passes", typ: "Decimal", config: `{"min":"1"}`, in: "", want: ""},

		{name: "decimal plain", typ: "Decimal", in: "42", want: "42"},
		{name: "decimal comma", typ: "Decimal", in: "4,2", want: "4.2"},
		{name: "decimal junk", typ: "Decimal", in: "4x2", wantErr: "decimal"},
		{name: "decimal below min", typ: "Decimal", config: `{"min":"5"}`, in: "4.9", wantErr: "decimal min"},
		{name: "decimal at min", typ: "Decimal", config: `{"min":"5"}`, in: "5", want: "5"},
		{name: "decimal above max", typ: "Decimal", config: `{"max":"10"}`, in: "10.5", wantErr: "decimal max"},

		{name: "increment", typ: "Increment", in: "007", want: "7"},
		{name: "increment negative", typ: "Increment", in: "-3", wantErr: "int"},
		{name: "increment fraction", typ: "Increment", in: "3.5", wantErr: "int"},

		{name: "date", typ: "Date", in: "2026-08-28", want: "2026-08-28"},
		{name: "date invalid", typ: "Date", in: "28.08.2026", wantErr: "date"},
		{name: "date impossible", typ: "Date", in: "2026-02-30", wantErr: "date"},
		{name: "datetime normalized", typ: "DateTime", in: "2026-08-28T09:30", want: "2026-08-28 09:30:00"},
		{name: "datetime date only", typ: "DateTime", in: "2026-08-28", want: "2026-08-28 00:00:00"},

		{name: "dropdown member", typ: "Dropdown", config: `{"values":["a","b"]}`, in: "b", want: "b"},
		{name: "dropdown stranger", typ: "Dropdown", config: `{"values":["a","b"]}`, in: "c", wantErr: "dropdown"},

		{name: "mail", typ: "Mail", in: "alice@example.com", want: "alice@example.com"},
		{name: "mail invalid", typ: "Mail", in: "not-an-address", wantErr: "mail"},

		{name: "url complete", typ: "Url", in: "https://example.com/x", want: "https://example.com/x"},
		{name: "url scheme added", typ: "Url", in: "example.com/x", want: "https://example.com/x"},
		{name: "url invalid", typ: "Url", in: "https://", wantErr: "url"},

		{name: "user known", typ: "User", in: "alice", want: "alice"},
		{name: "user unknown", typ: "User", in: "mallory", wantErr: "user"},
		{name: "user any", typ: "User", config: `{"anyuser":true}`, in: "mallory", want: "mallory"},

		{name: "page cleaned", typ: "Page", in: "Projects:Alpha Beta", want: "projects:alpha_beta"},
		{name: "page namespaced", typ: "Page", config: `{"namespace":"wiki"}`, in: "alpha", want: "wiki:alpha"},
		{name: "media url rejected", typ: "Media", in: "https://example.com/x.png", wantErr: "media"},

		{name: "lookup tuple", typ: "Lookup", config: `{"schema":"clients"}`, in: `["clients:acme",""]`, want: `["clients:acme",""]`},
		{name: "lookup junk", typ: "Lookup", config: `{"schema":"clients"}`, in: "acme", wantErr: "lookup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := mustType(t, tt.typ, tt.config)
			got, err := typ.Validate(tt.in)
			if tt.wantErr != "" {
				var ve *types.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Validate(%q) err = %v, want ValidationError", tt.in, err)
				}
				if ve.Code != tt.wantErr {
					t.Errorf("reason = %q, want %q", ve.Code, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPageStoreValue(t *testing.T) {
	plain := mustType(t, "Page", "").(*Page)
	if got := plain.StoreValue("projects:alpha"); got != "projects:alpha" {
		t.Errorf("plain StoreValue = %q", got)
	}

	titled := mustType(t, "Page", `{"usetitles":true}`).(*Page)
	got := titled.StoreValue("projects:alpha")
	want := `["projects:alpha","Title of projects:alpha"]`
	if got != want {
		t.Errorf("titled StoreValue = %q, want %q", got, want)
	}
	if id := titled.RawID(got); id != "projects:alpha" {
		t.Errorf("RawID = %q", id)
	}
	if title := titled.DisplayValue(got); title != "Title of projects:alpha" {
		t.Errorf("DisplayValue = %q", title)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	typ := mustType(t, "Decimal", `{"min":"1","max":"10","unknownkey":true}`)
	got := string(typ.ConfigJSON())
	// Unknown keys are dropped; known keys survive canonically.
	want := `{"min":"1","max":"10"}`
	if got != want {
		t.Errorf("ConfigJSON = %s, want %s", got, want)
	}

	bare := mustType(t, "Text", `{}`)
	if bare.ConfigJSON() != nil {
		t.Errorf("empty config should export as nil, got %s", bare.ConfigJSON())
	}
}
