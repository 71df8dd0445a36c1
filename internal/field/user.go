package field

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
	"github.com/pagegrid/pagegrid/pkg/types"
)

type userConfig struct {
	BaseConfig
	// AnyUser skips the existence check against the host user base.
	AnyUser bool `json:"anyuser,omitempty"`
}

// User stores a host user name, verified to exist unless configured
// otherwise.
type User struct {
	BaseType
	cfg userConfig
}

func newUser(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &User{BaseType: newBase("User", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *User) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	if !t.cfg.AnyUser && t.hooks.UserExists != nil && !t.hooks.UserExists(clean) {
		return "", types.NewValidationError("user", clean)
	}
	return clean, nil
}

// Mail stores an email address.
type Mail struct {
	BaseType
}

func newMail(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Mail{BaseType: newBase("Mail", hooks)}
	cfg, err := decodeConfig(raw, &struct{ BaseConfig }{})
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *Mail) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(clean)
	if err != nil || addr.Address != clean {
		return "", types.NewValidationError("mail", clean)
	}
	return clean, nil
}

type urlConfig struct {
	BaseConfig
	Prefix  string `json:"prefix,omitempty"`
	Postfix string `json:"postfix,omitempty"`
	// AutoScheme is prepended when the value carries no scheme.
	// Defaults to https; empty disables the completion.
	AutoScheme *string `json:"autoscheme,omitempty"`
}

// URL stores a web address. Like Text it may carry a prefix/postfix
// that participates in comparison and display.
type URL struct {
	BaseType
	cfg urlConfig
}

func newURL(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &URL{BaseType: newBase("Url", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *URL) scheme() string {
	if t.cfg.AutoScheme == nil {
		return "https"
	}
	return *t.cfg.AutoScheme
}

func (t *URL) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	if !strings.Contains(clean, "://") && t.scheme() != "" {
		clean = t.scheme() + "://" + clean
	}
	parsed, err := url.Parse(clean)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", types.NewValidationError("url", raw)
	}
	return clean, nil
}

func (t *URL) DisplayValue(raw string) string {
	if raw == "" {
		return ""
	}
	return t.cfg.Prefix + raw + t.cfg.Postfix
}

func (t *URL) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	qb.AddSelectStatement(affixExpr(tableAlias, colName, t.cfg.Prefix, t.cfg.Postfix), alias)
}

func (t *URL) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return affixFilter(grp, tableAlias, colName, t.cfg.Prefix, t.cfg.Postfix, comp, value)
}

func (t *URL) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	expr := affixExpr(tableAlias, colName, t.cfg.Prefix, t.cfg.Postfix)
	qb.AddOrderBy(fmt.Sprintf("%s COLLATE NOCASE %s", expr, direction(ascending)))
}

// AutoSummary mirrors the edit summary of the revision that created the
// row; the store fills it on save, editors never do.
type AutoSummary struct {
	BaseType
}

func newAutoSummary(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &AutoSummary{BaseType: newBase("AutoSummary", hooks)}
	cfg, err := decodeConfig(raw, &struct{ BaseConfig }{})
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}
