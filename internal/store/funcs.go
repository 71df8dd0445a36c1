package store

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"sync"

	"modernc.org/sqlite"

	"github.com/pagegrid/pagegrid/internal/wiki"
)

// binding is the process-wide host state the registered SQL functions
// read. modernc registers functions per process, not per connection, so
// the backend installs the host here and rebinds the acting user before
// queries that evaluate access.
var binding struct {
	mu   sync.RWMutex
	host wiki.Host
	user string
}

func bindHost(h wiki.Host) {
	binding.mu.Lock()
	binding.host = h
	binding.mu.Unlock()
}

func bindUser(user string) {
	binding.mu.Lock()
	binding.user = user
	binding.mu.Unlock()
}

func init() {
	// PG_JSON(pid, rid) renders the reference tuple a Lookup column
	// stores, so the join side can be computed inside SQLite.
	sqlite.MustRegisterDeterministicScalarFunction("PG_JSON", 2,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			out, err := json.Marshal([2]string{argString(args[0]), argString(args[1])})
			if err != nil {
				return nil, err
			}
			return string(out), nil
		})

	// PG_ACCESS(pid) returns 1 when the bound user may read the page.
	sqlite.MustRegisterScalarFunction("PG_ACCESS", 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			binding.mu.RLock()
			host, user := binding.host, binding.user
			binding.mu.RUnlock()
			if host == nil || host.CanRead(argString(args[0]), user) {
				return int64(1), nil
			}
			return int64(0), nil
		})

	// PG_PAGEEXISTS(pid) returns 1 when the page has stored content.
	sqlite.MustRegisterScalarFunction("PG_PAGEEXISTS", 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			binding.mu.RLock()
			host := binding.host
			binding.mu.RUnlock()
			if host == nil || host.PageExists(argString(args[0])) {
				return int64(1), nil
			}
			return int64(0), nil
		})

	// PG_CONCAT_DISTINCT(value, sep) concatenates the distinct non-null
	// values of a group, in first-seen order. SQLite's own GROUP_CONCAT
	// cannot combine DISTINCT with a separator argument.
	sqlite.MustRegisterFunction("PG_CONCAT_DISTINCT", &sqlite.FunctionImpl{
		NArgs:         2,
		Deterministic: true,
		MakeAggregate: func(ctx sqlite.FunctionContext) (sqlite.AggregateFunction, error) {
			return &concatDistinct{seen: map[string]bool{}}, nil
		},
	})
}

type concatDistinct struct {
	sep  string
	seen map[string]bool
	vals []string
}

func (c *concatDistinct) Step(ctx *sqlite.FunctionContext, args []driver.Value) error {
	if args[0] == nil {
		return nil
	}
	c.sep = argString(args[1])
	v := argString(args[0])
	if c.seen[v] {
		return nil
	}
	c.seen[v] = true
	c.vals = append(c.vals, v)
	return nil
}

func (c *concatDistinct) WindowInverse(ctx *sqlite.FunctionContext, args []driver.Value) error {
	return nil
}

func (c *concatDistinct) WindowValue(ctx *sqlite.FunctionContext) (driver.Value, error) {
	if len(c.vals) == 0 {
		return nil, nil
	}
	return strings.Join(c.vals, c.sep), nil
}

func (c *concatDistinct) Final(ctx *sqlite.FunctionContext) {}

// argString coerces a driver value to the string SQLite would produce.
func argString(v driver.Value) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		out, _ := json.Marshal(val)
		return string(out)
	}
}
