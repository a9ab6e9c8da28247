// Package guard implements the deny-by-default permission gate for admin
// controllers.
//
// Controller source is scanned once at start-up; a method passes the gate
// only if it is whitelisted or its body calls one of the permission check
// helpers. Anything the gate cannot prove protected is denied.
package guard

import (
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Inspector reports whether a method id contains a permission check.
type Inspector interface {
	Protected(id string) (bool, error)
}

// FailedInspector is installed when scanning failed. Every lookup returns
// Err, so the gate denies everything not whitelisted.
type FailedInspector struct {
	Err error
}

func (f FailedInspector) Protected(string) (bool, error) { return false, f.Err }

// Gate decides whether a controller method may run.
type Gate struct {
	whitelist Whitelist
	inspector Inspector
	log       zerolog.Logger

	mu   sync.RWMutex
	memo map[string]bool
}

// NewGate returns a Gate with an empty decision cache.
func NewGate(whitelist Whitelist, inspector Inspector, log zerolog.Logger) *Gate {
	return &Gate{
		whitelist: whitelist,
		inspector: inspector,
		log:       log,
		memo:      make(map[string]bool),
	}
}

// Handle reports whether controller.method may run.
func (g *Gate) Handle(controller, method string) bool {
	return g.Allowed(Normalize(controller, method))
}

// Allowed reports whether the method id may run. Decisions, denials
// included, are cached for the life of the gate.
func (g *Gate) Allowed(id string) bool {
	if id == "" {
		return false
	}
	if g.whitelist.Contains(id) {
		return true
	}

	g.mu.RLock()
	allowed, ok := g.memo[id]
	g.mu.RUnlock()
	if ok {
		return allowed
	}

	protected, err := g.inspector.Protected(id)
	if err != nil {
		// Fail closed: an unknown or unreadable method is treated as
		// having no permission check.
		g.log.Warn().Err(err).Str("method", id).Msg("permission check detection failed, denying")
		protected = false
	}

	g.mu.Lock()
	g.memo[id] = protected
	g.mu.Unlock()
	return protected
}

// Normalize turns a controller name (short, qualified, or pointer receiver
// as printed by the runtime) and a method into "ShortName@Method".
func Normalize(controller, method string) string {
	name := controller
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(", "", ")", "", "*", "").Replace(name)
	if name == "" || method == "" {
		return ""
	}
	return name + "@" + method
}

// MethodID derives "ShortName@Method" from a method value such as
// ctrl.Index. It returns "" for plain functions and closures.
func MethodID(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return ""
	}
	// e.g. example.com/app/internal/api/admin.(*ReportsController).Export-fm
	name := fn.Name()
	if !strings.HasSuffix(name, "-fm") {
		return ""
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	// drop the package name
	i := strings.Index(name, ".")
	if i < 0 {
		return ""
	}
	name = strings.NewReplacer("(", "", ")", "", "*", "").Replace(name[i+1:])

	dot := strings.LastIndex(name, ".")
	if dot <= 0 || dot == len(name)-1 {
		return ""
	}
	return Normalize(name[:dot], name[dot+1:])
}
