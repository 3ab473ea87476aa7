package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	name string
	reg  Registrar
	mws  []Middleware
}

// Registry collects route groups. Each file of this package adds its
// group from init() to the default registry.
type Registry struct {
	entries []entry
	names   map[string]struct{}
}

var defaultRegistry = &Registry{}

// Add a named registrar with optional per-group middlewares.
// A name can only be registered once.
func (g *Registry) Add(name string, reg Registrar, mws ...Middleware) {
	if g.names == nil {
		g.names = make(map[string]struct{})
	}
	if _, dup := g.names[name]; dup {
		panic(fmt.Sprintf("routes: group %q registered twice", name))
	}
	g.names[name] = struct{}{}
	g.entries = append(g.entries, entry{name: name, reg: reg, mws: mws})
}

// Mount registers every group on r, in registration order.
func (g *Registry) Mount(r chi.Router, d deps.Deps) {
	for _, e := range g.entries {
		sub := r
		if len(e.mws) > 0 {
			sub = r.With(e.mws...) // apply per-group middlewares
		}
		e.reg(sub, d)
		if d.Logger != nil {
			d.Logger.Debug("routes mounted", logger.String("group", e.name))
		}
	}
}

// Register adds a group to the default registry.
func Register(name string, reg Registrar, mws ...Middleware) {
	defaultRegistry.Add(name, reg, mws...)
}

// RegisterAll mounts the default registry. Called once from httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	defaultRegistry.Mount(r, d)
}
