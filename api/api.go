// Package api provides HTTP handlers for the Bastion authorization engine.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/token"
)

// API wires all Bastion HTTP handlers together.
type API struct {
	eng    *bastion.Engine
	tokens *token.Service
	router forge.Router
}

// Option configures the API.
type Option func(*API)

// WithTokenService enables the token endpoints. Without it the
// /v1/tokens routes are not registered.
func WithTokenService(svc *token.Service) Option {
	return func(a *API) { a.tokens = svc }
}

// New creates an API from an Engine and a Forge router.
func New(eng *bastion.Engine, router forge.Router, opts ...Option) *API {
	a := &API{eng: eng, router: router}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("bastion: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerCheckRoutes,
		a.registerRuleRoutes,
		a.registerHierarchyRoutes,
		a.registerAssignmentRoutes,
		a.registerSubjectRoutes,
	}
	if a.tokens != nil {
		registerers = append(registerers, a.registerTokenRoutes)
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
