// Package router wires handlers onto the gin engine through a small
// registrar abstraction, keeping route layout out of main.
package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers a handler's routes on a group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RegistrarFunc adapts a plain function to RouteRegistrar
type RegistrarFunc func(rg *gin.RouterGroup)

// RegisterRoutes implements RouteRegistrar
func (f RegistrarFunc) RegisterRoutes(rg *gin.RouterGroup) {
	f(rg)
}

// Router splits the API into a public group and a protected group that
// carries the auth middleware chain.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	public     []RouteRegistrar
	protected  []RouteRegistrar
	authChain  []gin.HandlerFunc
}

// Option configures the router
type Option func(*Router)

// WithAPIVersion sets the version prefix, "v1" by default
func WithAPIVersion(version string) Option {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// New creates a router on the given engine
func New(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Public registers routes reachable without a token
func (r *Router) Public(registrars ...RouteRegistrar) *Router {
	r.public = append(r.public, registrars...)
	return r
}

// Protected registers routes behind the auth chain
func (r *Router) Protected(registrars ...RouteRegistrar) *Router {
	r.protected = append(r.protected, registrars...)
	return r
}

// AuthChain sets the middleware applied to every protected route
func (r *Router) AuthChain(middleware ...gin.HandlerFunc) *Router {
	r.authChain = middleware
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.public {
		registrar.RegisterRoutes(api)
	}

	guarded := api.Group("")
	guarded.Use(r.authChain...)
	for _, registrar := range r.protected {
		registrar.RegisterRoutes(guarded)
	}
}
