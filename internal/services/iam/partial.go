package iam

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// PartialOverride forces the permission-load mode for requests whose path
// matches Pattern (chi route syntax). An empty or "*" Method matches any method.
type PartialOverride struct {
	Pattern string
	Method  string
	Partial bool
}

// PartialPolicy decides whether a request needs only a partial permission
// load. Overrides win; otherwise GET is partial and every other method is full.
type PartialPolicy struct {
	forcePartial *chi.Mux
	forceFull    *chi.Mux
}

func noop(http.ResponseWriter, *http.Request) {}

// NewPartialPolicy compiles overrides into route matchers. When a request
// matches both a partial and a full override, the full load wins.
func NewPartialPolicy(overrides []PartialOverride) *PartialPolicy {
	p := &PartialPolicy{forcePartial: chi.NewMux(), forceFull: chi.NewMux()}
	for _, o := range overrides {
		mux := p.forceFull
		if o.Partial {
			mux = p.forcePartial
		}
		method := strings.ToUpper(strings.TrimSpace(o.Method))
		if method == "" || method == "*" {
			mux.HandleFunc(o.Pattern, noop)
			continue
		}
		mux.MethodFunc(method, o.Pattern, noop)
	}
	return p
}

// Decide returns the load mode for a request and whether an override matched.
func (p *PartialPolicy) Decide(method, requestURI string) (partial bool, overridden bool) {
	path, _, _ := strings.Cut(requestURI, "?")
	if path == "" {
		path = "/"
	}
	method = strings.ToUpper(method)

	if p.forceFull.Match(chi.NewRouteContext(), method, path) {
		return false, true
	}
	if p.forcePartial.Match(chi.NewRouteContext(), method, path) {
		return true, true
	}
	return method == http.MethodGet, false
}
