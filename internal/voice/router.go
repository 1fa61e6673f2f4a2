package voice

import (
	"fmt"
	"strings"

	"tweet_monitor/internal/domain"
)

// Route binds a number matcher to a caller. A nil Caller marks a region
// whose provider is disabled: matching numbers are not handed to later routes.
type Route struct {
	Name   string
	Match  func(phone string) bool
	Caller Caller
}

// Router selects the caller for a phone number. Routes are tried in order.
type Router struct {
	routes []Route
}

func NewRouter(routes ...Route) *Router {
	return &Router{routes: routes}
}

// NewRegionalRouter sends numbers with a domestic prefix to domestic and
// every other number to international. Either caller may be nil.
func NewRegionalRouter(domesticPrefixes []string, domestic, international Caller) *Router {
	isDomestic := HasPrefix(domesticPrefixes)
	return NewRouter(
		Route{Name: "domestic", Match: isDomestic, Caller: domestic},
		Route{Name: "international", Match: func(p string) bool { return !isDomestic(p) }, Caller: international},
	)
}

// Route returns the caller for phone or an error wrapping domain.ErrNoRoute.
func (r *Router) Route(phone string) (Caller, error) {
	for _, route := range r.routes {
		if !route.Match(phone) {
			continue
		}
		if route.Caller == nil {
			return nil, fmt.Errorf("%w: %s provider disabled", domain.ErrNoRoute, route.Name)
		}
		return route.Caller, nil
	}
	return nil, domain.ErrNoRoute
}

// Enabled reports whether at least one route has a caller.
func (r *Router) Enabled() bool {
	for _, route := range r.routes {
		if route.Caller != nil {
			return true
		}
	}
	return false
}

// HasPrefix returns a matcher for numbers starting with any of prefixes.
func HasPrefix(prefixes []string) func(string) bool {
	return func(phone string) bool {
		phone = strings.TrimSpace(phone)
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(phone, p) {
				return true
			}
		}
		return false
	}
}

// StripPrefix removes the first matching country prefix from phone.
func StripPrefix(phone string, prefixes []string) string {
	phone = strings.TrimSpace(phone)
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(phone, p) {
			return strings.TrimPrefix(phone, p)
		}
	}
	return phone
}
