package cors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
)

const (
	// Wildcard allows every origin without credentials.
	Wildcard = "*"

	// DefaultEnvironment is consulted when the requested environment has no entry.
	DefaultEnvironment = "development"

	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
)

// Policy maps an environment name to its ordered origin list.
type Policy map[string][]string

// FallbackMode selects the answer for an origin that matches no entry.
type FallbackMode int

const (
	// FallbackFirstOrigin echoes the environment's first configured origin.
	// Browsers then refuse the response because it names a different origin.
	FallbackFirstOrigin FallbackMode = iota
	// FallbackDeny omits Access-Control-Allow-Origin entirely.
	FallbackDeny
)

func (m FallbackMode) String() string {
	switch m {
	case FallbackFirstOrigin:
		return "first-origin"
	case FallbackDeny:
		return "deny"
	default:
		return fmt.Sprintf("FallbackMode(%d)", int(m))
	}
}

// Headers is the outcome of resolving one request origin.
type Headers struct {
	AllowOrigin      string
	AllowCredentials bool
	// Matched is false when AllowOrigin came from the fallback.
	Matched bool
}

// Apply writes the headers onto h. Nothing is written when AllowOrigin is empty.
func (r Headers) Apply(h http.Header) {
	if r.AllowOrigin == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", r.AllowOrigin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	if r.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if r.AllowOrigin != Wildcard {
		h.Add("Vary", "Origin")
	}
}

type entry struct {
	origin  string
	pattern glob.Glob
}

func (e entry) matches(origin string) bool {
	if e.pattern != nil {
		return e.pattern.Match(origin)
	}
	return e.origin == origin
}

type environment struct {
	wildcard bool
	entries  []entry
}

// Resolver answers origin checks against a compiled Policy.
type Resolver struct {
	envs     map[string]environment
	fallback FallbackMode
}

// NewResolver compiles p. The policy must define DefaultEnvironment and every
// environment must list at least one origin.
func NewResolver(p Policy, fallback FallbackMode) (*Resolver, error) {
	if _, ok := p[DefaultEnvironment]; !ok {
		return nil, fmt.Errorf("cors policy has no %q entry", DefaultEnvironment)
	}
	if fallback != FallbackFirstOrigin && fallback != FallbackDeny {
		return nil, errors.New("unknown cors fallback mode")
	}

	envs := make(map[string]environment, len(p))
	for name, origins := range p {
		if len(origins) == 0 {
			return nil, fmt.Errorf("cors environment %q has no origins", name)
		}
		env := environment{entries: make([]entry, 0, len(origins))}
		for _, raw := range origins {
			origin := strings.TrimSpace(raw)
			switch {
			case origin == Wildcard:
				env.wildcard = true
				env.entries = append(env.entries, entry{origin: origin})
			case strings.HasPrefix(origin, "*."):
				g, err := glob.Compile("*" + glob.QuoteMeta(origin[1:]))
				if err != nil {
					return nil, fmt.Errorf("cors environment %q: pattern %q: %w", name, origin, err)
				}
				env.entries = append(env.entries, entry{origin: origin, pattern: g})
			case origin == "":
				return nil, fmt.Errorf("cors environment %q has an empty origin", name)
			default:
				env.entries = append(env.entries, entry{origin: origin})
			}
		}
		envs[name] = env
	}
	return &Resolver{envs: envs, fallback: fallback}, nil
}

// Resolve returns the headers for a request carrying origin in the named
// environment. Unknown environments use the development entry.
func (r *Resolver) Resolve(origin, env string) Headers {
	e, ok := r.envs[env]
	if !ok {
		e = r.envs[DefaultEnvironment]
	}
	if e.wildcard {
		return Headers{AllowOrigin: Wildcard, Matched: true}
	}
	if origin != "" {
		for _, candidate := range e.entries {
			if candidate.matches(origin) {
				return Headers{AllowOrigin: origin, AllowCredentials: true, Matched: true}
			}
		}
	}
	if r.fallback == FallbackDeny {
		return Headers{}
	}
	return Headers{AllowOrigin: e.entries[0].origin, AllowCredentials: true}
}
