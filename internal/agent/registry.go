// Package agent holds the closed origin-agent enumeration and the registry
// mapping agent tags to live handler instances.
package agent

import "github.com/example/handover/internal/ports/secondary"

// Origin agent tags. A closed set: the registry rejects anything else at
// construction time.
const (
	TagParent  = "PA"
	TagTeacher = "TA"
	TagGrading = "GA"
)

// ValidTag reports whether tag names a known origin agent type.
func ValidTag(tag string) bool {
	switch tag {
	case TagParent, TagTeacher, TagGrading:
		return true
	}
	return false
}

// Registry is a static mapping from agent tag to handler. It is populated
// once at startup and never mutated afterwards, so reads need no locking.
type Registry struct {
	handlers map[string]secondary.OriginAgent
}

// NewRegistry builds a registry from the given handlers. Entries with
// unknown tags or nil handlers are dropped.
func NewRegistry(handlers map[string]secondary.OriginAgent) *Registry {
	r := &Registry{handlers: make(map[string]secondary.OriginAgent, len(handlers))}
	for tag, h := range handlers {
		if ValidTag(tag) && h != nil {
			r.handlers[tag] = h
		}
	}
	return r
}

// Resolve returns the handler for a tag, or nil if the tag is unknown or no
// handler was registered for it.
func (r *Registry) Resolve(agentTag string) secondary.OriginAgent {
	return r.handlers[agentTag]
}

// Tags returns the tags with registered handlers.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	return tags
}

// Ensure Registry implements the interface
var _ secondary.AgentRegistry = (*Registry)(nil)
