package agent

import (
	"context"
	"testing"

	"github.com/example/handover/internal/ports/secondary"
)

type stubAgent struct{}

func (stubAgent) Handle(ctx context.Context, msg secondary.AgentMessage) (*secondary.AgentReply, error) {
	return nil, nil
}

func TestValidTag(t *testing.T) {
	for _, tag := range []string{TagParent, TagTeacher, TagGrading} {
		if !ValidTag(tag) {
			t.Errorf("expected %s to be valid", tag)
		}
	}
	for _, tag := range []string{"", "pa", "XX", "ADMIN"} {
		if ValidTag(tag) {
			t.Errorf("expected %q to be invalid", tag)
		}
	}
}

func TestNewRegistry_DropsUnknownAndNil(t *testing.T) {
	registry := NewRegistry(map[string]secondary.OriginAgent{
		TagParent:  stubAgent{},
		TagTeacher: nil,
		"XX":       stubAgent{},
	})

	if registry.Resolve(TagParent) == nil {
		t.Error("expected PA handler to be registered")
	}
	if registry.Resolve(TagTeacher) != nil {
		t.Error("expected nil handler to be dropped")
	}
	if registry.Resolve("XX") != nil {
		t.Error("expected unknown tag to be dropped")
	}
	if len(registry.Tags()) != 1 {
		t.Errorf("expected 1 registered tag, got %d", len(registry.Tags()))
	}
}

func TestResolve_UnknownTag(t *testing.T) {
	registry := NewRegistry(nil)
	if registry.Resolve(TagGrading) != nil {
		t.Error("expected nil for unregistered tag")
	}
}
