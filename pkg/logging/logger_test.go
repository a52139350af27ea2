package logging

import (
	"testing"
)

func TestNewDoesNotPanicOnUnknownLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "verbose", ""} {
		if l := New(level); l == nil || l.Logger == nil {
			t.Fatalf("New(%q) returned an unusable logger", level)
		}
	}
}

func TestComponentReturnsIndependentChild(t *testing.T) {
	parent := Default()
	child := parent.Component("wizard")

	if child == parent || child.Logger == parent.Logger {
		t.Fatalf("Component must return a child, not the receiver")
	}
	// Parent stays usable after deriving children.
	parent.Info("parent still works")
	child.Info("child works")
}
