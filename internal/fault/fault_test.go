package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	errBase := New(State, "already processed")

	if KindOf(errBase) != State {
		t.Errorf("KindOf = %q, want %q", KindOf(errBase), State)
	}

	wrapped := fmt.Errorf("review request 42: %w", errBase)
	if KindOf(wrapped) != State {
		t.Errorf("KindOf(wrapped) = %q, want %q", KindOf(wrapped), State)
	}
	if !errors.Is(wrapped, errBase) {
		t.Error("wrapped error should match its sentinel")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("disk on fire")) != System {
		t.Error("unclassified errors should report as System")
	}
}

func TestSentinelIdentity(t *testing.T) {
	a := New(Validation, "points must be positive")
	b := New(Validation, "points must be positive")
	if errors.Is(a, b) {
		t.Error("distinct sentinels should not match each other")
	}
}
