package checker_test

import (
	"testing"

	"github.com/hazz-dev/reachprobe/internal/checker"
)

func TestNew_UnknownType(t *testing.T) {
	_, err := checker.New("ftp", checker.Options{})
	if err == nil {
		t.Fatal("expected error for unknown checker type, got nil")
	}
}

func TestNew_KnownTypes(t *testing.T) {
	for _, kind := range []string{"tcp", "http"} {
		c, err := checker.New(kind, checker.Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
		if c == nil {
			t.Fatalf("New(%q) returned nil checker", kind)
		}
	}
}

func TestStatusConstants(t *testing.T) {
	if checker.StatusUp != "up" {
		t.Errorf("StatusUp should be 'up', got %q", checker.StatusUp)
	}
	if checker.StatusDown != "down" {
		t.Errorf("StatusDown should be 'down', got %q", checker.StatusDown)
	}
}
