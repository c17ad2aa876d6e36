package env

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("EWA_TEST_STRING", "  value ")
	if got := String("EWA_TEST_STRING", "def"); got != "value" {
		t.Fatalf("unexpected %q", got)
	}
	if got := String("EWA_TEST_UNSET", "def"); got != "def" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("EWA_TEST_INT", "7")
	if got, err := Int("EWA_TEST_INT", 1); err != nil || got != 7 {
		t.Fatalf("got %d, %v", got, err)
	}
	t.Setenv("EWA_TEST_INT", "seven")
	if _, err := Int("EWA_TEST_INT", 1); err == nil {
		t.Fatal("expected parse error")
	}
	if got, _ := Int("EWA_TEST_UNSET", 3); got != 3 {
		t.Fatalf("expected default, got %d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("EWA_TEST_BOOL", "true")
	if got, err := Bool("EWA_TEST_BOOL", false); err != nil || !got {
		t.Fatalf("got %v, %v", got, err)
	}
	t.Setenv("EWA_TEST_BOOL", "maybe")
	if _, err := Bool("EWA_TEST_BOOL", false); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("EWA_TEST_DURATION", "90")
	if got, err := Duration("EWA_TEST_DURATION", 0); err != nil || got != 90*time.Second {
		t.Fatalf("got %v, %v", got, err)
	}
	t.Setenv("EWA_TEST_DURATION", "1m30s")
	if got, err := Duration("EWA_TEST_DURATION", 0); err != nil || got != 90*time.Second {
		t.Fatalf("got %v, %v", got, err)
	}
	t.Setenv("EWA_TEST_DURATION", "soon")
	if _, err := Duration("EWA_TEST_DURATION", 0); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("EWA_TEST_FLOAT", "0.25")
	if got, err := Float("EWA_TEST_FLOAT", 1); err != nil || got != 0.25 {
		t.Fatalf("unexpected %v %v", got, err)
	}
	t.Setenv("EWA_TEST_FLOAT", "warm")
	if _, err := Float("EWA_TEST_FLOAT", 0); err == nil {
		t.Fatal("expected parse error")
	}
}
