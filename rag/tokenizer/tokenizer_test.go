package tokenizer

import (
	"errors"
	"testing"
)

func TestSimpleCountTokens(t *testing.T) {
	cases := map[string]int{
		"":                          0,
		"HANA memory":               2,
		"[Page 3 | HANA Database]":  7,
		"Severity: CRITICAL\n\n2.1": 6,
	}
	for in, want := range cases {
		if got := (Simple{}).CountTokens(in); got != want {
			t.Fatalf("CountTokens(%q) = %d, want %d", in, got, want)
		}
	}
}

type fixed int

func (f fixed) CountTokens(string) int { return int(f) }

func TestFallback(t *testing.T) {
	if _, ok := Fallback(fixed(3), errors.New("offline")).(Simple); !ok {
		t.Fatal("expected Simple on error")
	}
	if got := Fallback(fixed(3), nil).CountTokens("x"); got != 3 {
		t.Fatalf("expected primary counter, got %d", got)
	}
}
