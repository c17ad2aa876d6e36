package tiktoken

import "testing"

func TestCountTokensMatchesEncode(t *testing.T) {
	tok, err := New("gpt-4o-mini")
	if err != nil {
		// encodings are downloaded on first use
		t.Skipf("encoding unavailable: %v", err)
	}
	text := "[Page 3 | 3 HANA Database | CRITICAL]\nMemory usage exceeds the limit."
	ids := tok.Encode(text)
	if got := tok.CountTokens(text); got != len(ids) || got == 0 {
		t.Fatalf("CountTokens() = %d, want %d", got, len(ids))
	}
	if tok.Decode(ids) != text {
		t.Fatalf("decode did not round trip")
	}
}
