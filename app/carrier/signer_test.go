package carrier

import "testing"

func TestSignMatchesKnownVector(t *testing.T) {
	// sha256("key" + "secret" + "1700000000000")
	expected := "da116a5933e8b3da84d4ab509e761f7c995da019cd05647179294f46c2d0f26c"
	if got := Sign("key", "secret", "1700000000000"); got != expected {
		t.Fatalf("unexpected signature: %s", got)
	}
}

func TestSignIsLowercaseHex(t *testing.T) {
	sig := Sign("appKey", "appSecret", "1")
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	for _, r := range sig {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("unexpected character %q in signature", r)
		}
	}
}

func TestSignChangesWithTimestamp(t *testing.T) {
	if Sign("k", "s", "1") == Sign("k", "s", "2") {
		t.Fatal("signatures must differ per timestamp")
	}
}
