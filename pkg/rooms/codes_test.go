package rooms

import (
	"strings"
	"testing"
)

func TestRandomCode(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := randomCode()
		if len(code) != CodeLength {
			t.Fatalf("expected code of length %d, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Fatalf("code %q contains %q, which is not in the alphabet", code, r)
			}
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc234", "ABC234"},
		{"  ABC234 ", "ABC234"},
		{"AbC234", "ABC234"},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateUniqueCode_Exhaustion(t *testing.T) {
	_, err := generateUniqueCode(func(string) bool { return true })
	if err == nil {
		t.Fatal("expected an error when every code is taken")
	}
	if !IsCodeSpaceExhausted(err) {
		t.Errorf("expected a code space exhausted error, got %v", err)
	}
}
