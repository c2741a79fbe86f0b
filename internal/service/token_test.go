package service

import (
	"strings"
	"testing"
)

func TestNewResumeToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewResumeToken()
		if err != nil {
			t.Fatalf("NewResumeToken: %v", err)
		}
		if len(token) < 40 {
			t.Fatalf("token too short: %q", token)
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token not URL-safe: %q", token)
		}
		if seen[token] {
			t.Fatal("duplicate token")
		}
		seen[token] = true
	}
}
