// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertScore checks a segment/multiplier pair against the expected values.
func AssertScore(t *testing.T, gotSegment, gotMultiplier, wantSegment, wantMultiplier int) {
	t.Helper()
	if gotSegment != wantSegment || gotMultiplier != wantMultiplier {
		t.Errorf("score = %dx%d, want %dx%d", gotSegment, gotMultiplier, wantSegment, wantMultiplier)
	}
}

// WriteFixture writes a test fixture file into dir and returns its path.
func WriteFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
