package testutil

import (
	"errors"
	"os"
	"testing"
)

// Note: testing t.Errorf/t.Fatalf calls directly requires a mock testing.T
// implementation which adds complexity. These helpers are best validated
// through the packages that use them.

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("boom"))
}

func TestAssertScore(t *testing.T) {
	t.Parallel()
	AssertScore(t, 20, 3, 20, 3)
	AssertScore(t, 0, 0, 0, 0)
}

func TestWriteFixture(t *testing.T) {
	t.Parallel()

	path := WriteFixture(t, t.TempDir(), "fixture.json", []byte(`{}`))
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	if string(data) != `{}` {
		t.Errorf("fixture content = %q", data)
	}
}
