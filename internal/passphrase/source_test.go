package passphrase

import "testing"

func TestGetReadsEnvironmentVariable(t *testing.T) {
	t.Setenv("FEEDD_TEST_PASSPHRASE", "correct horse")

	src := NewSource("FEEDD_TEST_PASSPHRASE")
	value, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "correct horse" {
		t.Fatalf("unexpected passphrase %q", value)
	}
}

func TestGetRejectsBlankEnvironmentValue(t *testing.T) {
	t.Setenv("FEEDD_TEST_PASSPHRASE", "   ")

	src := NewSource("FEEDD_TEST_PASSPHRASE")
	if _, err := src.Get(); err == nil {
		t.Fatal("expected error for whitespace-only passphrase")
	}
}

func TestGetCachesFirstResolution(t *testing.T) {
	t.Setenv("FEEDD_TEST_PASSPHRASE", "first")

	src := NewSource("FEEDD_TEST_PASSPHRASE")
	if _, err := src.Get(); err != nil {
		t.Fatalf("get: %v", err)
	}

	t.Setenv("FEEDD_TEST_PASSPHRASE", "second")
	value, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "first" {
		t.Fatalf("expected cached value, got %q", value)
	}
}
