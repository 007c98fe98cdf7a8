package config

import "testing"

func TestParseEnv(t *testing.T) {
	type testEnv struct {
		Addr  string `env:"ANKWATA_TEST_ADDR"`
		Limit int    `env:"ANKWATA_TEST_LIMIT"`
	}

	t.Setenv("ANKWATA_TEST_ADDR", ":8080")
	t.Setenv("ANKWATA_TEST_LIMIT", "5")

	var cfg testEnv
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.Limit != 5 {
		t.Fatalf("limit = %d, want 5", cfg.Limit)
	}
}

func TestParseEnvInvalidValue(t *testing.T) {
	type testEnv struct {
		Limit int `env:"ANKWATA_TEST_LIMIT"`
	}

	t.Setenv("ANKWATA_TEST_LIMIT", "not-a-number")

	var cfg testEnv
	if err := ParseEnv(&cfg); err == nil {
		t.Fatal("expected error for non-numeric int value")
	}
}
