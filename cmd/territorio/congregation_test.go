package main

import (
	"strings"
	"testing"
)

func TestCongregationCmds(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, "db", "migrate", "-c", cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	out, err := run(t, "congregation", "create", "-c", cfg, "--name", "Central", "--number", "12")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, `Created congregation 12 "Central"`) {
		t.Errorf("create output = %q", out)
	}

	if _, err := run(t, "cong", "create", "-c", cfg, "--name", "Outra", "--number", "12"); err == nil {
		t.Error("expected error for duplicate number")
	}

	out, err = run(t, "congregation", "bind", "-c", cfg, "--number", "12",
		"--instance", "central", "--api-key", "k1", "--group", "120363@g.us")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !strings.Contains(out, "Instance: central") || !strings.Contains(out, "Group:    120363@g.us") {
		t.Errorf("bind output = %q", out)
	}

	if _, err := run(t, "congregation", "bind", "-c", cfg, "--number", "99", "--instance", "x"); err == nil {
		t.Error("expected error binding unknown congregation")
	}
}

func TestCongregationCreate_RequiresFlags(t *testing.T) {
	_, err := run(t, "congregation", "create", "-c", writeConfig(t))
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("err = %v, want required flag error", err)
	}
}
