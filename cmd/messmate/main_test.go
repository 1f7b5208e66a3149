package main

import "testing"

func TestDefaultAddr(t *testing.T) {
	t.Setenv("MESSMATE_ADDR", "")
	if got := defaultAddr(); got != "http://localhost:8000/api" {
		t.Fatalf("defaultAddr = %q", got)
	}
	t.Setenv("MESSMATE_ADDR", "https://mess.campus.test/api")
	if got := defaultAddr(); got != "https://mess.campus.test/api" {
		t.Fatalf("defaultAddr with env = %q", got)
	}
}

func TestRequirements_CoverKnownCommandsOnly(t *testing.T) {
	for name := range requirements {
		if _, ok := commands[name]; !ok {
			t.Fatalf("requirement declared for unknown command %q", name)
		}
	}
	// Read-only student commands need a session but no role gate.
	for _, name := range []string{"whoami", "slots", "messes", "bookings", "coupons", "notifications"} {
		if _, ok := requirements[name]; ok {
			t.Fatalf("command %q must not carry a role requirement", name)
		}
		if _, ok := commands[name]; !ok {
			t.Fatalf("command %q missing from dispatch table", name)
		}
	}
}
