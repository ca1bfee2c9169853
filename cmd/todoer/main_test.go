package main

import (
	"bytes"
	"strings"
	"testing"

	"todoer/internal/session"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := runCmd(t, "token", "--uid", "u1", "--email", "Owner@Example.com", "--auth-secret", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	auth, _ := session.NewAuthenticator("s3cret", nil)
	id, err := auth.Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if id.UID != "u1" || id.Email != "owner@example.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	if _, err := runCmd(t, "token", "--uid", "u1"); err == nil {
		t.Fatal("expected an error without a secret")
	}
}

func TestTokenCommandHonoursAllowList(t *testing.T) {
	t.Setenv("TODOER_AUTH_ALLOWED_EMAILS", "owner@example.com")
	if _, err := runCmd(t, "token", "--uid", "u1", "--email", "intruder@example.com", "--auth-secret", "s3cret"); err == nil {
		t.Fatal("expected a disallowed email to be refused")
	}
}
