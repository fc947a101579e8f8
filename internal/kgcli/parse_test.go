package kgcli

import "testing"

func TestParseBind(t *testing.T) {
	args := []string{"--ro-bind", "/host/usr", "/usr", "--rest"}
	i := 0
	src, dest, err := ParseBind("--ro-bind", args, &i)
	if err != nil {
		t.Fatalf("ParseBind: %v", err)
	}
	if src != "/host/usr" || dest != "/usr" {
		t.Errorf("got (%q, %q), want (/host/usr, /usr)", src, dest)
	}
	if i != 2 {
		t.Errorf("i = %d, want 2", i)
	}
}

func TestParseBindMissingArgs(t *testing.T) {
	args := []string{"--ro-bind", "/only-one"}
	i := 0
	if _, _, err := ParseBind("--ro-bind", args, &i); err == nil {
		t.Fatal("expected error for missing second argument")
	}
}

func TestParseOne(t *testing.T) {
	args := []string{"--dir", "/scratch"}
	i := 0
	got, err := ParseOne("--dir", args, &i)
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if got != "/scratch" {
		t.Errorf("got %q, want /scratch", got)
	}
	if i != 1 {
		t.Errorf("i = %d, want 1", i)
	}
}

func TestParseOneMissingArg(t *testing.T) {
	args := []string{"--dir"}
	i := 0
	if _, err := ParseOne("--dir", args, &i); err == nil {
		t.Fatal("expected error for missing argument")
	}
}

func TestParseUint32(t *testing.T) {
	n, err := ParseUint32("1000")
	if err != nil || n != 1000 {
		t.Errorf("ParseUint32(1000) = (%d, %v)", n, err)
	}
	if _, err := ParseUint32("not-a-number"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := ParseUint32("-1"); err == nil {
		t.Error("expected error for negative id")
	}
}

func TestDefaultCommandUsesShellEnv(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/zsh")
	got := DefaultCommand()
	if len(got) != 1 || got[0] != "/usr/bin/zsh" {
		t.Errorf("DefaultCommand() = %v, want [/usr/bin/zsh]", got)
	}
}

func TestDefaultCommandFallsBackToBinSh(t *testing.T) {
	t.Setenv("SHELL", "")
	got := DefaultCommand()
	if len(got) != 1 || got[0] != "/bin/sh" {
		t.Errorf("DefaultCommand() = %v, want [/bin/sh]", got)
	}
}
