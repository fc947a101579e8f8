package container

import "testing"

func TestCleanupAfterStage0(t *testing.T) {
	r := &Request{
		KeepEnv:      true,
		BaseImage:    "/some/image",
		HasBaseImage: true,
		Options: []Directive{
			{Kind: KindSetEnv, Key: "FOO", Value: "bar"},
			{Kind: KindRoBind, Src: "/usr", Dest: "/usr"},
			{Kind: KindUnsetEnv, Key: "BAZ"},
			{Kind: KindBind, Src: "/home/me", Dest: "/home/me"},
			{Kind: KindDir, Dest: "/tmp/x"},
		},
	}
	CleanupAfterStage0(r)

	if r.KeepEnv {
		t.Error("KeepEnv not cleared")
	}
	if r.BaseImage != "" || r.HasBaseImage {
		t.Error("BaseImage not cleared")
	}
	if len(r.Options) != 3 {
		t.Fatalf("expected 3 surviving directives, got %d: %+v", len(r.Options), r.Options)
	}
	if r.Options[0].Kind != KindRoBind || r.Options[0].Src != BindPlaceholder(0) {
		t.Errorf("first bind not placeholder-rewritten: %+v", r.Options[0])
	}
	if r.Options[1].Kind != KindBind || r.Options[1].Src != BindPlaceholder(1) {
		t.Errorf("second bind not placeholder-rewritten: %+v", r.Options[1])
	}
	if r.Options[2].Kind != KindDir {
		t.Errorf("dir directive should survive untouched: %+v", r.Options[2])
	}
}

func TestClearNftRules(t *testing.T) {
	r := &Request{NetNftRules: []byte("table inet filter {}")}
	ClearNftRules(r)
	if r.NetNftRules != nil {
		t.Error("NetNftRules not cleared")
	}
}

func TestForMounting(t *testing.T) {
	r := &Request{
		ShareNet:                 true,
		KeepEnv:                  true,
		Options:                  []Directive{{Kind: KindRoBind, Src: "/a", Dest: "/a"}},
		UnshareUser:              &UnshareUser{UID: 1000, GID: 1000},
		CommandBeforeUnshareUser: []string{"/bin/mount-overlay"},
		Command:                  []string{"/bin/sh"},
	}
	out := ForMounting(r)

	if out.ShareNet || out.KeepEnv || out.Options != nil {
		t.Errorf("ForMounting must drop everything but unshare_user/command fields: %+v", out)
	}
	if out.UnshareUser == nil || out.UnshareUser.UID != 1000 {
		t.Errorf("UnshareUser not carried: %+v", out.UnshareUser)
	}
	if len(out.CommandBeforeUnshareUser) != 1 || len(out.Command) != 1 {
		t.Errorf("command fields not carried: %+v", out)
	}
}

func TestRequestCloneIsDeep(t *testing.T) {
	r := &Request{
		NetNftRules: []byte{1, 2, 3},
		UnshareUser: &UnshareUser{UID: 1, GID: 2},
		Options:     []Directive{{Kind: KindDir, Dest: "/x"}},
		Command:     []string{"/bin/sh"},
	}
	c := r.Clone()
	c.NetNftRules[0] = 99
	c.UnshareUser.UID = 42
	c.Options[0].Dest = "/changed"
	c.Command[0] = "/bin/bash"

	if r.NetNftRules[0] == 99 {
		t.Error("NetNftRules shares backing array with clone")
	}
	if r.UnshareUser.UID == 42 {
		t.Error("UnshareUser shares pointer with clone")
	}
	if r.Options[0].Dest == "/changed" {
		t.Error("Options shares backing array with clone")
	}
	if r.Command[0] == "/bin/bash" {
		t.Error("Command shares backing array with clone")
	}
}

func TestStageNext(t *testing.T) {
	for n := uint8(0); n < 6; n++ {
		if got := Isolation(n).Next(); got != Isolation(n+1) {
			t.Errorf("Isolation(%d).Next() = %v, want Isolation(%d)", n, got, n+1)
		}
	}
	if got := Isolation(6).Next(); got != Mounting {
		t.Errorf("Isolation(6).Next() = %v, want Mounting", got)
	}
}
