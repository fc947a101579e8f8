package overlay

import (
	"strings"
	"testing"

	"github.com/keg-project/keg/internal/kgerr"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	cases := []string{
		"/plain/path",
		`/has\backslash`,
		"/has,comma",
		"/a/b/c",
	}
	for _, c := range cases {
		got := Unescape(escape(c))
		if got != c {
			t.Errorf("round-trip %q: got %q", c, got)
		}
	}
}

func TestGetCommand(t *testing.T) {
	argv, err := GetCommand([]string{"/lower0", "/lower1"}, "/upper", "/work", "/merged")
	if err != nil {
		t.Fatalf("GetCommand: %v", err)
	}
	if argv[0] != "/usr/bin/fuse-overlayfs" {
		t.Errorf("argv[0] = %q", argv[0])
	}
	joined := strings.Join(argv, " ")
	if !strings.Contains(joined, "lowerdir=/lower0:/lower1") {
		t.Errorf("missing lowerdir in %q", joined)
	}
	if !strings.Contains(joined, "upperdir=/upper") || !strings.Contains(joined, "workdir=/work") {
		t.Errorf("missing upper/workdir in %q", joined)
	}
	if argv[len(argv)-1] != "/merged" {
		t.Errorf("merged target not last arg: %v", argv)
	}
}

func TestGetCommandNoLowerdirs(t *testing.T) {
	if _, err := GetCommand(nil, "/upper", "/work", "/merged"); err == nil {
		t.Fatal("expected error with no lowerdirs")
	}
}

func TestGetCommandRejectsColon(t *testing.T) {
	_, err := GetCommand([]string{"/lower:bad"}, "/upper", "/work", "/merged")
	if err == nil {
		t.Fatal("expected error for unescapable ':'")
	}
	if kgerr.KindOf(err) != kgerr.InvalidOverlayOption {
		t.Errorf("kind = %v, want InvalidOverlayOption", kgerr.KindOf(err))
	}
}
