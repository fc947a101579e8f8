package container

import (
	"errors"
	"testing"
)

func TestExitCodeOfPropagatesError(t *testing.T) {
	code, err := exitCodeOf(nil, errors.New("boom"))
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
}

func TestExitCodeOfNilStateNoError(t *testing.T) {
	code, err := exitCodeOf(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 1 {
		t.Errorf("code = %d, want 1 for a missing process state", code)
	}
}

func TestDispatchUnknownStage(t *testing.T) {
	_, err := Dispatch(Stage{Kind: "bogus"}, &Request{}, nil)
	if err == nil {
		t.Fatal("expected error for unknown stage kind")
	}
}
