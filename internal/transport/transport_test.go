package transport

import (
	"bytes"
	"testing"

	"github.com/keg-project/keg/internal/container"
)

func TestMessageRoundTrip(t *testing.T) {
	in := &container.RunnerMessage{
		Stage: container.Isolation(3),
		Request: container.Request{
			ShareNet: true,
			Options: []container.Directive{
				{Kind: container.KindRoBind, Src: "/usr", Dest: "/usr"},
				{Kind: container.KindSetEnv, Key: "FOO", Value: "bar"},
			},
			Command: []string{"/bin/sh", "-c", "true"},
		},
		Env: []container.EnvPair{{Key: "PATH", Value: "/usr/bin"}},
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, in); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	out, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if out.Stage != in.Stage {
		t.Errorf("stage = %v, want %v", out.Stage, in.Stage)
	}
	if len(out.Request.Options) != 2 || out.Request.Options[1].Value != "bar" {
		t.Errorf("options round-trip mismatch: %+v", out.Request.Options)
	}
	if len(out.Env) != 1 || out.Env[0].Key != "PATH" {
		t.Errorf("env round-trip mismatch: %+v", out.Env)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := &container.RunnerResponse{Pid: 12345}
	if err := WriteResponse(&buf, in); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	out, err := ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if out.Pid != in.Pid {
		t.Errorf("pid = %d, want %d", out.Pid, in.Pid)
	}
}

func TestGoAheadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGoAhead(&buf); err != nil {
		t.Fatalf("WriteGoAhead: %v", err)
	}
	if err := ReadGoAhead(&buf); err != nil {
		t.Fatalf("ReadGoAhead: %v", err)
	}
}

func TestReadMessageTruncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10, 1, 2, 3})
	if _, err := ReadMessage(buf); err == nil {
		t.Fatal("expected error decoding truncated frame")
	}
}
