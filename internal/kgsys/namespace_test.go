package kgsys

import "testing"

func TestWriteIDMapLine(t *testing.T) {
	cases := map[uint32]string{
		0:    "0 0 1\n",
		1000: "1000 0 1\n",
	}
	for id, want := range cases {
		if got := WriteIDMapLine(id); got != want {
			t.Errorf("WriteIDMapLine(%d) = %q, want %q", id, got, want)
		}
	}
}
