// Package transport implements §4.5: length-prefixed serialization of
// RunnerMessage/RunnerResponse over the anonymous Unix stream a parent
// shares with its freshly-spawned child, plus the one-byte go-ahead
// rendezvous.
//
// The wire format only ever has to round-trip between two processes of
// the same binary build (§4.5: "must be stable across identical
// builds but need not be portable across machines"). That is exactly
// encoding/gob's design point — it is the stdlib's purpose-built
// Go-to-Go RPC codec, and is what net/rpc itself uses for this same
// kind of process-pair protocol. None of the pack's RPC codecs
// (containerd's ttrpc, gogo/protobuf) are usable here without a
// .proto/code-gen step we cannot run, so gob is used directly; this is
// the one place in the engine where the standard library is used
// ahead of a third-party library, and it is recorded as such in
// DESIGN.md.
package transport

import (
	"encoding/binary"
	"encoding/gob"
	"bytes"
	"io"

	"github.com/keg-project/keg/internal/container"
	"github.com/keg-project/keg/internal/kgerr"
)

// WriteMessage length-prefix-encodes msg and writes it to w.
func WriteMessage(w io.Writer, msg *container.RunnerMessage) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return kgerr.New("encode_runner_message", kgerr.TransportFailed, err)
	}
	return writeFramed(w, buf.Bytes())
}

// ReadMessage reads and decodes one length-prefixed RunnerMessage from r.
func ReadMessage(r io.Reader) (*container.RunnerMessage, error) {
	payload, err := readFramed(r)
	if err != nil {
		return nil, err
	}
	var msg container.RunnerMessage
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&msg); err != nil {
		return nil, kgerr.New("decode_runner_message", kgerr.TransportFailed, err)
	}
	return &msg, nil
}

// WriteResponse length-prefix-encodes resp and writes it to w.
func WriteResponse(w io.Writer, resp *container.RunnerResponse) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(resp); err != nil {
		return kgerr.New("encode_runner_response", kgerr.TransportFailed, err)
	}
	return writeFramed(w, buf.Bytes())
}

// ReadResponse reads and decodes one length-prefixed RunnerResponse from r.
func ReadResponse(r io.Reader) (*container.RunnerResponse, error) {
	payload, err := readFramed(r)
	if err != nil {
		return nil, err
	}
	var resp container.RunnerResponse
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&resp); err != nil {
		return nil, kgerr.New("decode_runner_response", kgerr.TransportFailed, err)
	}
	return &resp, nil
}

func writeFramed(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return kgerr.New("write_frame", kgerr.TransportFailed, err)
	}
	if _, err := w.Write(payload); err != nil {
		return kgerr.New("write_frame", kgerr.TransportFailed, err)
	}
	return nil
}

func readFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, kgerr.New("read_frame", kgerr.TransportFailed, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, kgerr.New("read_frame", kgerr.TransportFailed, err)
	}
	return payload, nil
}

// WriteGoAhead writes the single zero byte that releases a blocked
// child (§4.5, §4.6).
func WriteGoAhead(w io.Writer) error {
	if _, err := w.Write([]byte{0}); err != nil {
		return kgerr.New("write_go_ahead", kgerr.TransportFailed, err)
	}
	return nil
}

// ReadGoAhead blocks reading the single go-ahead byte.
func ReadGoAhead(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return kgerr.New("read_go_ahead", kgerr.TransportFailed, err)
	}
	return nil
}

// ReadOneByte blocks reading a single byte from r — used for the slirp
// ready-fd rendezvous (§4.6), which is not itself a RunnerMessage.
func ReadOneByte(r io.Reader) error {
	return ReadGoAhead(r)
}
