package netconn

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flynn/noise"
)

const maxFrameSize = 16 * 1024 * 1024

// ProtocolMessage is spec.md section 4.9's typed frame: a message ID
// linking request to response, a string type tag standing in for the
// Rust enum variant, and the variant's own encoded payload — kept
// opaque here since the actor table, not the framer, knows how to
// decode each kind.
type ProtocolMessage struct {
	ID      uint64
	Kind    string
	Payload []byte
}

func encodeFrame(m ProtocolMessage) []byte {
	var out []byte
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], m.ID)
	out = append(out, id[:]...)
	out = appendString(out, m.Kind)
	out = appendString(out, string(m.Payload))
	return out
}

func decodeFrame(data []byte) (ProtocolMessage, error) {
	if len(data) < 8 {
		return ProtocolMessage{}, fmt.Errorf("netconn: truncated frame header")
	}
	id := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	kind, data, err := readString(data)
	if err != nil {
		return ProtocolMessage{}, err
	}
	payload, _, err := readString(data)
	if err != nil {
		return ProtocolMessage{}, err
	}
	return ProtocolMessage{ID: id, Kind: kind, Payload: []byte(payload)}, nil
}

func appendString(dst []byte, s string) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(s)))
	dst = append(dst, l[:]...)
	return append(dst, s...)
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("netconn: truncated string length")
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return "", nil, fmt.Errorf("netconn: truncated string")
	}
	return string(data[:n]), data[n:], nil
}

// Framer reads and writes length-delimited ProtocolMessages over an
// io.ReadWriter, encrypting every non-handshake frame under the
// session's Noise cipher states once the handshake completes
// (spec.md section 4.9, "Framing").
type Framer struct {
	rw   io.ReadWriter
	send *noise.CipherState
	recv *noise.CipherState
}

func NewFramer(rw io.ReadWriter, result *HandshakeResult) *Framer {
	return &Framer{rw: rw, send: result.Send, recv: result.Recv}
}

func (f *Framer) WriteMessage(m ProtocolMessage) error {
	plain := encodeFrame(m)
	cipher, err := f.send.Encrypt(nil, nil, plain)
	if err != nil {
		return fmt.Errorf("netconn: encrypt frame: %w", err)
	}
	return writeLengthDelimited(f.rw, cipher)
}

func (f *Framer) ReadMessage() (ProtocolMessage, error) {
	cipher, err := readLengthDelimited(f.rw)
	if err != nil {
		return ProtocolMessage{}, err
	}
	plain, err := f.recv.Decrypt(nil, nil, cipher)
	if err != nil {
		return ProtocolMessage{}, fmt.Errorf("netconn: decrypt frame: %w", err)
	}
	return decodeFrame(plain)
}

func writeLengthDelimited(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("netconn: frame too large: %d bytes", len(data))
	}
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(data)))
	if _, err := w.Write(l[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readLengthDelimited(r io.Reader) ([]byte, error) {
	var l [4]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(l[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("netconn: frame too large: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
