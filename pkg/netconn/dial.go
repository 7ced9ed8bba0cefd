package netconn

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/flynn/noise"
	"github.com/sirupsen/logrus"

	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// GenerateStaticKeypair produces a fresh long-lived Noise static
// keypair, the one cmd/ngbroker persists to disk as its identity and
// cmd/ngcli pins as a responder's known public key.
func GenerateStaticKeypair() (noise.DHKey, error) {
	kp, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return noise.DHKey{}, ngerr.Wrap(err, "netconn: generate static keypair")
	}
	return kp, nil
}

// StaticKeypairFromPrivate reconstructs a DHKey from a previously
// persisted 32-byte Curve25519 scalar, deriving the matching public
// key the same way the noise library's GenerateKeypair does.
func StaticKeypairFromPrivate(private []byte) (noise.DHKey, error) {
	if len(private) != 32 {
		return noise.DHKey{}, fmt.Errorf("netconn: static private key must be 32 bytes, got %d", len(private))
	}
	var kp noise.DHKey
	kp.Private = append([]byte(nil), private...)
	kp.Public = noise.DH25519.DH(kp.Private, curve25519Basepoint)
	return kp, nil
}

// curve25519Basepoint is the standard Curve25519 base point (9,
// little-endian), used to recompute a public key from a persisted
// private scalar without re-running key generation.
var curve25519Basepoint = []byte{9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// DialClient performs the initiator side of the Noise XK handshake
// over an already-connected transport and wraps the result into an
// established Conn. responderPublic is the broker's known static
// public key (pinned ahead of time, per spec.md section 4.9).
func DialClient(rw io.ReadWriteCloser, variant Variant, staticKeypair noise.DHKey, responderPublic []byte, handler Handler, log *logrus.Logger) (*Conn, error) {
	hs, err := NewInitiator(staticKeypair, responderPublic)
	if err != nil {
		return nil, err
	}
	msg1, err := hs.Step1()
	if err != nil {
		return nil, ngerr.Wrap(err, "netconn: write noise1")
	}
	if err := writeLengthDelimited(rw, msg1); err != nil {
		return nil, ngerr.Wrap(err, "netconn: send noise1")
	}
	msg2, err := readLengthDelimited(rw)
	if err != nil {
		return nil, ngerr.Wrap(err, "netconn: read noise2")
	}
	if err := hs.Step2Read(msg2); err != nil {
		return nil, ngerr.Wrap(err, "netconn: read noise2")
	}
	result, msg3, err := hs.Step3(nil)
	if err != nil {
		return nil, err
	}
	if err := writeLengthDelimited(rw, msg3); err != nil {
		return nil, ngerr.Wrap(err, "netconn: send noise3")
	}
	return NewConn(variant, rw, result, handler, log), nil
}

// AcceptServer performs the responder side of the Noise XK handshake
// over an accepted transport and wraps the result into an established
// Conn. staticKeypair is the broker's own long-lived identity.
func AcceptServer(rw io.ReadWriteCloser, variant Variant, staticKeypair noise.DHKey, handler Handler, log *logrus.Logger) (*Conn, error) {
	hs, err := NewResponder(staticKeypair)
	if err != nil {
		return nil, err
	}
	msg1, err := readLengthDelimited(rw)
	if err != nil {
		return nil, ngerr.Wrap(err, "netconn: read noise1")
	}
	if err := hs.Step1Read(msg1); err != nil {
		return nil, ngerr.Wrap(err, "netconn: read noise1")
	}
	msg2, err := hs.Step2()
	if err != nil {
		return nil, ngerr.Wrap(err, "netconn: write noise2")
	}
	if err := writeLengthDelimited(rw, msg2); err != nil {
		return nil, ngerr.Wrap(err, "netconn: send noise2")
	}
	msg3, err := readLengthDelimited(rw)
	if err != nil {
		return nil, ngerr.Wrap(err, "netconn: read noise3")
	}
	result, _, err := hs.Step3Read(msg3)
	if err != nil {
		return nil, err
	}
	return NewConn(variant, rw, result, handler, log), nil
}
