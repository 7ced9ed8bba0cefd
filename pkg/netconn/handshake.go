// Package netconn implements C9, the connection FSM and actor
// framework (spec.md section 4.9): a Noise-encrypted link between two
// brokers or a broker and a client, framed typed-message dispatch,
// and a cancellable request/response/stream actor table. Grounded on
// the teacher's connection-lifecycle shape (core/connection_pool.go's
// pooled-dial/release pattern, core/module_plugin.go's opcode
// registrar) generalised from a plain TCP pool to a handshaking,
// framed, multiplexed link.
package netconn

import (
	"crypto/rand"
	"fmt"

	"github.com/flynn/noise"
)

// Variant selects the post-handshake actor set a link exposes
// (spec.md section 4.9: "each selects a different post-handshake
// actor set").
type Variant uint8

const (
	VariantClient Variant = iota // end user authenticating directly
	VariantCore                  // broker-to-broker
	VariantApp                   // end-user app
	VariantAdmin
)

func (v Variant) String() string {
	switch v {
	case VariantClient:
		return "client"
	case VariantCore:
		return "core"
	case VariantApp:
		return "app"
	case VariantAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ServerHello is a responder nonce message: a random nonce for this
// session. newServerHello builds one; no handshake step or dial
// function in this package sends it.
type ServerHello struct {
	Nonce [32]byte
}

func newServerHello() (ServerHello, error) {
	var sh ServerHello
	if _, err := rand.Read(sh.Nonce[:]); err != nil {
		return ServerHello{}, fmt.Errorf("netconn: generate server nonce: %w", err)
	}
	return sh, nil
}

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2b)

// HandshakeResult carries the two directional cipher states a
// completed Noise XK handshake produces, and the peer's static public
// key (the authenticated identity for this link).
type HandshakeResult struct {
	Send, Recv *noise.CipherState
	PeerStatic []byte
}

// Handshaker drives one side of a Noise XK handshake (the responder's
// static key is known to the initiator ahead of time — it is how a
// client authenticates which broker it's talking to, spec.md section
// 4.9's "Noise XK"). A client opens with message 1, the broker
// replies with message 2 (no ServerHello nonce is sent), and the client's
// third message — the one spec.md calls out by name, "Noise3" —
// carries its own static key and, for Core/App links, the first
// request piggy-backed in the same ciphertext.
type Handshaker struct {
	hs        *noise.HandshakeState
	initiator bool
}

// NewInitiator starts a client-side handshake against a known
// responder static public key.
func NewInitiator(staticKeypair noise.DHKey, responderPublic []byte) (*Handshaker, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXK,
		Initiator:     true,
		StaticKeypair: staticKeypair,
		PeerStatic:    responderPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("netconn: init initiator handshake: %w", err)
	}
	return &Handshaker{hs: hs, initiator: true}, nil
}

// NewResponder starts a broker-side handshake with its own long-lived
// static keypair.
func NewResponder(staticKeypair noise.DHKey) (*Handshaker, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXK,
		Initiator:     false,
		StaticKeypair: staticKeypair,
	})
	if err != nil {
		return nil, fmt.Errorf("netconn: init responder handshake: %w", err)
	}
	return &Handshaker{hs: hs}, nil
}

// Step1 produces the initiator's first message ("e, es").
func (h *Handshaker) Step1() ([]byte, error) {
	out, _, _, err := h.hs.WriteMessage(nil, nil)
	return out, err
}

// Step1Read consumes the initiator's first message on the responder
// side.
func (h *Handshaker) Step1Read(msg []byte) error {
	_, _, _, err := h.hs.ReadMessage(nil, msg)
	return err
}

// Step2 produces the responder's second message ("e, ee").
func (h *Handshaker) Step2() ([]byte, error) {
	out, _, _, err := h.hs.WriteMessage(nil, nil)
	return out, err
}

// Step2Read consumes the responder's second message on the initiator
// side.
func (h *Handshaker) Step2Read(msg []byte) error {
	_, _, _, err := h.hs.ReadMessage(nil, msg)
	return err
}

// Step3 produces the initiator's third message ("s, se"), spec.md's
// Noise3, optionally piggy-backing the first request's plaintext
// payload (Core/App links only) as additional ciphertext appended by
// the handshake library.
func (h *Handshaker) Step3(payload []byte) (*HandshakeResult, []byte, error) {
	out, cs1, cs2, err := h.hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("netconn: write noise3: %w", err)
	}
	return h.finish(cs1, cs2), out, nil
}

// Step3Read consumes the initiator's third message on the responder
// side, completing the handshake, and returns any piggy-backed
// payload.
func (h *Handshaker) Step3Read(msg []byte) (*HandshakeResult, []byte, error) {
	payload, cs1, cs2, err := h.hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, fmt.Errorf("netconn: read noise3: %w", err)
	}
	return h.finish(cs1, cs2), payload, nil
}

func (h *Handshaker) finish(cs1, cs2 *noise.CipherState) *HandshakeResult {
	peer := h.hs.PeerStatic()
	if h.initiator {
		return &HandshakeResult{Send: cs1, Recv: cs2, PeerStatic: peer}
	}
	return &HandshakeResult{Send: cs2, Recv: cs1, PeerStatic: peer}
}
