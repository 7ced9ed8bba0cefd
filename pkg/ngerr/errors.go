// Package ngerr defines the error taxonomy shared by every NextGraph
// component: Input, Authorisation, Storage, Causality, Network, Protocol
// and Timeout/Cancellation kinds (spec section 7). Call sites wrap a
// sentinel with fmt.Errorf("%w") so callers can still errors.Is/errors.As
// while getting a human message.
package ngerr

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of error categories surfaced to callers.
type Kind uint8

const (
	KindInput Kind = iota
	KindAuthorisation
	KindStorage
	KindCausality
	KindNetwork
	KindProtocol
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindAuthorisation:
		return "authorisation"
	case KindStorage:
		return "storage"
	case KindCausality:
		return "causality"
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Sentinels. Each belongs to exactly one Kind, checked with Is below.
var (
	ErrMalformed        = errors.New("malformed serialisation")
	ErrInvalidIRI        = errors.New("invalid IRI")
	ErrInvalidKey        = errors.New("invalid key or signature format")
	ErrUnknownVariant    = errors.New("unknown enum variant")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrQuorumMismatch    = errors.New("quorum mismatch")
	ErrBadSignature      = errors.New("bad signature")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrCorruption        = errors.New("corruption")
	ErrHashMismatch      = errors.New("content address mismatch")
	ErrBackendFailure    = errors.New("storage backend failure")
	ErrMissingDep        = errors.New("missing dep commit")
	ErrDAGCycle          = errors.New("dag cycle")
	ErrTransportClosed   = errors.New("transport closed")
	ErrHandshakeFailed   = errors.New("handshake failed")
	ErrDecryption        = errors.New("decryption failed")
	ErrNonceReuse        = errors.New("nonce reuse")
	ErrUnexpectedMessage = errors.New("unexpected message in current state")
	ErrActorCollision    = errors.New("actor id collision")
	ErrStreamOutOfOrder  = errors.New("stream out of order")
	ErrRequestTimeout    = errors.New("request timed out")
	ErrConnectionClosing = errors.New("connection closing")
)

// kindOf maps a sentinel to its taxonomy Kind, used by Is.
var kindOf = map[error]Kind{
	ErrMalformed:         KindInput,
	ErrInvalidIRI:        KindInput,
	ErrInvalidKey:        KindInput,
	ErrUnknownVariant:    KindInput,
	ErrPermissionDenied:  KindAuthorisation,
	ErrQuorumMismatch:    KindAuthorisation,
	ErrBadSignature:      KindAuthorisation,
	ErrNotFound:          KindStorage,
	ErrAlreadyExists:     KindStorage,
	ErrCorruption:        KindStorage,
	ErrHashMismatch:      KindStorage,
	ErrBackendFailure:    KindStorage,
	ErrMissingDep:        KindCausality,
	ErrDAGCycle:          KindCausality,
	ErrTransportClosed:   KindNetwork,
	ErrHandshakeFailed:   KindNetwork,
	ErrDecryption:        KindNetwork,
	ErrNonceReuse:        KindNetwork,
	ErrUnexpectedMessage: KindProtocol,
	ErrActorCollision:    KindProtocol,
	ErrStreamOutOfOrder:  KindProtocol,
	ErrRequestTimeout:    KindTimeout,
	ErrConnectionClosing: KindTimeout,
}

// KindOf reports which taxonomy Kind a wrapped error belongs to, walking
// the error chain to find the first recognised sentinel.
func KindOf(err error) (Kind, bool) {
	for sentinel, k := range kindOf {
		if errors.Is(err, sentinel) {
			return k, true
		}
	}
	return 0, false
}

// Wrap adds context to err, returning nil if err is nil. Generalises the
// teacher's pkg/utils.Wrap to chain with %w so sentinels survive.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// MissingBlocks is the retriable causality error carrying the list of
// block IDs the caller must fetch before retrying the operation.
type MissingBlocks struct {
	IDs []string
}

func (m *MissingBlocks) Error() string {
	return fmt.Sprintf("missing %d block(s)", len(m.IDs))
}

// ServerError is the closed enum of wire-visible result codes (spec
// section 7, "User-visible behaviour").
type ServerError string

const (
	ServerErrNotFound         ServerError = "NotFound"
	ServerErrAccessDenied     ServerError = "AccessDenied"
	ServerErrSequenceMismatch ServerError = "SequenceMismatch"
	ServerErrInvalidHeader    ServerError = "InvalidHeader"
	ServerErrDatasetError     ServerError = "OxiGraphError"
	ServerErrInvalidNuri      ServerError = "InvalidNuri"
	ServerErrNetError         ServerError = "NetError"
	ServerErrProtocolError    ServerError = "ProtocolError"
)

func (e ServerError) Error() string { return string(e) }

// ToServerError maps an internal error to the closed wire enum, falling
// back to ProtocolError for anything unrecognised.
func ToServerError(err error) ServerError {
	var mb *MissingBlocks
	if errors.As(err, &mb) {
		return ServerErrNotFound
	}
	k, ok := KindOf(err)
	if !ok {
		return ServerErrProtocolError
	}
	switch k {
	case KindStorage:
		return ServerErrNotFound
	case KindAuthorisation:
		return ServerErrAccessDenied
	case KindProtocol:
		return ServerErrProtocolError
	case KindNetwork:
		return ServerErrNetError
	case KindInput:
		return ServerErrInvalidNuri
	default:
		return ServerErrProtocolError
	}
}
