// Package broker implements C10, the broker surface (spec.md section
// 4.10): admin operations (add/remove user, invitations), topic
// operations (pin/subscribe/publish/sync), and block-level get/put,
// plus the per-process singleton and inter-broker routing spec.md's
// "a broker may route via another broker" describes. Grounded on the
// teacher's account/peer-directory shape (core/peer_management.go)
// and invitation handling ported from
// `original_source/ng-broker/src/server_storage.rs`'s
// `add_invitation`/`list_invitations`/`remove_invitation` trio.
package broker

import (
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// Invitation is a one-time admission code with an absolute expiry
// (the Open Question decision in DESIGN.md: "consume-once + absolute
// UTC expiry timestamp check, nothing more").
type Invitation struct {
	Code    [32]byte
	Expiry  time.Time
	Memo    string
	consumed bool
}

// AdminStore is the broker's account directory: registered users and
// outstanding invitations. Grounded on
// `original_source/ng-broker/src/server_storage.rs`'s `accounts_storage`
// field, narrowed to the in-memory map the teacher's `core/peer_management.go`
// peer directory uses rather than LMDB-backed storage (spec.md names
// no on-disk format requirement for broker account state).
type AdminStore struct {
	mu          sync.Mutex
	users       map[string]ed25519.PublicKey
	invitations map[[32]byte]*Invitation
}

func NewAdminStore() *AdminStore {
	return &AdminStore{
		users:       make(map[string]ed25519.PublicKey),
		invitations: make(map[[32]byte]*Invitation),
	}
}

// AddUser registers a user's public key under its base64url-free raw
// identity, rejecting a duplicate registration.
func (a *AdminStore) AddUser(userID []byte, pub ed25519.PublicKey) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := string(userID)
	if _, exists := a.users[key]; exists {
		return fmt.Errorf("%w: user already registered", ngerr.ErrAlreadyExists)
	}
	a.users[key] = pub
	return nil
}

// RemoveUser revokes a registered user.
func (a *AdminStore) RemoveUser(userID []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := string(userID)
	if _, exists := a.users[key]; !exists {
		return fmt.Errorf("%w: user not registered", ngerr.ErrNotFound)
	}
	delete(a.users, key)
	return nil
}

// ListUsers returns every currently registered user id.
func (a *AdminStore) ListUsers() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]byte, 0, len(a.users))
	for k := range a.users {
		out = append(out, []byte(k))
	}
	return out
}

// AddInvitation records a new invitation code with its expiry and
// memo, rejecting a code already on file.
func (a *AdminStore) AddInvitation(code [32]byte, expiry time.Time, memo string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.invitations[code]; exists {
		return fmt.Errorf("%w: invitation already exists", ngerr.ErrAlreadyExists)
	}
	a.invitations[code] = &Invitation{Code: code, Expiry: expiry, Memo: memo}
	return nil
}

// ListInvitations returns every invitation not yet consumed, expired
// ones included (callers decide whether to surface those).
func (a *AdminStore) ListInvitations() []Invitation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Invitation, 0, len(a.invitations))
	for _, inv := range a.invitations {
		if inv.consumed {
			continue
		}
		out = append(out, *inv)
	}
	return out
}

// RemoveInvitation deletes an invitation outright (an admin
// revocation, distinct from consumption by use).
func (a *AdminStore) RemoveInvitation(code [32]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.invitations[code]; !exists {
		return fmt.Errorf("%w: invitation not found", ngerr.ErrNotFound)
	}
	delete(a.invitations, code)
	return nil
}

// ConsumeInvitation redeems code for use, a one-shot operation: a
// second call with the same code fails even before expiry, and an
// expired code fails regardless of prior use (spec.md's documented
// invitation semantics).
func (a *AdminStore) ConsumeInvitation(code [32]byte, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	inv, exists := a.invitations[code]
	if !exists {
		return fmt.Errorf("%w: invitation not found", ngerr.ErrNotFound)
	}
	if inv.consumed {
		return fmt.Errorf("%w: invitation already consumed", ngerr.ErrAlreadyExists)
	}
	if now.After(inv.Expiry) {
		return fmt.Errorf("%w: invitation expired", ngerr.ErrPermissionDenied)
	}
	inv.consumed = true
	return nil
}
