package repo

import (
	"fmt"
	"sync"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/commit"
	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// BranchKind distinguishes the fixed branch roles spec.md section 3
// names from user-defined branches.
type BranchKind uint8

const (
	BranchRoot BranchKind = iota
	BranchStore
	BranchOverlay
	BranchMain
	BranchUserDefined
)

// Branch is identified by a public key and tracks its DAG heads
// (spec.md section 3, "Branch").
type Branch struct {
	PubKey            []byte
	Kind              BranchKind
	TopicID           []byte
	EncryptedTopicKey []byte // present for editors only
	Heads             []blockstore.ID
}

// Repository is a set of branches sharing a root-branch definition, a
// member table, optional signer capability, and a reference to the
// Store it lives in (spec.md section 3, "Repository"). Generalised
// from the teacher's ledger-backed AccessController
// (core/access_control.go) into a purely in-memory table: repository
// state here is itself the source of truth, mutated only by the
// verifier (C7) applying AddMember/RemoveMember/AddPermission
// commits, so there is no separate persistent-ledger layer to cache
// in front of.
type Repository struct {
	mu sync.RWMutex

	ID    []byte
	Store *Store

	branches map[string]*Branch       // branch pubkey (string) -> Branch
	members  map[string]Permission    // author digest (string) -> permission set
	signer   []byte                   // threshold secret share, if any
	readCap  []byte
	writeCap []byte // write-cap secret, optional
}

func New(id []byte, store *Store) *Repository {
	return &Repository{
		ID:       id,
		Store:    store,
		branches: make(map[string]*Branch),
		members:  make(map[string]Permission),
	}
}

// AddBranch registers a branch under its public key.
func (r *Repository) AddBranch(b *Branch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches[string(b.PubKey)] = b
}

// Branch looks up a branch by public key.
func (r *Repository) Branch(pubKey []byte) (*Branch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.branches[string(pubKey)]
	return b, ok
}

// AddMember grants a new member their initial permission set.
func (r *Repository) AddMember(authorDigest []byte, perm Permission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[string(authorDigest)] = perm
}

// RemoveMember revokes a member entirely.
func (r *Repository) RemoveMember(authorDigest []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, string(authorDigest))
}

// AddPermission ORs additional permission bits onto an existing
// member's set.
func (r *Repository) AddPermission(authorDigest []byte, perm Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := string(authorDigest)
	existing, ok := r.members[key]
	if !ok {
		return fmt.Errorf("%w: not a member", ngerr.ErrPermissionDenied)
	}
	r.members[key] = existing | perm
	return nil
}

// HasPermission reports whether authorDigest currently holds perm,
// including permission implied by Owner/Admin.
func (r *Repository) HasPermission(authorDigest []byte, perm Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.members[string(authorDigest)]
	return ok && p.Has(perm)
}

// SetSignerCap installs (or replaces) the repository's threshold
// signer capability share.
func (r *Repository) SetSignerCap(share []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signer = append([]byte{}, share...)
}

// Authorize implements commit.Authorizer: the author digest must
// resolve to a known member whose permission set includes what the
// commit's body kind requires (spec.md section 4.6).
func (r *Repository) Authorize(authorDigest []byte, kind commit.BodyKind) error {
	r.mu.RLock()
	p, ok := r.members[string(authorDigest)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: author is not a repository member", ngerr.ErrPermissionDenied)
	}
	if !p.Has(requiredFor(kind)) {
		return fmt.Errorf("%w: member lacks permission for %s", ngerr.ErrPermissionDenied, kind)
	}
	return nil
}

var _ commit.Authorizer = (*Repository)(nil)
