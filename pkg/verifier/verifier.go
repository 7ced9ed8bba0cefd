package verifier

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/commit"
	"github.com/nextgraph-core/ng/pkg/ngerr"
	"github.com/nextgraph-core/ng/pkg/object"
	"github.com/nextgraph-core/ng/pkg/repo"
)

// ApplyResult is the delta produced by applying one commit, handed to
// C8 (pkg/orm) to update tracked objects and emit JSON patches.
type ApplyResult struct {
	Inserted []Triple
	Removed  []Triple
	Discrete []DiscreteOp
}

// Verifier orchestrates commit apply across one or more repositories
// (spec.md section 4.7). It owns the block store, the object
// assembler used to load commit/header/body objects, a directory of
// author signing keys (member tables track permissions by digest,
// never by public key, so the verifier is where the identity behind
// a digest is resolved), and the dataset commits write triples into.
type Verifier struct {
	mu      sync.RWMutex
	store   *blockstore.Store
	tree    *object.Tree
	dataset Dataset

	repos   map[string]*repo.Repository
	pubkeys map[string]ed25519.PublicKey
	applied map[string]*commit.Commit // by commit id string, for SyncSignature's causal replay
}

func New(store *blockstore.Store, tree *object.Tree, dataset Dataset) *Verifier {
	return &Verifier{
		store:   store,
		tree:    tree,
		dataset: dataset,
		repos:   make(map[string]*repo.Repository),
		pubkeys: make(map[string]ed25519.PublicKey),
		applied: make(map[string]*commit.Commit),
	}
}

func (v *Verifier) RegisterRepo(id []byte, r *repo.Repository) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.repos[string(id)] = r
}

// RegisterAuthorKey records the public key behind an author digest,
// typically learned from an AddMember commit's body.
func (v *Verifier) RegisterAuthorKey(digest []byte, pub ed25519.PublicKey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pubkeys[string(digest)] = pub
}

// ResolveHeader implements commit.Resolver over the verifier's own
// applied-commit cache, so pkg/commit's DAG-cycle check and
// pkg/branchsync's causal walk can run against a verifier's view.
func (v *Verifier) ResolveHeader(id blockstore.ID) (commit.Header, error) {
	v.mu.RLock()
	c, ok := v.applied[id.String()]
	v.mu.RUnlock()
	if !ok {
		return commit.Header{}, &ngerr.MissingBlocks{IDs: []string{id.String()}}
	}
	return commit.LoadHeader(v.tree, c)
}

// missingBlocks checks that every block a commit needs is present,
// returning the full missing set as one error (spec.md section 4.7:
// "ensure all referenced blocks are present via C1, else request
// missing").
func (v *Verifier) missingBlocks(c *commit.Commit, header commit.Header) error {
	var missing []string
	for _, id := range commit.EnumerateBlocks(c, header) {
		if id.IsZero() {
			continue
		}
		ok, err := v.store.Has(id)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return &ngerr.MissingBlocks{IDs: missing}
	}
	return nil
}

// Apply verifies and applies a single commit against repoID's state
// (spec.md section 4.7 steps a-c), returning the triple/discrete-op
// delta it produced.
func (v *Verifier) Apply(repoID []byte, c *commit.Commit, commitID blockstore.ID) (*ApplyResult, error) {
	v.mu.RLock()
	r, ok := v.repos[string(repoID)]
	pub, hasKey := v.pubkeys[string(c.Author)]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("verifier: unknown repository %x", repoID)
	}
	if !hasKey {
		return nil, fmt.Errorf("verifier: unknown author key for digest %x", c.Author)
	}

	header, err := commit.LoadHeader(v.tree, c)
	if err != nil {
		return nil, err
	}
	if err := v.missingBlocks(c, header); err != nil {
		return nil, err
	}
	if err := commit.Verify(c, pub, r); err != nil {
		return nil, err
	}

	if c.BodyKind == commit.BodySyncSignature {
		if err := v.applySyncSignatureChain(repoID, header); err != nil {
			return nil, err
		}
	}

	body, err := v.tree.Load(c.BodyRef, c.BodyKey)
	if err != nil {
		return nil, err
	}

	result, err := v.dispatch(r, c, body)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.applied[commitID.String()] = c
	v.mu.Unlock()
	return result, nil
}

// applySyncSignatureChain applies every dep commit in causal order up
// to (but excluding) the SyncSignature commit's single ack, per
// spec.md section 4.7. It assumes each dep is already known to the
// verifier (synced and applied ahead of this commit, or present in
// v.applied from an earlier Apply call) — a SyncSignature commit whose
// deps are not yet locally resolvable surfaces as a missing-block
// retry, same as any other commit.
func (v *Verifier) applySyncSignatureChain(repoID []byte, header commit.Header) error {
	if len(header.Acks) != 1 {
		return fmt.Errorf("verifier: SyncSignature commit must have exactly one ack, got %d", len(header.Acks))
	}
	stopAt := header.Acks[0].String()

	visited := make(map[string]bool)
	var order []blockstore.ID
	var walk func(id blockstore.ID) error
	walk = func(id blockstore.ID) error {
		key := id.String()
		if visited[key] || key == stopAt {
			return nil
		}
		visited[key] = true
		v.mu.RLock()
		c, ok := v.applied[key]
		v.mu.RUnlock()
		if !ok {
			return &ngerr.MissingBlocks{IDs: []string{key}}
		}
		h, err := commit.LoadHeader(v.tree, c)
		if err != nil {
			return err
		}
		for _, dep := range h.Deps {
			if err := walk(dep); err != nil {
				return err
			}
		}
		order = append(order, id)
		return nil
	}
	for _, dep := range header.Deps {
		if err := walk(dep); err != nil {
			return err
		}
	}
	for _, id := range order {
		v.mu.RLock()
		c := v.applied[id.String()]
		v.mu.RUnlock()
		if c == nil {
			continue
		}
		if _, err := v.Apply(repoID, c, id); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) dispatch(r *repo.Repository, c *commit.Commit, body []byte) (*ApplyResult, error) {
	switch c.BodyKind {
	case commit.BodyTransaction:
		tx, err := DecodeTransaction(body)
		if err != nil {
			return nil, err
		}
		for _, t := range tx.Inserts {
			if err := v.dataset.Insert(t); err != nil {
				return nil, err
			}
		}
		for _, t := range tx.Removes {
			if err := v.dataset.Remove(t); err != nil {
				return nil, err
			}
		}
		return &ApplyResult{Inserted: tx.Inserts, Removed: tx.Removes}, nil

	case commit.BodyAddMember:
		digest, pub, perm, err := decodeAddMember(body)
		if err != nil {
			return nil, err
		}
		r.AddMember(digest, perm)
		v.RegisterAuthorKey(digest, pub)
		return &ApplyResult{}, nil

	case commit.BodyRemoveMember:
		r.RemoveMember(body)
		return &ApplyResult{}, nil

	case commit.BodyAddPermission:
		digest, perm, err := decodeAddPermission(body)
		if err != nil {
			return nil, err
		}
		if err := r.AddPermission(digest, perm); err != nil {
			return nil, err
		}
		return &ApplyResult{}, nil

	case commit.BodyAddSignerCap:
		r.SetSignerCap(body)
		return &ApplyResult{}, nil

	case commit.BodyRootBranch, commit.BodyBranch, commit.BodyAddBranch,
		commit.BodyRepository, commit.BodySyncSignature, commit.BodyAsyncSignature,
		commit.BodyAddFile, commit.BodyRemoveFile, commit.BodySnapshot, commit.BodyCompact:
		// These kinds mutate branch/file/head bookkeeping the repo
		// layer (C6) or a higher-level store owns; the verifier's
		// contribution is the signature/permission check and
		// missing-block gate already done above. No triple/discrete
		// delta is produced.
		return &ApplyResult{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown body kind %d", ngerr.ErrUnknownVariant, c.BodyKind)
	}
}
