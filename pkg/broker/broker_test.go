package broker

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/commit"
	"github.com/nextgraph-core/ng/pkg/object"
	"github.com/nextgraph-core/ng/pkg/repo"
	"github.com/nextgraph-core/ng/pkg/verifier"
)

type testFixture struct {
	b         *Broker
	tree      *object.Tree
	repo      *repo.Repository
	ownerPub  ed25519.PublicKey
	ownerPriv ed25519.PrivateKey
	ownerID   []byte
}

func newTestBroker(t *testing.T) *testFixture {
	t.Helper()
	store := blockstore.New(blockstore.NewMemoryBackend())
	tree := object.New(store, object.DefaultConfig())
	ds := verifier.NewMemoryDataset()
	v := verifier.New(store, tree, ds)

	rstore := repo.NewStore([]byte("root-1"), false)
	r := repo.New([]byte("repo-1"), rstore)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	digest := commit.AuthorDigest(pub, rstore.OverlayID())
	r.AddMember(digest, repo.PermOwner)
	v.RegisterAuthorKey(digest, pub)

	b := New(store, tree, v, nil)
	b.PinRepo([]byte("repo-1"), r)

	return &testFixture{b: b, tree: tree, repo: r, ownerPub: pub, ownerPriv: priv, ownerID: digest}
}

func buildCommit(t *testing.T, tree *object.Tree, author []byte, priv ed25519.PrivateKey, seq uint64, kind commit.BodyKind, body []byte) (*commit.Commit, blockstore.ID, [32]byte) {
	t.Helper()
	c, ref, key, err := commit.Build(tree, []byte("seed"), author, []byte("branch-1"), seq,
		commit.Header{}, kind, body, commit.QuorumNoSigning, blockstore.ID{}, nil, priv)
	require.NoError(t, err)
	return c, ref, key
}

func TestAdminAddRemoveListUsers(t *testing.T) {
	f := newTestBroker(t)
	userID := []byte("user-1")
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	require.NoError(t, f.b.Admin.AddUser(userID, pub))
	require.Error(t, f.b.Admin.AddUser(userID, pub))

	users := f.b.Admin.ListUsers()
	require.Len(t, users, 1)
	require.Equal(t, userID, users[0])

	require.NoError(t, f.b.Admin.RemoveUser(userID))
	require.Empty(t, f.b.Admin.ListUsers())
	require.Error(t, f.b.Admin.RemoveUser(userID))
}

func TestAdminInvitationConsumeOnceAndExpiry(t *testing.T) {
	f := newTestBroker(t)
	var code [32]byte
	copy(code[:], []byte("invitation-code-bytes-32-long!!"))

	require.NoError(t, f.b.Admin.AddInvitation(code, time.Now().Add(time.Hour), "welcome"))
	require.Len(t, f.b.Admin.ListInvitations(), 1)

	require.NoError(t, f.b.Admin.ConsumeInvitation(code, time.Now()))
	require.Error(t, f.b.Admin.ConsumeInvitation(code, time.Now()))
}

func TestAdminInvitationRejectsExpired(t *testing.T) {
	f := newTestBroker(t)
	var code [32]byte
	copy(code[:], []byte("expired-invitation-code-3233323"))

	require.NoError(t, f.b.Admin.AddInvitation(code, time.Now().Add(-time.Hour), ""))
	require.Error(t, f.b.Admin.ConsumeInvitation(code, time.Now()))
}

func TestBlockGetPutRoundTrip(t *testing.T) {
	f := newTestBroker(t)
	blk := blockstore.Block{Payload: []byte("hello block")}
	id, err := f.b.PutBlock(blk, blockstore.ID{})
	require.NoError(t, err)

	got, err := f.b.GetBlock(id)
	require.NoError(t, err)
	require.Equal(t, blk.Payload, got.Payload)
}

func TestSubscribeDeliversInitialAndCommitApplies(t *testing.T) {
	f := newTestBroker(t)
	sub, err := f.b.Subscribe([]byte("repo-1"))
	require.NoError(t, err)
	defer sub.Close()

	initial := <-sub.Deliveries
	require.True(t, initial.Initial)

	tx := verifier.GraphTransaction{Inserts: []verifier.Triple{{Subject: "s", Predicate: "p", Object: "o", Graph: "g"}}}
	c, ref, key := buildCommit(t, f.tree, f.ownerID, f.ownerPriv, 1, commit.BodyTransaction, verifier.EncodeTransaction(tx))
	result, err := f.b.applyCommitRef([]byte("repo-1"), ref, key)
	require.NoError(t, err)
	require.Len(t, result.Inserted, 1)

	// Subscribe only fans out deliveries triggered via PublishEvent; a
	// direct applyCommitRef call (as used here to avoid standing up a
	// full event/topic key exchange) does not reach subscribers. Confirm
	// the commit itself landed in the dataset instead.
	_ = c
}

func TestSubscribeAssignsDistinctID(t *testing.T) {
	f := newTestBroker(t)
	a, err := f.b.Subscribe([]byte("repo-1"))
	require.NoError(t, err)
	defer a.Close()
	b, err := f.b.Subscribe([]byte("repo-1"))
	require.NoError(t, err)
	defer b.Close()

	require.NotEqual(t, uuid.Nil, a.ID)
	require.NotEqual(t, uuid.Nil, b.ID)
	require.NotEqual(t, a.ID, b.ID)
}

func TestMetricsSourceCounters(t *testing.T) {
	f := newTestBroker(t)
	require.Equal(t, 1, f.b.PinnedRepoCount())
	require.Equal(t, 0, f.b.LiveSubscriptionCount())
	require.Equal(t, uint64(0), f.b.AppliedCommitCount())

	sub, err := f.b.Subscribe([]byte("repo-1"))
	require.NoError(t, err)
	defer sub.Close()
	require.Equal(t, 1, f.b.LiveSubscriptionCount())

	f.b.RegisterActorTable(func() int { return 3 })
	f.b.RegisterActorTable(func() int { return 4 })
	require.Equal(t, 7, f.b.InFlightActorCount())

	tx := verifier.GraphTransaction{Inserts: []verifier.Triple{{Subject: "s", Predicate: "p", Object: "o", Graph: "g"}}}
	_, ref, key := buildCommit(t, f.tree, f.ownerID, f.ownerPriv, 1, commit.BodyTransaction, verifier.EncodeTransaction(tx))
	_, err = f.b.applyCommitRef([]byte("repo-1"), ref, key)
	require.NoError(t, err)
	require.Equal(t, uint64(1), f.b.AppliedCommitCount())
}

func TestSyncBranchReturnsMissingCommits(t *testing.T) {
	f := newTestBroker(t)
	c1, ref1, _ := buildCommit(t, f.tree, f.ownerID, f.ownerPriv, 1, commit.BodyTransaction, verifier.EncodeTransaction(verifier.GraphTransaction{}))
	_ = c1

	missing := f.b.SyncBranch([]blockstore.ID{ref1}, nil)
	require.Contains(t, missing, ref1)
}
