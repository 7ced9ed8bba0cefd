package repo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/commit"
)

func TestOwnerImpliesEverything(t *testing.T) {
	require.True(t, PermOwner.Has(PermAddSignerCap))
	require.True(t, PermOwner.Has(PermWriteAsync|PermAddMember))
}

func TestAdminImpliesDelegatedSubsetOnly(t *testing.T) {
	require.True(t, PermAdmin.Has(PermWriteAsync))
	require.True(t, PermAdmin.Has(PermAddMember))
	require.False(t, PermAdmin.Has(PermAddSignerCap))
	require.False(t, PermAdmin.Has(PermOwner))
}

func TestWriteAsyncDoesNotImplyAdmin(t *testing.T) {
	require.True(t, PermWriteAsync.Has(PermWriteAsync))
	require.False(t, PermWriteAsync.Has(PermAddMember))
}

func TestAuthorizeRequiresMembership(t *testing.T) {
	store := NewStore([]byte("root-1"), false)
	r := New([]byte("repo-1"), store)

	author := []byte("author-digest")
	require.Error(t, r.Authorize(author, commit.BodyTransaction))

	r.AddMember(author, PermWriteAsync)
	require.NoError(t, r.Authorize(author, commit.BodyTransaction))
	require.Error(t, r.Authorize(author, commit.BodyAddMember))
}

func TestAdminCanAddMemberButNotGrantSignerCap(t *testing.T) {
	store := NewStore([]byte("root-1"), false)
	r := New([]byte("repo-1"), store)

	admin := []byte("admin-digest")
	r.AddMember(admin, PermAdmin)

	require.NoError(t, r.Authorize(admin, commit.BodyAddMember))
	require.Error(t, r.Authorize(admin, commit.BodyAddSignerCap))
}

func TestRemoveMemberRevokesAccess(t *testing.T) {
	store := NewStore([]byte("root-1"), false)
	r := New([]byte("repo-1"), store)
	author := []byte("author-digest")
	r.AddMember(author, PermOwner)
	require.NoError(t, r.Authorize(author, commit.BodyTransaction))

	r.RemoveMember(author)
	require.Error(t, r.Authorize(author, commit.BodyTransaction))
}

func TestPrivateStoreOverlayIDDiffersFromRoot(t *testing.T) {
	root := []byte("secret-root")
	public := NewStore(root, false)
	private := NewStore(root, true)

	require.Equal(t, root, public.OverlayID())
	require.NotEqual(t, root, private.OverlayID())
}

func TestDeriveTopicKeyDeterministic(t *testing.T) {
	a := DeriveTopicKey([]byte("wcs"), []byte("topic-1"), []byte("branch-1"))
	b := DeriveTopicKey([]byte("wcs"), []byte("topic-1"), []byte("branch-1"))
	require.Equal(t, a, b)

	c := DeriveTopicKey([]byte("wcs"), []byte("topic-2"), []byte("branch-1"))
	require.NotEqual(t, a, c)
}
