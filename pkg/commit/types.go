// Package commit implements C3, the commit/DAG model (spec.md section
// 4.3): building, loading and verifying signed commits, and the
// deps/acks/nacks/refs causal graph they form.
package commit

import "github.com/nextgraph-core/ng/pkg/blockstore"

// BodyKind tags the payload kind a commit carries (spec.md section
// 4.7's dispatch list).
type BodyKind uint8

const (
	BodyRootBranch BodyKind = iota
	BodyBranch
	BodyAddBranch
	BodyAddMember
	BodyRemoveMember
	BodyAddPermission
	BodyRepository
	BodySyncSignature
	BodyAsyncSignature
	BodyAddSignerCap
	BodyAddFile
	BodyRemoveFile
	BodySnapshot
	BodyCompact
	BodyTransaction
)

func (k BodyKind) String() string {
	switch k {
	case BodyRootBranch:
		return "RootBranch"
	case BodyBranch:
		return "Branch"
	case BodyAddBranch:
		return "AddBranch"
	case BodyAddMember:
		return "AddMember"
	case BodyRemoveMember:
		return "RemoveMember"
	case BodyAddPermission:
		return "AddPermission"
	case BodyRepository:
		return "Repository"
	case BodySyncSignature:
		return "SyncSignature"
	case BodyAsyncSignature:
		return "AsyncSignature"
	case BodyAddSignerCap:
		return "AddSignerCap"
	case BodyAddFile:
		return "AddFile"
	case BodyRemoveFile:
		return "RemoveFile"
	case BodySnapshot:
		return "Snapshot"
	case BodyCompact:
		return "Compact"
	case BodyTransaction:
		return "Transaction"
	default:
		return "Unknown"
	}
}

// QuorumType declares how a commit is authorised (spec.md section 4.3).
type QuorumType uint8

const (
	QuorumNoSigning QuorumType = iota
	QuorumIamTheSignature
	QuorumOwners
	QuorumPartialOrder
	QuorumTotalOrder
)

func (q QuorumType) String() string {
	switch q {
	case QuorumNoSigning:
		return "NoSigning"
	case QuorumIamTheSignature:
		return "IamTheSignature"
	case QuorumOwners:
		return "Owners"
	case QuorumPartialOrder:
		return "PartialOrder"
	case QuorumTotalOrder:
		return "TotalOrder"
	default:
		return "Unknown"
	}
}

// requiresSignatureObject reports whether this quorum type requires a
// Signature object to be attached to the commit.
func (q QuorumType) requiresSignatureObject() bool {
	switch q {
	case QuorumOwners, QuorumPartialOrder, QuorumTotalOrder:
		return true
	default:
		return false
	}
}

// Header carries a commit's causal-graph vectors (spec.md section 3,
// "Commit"). Stored as its own object so commits deep in the DAG can
// share a header.
type Header struct {
	Deps  []blockstore.ID // causal past
	Acks  []blockstore.ID // causal acknowledgements
	Nacks []blockstore.ID // optional
	Refs  []blockstore.ID // attached files
}

// Commit is a signed record referencing a header and a body (spec.md
// section 3). The commit object's own root block is encrypted under
// the key Build returns alongside the commit's reference;
// HeaderKey/BodyKey unlock the header and body objects it
// references, mirroring the object assembler's parent-holds-child-key
// design (pkg/object).
type Commit struct {
	Author       []byte // content-addressed digest: hash(author pubkey || overlay id)
	Branch       []byte // branch public key
	Seq          uint64
	HeaderRef    blockstore.ID
	HeaderKey    [32]byte
	BodyRef      blockstore.ID
	BodyKey      [32]byte
	BodyKind     BodyKind
	QuorumType   QuorumType
	SignatureRef blockstore.ID // optional: attached threshold Signature object
	Metadata     []byte
	Sig          []byte // author's Ed25519 signature over the fields above
}
