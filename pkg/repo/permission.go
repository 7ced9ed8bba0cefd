// Package repo implements C6, repository state (spec.md section 4.6):
// the branch table, member/permission table, signer capability and
// read/write capabilities of a repository, and the overlay/store
// namespace it lives in.
package repo

import "github.com/nextgraph-core/ng/pkg/commit"

// Permission is a bitmask so Owner/Admin "implies" relationships
// (spec.md section 4.6) compose with a single OR rather than a table
// of role names, generalising the teacher's string-role
// AccessController (core/access_control.go) to a fixed, closed set of
// repo capabilities.
type Permission uint16

const (
	PermOwner Permission = 1 << iota
	PermAdmin
	PermWriteAsync
	PermWriteSync
	PermRefreshWriteCap
	PermAddBranch
	PermAddMember
	PermAddPermission
	PermSnapshot
	PermCompact
	PermAddSignerCap
)

// adminDelegated is the subset of permissions Admin carries — every
// delegable capability except Owner itself and the owner-only
// signer-capability grant (spec.md section 4.6: "Owner implies all,
// Admin implies the delegated subset").
const adminDelegated = PermWriteAsync | PermWriteSync | PermRefreshWriteCap |
	PermAddBranch | PermAddMember | PermAddPermission | PermSnapshot | PermCompact

// Has reports whether the member's permission set satisfies required,
// expanding Owner to every permission and Admin to its delegated
// subset.
func (p Permission) Has(required Permission) bool {
	if p&PermOwner != 0 {
		return true
	}
	effective := p
	if p&PermAdmin != 0 {
		effective |= adminDelegated
	}
	return effective&required == required
}

// requiredFor maps a commit body kind to the permission a member must
// hold to author it (spec.md section 4.6/4.7).
func requiredFor(kind commit.BodyKind) Permission {
	switch kind {
	case commit.BodyRootBranch, commit.BodyRepository, commit.BodyAddSignerCap:
		return PermOwner
	case commit.BodyAddBranch:
		return PermAddBranch
	case commit.BodyAddMember:
		return PermAddMember
	case commit.BodyRemoveMember:
		return PermAddMember
	case commit.BodyAddPermission:
		return PermAddPermission
	case commit.BodySnapshot:
		return PermSnapshot
	case commit.BodyCompact:
		return PermCompact
	case commit.BodySyncSignature, commit.BodyAsyncSignature:
		return PermWriteAsync
	case commit.BodyBranch, commit.BodyAddFile, commit.BodyRemoveFile, commit.BodyTransaction:
		return PermWriteAsync
	default:
		return PermWriteAsync
	}
}
