package broker

import (
	"crypto/ed25519"
	"time"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/netconn"
)

// Handler returns the Variant-selected actor set this broker exposes
// over a netconn.Conn (spec.md section 4.9: "each selects a different
// post-handshake actor set"). The user and invitation kinds are
// answered only on Admin links; GetBlock/PutBlock are answered on
// every variant. Topic operations (subscribe, publish, sync) are not
// dispatched here; any other kind gets a ProtocolError reply.
func (b *Broker) Handler(variant netconn.Variant) netconn.Handler {
	return func(kind string, payload []byte) <-chan netconn.ActorReply {
		out := make(chan netconn.ActorReply, 1)
		go b.serve(variant, kind, payload, out)
		return out
	}
}

func (b *Broker) serve(variant netconn.Variant, kind string, payload []byte, out chan<- netconn.ActorReply) {
	defer close(out)

	adminOnly := func() bool { return variant == netconn.VariantAdmin }

	switch kind {
	case "AddUser":
		if !adminOnly() {
			out <- errReply(netconn.ResultAccessDenied, "AddUser requires an admin link")
			return
		}
		userID, rest, err := readBytesField(payload)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		pubBytes, _, err := readBytesField(rest)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		if err := b.Admin.AddUser(userID, ed25519.PublicKey(pubBytes)); err != nil {
			out <- errReply(netconn.ResultNotFound, err.Error())
			return
		}
		out <- netconn.ActorReply{Code: netconn.ResultOK}

	case "RemoveUser":
		if !adminOnly() {
			out <- errReply(netconn.ResultAccessDenied, "RemoveUser requires an admin link")
			return
		}
		userID, _, err := readBytesField(payload)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		if err := b.Admin.RemoveUser(userID); err != nil {
			out <- errReply(netconn.ResultNotFound, err.Error())
			return
		}
		out <- netconn.ActorReply{Code: netconn.ResultOK}

	case "ListUsers":
		if !adminOnly() {
			out <- errReply(netconn.ResultAccessDenied, "ListUsers requires an admin link")
			return
		}
		out <- netconn.ActorReply{Code: netconn.ResultOK, Payload: EncodeUserIDList(b.Admin.ListUsers())}

	case "AddInvitation":
		if !adminOnly() {
			out <- errReply(netconn.ResultAccessDenied, "AddInvitation requires an admin link")
			return
		}
		code, rest, err := readBytesField(payload)
		if err != nil || len(code) != 32 {
			out <- errReply(netconn.ResultProtocolError, "malformed invitation code")
			return
		}
		expiryUnix, rest, err := readUint64Field(rest)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		memo, _, err := readBytesField(rest)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		var codeArr [32]byte
		copy(codeArr[:], code)
		if err := b.Admin.AddInvitation(codeArr, time.Unix(int64(expiryUnix), 0), string(memo)); err != nil {
			out <- errReply(netconn.ResultNotFound, err.Error())
			return
		}
		out <- netconn.ActorReply{Code: netconn.ResultOK}

	case "ListInvitations":
		if !adminOnly() {
			out <- errReply(netconn.ResultAccessDenied, "ListInvitations requires an admin link")
			return
		}
		for _, inv := range b.Admin.ListInvitations() {
			out <- netconn.ActorReply{Code: netconn.ResultPartialContent, Payload: appendBytesField(nil, inv.Code[:])}
		}
		out <- netconn.ActorReply{Code: netconn.ResultEndOfStream}

	case "GetBlock":
		idBytes, _, err := readBytesField(payload)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		id, err := blockstore.IDFromRawBytes(idBytes)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		blk, err := b.GetBlock(id)
		if err != nil {
			out <- errReply(netconn.ResultNotFound, err.Error())
			return
		}
		out <- netconn.ActorReply{Code: netconn.ResultOK, Payload: blk.Serialise()}

	case "PutBlock":
		blk, err := blockstore.DeserialiseBlock(payload)
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		id, err := b.PutBlock(blk, blockstore.ID{})
		if err != nil {
			out <- errReply(netconn.ResultProtocolError, err.Error())
			return
		}
		out <- netconn.ActorReply{Code: netconn.ResultOK, Payload: id.Bytes()}

	default:
		out <- errReply(netconn.ResultProtocolError, "unknown actor kind "+kind)
	}
}

func errReply(code netconn.ResultCode, msg string) netconn.ActorReply {
	return netconn.ActorReply{Code: code, Payload: []byte(msg)}
}
