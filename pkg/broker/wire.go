package broker

import (
	"encoding/binary"
	"fmt"
)

// Hand-rolled length-prefixed codecs for the broker's netconn request
// payloads, the same uvarint-free length-prefix convention
// pkg/commit/pkg/verifier/pkg/orm use throughout: no protobuf, since
// these payloads are internal to this module and never need a
// generated-code toolchain to read from another language.

func appendBytesField(dst, b []byte) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(b)))
	dst = append(dst, l[:]...)
	return append(dst, b...)
}

func readBytesField(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("broker: truncated field length")
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("broker: truncated field")
	}
	return data[:n], data[n:], nil
}

func appendUint64Field(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func readUint64Field(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("broker: truncated uint64 field")
	}
	return binary.LittleEndian.Uint64(data[:8]), data[8:], nil
}

// Request kinds a netconn.Conn dispatches to Broker.Handler, and the
// encoders for their payloads — exported so cmd/ngcli can build
// requests without reaching into this package's unexported wire
// helpers.
const (
	KindAddUser         = "AddUser"
	KindRemoveUser      = "RemoveUser"
	KindListUsers       = "ListUsers"
	KindAddInvitation   = "AddInvitation"
	KindListInvitations = "ListInvitations"
	KindGetBlock        = "GetBlock"
	KindPutBlock        = "PutBlock"
)

// EncodeGetBlockRequest serialises the GetBlock actor's single
// length-prefixed id field.
func EncodeGetBlockRequest(id []byte) []byte {
	return appendBytesField(nil, id)
}

// EncodeAddUserRequest serialises the AddUser actor's request payload:
// a raw user id followed by its ed25519 public key, the same
// two-field shape the handler's readBytesField pair expects.
func EncodeAddUserRequest(userID []byte, pub []byte) []byte {
	return appendBytesField(appendBytesField(nil, userID), pub)
}

// EncodeUserIDList serialises a list of raw user ids.
func EncodeUserIDList(ids [][]byte) []byte {
	out := appendUint64Field(nil, uint64(len(ids)))
	for _, id := range ids {
		out = appendBytesField(out, id)
	}
	return out
}

// DecodeUserIDList parses EncodeUserIDList's output.
func DecodeUserIDList(data []byte) ([][]byte, error) {
	n, data, err := readUint64Field(data)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		var id []byte
		id, data, err = readBytesField(data)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
