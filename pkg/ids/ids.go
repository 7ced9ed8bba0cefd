// Package ids implements the identifier display and URI conventions
// from spec.md section 6: base64url-without-padding for keys/IDs/
// hashes, and the `did:ng:` URI scheme for embedding them.
package ids

import (
	"encoding/base64"
	"fmt"
	"strings"
)

var enc = base64.RawURLEncoding

// Encode renders raw bytes (an ID, key or hash) as base64url without
// padding.
func Encode(b []byte) string { return enc.EncodeToString(b) }

// Decode inverts Encode.
func Decode(s string) ([]byte, error) { return enc.DecodeString(s) }

// FileCapability renders a file read capability as
// did:ng:j:<base64url-id>:k:<base64url-key>, the example spec.md
// section 6 gives verbatim.
func FileCapability(id, key []byte) string {
	return fmt.Sprintf("did:ng:j:%s:k:%s", Encode(id), Encode(key))
}

// ParseFileCapability inverts FileCapability.
func ParseFileCapability(nuri string) (id, key []byte, err error) {
	const prefix = "did:ng:j:"
	if !strings.HasPrefix(nuri, prefix) {
		return nil, nil, fmt.Errorf("ids: not a did:ng file capability: %q", nuri)
	}
	rest := strings.TrimPrefix(nuri, prefix)
	parts := strings.SplitN(rest, ":k:", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("ids: malformed did:ng file capability: %q", nuri)
	}
	id, err = Decode(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("ids: decode id: %w", err)
	}
	key, err = Decode(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("ids: decode key: %w", err)
	}
	return id, key, nil
}

// Nuri is a minimal NextGraph URI: a target, plus optional object,
// branch, access keys and locator fields (spec.md GLOSSARY, "Nuri").
// The core only needs to construct and compare them, not resolve a
// locator against a live network, so fields beyond Target/Object/
// Branch are opaque strings carried verbatim.
type Nuri struct {
	Target  string
	Object  string
	Branch  string
	Keys    []string
	Locator string
}

func (n Nuri) String() string {
	var b strings.Builder
	b.WriteString("did:ng:o:")
	b.WriteString(n.Target)
	if n.Object != "" {
		b.WriteString(":v:")
		b.WriteString(n.Object)
	}
	if n.Branch != "" {
		b.WriteString(":b:")
		b.WriteString(n.Branch)
	}
	for _, k := range n.Keys {
		b.WriteString(":k:")
		b.WriteString(k)
	}
	if n.Locator != "" {
		b.WriteString(":l:")
		b.WriteString(n.Locator)
	}
	return b.String()
}
