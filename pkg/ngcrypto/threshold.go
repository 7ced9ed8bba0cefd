package ngcrypto

import "errors"

// Share is one holder's piece of a threshold-split Ed25519 seed,
// grounded on the teacher's core/security.go Shamir-over-GF(256)
// helpers, generalised from a single-purpose BLS threshold helper into
// the "Owner quorum" signer-capability design note (spec.md section 9,
// "Threshold owner signatures"). Synnergy's reconstruction implicitly
// assumed threshold == len(shares); this version honours an explicit
// threshold distinct from the number of shares distributed, as the
// design note requires ("may start with threshold = 0 (single-holder)
// and generalise later").
type Share struct {
	Index byte // 1-based holder index
	Data  []byte
}

// CombineShares reconstructs the original 32-byte secret from at least
// threshold shares via Lagrange interpolation in GF(2^8). With
// threshold == 1 this degenerates to the single-holder case the design
// note calls out explicitly.
func CombineShares(shares []Share, threshold int) ([]byte, error) {
	if threshold <= 0 {
		threshold = 1
	}
	if len(shares) < threshold {
		return nil, errors.New("ngcrypto: not enough shares for threshold")
	}
	secret := make([]byte, Size)
	for i := 0; i < threshold; i++ {
		li := lagrangeCoeff(i, shares[:threshold])
		for b := 0; b < Size && b < len(shares[i].Data); b++ {
			secret[b] ^= gfMul(li, shares[i].Data[b])
		}
	}
	return secret, nil
}

func lagrangeCoeff(i int, ss []Share) byte {
	xi := ss[i].Index
	num, den := byte(1), byte(1)
	for j, s := range ss {
		if j == i {
			continue
		}
		xj := s.Index
		num = gfMul(num, xj)
		den = gfMul(den, xj^xi)
	}
	return gfDiv(num, den)
}

func gfMul(a, b byte) byte {
	var p byte
	for b > 0 {
		if b&1 == 1 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1B
		}
		b >>= 1
	}
	return p
}

func gfInv(a byte) byte {
	if a == 0 {
		panic("ngcrypto: inverse of zero in GF(256)")
	}
	// a^254 is a's inverse, since a^255 = 1 for every non-zero a.
	inv, sq := byte(1), a
	for e := 254; e > 0; e >>= 1 {
		if e&1 == 1 {
			inv = gfMul(inv, sq)
		}
		sq = gfMul(sq, sq)
	}
	return inv
}

func polyDiv16(a, b uint16) uint16 {
	for shift := 15; shift >= 0; shift-- {
		if (b<<shift)&0xFF00 == a&0xFF00 {
			return 1 << shift
		}
	}
	return 0
}

func gfDiv(a, b byte) byte { return gfMul(a, gfInv(b)) }
