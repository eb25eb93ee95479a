package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// DeriveKASME computes K_ASME = KDF(CK || IK, SN-id || SQN xor AK) per TS
// 33.401 Annex A.2. The S6a interface delivers CK/IK/AK from MILENAGE but
// not K_ASME itself (that derivation is EPS-specific, not part of the
// MILENAGE algorithm set), so the HSS performs this last step locally
// before handing the vector to the MME.
func DeriveKASME(ck, ik, sqnXorAK []byte, servingNetworkID []byte) [32]byte {
	key := make([]byte, 0, len(ck)+len(ik))
	key = append(key, ck...)
	key = append(key, ik...)

	h := hmac.New(sha256.New, key)
	h.Write([]byte{0x10}) // FC = 0x10, "K_ASME derivation function"
	h.Write(servingNetworkID)
	var snLen [2]byte
	binary.BigEndian.PutUint16(snLen[:], uint16(len(servingNetworkID)))
	h.Write(snLen[:])
	h.Write(sqnXorAK)
	var sqnLen [2]byte
	binary.BigEndian.PutUint16(sqnLen[:], uint16(len(sqnXorAK)))
	h.Write(sqnLen[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ServingNetworkID builds the TS 24.301 PLMN-ID octet string (3 octets,
// MNC padded with 0xF when only two digits) used as the K_ASME KDF's
// serving-network-identity input.
func ServingNetworkID(mcc, mnc string) []byte {
	if len(mnc) == 2 {
		mnc = mnc + "F"
	}
	id := make([]byte, 3)
	id[0] = digitPair(mcc[1], mcc[0])
	id[1] = digitPair(mnc[2], mcc[2])
	id[2] = digitPair(mnc[1], mnc[0])
	return id
}

func digitPair(hi, lo byte) byte {
	return (toDigit(hi) << 4) | toDigit(lo)
}

func toDigit(b byte) byte {
	if b < '0' || b > '9' {
		return 0x0F
	}
	return b - '0'
}
