package emm

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// ErrNoKASME is returned when a derivation is attempted without a valid
// K_ASME present — spec §4.4: "No derivation occurs unless a valid K_ASME
// is present."
var ErrNoKASME = errors.New("emm: K_ASME absent, cannot derive key material")

// kdf is the TS 33.401 Annex A KDF profile: HMAC-SHA-256 over the S
// input FC || P0 || L0 || P1 || L1 ..., each parameter followed by its
// 2-octet length, keyed by K_ASME, truncated to 256 bits.
// This is cryptographic primitive code with no ecosystem library
// equivalent in the pack (see DESIGN.md) so it is built directly on
// crypto/hmac + crypto/sha256.
func kdf(key []byte, fc byte, params ...[]byte) [32]byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte{fc})
	for _, p := range params {
		h.Write(p)
		var length [2]byte
		binary.BigEndian.PutUint16(length[:], uint16(len(p)))
		h.Write(length[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveKeNB computes K_eNB = KDF(K_ASME, UL-count) per TS 33.401 Annex
// A.3, with UL-count as a fixed-width big-endian 32-bit input.
func DeriveKeNB(sc *uectx.SecurityContext) error {
	if !sc.HasKASME() {
		return ErrNoKASME
	}
	var ulCount [4]byte
	binary.BigEndian.PutUint32(ulCount[:], sc.ULCount)
	sc.KeNB = kdf(sc.KASME[:], 0x11, ulCount[:], []byte{0x00})
	return nil
}

// DeriveNH computes NH[0] = KDF(K_ASME, K_eNB) per TS 33.401 Annex A.4,
// and sets NCC = 1 for the first hop, per spec §4.4.
func DeriveNH(sc *uectx.SecurityContext) error {
	if !sc.HasKASME() {
		return ErrNoKASME
	}
	sc.NH = kdf(sc.KASME[:], 0x12, sc.KeNB[:])
	sc.NCC = 1
	return nil
}

// NextNH derives NH[n+1] = KDF(K_ASME, NH[n]) and advances NCC modulo 8,
// per the NH-chaining invariant in spec §3.
func NextNH(sc *uectx.SecurityContext) error {
	if !sc.HasKASME() {
		return ErrNoKASME
	}
	sc.NH = kdf(sc.KASME[:], 0x12, sc.NH[:])
	sc.NCC = (sc.NCC + 1) % 8
	return nil
}
