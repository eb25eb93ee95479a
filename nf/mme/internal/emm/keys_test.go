package emm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// TestDeriveKeNBRequiresKASME checks spec §4.4: "No derivation occurs
// unless a valid K_ASME is present."
func TestDeriveKeNBRequiresKASME(t *testing.T) {
	sc := &uectx.SecurityContext{}
	err := DeriveKeNB(sc)
	assert.ErrorIs(t, err, ErrNoKASME)
	assert.Equal(t, [32]byte{}, sc.KeNB)
}

func TestDeriveNHRequiresKASME(t *testing.T) {
	sc := &uectx.SecurityContext{}
	err := DeriveNH(sc)
	assert.ErrorIs(t, err, ErrNoKASME)
}

// TestKeyDerivationChain exercises K_eNB/NH derivation and the NCC
// chaining invariant (spec §3/§4.4): NCC increments monotonically mod 8
// across successive NH derivations.
func TestKeyDerivationChain(t *testing.T) {
	sc := &uectx.SecurityContext{ULCount: 42}
	sc.SetKASME([32]byte{0xaa, 0xbb, 0xcc})

	require.NoError(t, DeriveKeNB(sc))
	assert.NotEqual(t, [32]byte{}, sc.KeNB)

	require.NoError(t, DeriveNH(sc))
	assert.NotEqual(t, [32]byte{}, sc.NH)
	assert.Equal(t, uint8(1), sc.NCC)

	prevNH := sc.NH
	for i := uint8(2); i <= 8; i++ {
		require.NoError(t, NextNH(sc))
		assert.NotEqual(t, prevNH, sc.NH, "each hop must derive distinct key material")
		prevNH = sc.NH
		assert.Equal(t, i%8, sc.NCC, "NCC must increment monotonically modulo 8")
	}
}

// TestDeriveKeNBDeterministic checks the KDF is a pure function of its
// inputs: same K_ASME and UL-count must reproduce the same K_eNB.
func TestDeriveKeNBDeterministic(t *testing.T) {
	sc1 := &uectx.SecurityContext{ULCount: 7}
	sc1.SetKASME([32]byte{1, 2, 3, 4})
	sc2 := &uectx.SecurityContext{ULCount: 7}
	sc2.SetKASME([32]byte{1, 2, 3, 4})

	require.NoError(t, DeriveKeNB(sc1))
	require.NoError(t, DeriveKeNB(sc2))
	assert.Equal(t, sc1.KeNB, sc2.KeNB)

	sc3 := &uectx.SecurityContext{ULCount: 8}
	sc3.SetKASME([32]byte{1, 2, 3, 4})
	require.NoError(t, DeriveKeNB(sc3))
	assert.NotEqual(t, sc1.KeNB, sc3.KeNB, "UL-count must be folded into K_eNB derivation")
}
