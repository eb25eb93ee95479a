package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServingNetworkID_PadsShortMNC(t *testing.T) {
	id := ServingNetworkID("001", "01")
	assert.Len(t, id, 3)

	idPadded := ServingNetworkID("001", "1F")
	assert.Len(t, idPadded, 3)
}

func TestServingNetworkID_Deterministic(t *testing.T) {
	id1 := ServingNetworkID("001", "01")
	id2 := ServingNetworkID("001", "01")
	assert.Equal(t, id1, id2)

	id3 := ServingNetworkID("002", "01")
	assert.NotEqual(t, id1, id3)
}

func TestDeriveKASME_Deterministic(t *testing.T) {
	ck := make([]byte, 16)
	ik := make([]byte, 16)
	for i := range ck {
		ck[i] = byte(i)
		ik[i] = byte(i + 16)
	}
	sqnXorAK := []byte{1, 2, 3, 4, 5, 6}
	sn := ServingNetworkID("001", "01")

	k1 := DeriveKASME(ck, ik, sqnXorAK, sn)
	k2 := DeriveKASME(ck, ik, sqnXorAK, sn)
	assert.Equal(t, k1, k2)

	otherSQN := []byte{1, 2, 3, 4, 5, 7}
	k3 := DeriveKASME(ck, ik, otherSQN, sn)
	assert.NotEqual(t, k1, k3, "SQN xor AK must be folded into K_ASME")
}
