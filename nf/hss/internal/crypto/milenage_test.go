package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) (k, op []byte) {
	t.Helper()
	k, err := HexToBytes("465b5ce8b199b49faa5f0a2ee238a6bc")
	require.NoError(t, err)
	op, err = HexToBytes("cdc202d5123e20f62b6d676ac72cb318")
	require.NoError(t, err)
	return k, op
}

func TestComputeOPc_RejectsWrongLengths(t *testing.T) {
	_, err := ComputeOPc(make([]byte, 8), make([]byte, 16))
	assert.Error(t, err)
	_, err = ComputeOPc(make([]byte, 16), make([]byte, 8))
	assert.Error(t, err)
}

func TestComputeOPc_Deterministic(t *testing.T) {
	k, op := testKeys(t)
	opc1, err := ComputeOPc(k, op)
	require.NoError(t, err)
	opc2, err := ComputeOPc(k, op)
	require.NoError(t, err)
	assert.Equal(t, opc1, opc2)
	assert.Len(t, opc1, 16)
}

func TestGenerateAuthVector_ValidatesInputLengths(t *testing.T) {
	k, op := testKeys(t)
	opc, err := ComputeOPc(k, op)
	require.NoError(t, err)

	rand16 := make([]byte, 16)
	sqn6 := make([]byte, 6)
	amf2 := []byte{0x80, 0x00}

	_, err = GenerateAuthVector(make([]byte, 4), opc, rand16, sqn6, amf2)
	assert.Error(t, err, "short K must be rejected")

	_, err = GenerateAuthVector(k, opc, make([]byte, 4), sqn6, amf2)
	assert.Error(t, err, "short RAND must be rejected")

	_, err = GenerateAuthVector(k, opc, rand16, make([]byte, 2), amf2)
	assert.Error(t, err, "short SQN must be rejected")
}

// TestGenerateAuthVector_Deterministic confirms the vector is a pure
// function of its inputs, and that AUTN folds in SQN xor AK and the MAC
// as TS 33.102 §6.3.2 specifies.
func TestGenerateAuthVector_Deterministic(t *testing.T) {
	k, op := testKeys(t)
	opc, err := ComputeOPc(k, op)
	require.NoError(t, err)

	rand16 := make([]byte, 16)
	for i := range rand16 {
		rand16[i] = byte(i)
	}
	sqn := []byte{0, 0, 0, 0, 0, 1}
	amf := []byte{0x80, 0x00}

	v1, err := GenerateAuthVector(k, opc, rand16, sqn, amf)
	require.NoError(t, err)
	v2, err := GenerateAuthVector(k, opc, rand16, sqn, amf)
	require.NoError(t, err)

	assert.Equal(t, v1.XRES, v2.XRES)
	assert.Equal(t, v1.CK, v2.CK)
	assert.Equal(t, v1.IK, v2.IK)
	assert.Equal(t, v1.AK, v2.AK)
	assert.Equal(t, v1.AUTN, v2.AUTN)
	assert.Len(t, v1.AUTN, 16)
	assert.Len(t, v1.XRES, 8)
	assert.Len(t, v1.CK, 16)
	assert.Len(t, v1.IK, 16)
	assert.Len(t, v1.AK, 6)

	// AMF is carried in AUTN octets 6-7 unmodified.
	assert.Equal(t, amf, v1.AUTN[6:8])

	// A different RAND must move every output.
	rand2 := make([]byte, 16)
	rand2[0] = 0xFF
	v3, err := GenerateAuthVector(k, opc, rand2, sqn, amf)
	require.NoError(t, err)
	assert.NotEqual(t, v1.XRES, v3.XRES)
}

func TestHexRoundTrip(t *testing.T) {
	b, err := HexToBytes("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", BytesToHex(b))
}
