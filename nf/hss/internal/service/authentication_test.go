package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openepc/mme/nf/hss/internal/crypto"
)

func testService(t *testing.T) *AuthenticationService {
	t.Helper()
	k, err := crypto.HexToBytes("465b5ce8b199b49faa5f0a2ee238a6bc")
	require.NoError(t, err)
	op, err := crypto.HexToBytes("cdc202d5123e20f62b6d676ac72cb318")
	require.NoError(t, err)
	opc, err := crypto.ComputeOPc(k, op)
	require.NoError(t, err)

	subs := []Subscriber{{IMSI: "001010000000001", K: k, OPc: opc}}
	return NewAuthenticationService("001", "01", subs, zap.NewNop())
}

func TestAuthenticationInformationRequest_UnknownSubscriber(t *testing.T) {
	svc := testService(t)
	_, err := svc.AuthenticationInformationRequest("001010000099999", nil)
	require.Error(t, err)
	var unknown ErrUnknownSubscriber
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "001010000099999", unknown.IMSI)
}

func TestAuthenticationInformationRequest_ProducesVector(t *testing.T) {
	svc := testService(t)
	v, err := svc.AuthenticationInformationRequest("001010000000001", nil)
	require.NoError(t, err)

	assert.Len(t, v.RAND, 16)
	assert.Len(t, v.AUTN, 16)
	assert.Len(t, v.XRES, 8)
	assert.NotEqual(t, [32]byte{}, v.KASME)
}

// TestAuthenticationInformationRequest_SQNAdvancesEachCall verifies each
// AIR call consumes a fresh SQN, so consecutive vectors for the same
// subscriber differ.
func TestAuthenticationInformationRequest_SQNAdvancesEachCall(t *testing.T) {
	svc := testService(t)
	v1, err := svc.AuthenticationInformationRequest("001010000000001", nil)
	require.NoError(t, err)
	v2, err := svc.AuthenticationInformationRequest("001010000000001", nil)
	require.NoError(t, err)

	assert.NotEqual(t, v1.RAND, v2.RAND, "RAND is randomized per call")
	assert.NotEqual(t, v1.AUTN, v2.AUTN, "AUTN must change as SQN advances")
}

// TestAuthenticationInformationRequest_ResyncOnAUTS verifies supplying a
// resynchronization token jumps the stored SQN forward before the next
// vector is produced, so the subsequent vector differs even with a fixed
// RAND.
func TestAuthenticationInformationRequest_ResyncOnAUTS(t *testing.T) {
	svc := testService(t)
	sub := svc.subscribers["001010000000001"]

	before := sub.sqn
	_, err := svc.AuthenticationInformationRequest("001010000000001", []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	assert.Greater(t, sub.sqn, before+1, "a resync must fast-forward SQN beyond the normal +1 increment")
}

func TestUpdateLocation(t *testing.T) {
	svc := testService(t)
	require.NoError(t, svc.UpdateLocation("001010000000001"))

	err := svc.UpdateLocation("no-such-imsi")
	var unknown ErrUnknownSubscriber
	require.ErrorAs(t, err, &unknown)
}
