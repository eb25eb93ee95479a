package s1ap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/nf/mme/internal/emm"
)

// A compile-time check that Adapter actually satisfies what the FSM
// expects from its S1AP port.
var _ emm.S1AP = (*Adapter)(nil)

func TestAdapter_AllMethodsSucceed(t *testing.T) {
	a := New(zap.NewNop())
	ue := uectx.NewUEContext()
	ue.Lock()
	ue.IMSI = "001010000000001"
	ue.Unlock()

	ctx := t.Context()
	require.NoError(t, a.InitialContextSetupRequest(ctx, ue))
	require.NoError(t, a.UEContextModificationRequest(ctx, ue))
	require.NoError(t, a.Paging(ctx, ue))
	require.NoError(t, a.DownlinkNASTransport(ctx, ue, []byte{0x01, 0x02}))
	require.NoError(t, a.ErrorIndication(ctx, ue, "radio-network-unspecified"))
	require.NoError(t, a.UEContextRelease(ctx, ue))
	require.NoError(t, a.ReleaseAccessBearer(ctx, ue))
}
