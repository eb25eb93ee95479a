package sgsap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/nf/mme/internal/emm"
)

var _ emm.SGsAP = (*Adapter)(nil)

func TestAdapter_AllMethodsSucceed(t *testing.T) {
	a := New("127.0.0.1:29118", zap.NewNop())
	ue := uectx.NewUEContext()
	ue.Lock()
	ue.IMSI = "001010000000005"
	ue.Unlock()

	ctx := t.Context()
	require.NoError(t, a.DetachIndication(ctx, ue))
	require.NoError(t, a.UplinkUnitdata(ctx, ue, []byte{0xAA}))
	require.NoError(t, a.MOCSFBIndication(ctx, ue))
	require.NoError(t, a.ServiceRequest(ctx, ue, "mobile-originating"))
	require.NoError(t, a.TMSIReallocationComplete(ctx, ue))
	require.NoError(t, a.UEUnreachable(ctx, ue, "ue-not-reachable"))
}
