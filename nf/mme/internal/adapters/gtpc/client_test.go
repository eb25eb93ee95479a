package gtpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/nf/mme/internal/emm"
)

var _ emm.GTPC = (*Client)(nil)

// TestClient_DeleteAllSessions_RequiresIMSI checks the guard clause fires
// before any GTP-C traffic is attempted, so it's exercisable without a
// live S11 association.
func TestClient_DeleteAllSessions_RequiresIMSI(t *testing.T) {
	client := &Client{logger: zap.NewNop()}
	ue := uectx.NewUEContext()

	err := client.DeleteAllSessions(t.Context(), ue)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no IMSI")
}
