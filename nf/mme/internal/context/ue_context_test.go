package context

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndLookupByS1APID(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)
	defer store.Close()

	ue := store.Create(100)
	require.NotNil(t, ue)
	assert.Equal(t, StateDeRegistered, ue.State)

	found, ok := store.LookupByS1APID(100)
	assert.True(t, ok)
	assert.Same(t, ue, found)
}

func TestStore_IndexByIMSIAndGUTI(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)
	defer store.Close()

	ue := store.Create(1)
	store.IndexByIMSI(ue, "001010000000099")
	store.IndexByGUTI(ue, "guti-1")

	byIMSI, ok := store.LookupByIMSI("001010000000099")
	assert.True(t, ok)
	assert.Same(t, ue, byIMSI)

	byGUTI, ok := store.LookupByGUTI("guti-1")
	assert.True(t, ok)
	assert.Same(t, ue, byGUTI)

	_, ok = store.LookupByIMSI("no-such-imsi")
	assert.False(t, ok)
}

func TestStore_Destroy(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)
	defer store.Close()

	ue := store.Create(2)
	ue.Lock()
	ue.IMSI = "001010000000100"
	ue.GUTI = "guti-2"
	ue.PTMSI = "ptmsi-2"
	ue.Unlock()
	store.IndexByIMSI(ue, ue.IMSI)
	store.IndexByGUTI(ue, ue.GUTI)
	store.IndexByPTMSI(ue, ue.PTMSI)

	store.Destroy(ue)

	_, ok := store.LookupByIMSI("001010000000100")
	assert.False(t, ok)
	_, ok = store.LookupByGUTI("guti-2")
	assert.False(t, ok)
	_, ok = store.LookupByPTMSI("ptmsi-2")
	assert.False(t, ok)
	_, ok = store.LookupByS1APID(2)
	assert.False(t, ok)
}

func TestStore_Stats(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)
	defer store.Close()

	ue1 := store.Create(1)
	ue1.Lock()
	ue1.IMSI = "001010000000001"
	ue1.State = StateRegistered
	ue1.Unlock()
	store.IndexByIMSI(ue1, ue1.IMSI)

	ue2 := store.Create(2)
	ue2.Lock()
	ue2.IMSI = "001010000000002"
	ue2.State = StateRegistered
	ue2.Unlock()
	store.IndexByIMSI(ue2, ue2.IMSI)

	ue3 := store.Create(3)
	ue3.Lock()
	ue3.IMSI = "001010000000003"
	ue3.State = StateAuthentication
	ue3.Unlock()
	store.IndexByIMSI(ue3, ue3.IMSI)

	stats := store.Stats()
	assert.Equal(t, 2, stats[StateRegistered.String()])
	assert.Equal(t, 1, stats[StateAuthentication.String()])
}

func TestUEContext_HasIMSI(t *testing.T) {
	ue := NewUEContext()
	assert.False(t, ue.HasIMSI())

	ue.Lock()
	ue.IMSI = "001010000000001"
	ue.Unlock()
	assert.True(t, ue.HasIMSI())
}

func TestSecurityContext_Valid(t *testing.T) {
	sc := &SecurityContext{}
	assert.False(t, sc.Valid(), "empty security context must not be valid")

	sc.SetKASME([32]byte{1})
	assert.False(t, sc.Valid(), "K_ASME alone is not sufficient")

	sc.SelectAlgorithms("EEA2", "EIA2")
	assert.True(t, sc.Valid())
}

func TestSecurityContext_SetKASMEResetsDerivedMaterial(t *testing.T) {
	sc := &SecurityContext{}
	sc.SetKASME([32]byte{1})
	sc.KeNB = [32]byte{2}
	sc.NH = [32]byte{3}
	sc.NCC = 5

	sc.SetKASME([32]byte{9})

	assert.Equal(t, [32]byte{}, sc.KeNB, "a new K_ASME must invalidate the previous K_eNB")
	assert.Equal(t, [32]byte{}, sc.NH)
	assert.Equal(t, uint8(0), sc.NCC)
}

func TestServiceIndicator_ClearAndAny(t *testing.T) {
	svc := ServiceIndicator{CSCall: true}
	assert.True(t, svc.Any())

	svc.Clear()
	assert.False(t, svc.Any())
	assert.False(t, svc.CSCall)
	assert.False(t, svc.SMS)
}
