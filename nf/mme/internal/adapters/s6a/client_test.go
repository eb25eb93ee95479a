package s6a

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

func TestClient_AuthenticationInformationRequest(t *testing.T) {
	kasme := make([]byte, 32)
	for i := range kasme {
		kasme[i] = byte(i)
	}

	var gotReq airRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/s6a/v1/authentication-information", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := airResponse{
			AuthCtxID: "ctx-1",
			RAND:      base64.StdEncoding.EncodeToString([]byte("0123456789012345")),
			AUTN:      base64.StdEncoding.EncodeToString([]byte("0123456789012345")),
			XRES:      base64.StdEncoding.EncodeToString([]byte("xres-bytes")),
			KASME:     base64.StdEncoding.EncodeToString(kasme),
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := New(srv.URL, 2*time.Second, zap.NewNop())
	ue := uectx.NewUEContext()
	ue.Lock()
	ue.IMSI = "001010000000001"
	ue.Unlock()

	vector, err := client.AuthenticationInformationRequest(t.Context(), ue, nil)
	require.NoError(t, err)
	assert.Equal(t, "001010000000001", gotReq.IMSI)
	assert.Empty(t, gotReq.AUTS)
	assert.Equal(t, []byte("xres-bytes"), vector.XRES)

	ue.RLock()
	defer ue.RUnlock()
	assert.True(t, ue.Security.HasKASME())
	assert.Same(t, vector, ue.Security.Vector)
}

func TestClient_AuthenticationInformationRequest_CarriesAUTS(t *testing.T) {
	kasme := make([]byte, 32)
	var gotReq airRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := airResponse{
			RAND:  base64.StdEncoding.EncodeToString(make([]byte, 16)),
			AUTN:  base64.StdEncoding.EncodeToString(make([]byte, 16)),
			XRES:  base64.StdEncoding.EncodeToString(make([]byte, 8)),
			KASME: base64.StdEncoding.EncodeToString(kasme),
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := New(srv.URL, 2*time.Second, zap.NewNop())
	ue := uectx.NewUEContext()
	ue.Lock()
	ue.IMSI = "001010000000002"
	ue.Unlock()

	auts := []byte("resync-param")
	_, err := client.AuthenticationInformationRequest(t.Context(), ue, auts)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(auts), gotReq.AUTS)
}

func TestClient_AuthenticationInformationRequest_HSSError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("no such subscriber"))
	}))
	defer srv.Close()

	client := New(srv.URL, 2*time.Second, zap.NewNop())
	ue := uectx.NewUEContext()
	ue.Lock()
	ue.IMSI = "001010000000003"
	ue.Unlock()

	_, err := client.AuthenticationInformationRequest(t.Context(), ue, nil)
	assert.Error(t, err)
}

func TestClient_UpdateLocationRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/s6a/v1/update-location", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, 2*time.Second, zap.NewNop())
	ue := uectx.NewUEContext()
	ue.Lock()
	ue.IMSI = "001010000000004"
	ue.Unlock()

	err := client.UpdateLocationRequest(t.Context(), ue)
	require.NoError(t, err)
	assert.True(t, called)
}
