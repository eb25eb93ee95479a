// Package s6a implements the EMM core's outbound façade to the HSS:
// Authentication-Information-Request/Answer and Update-Location-Request,
// carried over an HTTP stand-in for the Diameter S6a interface, grounded
// on the donor AUSFClient's request/confirm shape
// (the donor's nf/amf/internal/client/ausf_client.go).
package s6a

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// Client is the S6a façade implementation of emm.S6a.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a Client pointed at the HSS's AIR/ULR endpoints.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type airRequest struct {
	IMSI string `json:"imsi"`
	AUTS string `json:"auts,omitempty"`
}

type airResponse struct {
	AuthCtxID string `json:"authCtxId"`
	RAND      string `json:"rand"`
	AUTN      string `json:"autn"`
	XRES      string `json:"xres"`
	KASME     string `json:"kasme"`
}

// AuthenticationInformationRequest fetches one authentication vector for
// ue.IMSI, optionally carrying the AUTS resync parameter from a prior
// Synch-Failure.
func (c *Client) AuthenticationInformationRequest(ctx context.Context, ue *uectx.UEContext, auts []byte) (*uectx.AuthVector, error) {
	ue.RLock()
	imsi := ue.IMSI
	ue.RUnlock()

	req := airRequest{IMSI: imsi}
	if auts != nil {
		req.AUTS = base64.StdEncoding.EncodeToString(auts)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal S6a AIR")
	}

	url := c.baseURL + "/s6a/v1/authentication-information"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build S6a AIR request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Correlation-Id", uuid.NewString())

	c.logger.Debug("sending S6a AIR", zap.String("imsi", imsi), zap.String("url", url))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "S6a AIR request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("HSS returned status %d: %s", resp.StatusCode, string(b))
	}

	var out airResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode S6a AIA")
	}

	rand, err := base64.StdEncoding.DecodeString(out.RAND)
	if err != nil {
		return nil, errors.Wrap(err, "decode RAND")
	}
	autn, err := base64.StdEncoding.DecodeString(out.AUTN)
	if err != nil {
		return nil, errors.Wrap(err, "decode AUTN")
	}
	xres, err := base64.StdEncoding.DecodeString(out.XRES)
	if err != nil {
		return nil, errors.Wrap(err, "decode XRES")
	}
	kasmeBytes, err := base64.StdEncoding.DecodeString(out.KASME)
	if err != nil {
		return nil, errors.Wrap(err, "decode KASME")
	}
	if len(kasmeBytes) != 32 {
		return nil, errors.Errorf("KASME has unexpected length %d", len(kasmeBytes))
	}

	vector := &uectx.AuthVector{RAND: rand, AUTN: autn, XRES: xres}
	copy(vector.KASME[:], kasmeBytes)

	ue.Lock()
	ue.Security.Vector = vector
	ue.Security.SetKASME(vector.KASME)
	ue.Unlock()

	return vector, nil
}

type ulrRequest struct {
	IMSI string `json:"imsi"`
}

// UpdateLocationRequest registers the MME as serving ue.IMSI's location
// with the HSS, issued once the security context is established.
func (c *Client) UpdateLocationRequest(ctx context.Context, ue *uectx.UEContext) error {
	ue.RLock()
	imsi := ue.IMSI
	ue.RUnlock()

	body, err := json.Marshal(ulrRequest{IMSI: imsi})
	if err != nil {
		return errors.Wrap(err, "marshal S6a ULR")
	}

	url := c.baseURL + "/s6a/v1/update-location"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build S6a ULR request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "S6a ULR request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return errors.Errorf("HSS returned status %d: %s", resp.StatusCode, string(b))
	}

	c.logger.Debug("S6a Update-Location-Request accepted", zap.String("imsi", imsi))
	return nil
}
