// Package gtpc implements the EMM core's outbound façade to the S-GW
// over the S11 GTP-C interface, grounded on the go-gtp v2 S-GW example's
// session/TEID handling (other_examples/f48bec90_jangocheng-go-gtp
// _examples-sgw-s11.go.go), repurposed for the MME's client role: this
// side issues Delete-Session-Request rather than serving it.
package gtpc

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	v2 "github.com/wmnsk/go-gtp/v2"
	"github.com/wmnsk/go-gtp/v2/ies"
	"github.com/wmnsk/go-gtp/v2/messages"
	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
)

// Client is the S11 GTP-C façade implementation of emm.GTPC.
type Client struct {
	conn    *v2.Conn
	sgwAddr net.Addr
	timeout time.Duration
	logger  *zap.Logger
}

// Dial opens the S11 GTP-C association to the configured S-GW.
func Dial(ctx context.Context, localAddr, sgwAddr string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve S11 local address")
	}
	raddr, err := net.ResolveUDPAddr("udp", sgwAddr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve S11 peer address")
	}

	conn, err := v2.Dial(ctx, laddr, raddr, 0)
	if err != nil {
		return nil, errors.Wrap(err, "dial S11")
	}

	return &Client{conn: conn, sgwAddr: raddr, timeout: timeout, logger: logger}, nil
}

// DeleteAllSessions tears down every GTP bearer context for ue's IMSI,
// mirroring handleDeleteSessionRequest's S5/S8 leg in the donor example
// but issued in the MME-initiated direction over S11.
func (c *Client) DeleteAllSessions(ctx context.Context, ue *uectx.UEContext) error {
	ue.RLock()
	imsi := ue.IMSI
	ue.RUnlock()
	if imsi == "" {
		return errors.New("cannot delete GTP sessions: no IMSI")
	}

	session, err := c.conn.GetSessionByIMSI(imsi)
	if err != nil {
		if err == v2.ErrUnknownIMSI {
			c.logger.Debug("no GTP session to delete", zap.String("imsi", imsi))
			return nil
		}
		return errors.Wrap(err, "lookup GTP session")
	}

	sgwTEID, err := session.GetTEID(v2.IFTypeS11SGWGTPC)
	if err != nil {
		return errors.Wrap(err, "lookup S11 S-GW TEID")
	}

	if err := c.conn.DeleteSession(
		sgwTEID,
		ies.NewEPSBearerID(session.GetDefaultBearer().EBI),
	); err != nil {
		return errors.Wrap(err, "send Delete-Session-Request")
	}

	msg, err := session.WaitMessage(c.timeout)
	if err != nil {
		return errors.Wrap(err, "wait for Delete-Session-Response")
	}
	if _, ok := msg.(*messages.DeleteSessionResponse); !ok {
		return v2.ErrUnexpectedType
	}

	c.conn.RemoveSession(session)
	c.logger.Debug("GTP session deleted", zap.String("imsi", imsi))
	return nil
}

// Close releases the S11 association.
func (c *Client) Close() error {
	return c.conn.Close()
}
