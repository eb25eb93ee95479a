// Package gtpc implements the S-GW stand-in's S11 GTP-C responder: just
// enough of github.com/wmnsk/go-gtp/v2's server role to give the MME's
// outbound GTPC adapter (nf/mme/internal/adapters/gtpc) a real peer to
// exercise Delete-Session-Request against in integration tests and the
// cmd/ demo binary. Grounded on the donor go-gtp S-GW example's
// handleDeleteSessionRequest (other_examples/f48bec90_jangocheng-go-gtp
// _examples-sgw-s11.go.go), trimmed to the server's own S11 leg: this
// stand-in has no S5/S8 P-GW to relay to, since bearer/user-plane
// management is outside this core's scope.
package gtpc

import (
	"context"
	"net"

	"github.com/pkg/errors"
	v2 "github.com/wmnsk/go-gtp/v2"
	"github.com/wmnsk/go-gtp/v2/ies"
	"github.com/wmnsk/go-gtp/v2/messages"
	"go.uber.org/zap"

	sgwctx "github.com/openepc/mme/nf/sgw/internal/context"
)

// Server accepts S11 GTP-C requests from an MME and answers them against
// the session store, without ever establishing a user-plane tunnel.
type Server struct {
	conn    *v2.Conn
	store   *sgwctx.Store
	logger  *zap.Logger
}

// Listen resolves localAddr and prepares the S11 GTP-C connection and its
// handlers; the socket itself is bound when Serve runs.
func Listen(localAddr string, store *sgwctx.Store, logger *zap.Logger) (*Server, error) {
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve S11 listen address")
	}

	conn := v2.NewConn(laddr, 0)
	s := &Server{conn: conn, store: store, logger: logger}

	conn.AddHandler(messages.MsgTypeCreateSessionRequest, s.handleCreateSessionRequest)
	conn.AddHandler(messages.MsgTypeDeleteSessionRequest, s.handleDeleteSessionRequest)

	return s, nil
}

// Serve runs the S11 listen loop until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.conn.ListenAndServe(ctx); err != nil {
		return errors.Wrap(err, "S11 GTP-C listen loop")
	}
	return nil
}

// Close releases the S11 socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// handleCreateSessionRequest provisions a session for the IMSI the MME
// signals in Create-Session-Request, allocating this S-GW's local S11
// control-plane TEID and echoing it back. It never establishes a
// user-plane bearer: ESM/GTP-U forwarding is external to this core.
func (s *Server) handleCreateSessionRequest(c *v2.Conn, mmeAddr net.Addr, msg messages.Message) error {
	req, ok := msg.(*messages.CreateSessionRequest)
	if !ok {
		return v2.ErrUnexpectedType
	}

	if req.IMSI == nil {
		return &v2.ErrRequiredIEMissing{Type: ies.IMSI}
	}
	imsi := req.IMSI.IMSI()

	senderTEID, err := req.SenderFTEIDC.TEID()
	if err != nil {
		return errors.Wrap(err, "read MME S11 TEID")
	}

	sess := s.store.Create(imsi, senderTEID)
	s.logger.Info("S11 session created",
		zap.String("imsi", imsi),
		zap.Uint32("local_teid", sess.LocalTEID),
		zap.Uint32("mme_teid", sess.MMETEID),
	)

	rsp := messages.NewCreateSessionResponse(
		senderTEID, 0,
		ies.NewCause(v2.CauseRequestAccepted, 0, 0, 0, nil),
		ies.NewFullyQualifiedTEID(v2.IFTypeS11S4SGWGTPC, sess.LocalTEID, localIP(c), "").WithInstance(1),
	)

	return c.RespondTo(mmeAddr, req, rsp)
}

// handleDeleteSessionRequest tears down the session addressed by the
// request's own TEID, mirroring the donor's handleDeleteSessionRequest
// without the S5/S8 P-GW leg it relays through: this stand-in is the
// terminal peer, so it answers directly.
func (s *Server) handleDeleteSessionRequest(c *v2.Conn, mmeAddr net.Addr, msg messages.Message) error {
	req, ok := msg.(*messages.DeleteSessionRequest)
	if !ok {
		return v2.ErrUnexpectedType
	}

	sess, found := s.store.ByTEID(msg.TEID())
	cause := uint8(v2.CauseRequestAccepted)
	if !found {
		cause = v2.CauseContextNotFound
	}

	rsp := messages.NewDeleteSessionResponse(
		localTEIDOrZero(sess), 0,
		ies.NewCause(cause, 0, 0, 0, nil),
	)

	if err := c.RespondTo(mmeAddr, req, rsp); err != nil {
		return errors.Wrap(err, "send Delete-Session-Response")
	}

	if found {
		s.store.Delete(sess)
		s.logger.Info("S11 session deleted", zap.String("imsi", sess.IMSI))
	}
	return nil
}

func localTEIDOrZero(sess *sgwctx.Session) uint32 {
	if sess == nil {
		return 0
	}
	return sess.MMETEID
}

func localIP(c *v2.Conn) string {
	if addr, ok := c.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}
