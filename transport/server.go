package transport

import (
	"net"

	"github.com/pkg/errors"
	rtmp "github.com/rtmpbroker/broker"
	"github.com/rtmpbroker/broker/config"
	"go.uber.org/zap"
)

// Server listens for incoming RTMP connections and hands each one to the
// core. One Server serves one Core; the registry and every stream it holds
// lives for as long as the process does.
type Server struct {
	Addr   string
	Logger *zap.Logger
	Core   *rtmp.Core
}

// Listen runs the accept loop. It returns only if resolving or opening the
// listen address fails; an Accept error is logged and the loop carries on.
// There is no cancellation: the process is killed to stop the server (one
// process per listening port, restarted rather than drained).
func (s *Server) Listen() error {
	if s.Addr == "" {
		s.Addr = ":" + config.DefaultPort
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", s.Addr)
	if err != nil {
		return errors.Wrap(err, "transport: resolving listen address")
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return errors.Wrap(err, "transport: listening")
	}
	defer listener.Close()

	s.Logger.Info("listening", zap.String("addr", s.Addr))

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.Logger.Error("accept failed", zap.Error(err))
			continue
		}

		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	c := NewConnection(conn)
	s.Logger.Debug("accepted connection",
		zap.String("connection_id", c.id),
		zap.String("remote_addr", conn.RemoteAddr().String()))

	if err := c.Serve(s.Core, s.Logger); err != nil {
		s.Logger.Debug("connection ended",
			zap.String("connection_id", c.id),
			zap.Error(err))
	}
}
