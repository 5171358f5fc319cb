package transport

import (
	"bufio"
	"net"
	"sync"

	rtmp "github.com/rtmpbroker/broker"
	"github.com/rtmpbroker/broker/config"
	"github.com/rtmpbroker/broker/rand"
	"go.uber.org/zap"
)

// Connection adapts one TCP socket to rtmp.ConnectionHandle: it owns the
// chunk reader/writer pair and the session the core attaches stream state
// to. The core never sees net.Conn directly.
type Connection struct {
	id      string
	conn    net.Conn
	reader  *reader
	writer  *writer
	session *rtmp.Session

	closeOnce sync.Once
	closeErr  error
}

// NewConnection wraps an already-accepted socket. Callers must still call
// Serve to run the handshake and read loop.
func NewConnection(conn net.Conn) *Connection {
	br := bufio.NewReaderSize(conn, config.BufioSize)
	bw := bufio.NewWriterSize(conn, config.BufioSize)
	return &Connection{
		id:      rand.GenerateUuid(),
		conn:    conn,
		reader:  newReader(br),
		writer:  newWriter(bw),
		session: rtmp.NewSession(),
	}
}

func (c *Connection) Write(msg *rtmp.Message) error {
	defer msg.Release()
	return c.writer.WriteMessage(msg)
}

func (c *Connection) WriteAndFlush(msg *rtmp.Message) error {
	defer msg.Release()
	if err := c.writer.WriteMessage(msg); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Connection) Session() *rtmp.Session {
	return c.session
}

// Serve runs the handshake and then feeds every assembled message to
// core.Dispatch until the connection closes or a fatal read error occurs.
// It always calls core.Teardown before returning, regardless of how the
// loop ended.
func (c *Connection) Serve(core *rtmp.Core, logger *zap.Logger) error {
	defer core.Teardown(c)
	defer c.Close()

	br := c.reader.r
	bw := c.writer.w
	if err := handshake(br, bw); err != nil {
		return err
	}

	for {
		msg, err := c.reader.ReadMessage()
		if err != nil {
			return err
		}
		// core.Dispatch already closes the connection itself for error
		// kinds that warrant it; a closing error surfaces here only as the
		// next ReadMessage failing against the now-closed socket.
		if err := core.Dispatch(c, msg); err != nil {
			logger.Debug("dispatch returned error",
				zap.String("connection_id", c.id),
				zap.Error(err))
		}
	}
}
