package rtmp

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/rtmpbroker/broker/amf0"
	"github.com/rtmpbroker/broker/config"
	"go.uber.org/zap"
)

// unsupportedCommands lists commands the protocol recognizes but this
// broker never implements. §7 treats hitting one of these as an
// Unsupported error: the protocol is left in an unknown state, so the
// connection closes rather than silently ignoring the command.
var unsupportedCommands = map[string]bool{
	"call":         true,
	"close":        true,
	"play2":        true,
	"deleteStream": true,
	"closeStream":  true,
	"receiveAudio": true,
	"receiveVideo": true,
	"seek":         true,
}

// handleCommand decodes an AMF0_COMMAND payload and dispatches to the
// handler for the named command.
func (c *Core) handleCommand(conn ConnectionHandle, msg *Message) error {
	values, err := amf0.DecodeAll(msg.Payload.Bytes())
	if err != nil || len(values) < 2 {
		return ErrMalformedCommand
	}

	name, err := amf0.AsString(values[0])
	if err != nil {
		return ErrMalformedCommand
	}
	tid, err := amf0.AsNumber(values[1])
	if err != nil {
		return ErrMalformedCommand
	}

	switch name {
	case "connect":
		return c.onConnect(conn, tid, values)
	case "createStream":
		return c.onCreateStream(conn, tid)
	case "publish":
		return c.onPublish(conn, tid, values)
	case "FCPublish":
		return c.onFCPublish(conn, tid, values)
	case "play":
		return c.onPlay(conn, tid, values)
	case "pause":
		return c.onPause(conn, tid, values)
	default:
		if unsupportedCommands[name] {
			c.Logger.Debug("unsupported command, closing connection", zap.String("command", name))
			return ErrUnsupported
		}
		c.Logger.Debug("ignoring unrecognized command", zap.String("command", name))
		return nil
	}
}

func (c *Core) onConnect(conn ConnectionHandle, tid float64, values []amf0.Value) error {
	if len(values) < 3 {
		return ErrMalformedCommand
	}
	cmdObject, err := amf0.AsObject(values[2])
	if err != nil {
		return ErrMalformedCommand
	}
	appVal, ok := cmdObject.Get("app")
	if !ok {
		return ErrMalformedCommand
	}
	app, err := amf0.AsString(appVal)
	if err != nil {
		return ErrMalformedCommand
	}

	conn.Session().SetApp(app)

	windowAck := make([]byte, 4)
	binary.BigEndian.PutUint32(windowAck, config.WindowAckSize)
	if err := conn.Write(NewMessage(TypeWindowAcknowledgeSize, 0, windowAck)); err != nil {
		return err
	}

	peerBandwidth := make([]byte, 5)
	binary.BigEndian.PutUint32(peerBandwidth, config.PeerBandwidth)
	peerBandwidth[4] = config.PeerBandwidthType
	if err := conn.Write(NewMessage(TypeSetPeerBandwidth, 0, peerBandwidth)); err != nil {
		return err
	}

	chunkSize := make([]byte, 4)
	binary.BigEndian.PutUint32(chunkSize, config.ChunkSize)
	if err := conn.Write(NewMessage(TypeSetChunkSize, 0, chunkSize)); err != nil {
		return err
	}

	properties := amf0.NewObject().
		Set("fmsVer", config.FlashMediaServerVersion).
		Set("capabilities", config.Capabilities)
	info := amf0.NewObject().
		Set("level", "status").
		Set("code", "NetConnection.Connect.Success").
		Set("description", "Connection succeeded.").
		Set("objectEncoding", config.ObjectEncoding)

	msg, err := encodeCommand(0, []amf0.Value{"_result", tid, properties, info})
	if err != nil {
		return ErrMalformedCommand
	}
	return conn.WriteAndFlush(msg)
}

func (c *Core) onCreateStream(conn ConnectionHandle, tid float64) error {
	msg, err := encodeCommand(0, []amf0.Value{"_result", tid, nil, config.FixedStreamID})
	if err != nil {
		return ErrMalformedCommand
	}
	return conn.WriteAndFlush(msg)
}

func (c *Core) onPublish(conn ConnectionHandle, tid float64, values []amf0.Value) error {
	if len(values) < 4 {
		return ErrMalformedCommand
	}
	streamName, err := amf0.AsString(values[3])
	if err != nil {
		return ErrMalformedCommand
	}

	session := conn.Session()
	if err := session.SetRole(RolePublisher); err != nil {
		return ErrMalformedCommand
	}
	session.SetStreamName(streamName)

	return c.writeStatus(conn, 0, "status", "NetStream.Play.Start", "Start publishing")
}

func (c *Core) onFCPublish(conn ConnectionHandle, tid float64, values []amf0.Value) error {
	info := amf0.NewObject().
		Set("level", "status").
		Set("code", "NetStream.Play.Start").
		Set("description", "Start publishing")
	msg, err := encodeCommand(0, []amf0.Value{"onFCPublish", float64(0), nil, info})
	if err != nil {
		return ErrMalformedCommand
	}
	return conn.WriteAndFlush(msg)
}

func (c *Core) onPlay(conn ConnectionHandle, tid float64, values []amf0.Value) error {
	if len(values) < 4 {
		return ErrMalformedCommand
	}
	streamName, err := amf0.AsString(values[3])
	if err != nil {
		return ErrMalformedCommand
	}

	session := conn.Session()
	if err := session.SetRole(RoleSubscriber); err != nil {
		return ErrMalformedCommand
	}
	session.SetStreamName(streamName)

	if err := c.writeStatus(conn, 0, "status", "NetStream.Play.Start", "Start publishing"); err != nil {
		return err
	}

	sampleAccess, err := encodeData([]amf0.Value{"|RtmpSampleAccess", true, true})
	if err != nil {
		return ErrMalformedCommand
	}
	sampleAccess.StreamID = 1
	if err := conn.WriteAndFlush(sampleAccess); err != nil {
		return err
	}

	key, _ := session.StreamKey()
	publisherConn, ok := c.Registry.LookupPublisher(key)
	if !ok {
		return ErrPublisherMissing
	}

	publisherConn.Session().Readiness().OnReady(func(result ReadinessResult) {
		c.onPublisherReady(conn, publisherConn, key, result)
	})
	return nil
}

// onPublisherReady runs the key-frame replay once a publisher's readiness
// resolves. It may run synchronously (readiness already resolved when play
// registered) or later, from whichever goroutine drives the publisher's
// event loop; either way it only ever touches the subscriber connection
// through conn, so it's safe to call from outside the subscriber's own
// read loop.
func (c *Core) onPublisherReady(conn, publisherConn ConnectionHandle, key string, result ReadinessResult) {
	if result != ReadinessComplete {
		c.Logger.Debug("publisher failed before completing, leaving subscriber open", zap.String("stream_key", key))
		return
	}

	publisherSession := publisherConn.Session()
	if metadata := publisherSession.Metadata(); metadata != nil {
		metaMsg, err := encodeData([]amf0.Value{"onMetaData", metadata})
		if err == nil {
			_ = conn.Write(metaMsg)
		}
	}

	keyFrame := publisherSession.KeyFrame()
	if keyFrame == nil {
		return
	}
	replay := keyFrame.Copy()
	replay.Timestamp = 0
	if err := conn.WriteAndFlush(replay); err != nil {
		c.Logger.Debug("key frame replay failed, closing subscriber",
			zap.String("stream_key", key),
			zap.Error(errors.Wrap(ErrWriteFailed, err.Error())))
		_ = conn.Close()
		return
	}

	c.Registry.AddSubscriber(key, conn)
}

func (c *Core) onPause(conn ConnectionHandle, tid float64, values []amf0.Value) error {
	if len(values) < 4 {
		return ErrMalformedCommand
	}
	pausing, err := amf0.AsBoolean(values[3])
	if err != nil {
		return ErrMalformedCommand
	}

	session := conn.Session()
	if pausing {
		session.SetPaused(true)
		if err := c.writeStatus(conn, 0, "status", "NetStream.Pause.Notify", "Paused live"); err != nil {
			return err
		}
		return conn.WriteAndFlush(userControlMessage(EventStreamEOF, 1))
	}

	if err := c.writeStatus(conn, 0, "status", "NetStream.Unpause.Notify", "Unpaused live"); err != nil {
		return err
	}
	if err := conn.WriteAndFlush(userControlMessage(EventStreamBegin, 1)); err != nil {
		return err
	}

	key, ok := session.StreamKey()
	if !ok {
		return ErrPublisherMissing
	}
	publisherConn, ok := c.Registry.LookupPublisher(key)
	if !ok {
		return ErrPublisherMissing
	}

	publisherConn.Session().Readiness().OnReady(func(result ReadinessResult) {
		if result != ReadinessComplete {
			c.Logger.Debug("publisher failed before completing, leaving subscriber paused", zap.String("stream_key", key))
			return
		}
		keyFrame := publisherConn.Session().KeyFrame()
		if keyFrame == nil {
			return
		}
		replay := keyFrame.Copy()
		replay.Timestamp = 0
		if err := conn.WriteAndFlush(replay); err != nil {
			c.Logger.Debug("key frame replay failed, closing subscriber",
				zap.String("stream_key", key),
				zap.Error(errors.Wrap(ErrWriteFailed, err.Error())))
			_ = conn.Close()
			return
		}
		session.SetPaused(false)
	})
	return nil
}

// writeStatus builds and flushes an onStatus AMF0_COMMAND message.
func (c *Core) writeStatus(conn ConnectionHandle, tid float64, level, code, description string) error {
	info := amf0.NewObject().
		Set("level", level).
		Set("code", code).
		Set("description", description)
	msg, err := encodeCommand(0, []amf0.Value{"onStatus", tid, nil, info})
	if err != nil {
		return ErrMalformedCommand
	}
	return conn.WriteAndFlush(msg)
}

func encodeCommand(streamID uint32, values []amf0.Value) (*Message, error) {
	data, err := amf0.EncodeAll(values)
	if err != nil {
		return nil, err
	}
	return NewMessage(TypeAMF0Command, streamID, data), nil
}

func encodeData(values []amf0.Value) (*Message, error) {
	data, err := amf0.EncodeAll(values)
	if err != nil {
		return nil, err
	}
	return NewMessage(TypeAMF0Data, 0, data), nil
}

func userControlMessage(event uint16, streamID uint32) *Message {
	payload := make([]byte, 6)
	binary.BigEndian.PutUint16(payload[0:2], event)
	binary.BigEndian.PutUint32(payload[2:6], streamID)
	return NewMessage(TypeUserControl, 0, payload)
}
