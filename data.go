package rtmp

import (
	"github.com/rtmpbroker/broker/amf0"
	"go.uber.org/zap"
)

// handleData processes an inbound AMF0_DATA message. The only payload this
// broker understands is onMetaData, captured from a publisher; everything
// else is ignored rather than failing the connection, since AMF0_DATA can
// legitimately carry other script data this core doesn't act on.
func (c *Core) handleData(conn ConnectionHandle, msg *Message) error {
	values, err := amf0.DecodeAll(msg.Payload.Bytes())
	if err != nil || len(values) == 0 {
		return ErrMalformedCommand
	}

	// Some encoders wrap onMetaData in a leading "@setDataFrame" string;
	// others send onMetaData first. Either way, accept the first
	// "onMetaData" string found at any position, with the next value as
	// its payload.
	for i, v := range values {
		name, ok := v.(string)
		if !ok || name != "onMetaData" {
			continue
		}
		if i+1 < len(values) {
			conn.Session().SetMetadata(values[i+1])
		}
		break
	}
	return nil
}

// handleAudio forwards an inbound audio frame from a publisher to every
// non-paused subscriber in its stream's group. Per §9's open question, this
// broker does not cache and replay the first AAC sequence header to newly
// joined subscribers; audio is forwarded verbatim from the moment a
// subscriber joins.
func (c *Core) handleAudio(conn ConnectionHandle, msg *Message) error {
	session := conn.Session()
	if session.Role() != RolePublisher {
		return nil
	}
	key, ok := session.StreamKey()
	if !ok {
		return nil
	}
	if ce := c.Logger.Check(zap.DebugLevel, "forwarding audio frame"); ce != nil {
		ce.Write(zap.String("stream_key", key), zap.Uint8("format", uint8(msg.AudioFormat())))
	}
	c.fanOut(key, conn, msg)
	return nil
}

// handleVideo processes an inbound video frame from a publisher: the first
// key frame completes the session and registers it as the stream's
// publisher; every subsequent frame fans out to subscribers.
func (c *Core) handleVideo(conn ConnectionHandle, msg *Message) error {
	session := conn.Session()
	if session.Role() != RolePublisher {
		return nil
	}
	key, ok := session.StreamKey()
	if !ok {
		return nil
	}

	if session.KeyFrame() == nil && msg.IsKeyFrame() {
		c.Logger.Debug("caching first key frame",
			zap.String("stream_key", key),
			zap.Uint8("codec", uint8(msg.Codec())))
		session.CompleteWithKeyFrame(msg)
		if err := c.Registry.RegisterPublisher(key, conn); err != nil {
			c.Logger.Debug("duplicate publisher for stream key", zap.String("stream_key", key))
			return err
		}
		return nil
	}

	c.fanOut(key, conn, msg)
	return nil
}

// fanOut retains msg once per non-paused subscriber and writes it out,
// flushing after every frame: subscribers never issue writes of their own
// to piggyback a flush on, so fan-out must flush itself or frames sit in
// the connection's bufio.Writer until it fills.
func (c *Core) fanOut(key string, publisherConn ConnectionHandle, msg *Message) {
	c.Registry.IterateSubscribers(key, func(sub ConnectionHandle) {
		if sub.Session().Paused() {
			return
		}
		if err := sub.WriteAndFlush(msg.Retain()); err != nil {
			c.Logger.Debug("fan-out write failed, tolerating", zap.Error(err))
		}
	})
}
