package rtmp

import "go.uber.org/zap"

// Core holds the process-wide state the dispatcher and handlers share: the
// stream registry and a logger. One Core serves every connection; there's
// no per-connection state here beyond what's reachable through the
// ConnectionHandle passed into each call.
type Core struct {
	Registry *Registry
	Logger   *zap.Logger
}

// NewCore returns a Core with a fresh registry.
func NewCore(logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Core{Registry: NewRegistry(), Logger: logger}
}

// Dispatch routes an inbound message to the command or data handler by
// message type. The dispatcher owns the inbound message's one reference and
// releases it on return; handlers that need to keep bytes past this call
// must Copy or Retain before returning.
func (c *Core) Dispatch(conn ConnectionHandle, msg *Message) error {
	defer msg.Release()

	var err error
	switch msg.Type {
	case TypeAMF0Command:
		err = c.handleCommand(conn, msg)
	case TypeAMF0Data:
		err = c.handleData(conn, msg)
	case TypeAudio:
		err = c.handleAudio(conn, msg)
	case TypeVideo:
		err = c.handleVideo(conn, msg)
	case TypeUserControl:
		// Acknowledged implicitly by not erroring; the core has no use for
		// these beyond the chunk-stream layer that already consumed them.
		return nil
	default:
		c.Logger.Debug("ignoring message of unhandled type", zap.Uint8("type", uint8(msg.Type)))
		return nil
	}

	if err != nil && closesConnection(err) {
		_ = conn.Close()
	}
	return err
}

// Teardown releases conn's registry entries on connection close. Publisher
// departure removes the publisher entry but does not touch the subscriber
// group or forcibly close subscribers; they simply stop receiving frames.
// This is the hook mentioned in the collaborator contract: the registry
// never owns connection lifetime, the transport invokes this when a
// connection goes away.
func (c *Core) Teardown(conn ConnectionHandle) {
	session := conn.Session()
	if session == nil {
		return
	}
	key, ok := session.StreamKey()
	if !ok {
		return
	}
	switch session.Role() {
	case RolePublisher:
		c.Registry.RemovePublisher(key, conn)
		session.Fail()
		session.Close()
	case RoleSubscriber:
		c.Registry.RemoveSubscriber(key, conn)
	}
}
