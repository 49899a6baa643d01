package protocol

// Transport is the host boundary for one language-server channel: something
// that can start and stop the server process, push serialized protocol
// messages to it, and deliver inbound serialized messages back.
//
// The client treats all three operations as opaque; it does not care how the
// host manages processes. Subscribe must be honored before StartServer is
// issued so that early messages are never dropped.
type Transport interface {
	// StartServer spawns or attaches the language-server process for the
	// given workspace root.
	StartServer(workspaceRoot string) error

	// StopServer terminates the server process. Idempotent.
	StopServer() error

	// Send forwards one serialized protocol message to the server.
	Send(raw []byte) error

	// Subscribe registers a receiver for inbound serialized messages and
	// returns an unsubscribe func. Multiple subscribers all receive every
	// message.
	Subscribe(fn func(raw []byte)) (unsubscribe func())
}
