package sandwich

// Debugger receives every raw frame exchanged with the gateway.
type Debugger interface {
	Incoming(data []byte)
	Outgoing(data []byte)
	Error(err error)
}

// NilDebugger discards everything.
type NilDebugger struct{}

func (NilDebugger) Incoming([]byte) {}
func (NilDebugger) Outgoing([]byte) {}
func (NilDebugger) Error(error)     {}
