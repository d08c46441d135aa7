package websocket

// State is the lifecycle state of the manager's single connection slot
type State int

const (
	// StateIdle holds no connection and schedules nothing
	StateIdle State = iota
	// StateConnecting has a dial in flight
	StateConnecting
	// StateOpen has a live connection
	StateOpen
	// StateClosed lost its connection and waits for the reconnect timer
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// eventKind identifies what happened on a connection
type eventKind int

const (
	eventOpened eventKind = iota
	eventFrame
	eventErrored
	eventClosed
	eventReconnect
)

func (k eventKind) String() string {
	switch k {
	case eventOpened:
		return "opened"
	case eventFrame:
		return "frame"
	case eventErrored:
		return "errored"
	case eventClosed:
		return "closed"
	case eventReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// event is one item on the manager's queue. gen ties it to the connection
// attempt that produced it; events from retired attempts are dropped.
type event struct {
	kind eventKind
	gen  uint64
	conn *conn
	data []byte
	err  error
}
