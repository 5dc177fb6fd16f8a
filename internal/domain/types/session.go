package types

// SessionState is the mesh session state of a peer. It is not monotonic:
// a peer can fall back to None or Handshaking after a disconnect.
type SessionState uint8

const (
	SessionNone SessionState = iota
	SessionHandshaking
	SessionEstablished
	SessionFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionNone:
		return "none"
	case SessionHandshaking:
		return "handshaking"
	case SessionEstablished:
		return "established"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}
