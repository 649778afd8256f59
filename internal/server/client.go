package server

// Client abstracts one gateway connection so request handling can be tested
// without a network.
type Client interface {
	// ReadMessage blocks until a non-empty message arrives.
	ReadMessage() ([]byte, error)

	// WriteJSON encodes v as one message. Safe for concurrent use.
	WriteJSON(v any) error

	Close() error

	// RemoteAddr returns the client's address for logging.
	RemoteAddr() string
}
