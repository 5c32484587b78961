package connection

import "errors"

var ErrNotFound = errors.New("connection not found")

// Conn is the write side of a participant's live connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type Entry struct {
	UserId string
	Conn   Conn
}
