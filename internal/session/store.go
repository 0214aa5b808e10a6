package session

import (
	"context"
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Data is everything the server keeps per browser session.
type Data struct {
	UserID    string
	NumVisits int
}

// ErrNoSession is returned by Load for unknown or expired ids.
var ErrNoSession = errors.New("session not found")

// Store persists session Data by opaque id.
type Store interface {
	Load(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, data Data) error
	Delete(ctx context.Context, id string) error
}

// idLength gives 32*6 = 192 random bits with the default nanoid alphabet.
const idLength = 32

// NewID returns a fresh, unguessable session id.
func NewID() (string, error) {
	return gonanoid.New(idLength)
}
