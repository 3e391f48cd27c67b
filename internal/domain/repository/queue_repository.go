package repository

import (
	"context"
)

// RemoteQueue is a distributed work queue of JSON messages
type RemoteQueue interface {
	Send(ctx context.Context, body []byte) error
	PurgeAll(ctx context.Context) error
	Name() string
}
