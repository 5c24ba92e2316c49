package realtime

import (
	"context"
	"time"
)

type ChangeOp string

const (
	ChangeCreated ChangeOp = "created"
	ChangeUpdated ChangeOp = "updated"
)

// Change announces that a document in Collection was written.
type Change struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         ChangeOp  `json:"op"`
	At         time.Time `json:"at"`
	// Origin names the instance that made the write.
	Origin string `json:"origin,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ch Change) error
}
