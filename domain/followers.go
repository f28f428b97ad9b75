package domain

import (
	"time"

	"github.com/google/uuid"
)

// Follower is one outstanding remote-follows-local relationship. The id
// is a surrogate assigned by the store; Inbox must be an absolute URI.
type Follower struct {
	Id        int64
	UserId    uuid.UUID
	Actor     string
	Object    string
	Inbox     string
	CreatedAt time.Time
}

func NewFollower(userId uuid.UUID, actor string, object string, inbox string) *Follower {
	return &Follower{
		UserId:    userId,
		Actor:     actor,
		Object:    object,
		Inbox:     inbox,
		CreatedAt: time.Now().UTC(),
	}
}
