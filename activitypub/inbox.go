package activitypub

import (
	"log"

	"github.com/deemkeen/minipub/domain"
	"github.com/google/uuid"
)

// UserStore is the user lookup the federation core depends on.
type UserStore interface {
	ReadUserById(id uuid.UUID) (*domain.User, error)
	ReadUserByUsername(username string) (*domain.User, error)
	ReadAllUsers() ([]domain.User, error)
}

// FollowerStore holds the durable follow relationships.
type FollowerStore interface {
	AddFollower(follower *domain.Follower) error
	ReadFollowersByUserId(userId uuid.UUID) ([]domain.Follower, error)
	DeleteFollower(id int64) error
}

// AcceptReplier sends the Accept reply for a processed Follow.
type AcceptReplier interface {
	ReplyAccept(user *domain.User, activity *domain.InboxActivity) error
}

// Processor interprets inbound activities and drives follower-state
// changes. All durable state lives in the follower store; processing one
// activity is a single synchronous transition.
type Processor struct {
	users     UserStore
	followers FollowerStore
	replies   AcceptReplier
}

func NewProcessor(users UserStore, followers FollowerStore, replies AcceptReplier) *Processor {
	return &Processor{
		users:     users,
		followers: followers,
		replies:   replies,
	}
}

// ProcessInboxActivity dispatches on the activity type. Follow stores a
// follower row and then acknowledges with an Accept; the Accept is only
// sent once the row is durable, and its failure does not fail the
// Follow. Undo removes every follower row whose actor matches the actor
// embedded in the undone activity. Anything else is rejected.
func (p *Processor) ProcessInboxActivity(userId string, activity *domain.InboxActivity) error {
	id, err := uuid.Parse(userId)
	if err != nil {
		return domain.NewError(domain.ErrUserNotFound)
	}

	user, err := p.users.ReadUserById(id)
	if err != nil {
		return err
	}

	switch activity.Type {
	case "Follow":
		follower := domain.NewFollower(user.Id, activity.Actor,
			activity.Object.ObjectURI(), activity.Actor+"/inbox")
		if err := p.followers.AddFollower(follower); err != nil {
			return err
		}
		if err := p.replies.ReplyAccept(user, activity); err != nil {
			log.Printf("Inbox: Accept reply to %s failed: %v", activity.Actor, err)
		}
		log.Printf("Inbox: %s now follows %s", activity.Actor, user.Username)
		return nil

	case "Undo":
		followers, err := p.followers.ReadFollowersByUserId(user.Id)
		if err != nil {
			return err
		}
		for _, f := range followers {
			if f.Actor == activity.Object.ActorURI() {
				if err := p.followers.DeleteFollower(f.Id); err != nil {
					return err
				}
				log.Printf("Inbox: %s unfollowed %s", f.Actor, user.Username)
			}
		}
		return nil

	default:
		return domain.NewError(domain.ErrUnexpectedActivity)
	}
}
