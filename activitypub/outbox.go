package activitypub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/minipub/domain"
	"github.com/deemkeen/minipub/util"
)

// Dispatcher is the fan-out the outbox publishes through.
type Dispatcher interface {
	Deliver(sender *domain.User, payload []byte, inboxes []string) []DeliveryResult
}

// Outbox wraps local notes as Create activities and fans them out to
// followers.
type Outbox struct {
	conf       *util.AppConfig
	dispatcher Dispatcher
}

func NewOutbox(conf *util.AppConfig, dispatcher Dispatcher) *Outbox {
	return &Outbox{conf: conf, dispatcher: dispatcher}
}

// buildCreateNote builds the Create/Note wrapper for delivery, stamped
// with the current time.
func (o *Outbox) buildCreateNote(user *domain.User, note *domain.Note) *domain.ActivityNoteItem {
	base := o.conf.BaseURL()
	actorId := fmt.Sprintf("%susers/%s", base, user.Id)
	noteId := fmt.Sprintf("%snotes/%s", base, note.Id)
	published := time.Now().UTC().Format(time.RFC3339)

	to := []string{"https://www.w3.org/ns/activitystreams#Public"}
	cc := []string{actorId + "/followers"}

	return &domain.ActivityNoteItem{
		Context:   "https://www.w3.org/ns/activitystreams",
		Id:        noteId + "/activity",
		Type:      "Create",
		Actor:     actorId,
		Published: published,
		To:        to,
		Cc:        cc,
		Object: domain.ActivityNoteObject{
			Id:           noteId,
			Type:         "Note",
			AttributedTo: actorId,
			Content:      note.Content,
			Published:    published,
			To:           to,
			Cc:           cc,
		},
	}
}

// PublishNote delivers a note to every follower's inbox. Delivery
// outcomes are logged per recipient and never fail the publish.
func (o *Outbox) PublishNote(user *domain.User, note *domain.Note, followers []domain.Follower) error {
	item := o.buildCreateNote(user, note)
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal Create: %w", err)
	}

	inboxes := make([]string, 0, len(followers))
	for _, f := range followers {
		inboxes = append(inboxes, f.Inbox)
	}

	if len(inboxes) == 0 {
		return nil
	}

	results := o.dispatcher.Deliver(user, payload, inboxes)
	delivered := 0
	for _, r := range results {
		if r.Err == nil {
			delivered++
		}
	}
	log.Printf("Outbox: note %s delivered to %d/%d followers", note.Id, delivered, len(inboxes))
	return nil
}

// EmptyCollection is the outbox document served over HTTP; note history
// is not federated retroactively.
func EmptyCollection() *domain.ActivityNoteBox {
	return &domain.ActivityNoteBox{
		Context:      "https://www.w3.org/ns/activitystreams",
		Summary:      "outbox",
		Type:         "OrderedCollection",
		TotalItems:   0,
		OrderedItems: []domain.ActivityNoteItem{},
	}
}
