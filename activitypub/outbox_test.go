package activitypub

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/deemkeen/minipub/domain"
)

type fakeDispatcher struct {
	payloads [][]byte
	inboxes  [][]string
	results  []DeliveryResult
}

func (d *fakeDispatcher) Deliver(sender *domain.User, payload []byte, inboxes []string) []DeliveryResult {
	d.payloads = append(d.payloads, payload)
	d.inboxes = append(d.inboxes, inboxes)
	if d.results != nil {
		return d.results
	}
	results := make([]DeliveryResult, len(inboxes))
	for i, inbox := range inboxes {
		results[i] = DeliveryResult{Inbox: inbox, StatusCode: 202}
	}
	return results
}

func TestPublishNote(t *testing.T) {
	user := newTestUser(t)
	dispatcher := &fakeDispatcher{}
	outbox := NewOutbox(testConf(), dispatcher)

	note := domain.NewNote(user.Id, "hello world")
	followers := []domain.Follower{
		*domain.NewFollower(user.Id, "https://remote.example/users/bob",
			"", "https://remote.example/users/bob/inbox"),
		*domain.NewFollower(user.Id, "https://other.example/users/carol",
			"", "https://other.example/users/carol/inbox"),
	}

	if err := outbox.PublishNote(user, note, followers); err != nil {
		t.Fatalf("PublishNote failed: %v", err)
	}

	if len(dispatcher.inboxes) != 1 {
		t.Fatalf("Expected one dispatch, got %d", len(dispatcher.inboxes))
	}
	if len(dispatcher.inboxes[0]) != 2 {
		t.Errorf("Expected 2 recipient inboxes, got %d", len(dispatcher.inboxes[0]))
	}

	var item domain.ActivityNoteItem
	if err := json.Unmarshal(dispatcher.payloads[0], &item); err != nil {
		t.Fatalf("Payload should be a valid Create activity: %v", err)
	}

	actorId := "https://example.com/users/" + user.Id.String()
	noteId := "https://example.com/notes/" + note.Id.String()

	if item.Type != "Create" {
		t.Errorf("Expected type Create, got %s", item.Type)
	}
	if item.Id != noteId+"/activity" {
		t.Errorf("Unexpected activity id: %s", item.Id)
	}
	if item.Actor != actorId {
		t.Errorf("Unexpected actor: %s", item.Actor)
	}
	if item.Object.Id != noteId {
		t.Errorf("Unexpected note id: %s", item.Object.Id)
	}
	if item.Object.Type != "Note" {
		t.Errorf("Expected object type Note, got %s", item.Object.Type)
	}
	if item.Object.Content != "hello world" {
		t.Errorf("Unexpected content: %s", item.Object.Content)
	}
	if item.Object.AttributedTo != actorId {
		t.Errorf("Note should be attributed to the actor, got %s", item.Object.AttributedTo)
	}
	if len(item.To) != 1 || item.To[0] != "https://www.w3.org/ns/activitystreams#Public" {
		t.Errorf("Create should address the public collection, got %v", item.To)
	}
	if len(item.Cc) != 1 || item.Cc[0] != actorId+"/followers" {
		t.Errorf("Create should cc the followers collection, got %v", item.Cc)
	}
}

func TestPublishNoteNoFollowers(t *testing.T) {
	user := newTestUser(t)
	dispatcher := &fakeDispatcher{}
	outbox := NewOutbox(testConf(), dispatcher)

	note := domain.NewNote(user.Id, "into the void")
	if err := outbox.PublishNote(user, note, nil); err != nil {
		t.Fatalf("PublishNote failed: %v", err)
	}

	if len(dispatcher.inboxes) != 0 {
		t.Error("No dispatch should happen without followers")
	}
}

func TestPublishNoteDeliveryFailuresDoNotFail(t *testing.T) {
	user := newTestUser(t)
	dispatcher := &fakeDispatcher{
		results: []DeliveryResult{
			{Inbox: "https://remote.example/users/bob/inbox", Err: errors.New("connection refused")},
		},
	}
	outbox := NewOutbox(testConf(), dispatcher)

	note := domain.NewNote(user.Id, "hello")
	followers := []domain.Follower{
		*domain.NewFollower(user.Id, "https://remote.example/users/bob",
			"", "https://remote.example/users/bob/inbox"),
	}

	if err := outbox.PublishNote(user, note, followers); err != nil {
		t.Errorf("Delivery failures must never fail the publish, got %v", err)
	}
}

func TestEmptyCollection(t *testing.T) {
	box := EmptyCollection()

	if box.Type != "OrderedCollection" {
		t.Errorf("Expected OrderedCollection, got %s", box.Type)
	}
	if box.TotalItems != 0 {
		t.Errorf("Expected 0 items, got %d", box.TotalItems)
	}

	data, err := json.Marshal(box)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := decoded["orderedItems"].([]interface{}); !ok {
		t.Error("orderedItems should serialize as an array, not null")
	}
}
