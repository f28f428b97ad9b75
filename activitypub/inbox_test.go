package activitypub

import (
	"testing"

	"github.com/deemkeen/minipub/domain"
	"github.com/google/uuid"
)

type fakeUserStore struct {
	users map[uuid.UUID]*domain.User
}

func (s *fakeUserStore) ReadUserById(id uuid.UUID) (*domain.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, domain.NewError(domain.ErrUserNotFound)
}

func (s *fakeUserStore) ReadUserByUsername(username string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, domain.NewError(domain.ErrUserNotFound)
}

func (s *fakeUserStore) ReadAllUsers() ([]domain.User, error) {
	var all []domain.User
	for _, user := range s.users {
		all = append(all, *user)
	}
	return all, nil
}

type fakeFollowerStore struct {
	followers []domain.Follower
	nextId    int64
	addErr    error
}

func (s *fakeFollowerStore) AddFollower(f *domain.Follower) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.nextId++
	f.Id = s.nextId
	s.followers = append(s.followers, *f)
	return nil
}

func (s *fakeFollowerStore) ReadFollowersByUserId(userId uuid.UUID) ([]domain.Follower, error) {
	var result []domain.Follower
	for _, f := range s.followers {
		if f.UserId == userId {
			result = append(result, f)
		}
	}
	return result, nil
}

func (s *fakeFollowerStore) DeleteFollower(id int64) error {
	for i, f := range s.followers {
		if f.Id == id {
			s.followers = append(s.followers[:i], s.followers[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeReplier struct {
	accepts []*domain.InboxActivity
	err     error
}

func (r *fakeReplier) ReplyAccept(user *domain.User, activity *domain.InboxActivity) error {
	if r.err != nil {
		return r.err
	}
	r.accepts = append(r.accepts, activity)
	return nil
}

func newTestProcessor(t *testing.T) (*Processor, *domain.User, *fakeFollowerStore, *fakeReplier) {
	t.Helper()
	user, err := domain.NewUser("alice", "Alice")
	if err != nil {
		t.Fatalf("NewUser failed: %v", err)
	}
	users := &fakeUserStore{users: map[uuid.UUID]*domain.User{user.Id: user}}
	followers := &fakeFollowerStore{}
	replier := &fakeReplier{}
	return NewProcessor(users, followers, replier), user, followers, replier
}

func TestProcessFollow(t *testing.T) {
	p, user, followers, replier := newTestProcessor(t)

	activity := &domain.InboxActivity{
		Type:   "Follow",
		Id:     "https://remote.example/act/1",
		Actor:  "https://remote.example/users/bob",
		Object: domain.ActivityObject{Reference: "https://example.com/users/" + user.Id.String()},
	}

	if err := p.ProcessInboxActivity(user.Id.String(), activity); err != nil {
		t.Fatalf("ProcessInboxActivity failed: %v", err)
	}

	if len(followers.followers) != 1 {
		t.Fatalf("Expected 1 follower, got %d", len(followers.followers))
	}
	f := followers.followers[0]
	if f.Actor != "https://remote.example/users/bob" {
		t.Errorf("Unexpected follower actor: %s", f.Actor)
	}
	if f.Inbox != "https://remote.example/users/bob/inbox" {
		t.Errorf("Inbox should be derived from the actor URI, got %s", f.Inbox)
	}

	if len(replier.accepts) != 1 {
		t.Fatalf("Expected 1 Accept reply, got %d", len(replier.accepts))
	}
}

func TestProcessFollowStoreFailureSkipsAccept(t *testing.T) {
	p, user, followers, replier := newTestProcessor(t)
	followers.addErr = domain.NewError(domain.ErrPersistence)

	activity := &domain.InboxActivity{
		Type:   "Follow",
		Actor:  "https://remote.example/users/bob",
		Object: domain.ActivityObject{Reference: "https://example.com/users/" + user.Id.String()},
	}

	err := p.ProcessInboxActivity(user.Id.String(), activity)
	if !domain.IsCode(err, domain.ErrPersistence) {
		t.Errorf("Expected persistence error to propagate, got %v", err)
	}
	// The Accept must only go out once the follower row is durable.
	if len(replier.accepts) != 0 {
		t.Errorf("No Accept should be sent when the store fails, got %d", len(replier.accepts))
	}
}

func TestProcessFollowAcceptFailureIsNotFatal(t *testing.T) {
	p, user, followers, replier := newTestProcessor(t)
	replier.err = domain.NewError(domain.ErrSigning)

	activity := &domain.InboxActivity{
		Type:   "Follow",
		Actor:  "https://remote.example/users/bob",
		Object: domain.ActivityObject{Reference: "https://example.com/users/" + user.Id.String()},
	}

	if err := p.ProcessInboxActivity(user.Id.String(), activity); err != nil {
		t.Errorf("Follow should succeed even when the Accept fails, got %v", err)
	}
	if len(followers.followers) != 1 {
		t.Errorf("Follower should be stored, got %d", len(followers.followers))
	}
}

func TestProcessUndo(t *testing.T) {
	p, user, followers, _ := newTestProcessor(t)

	// Two rows from the same actor, one from another
	for _, actor := range []string{
		"https://remote.example/users/bob",
		"https://remote.example/users/bob",
		"https://other.example/users/carol",
	} {
		f := domain.NewFollower(user.Id, actor, "https://example.com/users/"+user.Id.String(), actor+"/inbox")
		// AddFollower via the fake keeps ids distinct; the real store
		// would have collapsed the duplicate on insert.
		if err := followers.AddFollower(f); err != nil {
			t.Fatalf("AddFollower failed: %v", err)
		}
	}

	undo := &domain.InboxActivity{
		Type:  "Undo",
		Actor: "https://remote.example/users/bob",
		Object: domain.ActivityObject{Embedded: &domain.EmbeddedObject{
			Type:   "Follow",
			Actor:  "https://remote.example/users/bob",
			Object: "https://example.com/users/" + user.Id.String(),
		}},
	}

	if err := p.ProcessInboxActivity(user.Id.String(), undo); err != nil {
		t.Fatalf("ProcessInboxActivity failed: %v", err)
	}

	if len(followers.followers) != 1 {
		t.Fatalf("All rows matching the undone actor should be removed, got %d left", len(followers.followers))
	}
	if followers.followers[0].Actor != "https://other.example/users/carol" {
		t.Errorf("Unrelated follower should survive, got %s", followers.followers[0].Actor)
	}
}

func TestProcessUndoNoMatch(t *testing.T) {
	p, user, followers, _ := newTestProcessor(t)

	f := domain.NewFollower(user.Id, "https://other.example/users/carol",
		"https://example.com/users/"+user.Id.String(), "https://other.example/users/carol/inbox")
	if err := followers.AddFollower(f); err != nil {
		t.Fatalf("AddFollower failed: %v", err)
	}

	undo := &domain.InboxActivity{
		Type:  "Undo",
		Actor: "https://remote.example/users/bob",
		Object: domain.ActivityObject{Embedded: &domain.EmbeddedObject{
			Type:  "Follow",
			Actor: "https://remote.example/users/bob",
		}},
	}

	// Undo of an unknown follow is a no-op, not an error.
	if err := p.ProcessInboxActivity(user.Id.String(), undo); err != nil {
		t.Errorf("Undo without matching follower should succeed, got %v", err)
	}
	if len(followers.followers) != 1 {
		t.Errorf("Follower list should be untouched, got %d", len(followers.followers))
	}
}

func TestProcessUnsupportedActivity(t *testing.T) {
	p, user, _, _ := newTestProcessor(t)

	activity := &domain.InboxActivity{
		Type:   "Like",
		Actor:  "https://remote.example/users/bob",
		Object: domain.ActivityObject{Reference: "https://example.com/notes/1"},
	}

	err := p.ProcessInboxActivity(user.Id.String(), activity)
	if !domain.IsCode(err, domain.ErrUnexpectedActivity) {
		t.Errorf("Expected ErrUnexpectedActivity, got %v", err)
	}
}

func TestProcessInboxUnknownUser(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)

	activity := &domain.InboxActivity{Type: "Follow", Actor: "https://remote.example/users/bob"}

	err := p.ProcessInboxActivity(uuid.NewString(), activity)
	if !domain.IsCode(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	err = p.ProcessInboxActivity("not-a-uuid", activity)
	if !domain.IsCode(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound for invalid id, got %v", err)
	}
}
