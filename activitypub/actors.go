package activitypub

import (
	"fmt"

	"github.com/deemkeen/minipub/domain"
	"github.com/google/uuid"
)

// Actor builds the public Person document for a local username. The
// document is a pure function of the stored user and its key pair.
func (s *Service) Actor(username string) (*domain.Person, error) {
	user, err := s.users.ReadUserByUsername(username)
	if err != nil {
		return nil, err
	}

	base := s.conf.BaseURL()
	actorId := fmt.Sprintf("%susers/%s", base, user.Id)

	return &domain.Person{
		Context: []string{
			"https://www.w3.org/ns/activitystreams",
			"https://w3id.org/security/v1",
		},
		Id:                actorId,
		Type:              "Person",
		PreferredUsername: user.Username,
		Inbox:             actorId + "/inbox",
		Outbox:            actorId + "/outbox",
		SharedInbox:       base + "inbox",
		PublicKey: domain.PersonPublicKey{
			Id:           actorId + "#main-key",
			Owner:        actorId,
			PublicKeyPem: user.KeyPair.PublicKeyPem,
		},
		Featured:                  "",
		ManuallyApprovesFollowers: false,
		Discoverable:              false,
	}, nil
}

// RedirectTarget resolves a user id to the canonical human-readable
// actor URL, "<base>@<username>", for HTTP redirect use.
func (s *Service) RedirectTarget(userId string) (string, error) {
	id, err := uuid.Parse(userId)
	if err != nil {
		return "", domain.NewError(domain.ErrUserNotFound)
	}

	user, err := s.users.ReadUserById(id)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s@%s", s.conf.BaseURL(), user.Username), nil
}
