package domain

import (
	"fmt"
	"time"

	"github.com/deemkeen/minipub/util"
	"github.com/google/uuid"
)

// KeyPair is a user's RSA key pair in PEM form, generated once at user
// creation and never rotated.
type KeyPair struct {
	PrivateKeyPem string
	PublicKeyPem  string
}

type User struct {
	Id          uuid.UUID
	Username    string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	KeyPair     KeyPair
}

// NewUser creates a user with a fresh federation key pair.
func NewUser(username string, displayName string) (*User, error) {
	keypair, err := util.GeneratePemKeypair()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		Id:          uuid.New(),
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
		KeyPair: KeyPair{
			PrivateKeyPem: keypair.Private,
			PublicKeyPem:  keypair.Public,
		},
	}, nil
}

func (u *User) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUsername: %s \n\tDisplayName: %s \n\tCreatedAt: %s", u.Id, u.Username, u.DisplayName, u.CreatedAt)
}
