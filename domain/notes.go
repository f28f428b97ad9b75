package domain

import (
	"time"

	"github.com/google/uuid"
)

type NoteStatus string

const (
	NotePublished NoteStatus = "PUBLISHED"
	NoteDeleted   NoteStatus = "DELETED"
)

type Note struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Content   string
	Status    NoteStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewNote(userId uuid.UUID, content string) *Note {
	now := time.Now().UTC()
	return &Note{
		Id:        uuid.New(),
		UserId:    userId,
		Content:   content,
		Status:    NotePublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NotesPage is one page of a user's notes plus the overall count.
type NotesPage struct {
	Notes []Note
	Total int
}

const (
	DefaultNotesOffset = 0
	DefaultNotesLimit  = 10
)
