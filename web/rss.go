package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/deemkeen/minipub/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
)

// Feed serves a user's published notes as RSS.
func (h *Handlers) Feed(c *gin.Context) {
	username := c.Param("username")

	user, err := h.store.ReadUserByUsername(username)
	if err != nil {
		apiError(c, err)
		return
	}

	page, err := h.store.ReadNotesByUserId(user.Id, domain.DefaultNotesOffset, domain.DefaultNotesLimit)
	if err != nil {
		apiError(c, err)
		return
	}

	rss, err := buildRSS(h.conf.BaseURL(), user, page.Notes)
	if err != nil {
		apiError(c, domain.WrapError(domain.ErrUnexpected, err))
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

func buildRSS(base string, user *domain.User, notes []domain.Note) (string, error) {
	link := fmt.Sprintf("%sfeed/%s", base, user.Username)
	email := fmt.Sprintf("%s@minipub", user.Username)

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Notes - %s", user.Username),
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("notes published by %s", user.Username),
		Author:      &feeds.Author{Name: user.Username, Email: email},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, note := range notes {
		if note.Status != domain.NotePublished {
			continue
		}
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      note.Id.String(),
				Title:   note.CreatedAt.Format(time.RFC1123),
				Link:    &feeds.Link{Href: fmt.Sprintf("%snotes/%s", base, note.Id)},
				Content: note.Content,
				Author:  &feeds.Author{Name: user.Username, Email: email},
				Created: note.CreatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
