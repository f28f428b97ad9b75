package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/deemkeen/minipub/activitypub"
	"github.com/deemkeen/minipub/db"
	"github.com/deemkeen/minipub/domain"
	"github.com/deemkeen/minipub/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers holds the wired services the routes dispatch into.
type Handlers struct {
	conf      *util.AppConfig
	store     *db.DB
	service   *activitypub.Service
	processor *activitypub.Processor
	outbox    *activitypub.Outbox
}

func NewHandlers(conf *util.AppConfig, store *db.DB, service *activitypub.Service,
	processor *activitypub.Processor, outbox *activitypub.Outbox) *Handlers {
	return &Handlers{
		conf:      conf,
		store:     store,
		service:   service,
		processor: processor,
		outbox:    outbox,
	}
}

// apiError translates domain error codes to HTTP statuses at the
// boundary. Persistence details never reach the response body.
func apiError(c *gin.Context, err error) {
	var ce *domain.CommonError
	if !errors.As(err, &ce) {
		c.String(http.StatusInternalServerError, "")
		return
	}
	switch ce.Code {
	case domain.ErrUserNotFound, domain.ErrNoteNotFound, domain.ErrMalformedResource:
		c.String(http.StatusNotFound, ce.Code.Message())
	case domain.ErrUsernameTaken:
		c.String(http.StatusBadRequest, ce.Code.Message())
	case domain.ErrUnexpectedActivity:
		c.String(http.StatusUnprocessableEntity, ce.Code.Message())
	default:
		c.String(http.StatusInternalServerError, "")
	}
}

// Discovery and federation

func (h *Handlers) HostMeta(c *gin.Context) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, h.service.HostMeta())
}

func (h *Handlers) WebFinger(c *gin.Context) {
	resource := c.Query("resource")
	doc, err := h.service.WebFinger(resource)
	if err != nil {
		c.Header("Content-Type", "application/jrd+json; charset=utf-8")
		c.String(http.StatusNotFound, `{"detail":"Not Found"}`)
		return
	}
	c.Header("Content-Type", "application/jrd+json; charset=utf-8")
	c.JSON(http.StatusOK, doc)
}

func (h *Handlers) NodeInfoLinks(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.NodeInfoLinks())
}

func (h *Handlers) NodeInfo(c *gin.Context) {
	info, err := h.service.NodeInfo()
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handlers) Actor(c *gin.Context, username string) {
	person, err := h.service.Actor(username)
	if err != nil {
		apiError(c, err)
		return
	}
	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(http.StatusOK, person)
}

func (h *Handlers) RedirectToActor(c *gin.Context) {
	target, err := h.service.RedirectTarget(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handlers) Inbox(c *gin.Context) {
	var activity domain.InboxActivity
	if err := c.ShouldBindJSON(&activity); err != nil {
		log.Printf("Inbox: failed to parse activity: %v", err)
		c.String(http.StatusBadRequest, "Invalid activity")
		return
	}

	log.Printf("Inbox: received %s from %s", activity.Type, activity.Actor)

	if err := h.processor.ProcessInboxActivity(c.Param("id"), &activity); err != nil {
		apiError(c, err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) OutboxCollection(c *gin.Context) {
	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(http.StatusOK, activitypub.EmptyCollection())
}

// Admin user management

type UserRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName"`
}

type UserResponse struct {
	Id          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// toUserResponse shapes a user for the API. Key material stays out of
// every response.
func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		Id:          user.Id.String(),
		Username:    user.Username,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func (h *Handlers) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := domain.NewUser(req.Username, req.DisplayName)
	if err != nil {
		apiError(c, err)
		return
	}

	if err := h.store.CreateUser(user); err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.store.ReadAllUsers()
	if err != nil {
		apiError(c, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *Handlers) UpdateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}

	user.Username = req.Username
	user.DisplayName = req.DisplayName
	if err := h.store.UpdateUser(user); err != nil {
		apiError(c, err)
		return
	}

	updated, err := h.store.ReadUserById(user.Id)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(updated))
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}

	if err := h.store.DeleteUser(user.Id); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) readUser(idParam string) (*domain.User, error) {
	id, err := uuid.Parse(idParam)
	if err != nil {
		return nil, domain.NewError(domain.ErrUserNotFound)
	}
	return h.store.ReadUserById(id)
}

// Notes

type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

type NoteResponse struct {
	Id        string    `json:"id"`
	UserId    string    `json:"userId"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NotesPageResponse struct {
	Notes []NoteResponse `json:"notes"`
	Total int            `json:"total"`
}

func toNoteResponse(note *domain.Note) NoteResponse {
	return NoteResponse{
		Id:        note.Id.String(),
		UserId:    note.UserId.String(),
		Content:   note.Content,
		Status:    string(note.Status),
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

// CreateNote stores the note and fans it out to all followers. Delivery
// failures are logged only; the publish succeeds regardless.
func (h *Handlers) CreateNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}

	note := domain.NewNote(user.Id, req.Content)
	if err := h.store.CreateNote(note); err != nil {
		apiError(c, err)
		return
	}

	followers, err := h.store.ReadFollowersByUserId(user.Id)
	if err != nil {
		apiError(c, err)
		return
	}

	if err := h.outbox.PublishNote(user, note, followers); err != nil {
		log.Printf("Outbox: publish of note %s failed: %v", note.Id, err)
	}

	c.JSON(http.StatusOK, toNoteResponse(note))
}

func (h *Handlers) ListNotes(c *gin.Context) {
	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(domain.DefaultNotesOffset)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(domain.DefaultNotesLimit)))

	page, err := h.store.ReadNotesByUserId(user.Id, offset, limit)
	if err != nil {
		apiError(c, err)
		return
	}

	resp := NotesPageResponse{Total: page.Total, Notes: make([]NoteResponse, 0, len(page.Notes))}
	for i := range page.Notes {
		resp.Notes = append(resp.Notes, toNoteResponse(&page.Notes[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) GetNote(c *gin.Context) {
	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}

	noteId, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		apiError(c, domain.NewError(domain.ErrNoteNotFound))
		return
	}

	note, err := h.store.ReadNoteById(user.Id, noteId)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNoteResponse(note))
}

func (h *Handlers) DeleteNote(c *gin.Context) {
	user, err := h.readUser(c.Param("id"))
	if err != nil {
		apiError(c, err)
		return
	}

	noteId, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		apiError(c, domain.NewError(domain.ErrNoteNotFound))
		return
	}

	if err := h.store.UpdateNoteStatus(user.Id, noteId, domain.NoteDeleted); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
