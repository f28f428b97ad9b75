package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WebFinger is the JRD document answering an account discovery request.
type WebFinger struct {
	Subject string          `json:"subject"`
	Links   []WebFingerLink `json:"links"`
}

type WebFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type"`
	Href string `json:"href"`
}

type NodeInfoLinks struct {
	Links []NodeInfoLink `json:"links"`
}

type NodeInfoLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type NodeInfo struct {
	Version           string           `json:"version"`
	Software          NodeInfoSoftware `json:"software"`
	Protocols         []string         `json:"protocols"`
	Services          NodeInfoServices `json:"services"`
	OpenRegistrations bool             `json:"openRegistrations"`
	Usage             NodeInfoUsage    `json:"usage"`
	Metadata          struct{}         `json:"metadata"`
}

type NodeInfoSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type NodeInfoServices struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

type NodeInfoUsage struct {
	Users NodeInfoUsers `json:"users"`
}

type NodeInfoUsers struct {
	Total int `json:"total"`
}

// Person is the public actor profile document. It is derived from a User
// and its key pair on every request, never cached.
type Person struct {
	Context                   []string        `json:"@context"`
	Id                        string          `json:"id"`
	Type                      string          `json:"type"`
	PreferredUsername         string          `json:"preferredUsername"`
	Inbox                     string          `json:"inbox"`
	Outbox                    string          `json:"outbox"`
	SharedInbox               string          `json:"sharedInbox"`
	PublicKey                 PersonPublicKey `json:"publicKey"`
	Featured                  string          `json:"featured"`
	ManuallyApprovesFollowers bool            `json:"manuallyApprovesFollowers"`
	Discoverable              bool            `json:"discoverable"`
}

type PersonPublicKey struct {
	Id           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// InboxActivity is an inbound federated activity. The object field is
// polymorphic on the wire: a bare URI string for most activities, or an
// embedded activity body (Undo wraps the Follow it retracts).
type InboxActivity struct {
	Type   string         `json:"type"`
	Id     string         `json:"id"`
	Actor  string         `json:"actor"`
	Object ActivityObject `json:"object"`
}

// ActivityObject is a tagged union: exactly one of Reference or Embedded
// is set, chosen by the JSON token type of the incoming object field.
type ActivityObject struct {
	Reference string
	Embedded  *EmbeddedObject
}

type EmbeddedObject struct {
	Type   string `json:"type"`
	Id     string `json:"id"`
	Actor  string `json:"actor"`
	Object string `json:"object"`
}

func (o *ActivityObject) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = ActivityObject{}
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &o.Reference)
	case '{':
		o.Embedded = &EmbeddedObject{}
		return json.Unmarshal(data, o.Embedded)
	default:
		return fmt.Errorf("activity object must be a string or an object, got %q", data)
	}
}

func (o ActivityObject) MarshalJSON() ([]byte, error) {
	if o.Embedded != nil {
		return json.Marshal(o.Embedded)
	}
	if o.Reference != "" {
		return json.Marshal(o.Reference)
	}
	return []byte("null"), nil
}

// ObjectURI returns the URI the activity's object points at: the bare
// reference itself, or the object of the embedded body.
func (o ActivityObject) ObjectURI() string {
	if o.Embedded != nil {
		return o.Embedded.Object
	}
	return o.Reference
}

// ActorURI returns the actor of an embedded object body, empty for bare
// references.
func (o ActivityObject) ActorURI() string {
	if o.Embedded != nil {
		return o.Embedded.Actor
	}
	return ""
}

// FollowAccept is the Accept activity sent back after a Follow has been
// durably recorded.
type FollowAccept struct {
	Context string             `json:"@context"`
	Summary string             `json:"summary"`
	Type    string             `json:"type"`
	Actor   string             `json:"actor"`
	Object  FollowAcceptObject `json:"object"`
}

type FollowAcceptObject struct {
	Type   string `json:"type"`
	Actor  string `json:"actor"`
	Object string `json:"object"`
}

// ActivityNoteItem is the Create/Note wrapper delivered to followers.
// Built fresh per delivery with a current timestamp, never persisted.
type ActivityNoteItem struct {
	Context   string             `json:"@context"`
	Id        string             `json:"id"`
	Type      string             `json:"type"`
	Actor     string             `json:"actor"`
	Published string             `json:"published"`
	To        []string           `json:"to"`
	Cc        []string           `json:"cc"`
	Object    ActivityNoteObject `json:"object"`
}

type ActivityNoteObject struct {
	Id           string   `json:"id"`
	Type         string   `json:"type"`
	AttributedTo string   `json:"attributedTo"`
	Content      string   `json:"content"`
	Published    string   `json:"published"`
	To           []string `json:"to"`
	Cc           []string `json:"cc"`
}

// ActivityNoteBox is the (empty) outbox OrderedCollection.
type ActivityNoteBox struct {
	Context      string             `json:"@context"`
	Summary      string             `json:"summary"`
	Type         string             `json:"type"`
	TotalItems   int                `json:"totalItems"`
	OrderedItems []ActivityNoteItem `json:"orderedItems"`
}
