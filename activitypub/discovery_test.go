package activitypub

import (
	"strings"
	"testing"

	"github.com/deemkeen/minipub/domain"
	"github.com/deemkeen/minipub/util"
	"github.com/google/uuid"
)

func testConf() *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.Host = "localhost"
	conf.Conf.HttpPort = 8080
	conf.Conf.AppUrl = "https://example.com/"
	return conf
}

func newTestService(t *testing.T) (*Service, *domain.User) {
	t.Helper()
	user, err := domain.NewUser("alice", "Alice")
	if err != nil {
		t.Fatalf("NewUser failed: %v", err)
	}
	users := &fakeUserStore{users: map[uuid.UUID]*domain.User{user.Id: user}}
	return NewService(testConf(), users), user
}

func TestHostMeta(t *testing.T) {
	service, _ := newTestService(t)
	doc := service.HostMeta()

	if !strings.Contains(doc, `<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">`) {
		t.Error("Host-meta should be an XRD document")
	}
	if !strings.Contains(doc, "https://example.com/.well-known/webfinger?resource={uri}") {
		t.Errorf("Host-meta should point at the webfinger endpoint, got:\n%s", doc)
	}
	if strings.Contains(doc, "APP_URL") {
		t.Error("Template placeholder should be substituted")
	}
}

func TestWebFingerResolution(t *testing.T) {
	service, user := newTestService(t)

	tests := []struct {
		name     string
		resource string
		wantCode domain.ErrorCode
		wantOk   bool
	}{
		{name: "acct form", resource: "acct:alice@example.com", wantOk: true},
		{name: "bare form", resource: "alice@example.com", wantOk: true},
		{name: "wrong host", resource: "acct:alice@other.com", wantCode: domain.ErrMalformedResource},
		{name: "no at sign", resource: "alice", wantCode: domain.ErrMalformedResource},
		{name: "empty user part", resource: "@example.com", wantCode: domain.ErrMalformedResource},
		{name: "empty resource", resource: "", wantCode: domain.ErrMalformedResource},
		{name: "extra at sign", resource: "a@b@example.com", wantCode: domain.ErrMalformedResource},
		{name: "unknown user", resource: "acct:nobody@example.com", wantCode: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := service.WebFinger(tt.resource)
			if tt.wantOk {
				if err != nil {
					t.Fatalf("WebFinger failed: %v", err)
				}
				if doc.Subject != "alice@example.com" {
					t.Errorf("Expected subject alice@example.com, got %s", doc.Subject)
				}
				if len(doc.Links) != 1 {
					t.Fatalf("Expected 1 link, got %d", len(doc.Links))
				}
				link := doc.Links[0]
				if link.Rel != "self" || link.Type != "application/activity+json" {
					t.Errorf("Unexpected link rel/type: %s / %s", link.Rel, link.Type)
				}
				wantHref := "https://example.com/users/" + user.Id.String()
				if link.Href != wantHref {
					t.Errorf("Expected href %s, got %s", wantHref, link.Href)
				}
				return
			}
			if !domain.IsCode(err, tt.wantCode) {
				t.Errorf("Expected error code %v, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestNodeInfoLinks(t *testing.T) {
	service, _ := newTestService(t)
	links := service.NodeInfoLinks()

	if len(links.Links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(links.Links))
	}
	if links.Links[0].Rel != "http://nodeinfo.diaspora.software/ns/schema/2.1" {
		t.Errorf("Unexpected rel: %s", links.Links[0].Rel)
	}
	if links.Links[0].Href != "https://example.com/nodeinfo/2.1" {
		t.Errorf("Unexpected href: %s", links.Links[0].Href)
	}
}

func TestNodeInfo(t *testing.T) {
	service, _ := newTestService(t)

	info, err := service.NodeInfo()
	if err != nil {
		t.Fatalf("NodeInfo failed: %v", err)
	}

	if info.Version != "2.1" {
		t.Errorf("Expected schema version 2.1, got %s", info.Version)
	}
	if info.Software.Name != util.Name {
		t.Errorf("Unexpected software name: %s", info.Software.Name)
	}
	if len(info.Protocols) != 1 || info.Protocols[0] != "activitypub" {
		t.Errorf("Expected protocols [activitypub], got %v", info.Protocols)
	}
	if info.Usage.Users.Total != 1 {
		t.Errorf("Expected user count 1, got %d", info.Usage.Users.Total)
	}
}
