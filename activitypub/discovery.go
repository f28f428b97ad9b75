package activitypub

import (
	"fmt"
	"strings"

	"github.com/deemkeen/minipub/domain"
	"github.com/deemkeen/minipub/util"
)

const hostMetaTemplate = `<?xml version="1.0"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
<Link rel="lrdd" type="application/xrd+xml" template="APP_URL.well-known/webfinger?resource={uri}" />
</XRD>`

// Service answers the discovery read paths other servers hit: host-meta,
// webfinger, nodeinfo, actor documents.
type Service struct {
	conf  *util.AppConfig
	users UserStore
}

func NewService(conf *util.AppConfig, users UserStore) *Service {
	return &Service{conf: conf, users: users}
}

// HostMeta returns the XRD document pointing at the webfinger endpoint.
func (s *Service) HostMeta() string {
	return strings.ReplaceAll(hostMetaTemplate, "APP_URL", s.conf.BaseURL())
}

// WebFinger resolves an account resource ("acct:alice@example.com" or
// "alice@example.com") to the local actor reference. The domain part is
// matched case-sensitively against the configured host; the user part
// must name an existing local user. No partial or fuzzy matches.
func (s *Service) WebFinger(resource string) (*domain.WebFinger, error) {
	resource = strings.TrimPrefix(resource, "acct:")

	elem := strings.Split(resource, "@")
	if len(elem) != 2 || elem[0] == "" || elem[1] == "" {
		return nil, domain.NewError(domain.ErrMalformedResource)
	}

	if elem[1] != s.conf.BaseHost() {
		return nil, domain.NewError(domain.ErrMalformedResource)
	}

	user, err := s.users.ReadUserByUsername(elem[0])
	if err != nil {
		return nil, err
	}

	return &domain.WebFinger{
		Subject: resource,
		Links: []domain.WebFingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: fmt.Sprintf("%susers/%s", s.conf.BaseURL(), user.Id),
			},
		},
	}, nil
}

func (s *Service) NodeInfoLinks() *domain.NodeInfoLinks {
	return &domain.NodeInfoLinks{
		Links: []domain.NodeInfoLink{
			{
				Rel:  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				Href: fmt.Sprintf("%snodeinfo/2.1", s.conf.BaseURL()),
			},
		},
	}
}

// NodeInfo includes the live user count.
func (s *Service) NodeInfo() (*domain.NodeInfo, error) {
	users, err := s.users.ReadAllUsers()
	if err != nil {
		return nil, err
	}

	return &domain.NodeInfo{
		Version: "2.1",
		Software: domain.NodeInfoSoftware{
			Name:    util.Name,
			Version: util.GetVersion(),
		},
		Protocols: []string{"activitypub"},
		Services:  domain.NodeInfoServices{Inbound: []string{}, Outbound: []string{}},
		Usage: domain.NodeInfoUsage{
			Users: domain.NodeInfoUsers{Total: len(users)},
		},
	}, nil
}
