package activitypub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/deemkeen/minipub/domain"
	"github.com/deemkeen/minipub/util"
	"github.com/go-resty/resty/v2"
)

const defaultDeliveryWorkers = 8

// DeliveryResult is the outcome of one recipient's delivery attempt.
type DeliveryResult struct {
	Inbox      string
	StatusCode int
	Err        error
}

// Deliverer posts signed activity payloads to remote inboxes. Every
// recipient is handled independently: a slow or broken inbox never
// affects delivery to the others, and no failure propagates to the
// operation that triggered the fan-out.
type Deliverer struct {
	conf    *util.AppConfig
	client  *resty.Client
	workers int
}

func NewDeliverer(conf *util.AppConfig) *Deliverer {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", util.GetNameAndVersion())

	return &Deliverer{
		conf:    conf,
		client:  client,
		workers: defaultDeliveryWorkers,
	}
}

// Deliver fans payload out to every inbox, at most d.workers at a time,
// and blocks until all attempts finished. Failures are logged and
// reported in the result slice only.
func (d *Deliverer) Deliver(sender *domain.User, payload []byte, inboxes []string) []DeliveryResult {
	results := make([]DeliveryResult, len(inboxes))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i, inbox := range inboxes {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, inbox string) {
			defer wg.Done()
			defer func() { <-sem }()

			status, err := d.deliverOne(sender, payload, inbox)
			if err != nil {
				log.Printf("Delivery: %s failed: %v", inbox, err)
			}
			results[i] = DeliveryResult{Inbox: inbox, StatusCode: status, Err: err}
		}(i, inbox)
	}

	wg.Wait()
	return results
}

// ReplyAccept sends a signed Accept for the given Follow back to the
// requester's inbox, derived as actor + "/inbox".
func (d *Deliverer) ReplyAccept(user *domain.User, activity *domain.InboxActivity) error {
	accept := domain.FollowAccept{
		Context: "https://www.w3.org/ns/activitystreams",
		Summary: "Accepted",
		Type:    "Accept",
		Actor:   fmt.Sprintf("%susers/%s", d.conf.BaseURL(), user.Id),
		Object: domain.FollowAcceptObject{
			Type:   activity.Type,
			Actor:  activity.Actor,
			Object: activity.Object.ObjectURI(),
		},
	}

	payload, err := json.Marshal(accept)
	if err != nil {
		return fmt.Errorf("failed to marshal Accept: %w", err)
	}

	_, err = d.deliverOne(user, payload, activity.Actor+"/inbox")
	return err
}

// deliverOne signs and posts payload to a single inbox. Key problems are
// wrapped as signing errors so they stay scoped to this one attempt.
func (d *Deliverer) deliverOne(sender *domain.User, payload []byte, inbox string) (int, error) {
	parsed, err := url.Parse(inbox)
	if err != nil || !parsed.IsAbs() {
		return 0, fmt.Errorf("invalid inbox URI %q", inbox)
	}

	privateKey, err := ParsePrivateKey(sender.KeyPair.PrivateKeyPem)
	if err != nil {
		return 0, domain.WrapError(domain.ErrSigning, err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	digest := Digest(payload)

	signature, err := Sign(privateKey, SigningString(parsed.Path, parsed.Host, date, digest))
	if err != nil {
		return 0, domain.WrapError(domain.ErrSigning, err)
	}

	keyId := fmt.Sprintf("%susers/%s#main-key", d.conf.BaseURL(), sender.Id)

	resp, err := d.client.R().
		SetHeader("Host", parsed.Host).
		SetHeader("Date", date).
		SetHeader("Digest", digest).
		SetHeader("Content-Type", "application/activity+json; charset=utf-8").
		SetHeader("Signature", SignatureHeader(keyId, signature)).
		SetBody(payload).
		Post(inbox)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return resp.StatusCode(), fmt.Errorf("remote server returned status %d", resp.StatusCode())
	}

	return resp.StatusCode(), nil
}
