package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rivo/uniseg"

	"github.com/jgoulah/poemcast/internal/httputil"
	"github.com/jgoulah/poemcast/pkg/models"
)

// blueskyMaxGraphemes is the app.bsky.feed.post text limit
const blueskyMaxGraphemes = 300

// Bluesky posts to a Bluesky account over AT Protocol XRPC
type Bluesky struct {
	client     *http.Client
	host       string
	identifier string
	password   string
	now        func() time.Time
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

type blueskyPost struct {
	Type      string   `json:"$type"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Langs     []string `json:"langs,omitempty"`
}

type createRecordInput struct {
	Repo       string      `json:"repo"`
	Collection string      `json:"collection"`
	Record     blueskyPost `json:"record"`
}

type createRecordOutput struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// NewBluesky creates a Bluesky publisher for the given PDS host
func NewBluesky(host, identifier, password string) (*Bluesky, error) {
	if identifier == "" {
		return nil, fmt.Errorf("Bluesky username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("Bluesky password is required when a username is set")
	}
	return &Bluesky{
		client:     httputil.NewClient(),
		host:       strings.TrimSuffix(host, "/"),
		identifier: identifier,
		password:   password,
		now:        time.Now,
	}, nil
}

func (b *Bluesky) Name() string { return "bluesky" }

// Publish logs in and creates a post, returning its at:// URI
func (b *Bluesky) Publish(ctx context.Context, poem models.Poem) (string, error) {
	if n := uniseg.GraphemeClusterCount(poem.Text); n > blueskyMaxGraphemes {
		return "", fmt.Errorf("%w: %d graphemes (max %d)", ErrPostTooLong, n, blueskyMaxGraphemes)
	}

	var session blueskySession
	err := httputil.PostJSON(ctx, b.client, b.host+"/xrpc/com.atproto.server.createSession", "",
		map[string]string{"identifier": b.identifier, "password": b.password}, &session)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	input := createRecordInput{
		Repo:       session.Did,
		Collection: "app.bsky.feed.post",
		Record: blueskyPost{
			Type:      "app.bsky.feed.post",
			Text:      poem.Text,
			CreatedAt: b.now().UTC().Format(time.RFC3339),
			Langs:     []string{"ja"},
		},
	}

	var out createRecordOutput
	if err := httputil.PostJSON(ctx, b.client, b.host+"/xrpc/com.atproto.repo.createRecord", session.AccessJwt, input, &out); err != nil {
		return "", fmt.Errorf("creating post: %w", err)
	}
	return out.URI, nil
}
