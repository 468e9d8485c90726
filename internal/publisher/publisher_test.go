package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/internal/httputil"
	"github.com/jgoulah/poemcast/pkg/models"
)

func newTestPoem() models.Poem {
	return models.Poem{
		ID:        1,
		RunID:     "run-1",
		Theme:     "月と自転車",
		Text:      "ペダルを漕ぐたび、月は少しずつ遠ざかる。",
		Engine:    "openai",
		Model:     "gpt-4o-mini",
		CreatedAt: time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC),
	}
}

type fakePublisher struct {
	name string
	id   string
	err  error
}

func (f *fakePublisher) Name() string { return f.name }
func (f *fakePublisher) Publish(ctx context.Context, poem models.Poem) (string, error) {
	return f.id, f.err
}

func TestPublishAll_IndependentResults(t *testing.T) {
	pubs := []Publisher{
		&fakePublisher{name: "slack", id: "123.456"},
		&fakePublisher{name: "bluesky", err: errors.New("session expired")},
		&fakePublisher{name: "telegram", id: "77"},
	}

	results := PublishAll(context.Background(), pubs, newTestPoem())
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Destination != "slack" || results[0].RemoteID != "123.456" || results[0].Err != nil {
		t.Errorf("slack result = %+v", results[0])
	}
	if results[1].Destination != "bluesky" || results[1].Err == nil {
		t.Errorf("bluesky result = %+v", results[1])
	}
	if results[2].RemoteID != "77" || results[2].Err != nil {
		t.Errorf("telegram result = %+v", results[2])
	}

	err := JoinErrors(results)
	if err == nil || !strings.Contains(err.Error(), "bluesky: session expired") {
		t.Errorf("JoinErrors() = %v", err)
	}
	if strings.Contains(err.Error(), "slack") {
		t.Errorf("JoinErrors() should only name failures: %v", err)
	}
}

func TestJoinErrors_AllSucceeded(t *testing.T) {
	if err := JoinErrors([]Result{{Destination: "slack"}}); err != nil {
		t.Errorf("JoinErrors() = %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	if pubs, err := FromConfig(cfg, nil); err != nil || len(pubs) != 0 {
		t.Fatalf("empty config: pubs=%v err=%v", pubs, err)
	}

	cfg.Slack.BotToken = "xoxb"
	cfg.Slack.Channel = "#poems"
	cfg.Bluesky.Username = "poet.bsky.social"
	cfg.Bluesky.Password = "app-pass"
	cfg.Telegram.BotToken = "tg"
	cfg.Telegram.ChatID = 42

	pubs, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	var names []string
	for _, p := range pubs {
		names = append(names, p.Name())
	}
	if strings.Join(names, ",") != "slack,bluesky,telegram" {
		t.Errorf("publishers = %v", names)
	}
}

func TestFromConfig_SlackWithoutChannel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Slack.BotToken = "xoxb"
	if _, err := FromConfig(cfg, nil); err == nil {
		t.Fatal("expected error for slack without channel")
	}
}

func TestSlack_HeaderThenThreadReply(t *testing.T) {
	type post struct{ channel, text, threadTS string }
	var (
		mu    sync.Mutex
		posts []post
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat.postMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		r.ParseForm()
		mu.Lock()
		posts = append(posts, post{r.FormValue("channel"), r.FormValue("text"), r.FormValue("thread_ts")})
		n := len(posts)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000100"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000200"}`))
	}))
	defer server.Close()

	s, err := NewSlack("xoxb-test", "C1", "今日のポエム", server.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}

	ts, err := s.Publish(context.Background(), newTestPoem())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if ts != "1700000000.000200" {
		t.Errorf("Publish() ts = %s", ts)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].text != "今日のポエム" || posts[0].threadTS != "" {
		t.Errorf("header post = %+v", posts[0])
	}
	if posts[1].text != newTestPoem().Text || posts[1].threadTS != "1700000000.000100" {
		t.Errorf("poem post = %+v", posts[1])
	}
}

func TestSlack_HeaderFailurePostsTopLevel(t *testing.T) {
	var calls int
	var lastThreadTS string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		calls++
		lastThreadTS = r.FormValue("thread_ts")
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.Write([]byte(`{"ok":false,"error":"rate_limited"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.2"}`))
	}))
	defer server.Close()

	s, _ := NewSlack("xoxb-test", "C1", "header", server.URL+"/", nil)
	if _, err := s.Publish(context.Background(), newTestPoem()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if calls != 2 || lastThreadTS != "" {
		t.Errorf("calls = %d, thread_ts = %q", calls, lastThreadTS)
	}
}

func TestSlack_PoemFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	s, _ := NewSlack("xoxb-test", "C404", "", server.URL+"/", nil)
	_, err := s.Publish(context.Background(), newTestPoem())
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}

func TestBluesky_SessionThenPost(t *testing.T) {
	var record createRecordInput

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			var in map[string]string
			json.NewDecoder(r.Body).Decode(&in)
			if in["identifier"] != "poet.bsky.social" || in["password"] != "app-pass" {
				t.Errorf("session input = %v", in)
			}
			w.Write([]byte(`{"accessJwt":"jwt-1","refreshJwt":"r","handle":"poet.bsky.social","did":"did:plc:abc"}`))
		case "/xrpc/com.atproto.repo.createRecord":
			if r.Header.Get("Authorization") != "Bearer jwt-1" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			json.NewDecoder(r.Body).Decode(&record)
			w.Write([]byte(`{"uri":"at://did:plc:abc/app.bsky.feed.post/3k","cid":"bafy"}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	b, err := NewBluesky(server.URL+"/", "poet.bsky.social", "app-pass")
	if err != nil {
		t.Fatal(err)
	}
	b.now = func() time.Time { return time.Date(2025, time.March, 1, 8, 0, 5, 0, time.UTC) }

	uri, err := b.Publish(context.Background(), newTestPoem())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if uri != "at://did:plc:abc/app.bsky.feed.post/3k" {
		t.Errorf("uri = %s", uri)
	}
	if record.Repo != "did:plc:abc" || record.Collection != "app.bsky.feed.post" {
		t.Errorf("record input = %+v", record)
	}
	if record.Record.Type != "app.bsky.feed.post" || record.Record.Text != newTestPoem().Text {
		t.Errorf("record = %+v", record.Record)
	}
	if record.Record.CreatedAt != "2025-03-01T08:00:05Z" {
		t.Errorf("createdAt = %s", record.Record.CreatedAt)
	}
}

func TestBluesky_LoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"AuthenticationRequired","message":"Invalid identifier or password"}`))
	}))
	defer server.Close()

	b, _ := NewBluesky(server.URL, "poet.bsky.social", "wrong")
	_, err := b.Publish(context.Background(), newTestPoem())
	if err == nil || !strings.Contains(err.Error(), "creating session") {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestBluesky_TooLong(t *testing.T) {
	b, _ := NewBluesky("http://127.0.0.1:0", "poet", "pass")
	poem := newTestPoem()
	poem.Text = strings.Repeat("詩", blueskyMaxGraphemes+1)

	if _, err := b.Publish(context.Background(), poem); !errors.Is(err, ErrPostTooLong) {
		t.Fatalf("expected ErrPostTooLong, got %v", err)
	}
}

func TestNewBluesky_RequiresPassword(t *testing.T) {
	if _, err := NewBluesky("https://bsky.social", "poet", ""); err == nil {
		t.Fatal("expected error without password")
	}
}

func TestTelegram_Send(t *testing.T) {
	var chatID, text string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"poem","username":"poem_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			r.ParseForm()
			chatID, text = r.FormValue("chat_id"), r.FormValue("text")
			w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	tg, err := NewTelegram("test-token", 42, server.URL+"/bot%s/%s")
	if err != nil {
		t.Fatal(err)
	}

	id, err := tg.Publish(context.Background(), newTestPoem())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "77" {
		t.Errorf("message id = %s", id)
	}
	if chatID != "42" || text != newTestPoem().Text {
		t.Errorf("chat_id = %s, text = %s", chatID, text)
	}
}

// fakeToken is a completed mqtt.Token
type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeMQTTClient records publishes; other mqtt.Client methods are not used
type fakeMQTTClient struct {
	mqtt.Client
	topic    string
	retained bool
	payload  []byte
	err      error
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.retained = topic, retained
	c.payload, _ = payload.([]byte)
	return newFakeToken(c.err)
}

func (c *fakeMQTTClient) IsConnected() bool { return false }

func TestMQTT_Publish(t *testing.T) {
	client := &fakeMQTTClient{}
	m := newMQTTWithClient(client, "home")

	topic, err := m.Publish(context.Background(), newTestPoem())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if topic != "home/poem" || client.topic != "home/poem" || !client.retained {
		t.Errorf("topic = %s, client.topic = %s, retained = %v", topic, client.topic, client.retained)
	}

	var payload MQTTPayload
	if err := json.Unmarshal(client.payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Text != newTestPoem().Text || payload.RunID != "run-1" || payload.CreatedAt != "2025-03-01T08:00:00Z" {
		t.Errorf("payload = %+v", payload)
	}

	m.Close()
}

func TestMQTT_PublishError(t *testing.T) {
	client := &fakeMQTTClient{err: errors.New("not connected")}
	m := newMQTTWithClient(client, "poemcast")

	if _, err := m.Publish(context.Background(), newTestPoem()); err == nil {
		t.Fatal("expected publish error")
	}
}

// newStalledServer accepts requests and never answers until the client gives up
func newStalledServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})
	return server
}

// publishWithin fails the test if Publish has not returned within limit
func publishWithin(t *testing.T, p Publisher, limit time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := p.Publish(context.Background(), newTestPoem())
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(limit):
		t.Fatalf("%s Publish() still blocked after %s", p.Name(), limit)
		return nil
	}
}

func TestPublishers_DefaultClientTimeout(t *testing.T) {
	s, err := NewSlack("xoxb-test", "C1", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.httpClient.Timeout != httputil.DefaultTimeout {
		t.Errorf("slack timeout = %s", s.httpClient.Timeout)
	}

	tg, err := NewTelegram("test-token", 42, "")
	if err != nil {
		t.Fatal(err)
	}
	if tg.client.Timeout != httputil.DefaultTimeout {
		t.Errorf("telegram timeout = %s", tg.client.Timeout)
	}

	b, err := NewBluesky("https://bsky.social", "poet.bsky.social", "app-pass")
	if err != nil {
		t.Fatal(err)
	}
	if b.client.Timeout != httputil.DefaultTimeout {
		t.Errorf("bluesky timeout = %s", b.client.Timeout)
	}
}

func TestSlack_StalledServerTimesOut(t *testing.T) {
	server := newStalledServer(t)
	s, err := newSlack("xoxb-test", "C1", "", server.URL+"/", &http.Client{Timeout: 200 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := publishWithin(t, s, 5*time.Second); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestTelegram_StalledServerTimesOut(t *testing.T) {
	server := newStalledServer(t)
	tg, err := NewTelegram("test-token", 42, server.URL+"/bot%s/%s")
	if err != nil {
		t.Fatal(err)
	}
	tg.client = &http.Client{Timeout: 200 * time.Millisecond}
	if err := publishWithin(t, tg, 5*time.Second); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestBluesky_StalledServerTimesOut(t *testing.T) {
	server := newStalledServer(t)
	b, err := NewBluesky(server.URL, "poet.bsky.social", "app-pass")
	if err != nil {
		t.Fatal(err)
	}
	b.client = &http.Client{Timeout: 200 * time.Millisecond}
	if err := publishWithin(t, b, 5*time.Second); err == nil {
		t.Fatal("expected timeout error")
	}
}
