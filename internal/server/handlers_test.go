package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/richarrd92/hobbymatch/internal/broadcast"
	"github.com/richarrd92/hobbymatch/internal/config"
	"github.com/richarrd92/hobbymatch/internal/domain"
)

// --- fakes ---

type fakeVerifier struct {
	identities map[string]*domain.Identity
}

func (f *fakeVerifier) Verify(token string) (*domain.Identity, error) {
	identity, ok := f.identities[token]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return identity, nil
}

type fakeUsers struct {
	mu      sync.Mutex
	byAuth  map[string]*domain.User
	byID    map[uuid.UUID]*domain.User
	failAll bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byAuth: make(map[string]*domain.User),
		byID:   make(map[uuid.UUID]*domain.User),
	}
}

func (f *fakeUsers) add(user *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byAuth[user.AuthUID] = user
	f.byID[user.ID] = user
}

func (f *fakeUsers) Upsert(_ context.Context, authUID, name, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("database down")
	}
	if user, ok := f.byAuth[authUID]; ok {
		user.Name = name
		user.Email = email
		return user, nil
	}
	user := &domain.User{ID: uuid.New(), AuthUID: authUID, Name: name, Email: email}
	f.byAuth[authUID] = user
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) GetByAuthUID(_ context.Context, authUID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("database down")
	}
	user, ok := f.byAuth[authUID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

type fakePosts struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*domain.Post
}

func newFakePosts() *fakePosts {
	return &fakePosts{posts: make(map[uuid.UUID]*domain.Post)}
}

func (f *fakePosts) CreatePost(_ context.Context, post *domain.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = uuid.New()
	clone := *post
	f.posts[post.ID] = &clone
	return nil
}

func (f *fakePosts) GetPost(_ context.Context, id uuid.UUID) (*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *post
	return &clone, nil
}

func (f *fakePosts) ListFeed(_ context.Context, now time.Time) ([]domain.FeedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var feed []domain.FeedPost
	for _, post := range f.posts {
		if post.ExpiresAt.After(now) {
			feed = append(feed, domain.FeedPost{Post: *post, ReactionCounts: map[string]int{}})
		}
	}
	return feed, nil
}

func (f *fakePosts) DeletePost(_ context.Context, id, userID uuid.UUID) (*domain.ExpiredPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok || post.UserID != userID {
		return nil, domain.ErrNotFound
	}
	delete(f.posts, id)
	return &domain.ExpiredPost{ID: id, ImageKey: post.ImageKey}, nil
}

func (f *fakePosts) CreateComment(_ context.Context, comment *domain.Comment) error {
	comment.ID = uuid.New()
	return nil
}

func (f *fakePosts) UpsertReaction(_ context.Context, reaction *domain.Reaction) error {
	reaction.ID = uuid.New()
	return nil
}

func (f *fakePosts) FindExpired(_ context.Context, now time.Time) ([]domain.ExpiredPost, error) {
	return nil, nil
}

func (f *fakePosts) DeleteCascade(_ context.Context, ids []uuid.UUID) error {
	return nil
}

type fakeBroadcaster struct {
	mu          sync.Mutex
	events      []domain.Event
	distributed bool
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBroadcaster) DistributedActive() bool { return f.distributed }

func (f *fakeBroadcaster) snapshot() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

type fakeMedia struct {
	mu       sync.Mutex
	uploaded map[string]string
	deleted  []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{uploaded: make(map[string]string)}
}

func (f *fakeMedia) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

// --- harness ---

type testEnv struct {
	server      *Server
	users       *fakeUsers
	posts       *fakePosts
	media       *fakeMedia
	broadcaster *fakeBroadcaster
	verifier    *fakeVerifier
	pinger      *fakePinger
	hub         *broadcast.Hub
	user        *domain.User
	clock       *clockwork.FakeClock
}

const validToken = "good-token"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:           "0",
		JWTSecret:      "secret",
		PostTTL:        24 * time.Hour,
		MaxFeedClients: 100,
		MaxConnsPerIP:  100,
		ConnRatePerIP:  1000,
		ConnBurstPerIP: 1000,
	}

	users := newFakeUsers()
	user := &domain.User{
		ID:            uuid.New(),
		AuthUID:       "auth-uid-1",
		Name:          "Ada",
		Email:         "ada@example.com",
		ProfilePicURL: "https://cdn.example.com/ada.png",
	}
	users.add(user)

	verifier := &fakeVerifier{identities: map[string]*domain.Identity{
		validToken: {AuthUID: user.AuthUID, Name: user.Name, Email: user.Email},
	}}

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	posts := newFakePosts()
	media := newFakeMedia()
	sink := &fakeBroadcaster{}
	pinger := &fakePinger{}

	hub := broadcast.NewHub(clockwork.NewRealClock(), cfg.MaxFeedClients)
	t.Cleanup(hub.Stop)

	srv := NewServer(cfg, users, posts, media, verifier, hub, sink, clock, pinger)
	return &testEnv{
		server:      srv,
		users:       users,
		posts:       posts,
		media:       media,
		broadcaster: sink,
		verifier:    verifier,
		pinger:      pinger,
		hub:         hub,
		user:        user,
		clock:       clock,
	}
}

func (env *testEnv) request(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	env.server.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) jsonRequest(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return env.request(t, method, path, token, strings.NewReader(string(body)), "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (env *testEnv) createPost(t *testing.T) *domain.Post {
	t.Helper()

	now := env.clock.Now().UTC()
	post := &domain.Post{
		UserID:    env.user.ID,
		Content:   "anyone up for bouldering",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, env.posts.CreatePost(context.Background(), post))
	return post
}

func TestRoutesRejectMissingAuth(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/feed"},
		{http.MethodPost, "/api/posts"},
		{http.MethodDelete, "/api/posts/" + uuid.NewString()},
		{http.MethodPost, fmt.Sprintf("/api/posts/%s/comments", uuid.NewString())},
		{http.MethodPost, fmt.Sprintf("/api/posts/%s/reactions", uuid.NewString())},
	}

	for _, tc := range paths {
		rec := env.request(t, tc.method, tc.path, "", nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}
