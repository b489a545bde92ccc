package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segugio/internal/group"
	"segugio/internal/groupstore"
	"segugio/internal/transport"
)

const testAPIKey = "relay-secret"

type relayFixture struct {
	server *Server
	conv   *transport.MemoryConversations
	store  *groupstore.Store
}

func newFixture(t *testing.T) *relayFixture {
	t.Helper()
	conv := transport.NewMemoryConversations()
	store, err := groupstore.Open(filepath.Join(t.TempDir(), "groups.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(group.NewProvisioner(conv), store, conv)
	return &relayFixture{server: NewServer(Config{Service: svc, APIKey: testAPIKey}), conv: conv, store: store}
}

func (f *relayFixture) post(t *testing.T, path, apiKey string, body any) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr, env
}

func TestCreateGroup_ProvisionsAndReturnsID(t *testing.T) {
	f := newFixture(t)

	rr, env := f.post(t, "/create-group", testAPIKey, map[string]string{
		"userAddress": "0xUser", "botAddress": "0xBot",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", env.Status)
	require.NotEmpty(t, env.Data.GroupID)

	g, err := f.conv.FindGroup(context.Background(), env.Data.GroupID)
	require.NoError(t, err)
	mg := g.(*transport.MemoryGroup)
	assert.NotEmpty(t, mg.Messages(), "onboarding messages should be in the group")
}

func TestCreateGroup_IdempotentPerPair(t *testing.T) {
	f := newFixture(t)

	_, first := f.post(t, "/create-group", testAPIKey, map[string]string{
		"userAddress": "0xUser", "botAddress": "0xBot",
	})
	_, second := f.post(t, "/create-group", testAPIKey, map[string]string{
		"userAddress": "0xUSER", "botAddress": "0xbot",
	})

	assert.Equal(t, first.Data.GroupID, second.Data.GroupID,
		"repeated creation for the same pair must return the same group")

	_, other := f.post(t, "/create-group", testAPIKey, map[string]string{
		"userAddress": "0xOther", "botAddress": "0xBot",
	})
	assert.NotEqual(t, first.Data.GroupID, other.Data.GroupID,
		"a different user gets a different group")
}

func TestCreateGroup_MissingFields(t *testing.T) {
	f := newFixture(t)

	rr, env := f.post(t, "/create-group", testAPIKey, map[string]string{
		"userAddress": "0xUser",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "error", env.Status)
	assert.NotEmpty(t, env.Data.Message)
}

func TestAuth_MissingKeyRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)

	rr, env := f.post(t, "/create-group", "", map[string]string{
		"userAddress": "0xUser", "botAddress": "0xBot",
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "error", env.Status)

	// No group must exist for the pair.
	_, err := f.store.Lookup(context.Background(), "0xuser", "0xbot")
	assert.ErrorIs(t, err, groupstore.ErrNotFound)
}

func TestAuth_WrongKeyRejected(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.post(t, "/send-message", "wrong", map[string]string{
		"groupId": "g-1", "message": "hi",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSendMessage_SplitsLinesInOrder(t *testing.T) {
	f := newFixture(t)

	_, created := f.post(t, "/create-group", testAPIKey, map[string]string{
		"userAddress": "0xUser", "botAddress": "0xBot",
	})
	groupID := created.Data.GroupID

	g, err := f.conv.FindGroup(context.Background(), groupID)
	require.NoError(t, err)
	mg := g.(*transport.MemoryGroup)
	before := len(mg.Messages())

	rr, env := f.post(t, "/send-message", testAPIKey, map[string]string{
		"groupId": groupID,
		"message": "trade copied\nbought 1 ETH\npnl +3%",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, groupID, env.Data.GroupID)

	msgs := mg.Messages()[before:]
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"trade copied", "bought 1 ETH", "pnl +3%"}, msgs)
}

func TestSendMessage_UnknownGroup(t *testing.T) {
	f := newFixture(t)

	rr, env := f.post(t, "/send-message", testAPIKey, map[string]string{
		"groupId": "does-not-exist", "message": "hello",
	})

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "error", env.Status)
}

func TestSendMessage_MissingFields(t *testing.T) {
	f := newFixture(t)

	rr, env := f.post(t, "/send-message", testAPIKey, map[string]string{
		"groupId": "g-1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "error", env.Status)
}

func TestHealth_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
