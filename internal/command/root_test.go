package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/session"
	"github.com/rentnest/nestchat/internal/types"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (b *fakeBackend) record(r *http.Request) recordedRequest {
	data, _ := io.ReadAll(r.Body)
	req := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(data)}
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	return req
}

func (b *fakeBackend) find(method, path string) (recordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, req := range b.requests {
		if req.Method == method && req.Path == path {
			return req, true
		}
	}
	return recordedRequest{}, false
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := b.record(r)
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case req.Method == http.MethodGet && req.Path == "/api/messages/conversations":
		_, _ = w.Write([]byte(`{"conversations":[
			{"conversationId":"c1","userId":"u2","userName":"Alice","unreadCount":2,"isOnline":true,
			 "lastMessage":{"id":"m2","senderId":"u2","receiverId":"u1","content":"see you","messageType":"text","timestamp":"2026-10-01T10:05:00Z"}},
			{"conversationId":"c2","userId":"u3","userName":"Albert"},
			{"conversationId":"c3","userId":"u4","userName":"Bob","blockedByMe":true}
		]}`))
	case req.Method == http.MethodGet && req.Path == "/api/messages/conversation/u2":
		_, _ = w.Write([]byte(`{"messages":[
			{"id":"m1","senderId":"u1","receiverId":"u2","content":"hi alice","messageType":"text","timestamp":"2026-10-01T10:00:00Z","isRead":true},
			{"id":"m2","senderId":"u2","senderName":"Alice","receiverId":"u1","content":"see you","messageType":"text","timestamp":"2026-10-01T10:05:00Z"}
		]}`))
	case req.Method == http.MethodPut && req.Path == "/api/messages/conversation/u2/read":
		_, _ = w.Write([]byte(`{}`))
	case req.Method == http.MethodPost && req.Path == "/api/messages/send":
		var body map[string]any
		_ = json.Unmarshal([]byte(req.Body), &body)
		msg := map[string]any{
			"id":          "m9",
			"clientId":    body["clientId"],
			"senderId":    "u1",
			"receiverId":  body["receiverId"],
			"content":     body["content"],
			"messageType": body["messageType"],
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": msg})
	case req.Method == http.MethodDelete && strings.HasPrefix(req.Path, "/api/messages/"):
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(req.Path, "/presence"):
		_, _ = w.Write([]byte(`{"userId":"u2","isOnline":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}
}

// setupEnv points config at a temp data dir and a fake backend.
func setupEnv(t *testing.T) *fakeBackend {
	t.Helper()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("NESTCHAT_DATA_DIR", t.TempDir())
	t.Setenv("NESTCHAT_API_URL", server.URL)
	return backend
}

func login(t *testing.T) {
	t.Helper()
	if out, err := executeCommand(NewRootCmd("test"), "login", "--token", "tok", "--user-id", "u1", "--name", "Dana"); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommand(NewRootCmd("test"), "--version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(output, "nestchat version test") {
		t.Fatalf("expected version output, got %q", output)
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	setupEnv(t)

	output, err := executeCommand(NewRootCmd("test"), "conversations")
	if !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if !strings.Contains(output, "not logged in") {
		t.Fatalf("expected error output, got %q", output)
	}
}

func TestLoginWithJWTClaims(t *testing.T) {
	setupEnv(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u7",
		"name":    "Priya",
		"role":    "Landlord",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if out, err := executeCommand(NewRootCmd("test"), "login", "--token", token); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}

	output, err := executeCommand(NewRootCmd("test"), "whoami", "--json")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(output), &got); err != nil {
		t.Fatalf("decode whoami: %v (%q)", err, output)
	}
	if got["user_id"] != "u7" || got["name"] != "Priya" || got["role"] != "landlord" {
		t.Fatalf("unexpected identity: %v", got)
	}
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	setupEnv(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u7",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	output, err := executeCommand(NewRootCmd("test"), "login", "--token", token)
	if err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if !strings.Contains(output, "expired") {
		t.Fatalf("expected expiry error, got %q", output)
	}
}

func TestLoginReadsTokenFromStdin(t *testing.T) {
	setupEnv(t)

	cmd := NewRootCmd("test")
	cmd.SetIn(strings.NewReader("tok\n"))
	if out, err := executeCommand(cmd, "login", "--user-id", "u1"); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	output, err := executeCommand(NewRootCmd("test"), "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(output, "(u1)") {
		t.Fatalf("expected user id in output, got %q", output)
	}
}

func TestConversationsMatch(t *testing.T) {
	setupEnv(t)
	login(t)

	output, err := executeCommand(NewRootCmd("test"), "conversations", "--match", "al*")
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if !strings.Contains(output, "Alice (u2) [2 unread]") || !strings.Contains(output, "Albert (u3)") {
		t.Fatalf("expected Alice and Albert, got %q", output)
	}
	if strings.Contains(output, "Bob") {
		t.Fatalf("expected Bob filtered out, got %q", output)
	}
}

func TestConversationsServedFromCache(t *testing.T) {
	setupEnv(t)
	login(t)

	if _, err := executeCommand(NewRootCmd("test"), "conversations"); err != nil {
		t.Fatalf("conversations: %v", err)
	}
	output, err := executeCommand(NewRootCmd("test"), "ls", "--cached", "--json")
	if err != nil {
		t.Fatalf("cached conversations: %v", err)
	}
	var list []types.ConversationSummary
	if err := json.Unmarshal([]byte(output), &list); err != nil {
		t.Fatalf("decode: %v (%q)", err, output)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 cached conversations, got %d", len(list))
	}
}

func TestHistoryMarksRead(t *testing.T) {
	backend := setupEnv(t)
	login(t)

	output, err := executeCommand(NewRootCmd("test"), "history", "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(output, "m1 you: hi alice") || !strings.Contains(output, "✓✓") {
		t.Fatalf("expected own read message, got %q", output)
	}
	if !strings.Contains(output, "m2 Alice: see you") {
		t.Fatalf("expected peer message, got %q", output)
	}
	if _, ok := backend.find(http.MethodPut, "/api/messages/conversation/u2/read"); !ok {
		t.Fatal("expected mark-read request")
	}
}

func TestHistoryLast(t *testing.T) {
	setupEnv(t)
	login(t)

	output, err := executeCommand(NewRootCmd("test"), "history", "u2", "--last", "1", "--mark-read=false")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.Contains(output, "hi alice") || !strings.Contains(output, "see you") {
		t.Fatalf("expected only the last message, got %q", output)
	}
}

func TestSendResolvesUserName(t *testing.T) {
	backend := setupEnv(t)
	login(t)

	output, err := executeCommand(NewRootCmd("test"), "send", "Alice", "hello", "there")
	if err != nil {
		t.Fatalf("send: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Sent m9") {
		t.Fatalf("expected sent id, got %q", output)
	}

	req, ok := backend.find(http.MethodPost, "/api/messages/send")
	if !ok {
		t.Fatal("expected send request")
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["receiverId"] != "u2" || body["content"] != "hello there" || body["messageType"] != "text" {
		t.Fatalf("unexpected send body: %v", body)
	}
	if id, _ := body["clientId"].(string); id == "" {
		t.Fatal("expected client id on send")
	}
}

func TestSendReplyCarriesSnapshot(t *testing.T) {
	backend := setupEnv(t)
	login(t)

	if out, err := executeCommand(NewRootCmd("test"), "send", "u2", "ok", "--reply-to", "m2"); err != nil {
		t.Fatalf("send: %v\n%s", err, out)
	}
	req, _ := backend.find(http.MethodPost, "/api/messages/send")
	var body struct {
		ReplyTo         string               `json:"replyTo"`
		ReplyToMetadata *types.ReplyMetadata `json:"replyToMetadata"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ReplyTo != "m2" || body.ReplyToMetadata == nil || body.ReplyToMetadata.Content != "see you" {
		t.Fatalf("unexpected reply fields: %+v", body)
	}
}

func TestSendRequiresContent(t *testing.T) {
	setupEnv(t)
	login(t)

	if _, err := executeCommand(NewRootCmd("test"), "send", "u2"); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestRmScope(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		scope string
	}{
		{name: "default", args: []string{"rm", "m1"}, scope: "scope=me"},
		{name: "everyone", args: []string{"rm", "m1", "--everyone"}, scope: "scope=everyone"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := setupEnv(t)
			login(t)

			if out, err := executeCommand(NewRootCmd("test"), tc.args...); err != nil {
				t.Fatalf("rm: %v\n%s", err, out)
			}
			req, ok := backend.find(http.MethodDelete, "/api/messages/m1")
			if !ok {
				t.Fatal("expected delete request")
			}
			if req.Query != tc.scope {
				t.Fatalf("expected %q, got %q", tc.scope, req.Query)
			}
		})
	}
}

func TestUnauthorizedHint(t *testing.T) {
	setupEnv(t)
	if out, err := executeCommand(NewRootCmd("test"), "login", "--token", "stale", "--user-id", "u1"); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}

	output, err := executeCommand(NewRootCmd("test"), "presence", "u2")
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	if !strings.Contains(output, "nestchat login") {
		t.Fatalf("expected login hint, got %q", output)
	}
}

func TestMatchUser(t *testing.T) {
	list := []types.ConversationSummary{
		{UserID: "u2", UserName: "Alice"},
		{UserID: "u3", UserName: "Albert"},
		{UserID: "u4", UserName: "Bob"},
	}

	cases := []struct {
		ref     string
		want    types.ID
		wantErr bool
	}{
		{ref: "u3", want: "u3"},
		{ref: "alice", want: "u2"},
		{ref: "b*", want: "u4"},
		{ref: "al*", wantErr: true},
		{ref: "u99", want: "u99"},
	}

	for _, tc := range cases {
		got, err := matchUser(list, tc.ref)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected ambiguity error, got %q", tc.ref, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.ref, tc.want, got)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	self := types.ID("u1")
	cases := []struct {
		event any
		want  string
	}{
		{event: types.Connected{}, want: "* connected"},
		{event: types.MessageDeleted{MessageID: "m4"}, want: "* message m4 deleted"},
		{event: types.MessagesRead{ReaderID: "u1"}, want: ""},
		{event: types.MessagesRead{ReaderID: "u2"}, want: "* u2 read your messages"},
		{event: types.BlockStatusChanged{BlockerID: "u2", BlockedID: "u1", IsBlocked: true}, want: "* u2 blocked u1"},
		{event: types.TypingIndicator{SenderID: "u2", IsTyping: true}, want: ""},
	}

	for _, tc := range cases {
		if got := formatEvent(tc.event, self); got != tc.want {
			t.Fatalf("%T: expected %q, got %q", tc.event, tc.want, got)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteEventJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEventJSON(&buf, types.Disconnected{Err: errors.New("connection reset")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if got.Event != types.EventDisconnect || got.Data["error"] != "connection reset" {
		t.Fatalf("unexpected disconnect event: %+v", got)
	}

	buf.Reset()
	if err := writeEventJSON(&buf, types.TypingIntent{}); err != nil || buf.Len() != 0 {
		t.Fatalf("unnamed event should be skipped, got %q (%v)", buf.String(), err)
	}

	if err := writeEventJSON(failingWriter{}, types.Connected{}); err == nil {
		t.Fatal("expected write error")
	}
}
