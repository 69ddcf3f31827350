package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rentnest/nestchat/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL, "tok", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://chat.example.com/", want: "https://chat.example.com"},
		{in: " http://localhost:5000/api ", want: "http://localhost:5000/api"},
		{in: "chat.example.com", wantErr: true},
		{in: "ftp://chat.example.com", wantErr: true},
		{in: "https://", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeBaseURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalize %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalize %q: got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestAPIErrorMessage(t *testing.T) {
	cases := []struct {
		err  *APIError
		want string
	}{
		{err: &APIError{Status: 404}, want: "chat api: status 404"},
		{err: &APIError{Status: 400, Code: "bad_request"}, want: "chat api: status 400: bad_request"},
		{err: &APIError{Status: 500, Message: "boom"}, want: "chat api: status 500: boom"},
		{err: &APIError{Status: 403, Code: "forbidden", Message: "not yours"}, want: "chat api: status 403: forbidden: not yours"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("got %q want %q", got, tc.want)
		}
	}
	if StatusCode(fmt.Errorf("wrapped: %w", &APIError{Status: 401})) != 401 {
		t.Fatal("expected status through wrapping")
	}
	if StatusCode(errors.New("plain")) != 0 {
		t.Fatal("expected 0 for non-API errors")
	}
}

func TestGetConversationDecodesNumericIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/conversation/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		io.WriteString(w, `{"messages":[{"id":100,"senderId":7,"receiverId":"42","content":"hi","messageType":"text","timestamp":"2026-01-02T10:00:00Z"}]}`)
	})

	msgs, err := client.GetConversation(context.Background(), "42")
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].ID != "100" || msgs[0].SenderID != "7" || msgs[0].ReceiverID != "42" {
		t.Fatalf("unexpected ids: %+v", msgs[0])
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"not_found","message":"no such message"}`)
	})

	_, err := client.EditMessage(context.Background(), "m1", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("status code: %d", StatusCode(err))
	}
	if IsBlocked(err) {
		t.Fatalf("not-found must not be a blocked error")
	}
}

func TestBlockedErrorShape(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"You cannot message this user","blocked":true}`},
		{name: "ok with flag", status: http.StatusOK, body: `{"blocked":true,"message":"blocked by recipient"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			_, err := client.SendMessage(context.Background(), SendRequest{ReceiverID: "42", Content: "hi"})
			if !IsBlocked(err) {
				t.Fatalf("expected blocked error, got %v", err)
			}
		})
	}
}

func TestSendMessageBodyAndProgress(t *testing.T) {
	var got SendRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages/send" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		io.WriteString(w, `{"message":{"id":"m100","clientId":"temp-1","senderId":"1","receiverId":"42","content":"hello","messageType":"text"}}`)
	})

	var last, total int64
	msg, err := client.SendMessage(context.Background(), SendRequest{
		ClientID:   "temp-1",
		ReceiverID: "42",
		Content:    "hello",
		ReplyTo:    "m5",
		Progress: func(sent, size int64) {
			last, total = sent, size
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != "m100" {
		t.Fatalf("unexpected id %q", msg.ID)
	}
	if got.Type != types.MessageTypeText || got.ReplyTo != "m5" || got.ClientID != "temp-1" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if total == 0 || last != total {
		t.Fatalf("progress did not reach total: %d/%d", last, total)
	}
}

func TestDeleteMessageScope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		if scope := r.URL.Query().Get("scope"); scope != "everyone" {
			t.Errorf("unexpected scope %q", scope)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := client.DeleteMessage(context.Background(), "m5", types.DeleteForEveryone); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL, "", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ListConversations(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestNewAttachment(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	att, err := NewAttachment(path, "")
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	if att.Type != types.MessageTypeImage {
		t.Fatalf("expected image, got %s", att.Type)
	}
	if att.Metadata.MimeType != "image/png" || att.Metadata.Name != "photo.png" {
		t.Fatalf("unexpected metadata: %+v", att.Metadata)
	}
	decoded, err := base64.StdEncoding.DecodeString(att.Data)
	if err != nil || string(decoded) != string(png) {
		t.Fatalf("payload did not round trip: %v", err)
	}

	voice, err := NewAttachment(path, types.MessageTypeVoice)
	if err != nil {
		t.Fatalf("voice attachment: %v", err)
	}
	if voice.Type != types.MessageTypeVoice {
		t.Fatalf("forced kind ignored: %s", voice.Type)
	}

	var req SendRequest
	att.Apply(&req)
	if req.Type != types.MessageTypeImage || req.FileMetadata == nil || req.Content != "photo.png" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestNewAttachmentTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(MaxAttachmentSize + 1); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	if _, err := NewAttachment(path, ""); !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("expected ErrAttachmentTooLarge, got %v", err)
	}
}

func TestTypeForMIME(t *testing.T) {
	cases := map[string]types.MessageType{
		"image/jpeg":                types.MessageTypeImage,
		"video/mp4":                 types.MessageTypeVideo,
		"audio/ogg; codecs=opus":    types.MessageTypeAudio,
		"application/pdf":           types.MessageTypeFile,
		"text/plain; charset=utf-8": types.MessageTypeFile,
	}
	for mime, want := range cases {
		if got := TypeForMIME(mime); got != want {
			t.Fatalf("%s: got %s want %s", mime, got, want)
		}
	}
}
