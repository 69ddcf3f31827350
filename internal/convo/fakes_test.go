package convo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/types"
)

const (
	self types.ID = "7"
	peer types.ID = "42"
)

var (
	base    = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	errBoom = errors.New("boom")
)

type fakeAPI struct {
	mu            sync.Mutex
	conversations map[types.ID][]types.Message
	list          []types.ConversationSummary
	send          func(api.SendRequest) (types.Message, error)
	editErr       error
	deleteErr     error
	calls         map[string]int
	requests      []api.SendRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		conversations: map[types.ID][]types.Message{},
		calls:         map[string]int{},
	}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) ListConversations(ctx context.Context) ([]types.ConversationSummary, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ConversationSummary(nil), f.list...), nil
}

func (f *fakeAPI) GetConversation(ctx context.Context, other types.ID) ([]types.Message, error) {
	f.record("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Message(nil), f.conversations[other]...), nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, req api.SendRequest) (types.Message, error) {
	f.record("send")
	f.mu.Lock()
	f.requests = append(f.requests, req)
	send := f.send
	f.mu.Unlock()
	if send == nil {
		return types.Message{ID: "m100", ClientID: req.ClientID, SenderID: self, ReceiverID: req.ReceiverID, Content: req.Content, Type: req.Type, Timestamp: base.Add(time.Hour)}, nil
	}
	return send(req)
}

func (f *fakeAPI) MarkRead(ctx context.Context, other types.ID) error {
	f.record("read")
	return nil
}

func (f *fakeAPI) EditMessage(ctx context.Context, id types.ID, content string) (types.Message, error) {
	f.record("edit")
	if f.editErr != nil {
		return types.Message{}, f.editErr
	}
	at := base.Add(2 * time.Hour)
	return types.Message{ID: id, SenderID: self, ReceiverID: peer, Content: content, IsEdited: true, EditedAt: &at}, nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, id types.ID, scope types.DeleteScope) error {
	f.record("delete:" + string(scope))
	return f.deleteErr
}

func (f *fakeAPI) DeleteConversation(ctx context.Context, id types.ID) error {
	f.record("delete-conversation")
	return nil
}

func (f *fakeAPI) Block(ctx context.Context, id types.ID) error {
	f.record("block")
	return nil
}

func (f *fakeAPI) Unblock(ctx context.Context, id types.ID) error {
	f.record("unblock")
	return nil
}

func (f *fakeAPI) GetPresence(ctx context.Context, id types.ID) (types.Presence, error) {
	f.record("presence")
	return types.Presence{UserID: id, IsOnline: true}, nil
}

type intent struct {
	event   string
	payload any
}

type fakeTransport struct {
	mu        sync.Mutex
	events    chan any
	connected bool
	sent      []intent
}

// newClosedTransport returns a connected transport whose event stream is
// already drained, so synchronous test loops never block on it.
func newClosedTransport() *fakeTransport {
	ch := make(chan any)
	close(ch)
	return &fakeTransport{events: ch, connected: true}
}

func (f *fakeTransport) Events() <-chan any { return f.events }

func (f *fakeTransport) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, intent{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) intents(event string) []intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []intent
	for _, in := range f.sent {
		if in.event == event {
			out = append(out, in)
		}
	}
	return out
}

type fakeCache struct {
	messages map[types.ID][]types.Message
	saved    map[types.ID]types.Message
	list     []types.ConversationSummary
}

func newFakeCache() *fakeCache {
	return &fakeCache{messages: map[types.ID][]types.Message{}, saved: map[types.ID]types.Message{}}
}

func (f *fakeCache) Conversations() ([]types.ConversationSummary, error) { return f.list, nil }

func (f *fakeCache) SaveConversations(list []types.ConversationSummary) error {
	f.list = list
	return nil
}

func (f *fakeCache) Messages(peer types.ID) ([]types.Message, error) { return f.messages[peer], nil }

func (f *fakeCache) SaveMessages(peer types.ID, msgs []types.Message) error {
	f.messages[peer] = msgs
	return nil
}

func (f *fakeCache) SaveMessage(peer types.ID, msg types.Message) error {
	f.saved[msg.ID] = msg
	return nil
}

func (f *fakeCache) DeleteMessage(id types.ID) error {
	delete(f.saved, id)
	return nil
}

type harness struct {
	ctrl      *Controller
	api       *fakeAPI
	transport *fakeTransport
	cache     *fakeCache
	clock     time.Time
	seq       int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{api: newFakeAPI(), transport: newClosedTransport(), cache: newFakeCache(), clock: base.Add(time.Hour)}
	h.ctrl = New(Options{
		Self:      self,
		SelfName:  "Me",
		API:       h.api,
		Transport: h.transport,
		Cache:     h.cache,
		Now:       func() time.Time { return h.clock },
		NewID: func() types.ID {
			h.seq++
			return types.ID("temp-" + string(rune('a'+h.seq-1)))
		},
	})
	return h
}

// run executes cmd and everything it leads to on the calling goroutine.
func (h *harness) run(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case TransportClosedMsg:
			// the fake stream is closed from the start
		default:
			queue = append(queue, h.ctrl.Update(msg))
		}
	}
}

func (h *harness) open(t *testing.T, p types.ID, msgs ...types.Message) {
	t.Helper()
	h.api.mu.Lock()
	h.api.conversations[p] = msgs
	h.api.mu.Unlock()
	h.run(h.ctrl.Open(p))
	if got := len(h.ctrl.State().Messages); got != len(msgs) {
		t.Fatalf("expected %d messages after open, got %d", len(msgs), got)
	}
}

func msg(id types.ID, from, to types.ID, content string, offset time.Duration) types.Message {
	return types.Message{ID: id, SenderID: from, ReceiverID: to, Content: content, Type: types.MessageTypeText, Timestamp: base.Add(offset)}
}
