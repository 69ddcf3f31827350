package convo

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/core"
	"github.com/rentnest/nestchat/internal/store"
	"github.com/rentnest/nestchat/internal/transport"
	"github.com/rentnest/nestchat/internal/types"
)

var (
	// ErrDisconnected refuses sends while the realtime channel is down.
	ErrDisconnected = errors.New("not connected to chat server")
	// ErrNoConversation is returned when no conversation is open.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrBlockedConversation refuses sends in a blocked conversation.
	ErrBlockedConversation = errors.New("conversation is blocked")
	// ErrNotEditable is returned for edits of foreign, deleted or unsent messages.
	ErrNotEditable = errors.New("message cannot be changed")
)

// BlockedNotice is shown when the server rejects a send because of a block.
const BlockedNotice = "You can't send messages to this user. One of you has blocked the other."

const defaultTypingInterval = 2 * time.Second

// API is the subset of the REST client the controller uses.
type API interface {
	ListConversations(ctx context.Context) ([]types.ConversationSummary, error)
	GetConversation(ctx context.Context, otherUserID types.ID) ([]types.Message, error)
	SendMessage(ctx context.Context, req api.SendRequest) (types.Message, error)
	MarkRead(ctx context.Context, otherUserID types.ID) error
	EditMessage(ctx context.Context, messageID types.ID, content string) (types.Message, error)
	DeleteMessage(ctx context.Context, messageID types.ID, scope types.DeleteScope) error
	DeleteConversation(ctx context.Context, conversationID types.ID) error
	Block(ctx context.Context, userID types.ID) error
	Unblock(ctx context.Context, userID types.ID) error
	GetPresence(ctx context.Context, userID types.ID) (types.Presence, error)
}

// Cache serves previously fetched data while the network catches up.
type Cache interface {
	Conversations() ([]types.ConversationSummary, error)
	SaveConversations(list []types.ConversationSummary) error
	Messages(peer types.ID) ([]types.Message, error)
	SaveMessages(peer types.ID, msgs []types.Message) error
	SaveMessage(peer types.ID, msg types.Message) error
	DeleteMessage(id types.ID) error
}

// Options configures a Controller.
type Options struct {
	Self      types.ID
	SelfName  string
	API       API
	Transport transport.Transport
	Cache     Cache
	Logger    *zap.SugaredLogger

	// TypingInterval throttles repeated typing intents.
	TypingInterval time.Duration
	Now            func() time.Time
	NewID          func() types.ID
}

// Notice is a user-facing message produced by a failed or notable operation.
type Notice struct {
	Text string
	Err  error
	At   time.Time
}

// Controller drives one user's conversation view. It is not safe for
// concurrent use: every method, including Update, must run on the same event
// loop. Network work is returned as tea.Cmd values whose results come back
// through Update.
type Controller struct {
	opts  Options
	state store.State

	reply *types.Message

	typingSent bool
	typingAt   time.Time

	notice *Notice
}

// New returns a controller for opts.Self.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = core.NewTempID
	}
	if opts.TypingInterval <= 0 {
		opts.TypingInterval = defaultTypingInterval
	}
	c := &Controller{opts: opts, state: store.New(opts.Self)}
	if opts.Transport != nil {
		c.state.Connected = opts.Transport.Connected()
	}
	return c
}

// State returns the current view state.
func (c *Controller) State() store.State {
	return c.state
}

// Self returns the session user.
func (c *Controller) Self() types.ID {
	return c.opts.Self
}

// ReplyTarget returns the message being replied to, if any.
func (c *Controller) ReplyTarget() *types.Message {
	return c.reply
}

// Notice returns the latest notice, if any.
func (c *Controller) Notice() *Notice {
	return c.notice
}

// ClearNotice dismisses the current notice.
func (c *Controller) ClearNotice() {
	c.notice = nil
}

// CanCompose reports whether a message can be sent right now.
func (c *Controller) CanCompose() error {
	switch {
	case c.state.Peer.IsZero():
		return ErrNoConversation
	case !c.state.Connected:
		return ErrDisconnected
	case c.state.Blocked():
		return ErrBlockedConversation
	}
	return nil
}

func (c *Controller) dispatch(a store.Action) {
	c.state = store.Reduce(c.state, a)
}

func (c *Controller) setNotice(text string, err error) {
	c.notice = &Notice{Text: text, Err: err, At: c.opts.Now()}
}

// emit sends a fire-and-forget intent off the event loop.
func (c *Controller) emit(event string, payload any) tea.Cmd {
	t := c.opts.Transport
	if t == nil {
		return nil
	}
	log := c.opts.Logger
	return func() tea.Msg {
		if err := t.Send(event, payload); err != nil {
			log.Debugw("intent dropped", "event", event, "error", err)
		}
		return nil
	}
}

var errEmptyResponse = errors.New("server returned no message")
