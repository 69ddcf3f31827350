package convo

import (
	"context"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/store"
	"github.com/rentnest/nestchat/internal/types"
)

// Init loads cached conversations, fetches the live list and starts
// listening for realtime events.
func (c *Controller) Init() tea.Cmd {
	cmds := []tea.Cmd{c.WaitForEvent(), c.RefreshConversations()}
	if cache := c.opts.Cache; cache != nil {
		log := c.opts.Logger
		cmds = append(cmds, func() tea.Msg {
			list, err := cache.Conversations()
			if err != nil {
				log.Debugw("cached conversations unavailable", "error", err)
				return nil
			}
			return ConversationsMsg{Conversations: list, Cached: true}
		})
	}
	return tea.Batch(cmds...)
}

// WaitForEvent blocks for the next transport event.
func (c *Controller) WaitForEvent() tea.Cmd {
	t := c.opts.Transport
	if t == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-t.Events()
		if !ok {
			return TransportClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// RefreshConversations refetches the whole conversation list.
func (c *Controller) RefreshConversations() tea.Cmd {
	var gen uint64
	c.state, gen = store.RequestConversations(c.state)
	client := c.opts.API
	return func() tea.Msg {
		list, err := client.ListConversations(context.Background())
		return ConversationsMsg{Generation: gen, Conversations: list, Err: err}
	}
}

// Open selects the conversation with peer: the previous room is left, the
// new one joined, cached messages served and the conversation fetched.
func (c *Controller) Open(peer types.ID) tea.Cmd {
	var cmds []tea.Cmd
	if prev := c.state.Peer; !prev.IsZero() && prev != peer {
		cmds = append(cmds, c.emit(types.IntentLeaveConversation, types.RoomIntent{UserID: c.opts.Self, OtherUserID: prev}))
	}
	if c.reply != nil && c.state.Peer != peer {
		c.reply = nil
	}
	c.typingSent = false
	c.dispatch(store.Selected{Peer: peer})
	if peer.IsZero() {
		return tea.Batch(cmds...)
	}
	gen := c.state.Generation

	cmds = append(cmds, c.emit(types.IntentJoinConversation, types.RoomIntent{UserID: c.opts.Self, OtherUserID: peer}))
	if cache := c.opts.Cache; cache != nil {
		log := c.opts.Logger
		cmds = append(cmds, func() tea.Msg {
			msgs, err := cache.Messages(peer)
			if err != nil || len(msgs) == 0 {
				if err != nil {
					log.Debugw("cached messages unavailable", "peer", peer, "error", err)
				}
				return nil
			}
			return ConversationMsg{Generation: gen, Peer: peer, Messages: msgs, Cached: true}
		})
	}
	cmds = append(cmds, c.fetchConversation(gen, peer), c.FetchPresence(peer))
	return tea.Batch(cmds...)
}

// Reload refetches the open conversation under a fresh generation.
func (c *Controller) Reload() tea.Cmd {
	if c.state.Peer.IsZero() {
		return nil
	}
	return c.fetchConversation(c.state.Generation, c.state.Peer)
}

func (c *Controller) fetchConversation(gen uint64, peer types.ID) tea.Cmd {
	client := c.opts.API
	return func() tea.Msg {
		msgs, err := client.GetConversation(context.Background(), peer)
		return ConversationMsg{Generation: gen, Peer: peer, Messages: msgs, Err: err}
	}
}

// FetchPresence fetches the online state of userID.
func (c *Controller) FetchPresence(userID types.ID) tea.Cmd {
	client := c.opts.API
	return func() tea.Msg {
		p, err := client.GetPresence(context.Background(), userID)
		return PresenceMsg{Presence: p, Err: err}
	}
}

// MarkRead marks the conversation with peer as read.
func (c *Controller) MarkRead(peer types.ID) tea.Cmd {
	if peer.IsZero() {
		return nil
	}
	client := c.opts.API
	return func() tea.Msg {
		return ReadResultMsg{Peer: peer, Err: client.MarkRead(context.Background(), peer)}
	}
}

// StartReply makes id the reply target of the next send.
func (c *Controller) StartReply(id types.ID) error {
	e, ok := c.state.Find(id)
	if !ok || e.Message.IsTemp() || e.Message.IsDeleted {
		return ErrNotEditable
	}
	target := e.Message.Clone()
	c.reply = &target
	return nil
}

// CancelReply clears the reply target.
func (c *Controller) CancelReply() {
	c.reply = nil
}

// Send appends an optimistic text message and returns the request.
func (c *Controller) Send(text string) (tea.Cmd, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if err := c.CanCompose(); err != nil {
		return nil, err
	}
	msg := c.compose(types.MessageTypeText, text)
	req := api.SendRequest{
		ClientID:        msg.ClientID,
		ReceiverID:      msg.ReceiverID,
		Content:         msg.Content,
		Type:            msg.Type,
		ReplyTo:         msg.ReplyTo,
		ReplyToMetadata: msg.ReplyToMetadata,
	}
	c.dispatch(store.Sent{Message: msg})
	return tea.Batch(c.stopTyping(), c.sendRequest(msg.ID, msg.ReceiverID, req, nil)), nil
}

// SendAttachment appends an optimistic attachment message. Upload progress
// arrives as ProgressMsg values keyed by the temporary id.
func (c *Controller) SendAttachment(path string, kind types.MessageType, duration float64) (tea.Cmd, error) {
	if err := c.CanCompose(); err != nil {
		return nil, err
	}
	att, err := api.NewAttachment(path, kind)
	if err != nil {
		return nil, err
	}
	msg := c.compose(att.Type, att.Metadata.Name)
	meta := att.Metadata
	msg.FileMetadata = &meta
	msg.Duration = duration

	req := api.SendRequest{
		ClientID:        msg.ClientID,
		ReceiverID:      msg.ReceiverID,
		Content:         msg.Content,
		ReplyTo:         msg.ReplyTo,
		ReplyToMetadata: msg.ReplyToMetadata,
		Duration:        duration,
	}
	att.Apply(&req)
	c.dispatch(store.Sent{Message: msg})

	progress := newProgressSink()
	return tea.Batch(
		c.sendRequest(msg.ID, msg.ReceiverID, req, progress),
		waitProgress(msg.ID, progress.ch),
	), nil
}

// compose builds the optimistic record and consumes the reply target.
func (c *Controller) compose(kind types.MessageType, content string) types.Message {
	peer := c.state.Peer
	id := c.opts.NewID()
	msg := types.Message{
		ID:           id,
		ClientID:     string(id),
		Participants: []types.ID{c.opts.Self, peer},
		SenderID:     c.opts.Self,
		SenderName:   c.opts.SelfName,
		ReceiverID:   peer,
		Content:      content,
		Type:         kind,
		Timestamp:    c.opts.Now(),
	}
	if summary, ok := c.state.Summary(peer); ok {
		msg.ConversationID = summary.ConversationID
		msg.ReceiverName = summary.UserName
	}
	if c.reply != nil {
		msg.ReplyTo = c.reply.ID
		msg.ReplyToMetadata = c.reply.Snapshot()
		c.reply = nil
	}
	return msg
}

func (c *Controller) sendRequest(tempID, peer types.ID, req api.SendRequest, progress *progressSink) tea.Cmd {
	client := c.opts.API
	if progress != nil {
		req.Progress = progress.report
	}
	return func() tea.Msg {
		msg, err := client.SendMessage(context.Background(), req)
		if progress != nil {
			progress.close()
		}
		return SendResultMsg{TempID: tempID, Peer: peer, Message: msg, Err: err}
	}
}

// progressSink forwards upload progress without ever blocking the sender.
// The HTTP transport may still be reading the body after the request
// returns, so reports after close are dropped.
type progressSink struct {
	mu     sync.Mutex
	closed bool
	ch     chan float64
}

func newProgressSink() *progressSink {
	return &progressSink{ch: make(chan float64, 1)}
}

func (p *progressSink) report(sent, total int64) {
	if total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	fraction := float64(sent) / float64(total)
	select {
	case p.ch <- fraction:
	default:
		// Replace a stale unread value with the newest one.
		select {
		case <-p.ch:
		default:
		}
		p.ch <- fraction
	}
}

func (p *progressSink) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}

func waitProgress(tempID types.ID, ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		fraction, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{TempID: tempID, Fraction: fraction, next: ch}
	}
}

// Edit swaps the content of an own message optimistically.
func (c *Controller) Edit(id types.ID, content string) (tea.Cmd, error) {
	content = strings.TrimSpace(content)
	e, ok := c.state.Find(id)
	if !ok || content == "" || e.Message.SenderID != c.opts.Self || e.Message.IsDeleted || e.Message.IsTemp() {
		return nil, ErrNotEditable
	}
	if e.Message.Content == content {
		return nil, nil
	}
	c.dispatch(store.EditStarted{ID: id, Content: content, At: c.opts.Now()})
	client := c.opts.API
	return func() tea.Msg {
		msg, err := client.EditMessage(context.Background(), id, content)
		return EditResultMsg{ID: id, Message: msg, Err: err}
	}, nil
}

// Delete removes a message. Scope "me" hides it locally right away;
// "everyone" waits for the server and the message_deleted event.
func (c *Controller) Delete(id types.ID, scope types.DeleteScope) (tea.Cmd, error) {
	e, ok := c.state.Find(id)
	if !ok || e.Message.IsTemp() {
		return nil, ErrNotEditable
	}
	if scope == types.DeleteForEveryone && (e.Message.SenderID != c.opts.Self || e.Message.IsDeleted) {
		return nil, ErrNotEditable
	}
	if scope != types.DeleteForEveryone {
		scope = types.DeleteForMe
		c.dispatch(store.DeletedForMe{ID: id})
		c.cacheDelete(id)
	}
	if c.reply != nil && c.reply.ID == id {
		c.reply = nil
	}
	client := c.opts.API
	return func() tea.Msg {
		return DeleteResultMsg{ID: id, Scope: scope, Err: client.DeleteMessage(context.Background(), id, scope)}
	}, nil
}

// DeleteConversation removes a conversation from the list.
func (c *Controller) DeleteConversation(conversationID types.ID) tea.Cmd {
	client := c.opts.API
	return func() tea.Msg {
		err := client.DeleteConversation(context.Background(), conversationID)
		return ConversationDeletedMsg{ConversationID: conversationID, Err: err}
	}
}

// SetBlocked blocks or unblocks peer.
func (c *Controller) SetBlocked(peer types.ID, blocked bool) tea.Cmd {
	client := c.opts.API
	return func() tea.Msg {
		var err error
		if blocked {
			err = client.Block(context.Background(), peer)
		} else {
			err = client.Unblock(context.Background(), peer)
		}
		return BlockResultMsg{Peer: peer, Blocked: blocked, Err: err}
	}
}

// Typing reports composer activity to the open peer. Repeated calls while
// typing are throttled.
func (c *Controller) Typing(active bool) tea.Cmd {
	peer := c.state.Peer
	if peer.IsZero() || !c.state.Connected {
		return nil
	}
	now := c.opts.Now()
	if active {
		if c.typingSent && now.Sub(c.typingAt) < c.opts.TypingInterval {
			return nil
		}
		c.typingSent = true
		c.typingAt = now
	} else {
		if !c.typingSent {
			return nil
		}
		c.typingSent = false
	}
	return c.emit(types.IntentTyping, types.TypingIntent{SenderID: c.opts.Self, ReceiverID: peer, IsTyping: active})
}

func (c *Controller) stopTyping() tea.Cmd {
	return c.Typing(false)
}
