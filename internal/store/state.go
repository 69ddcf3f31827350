package store

import (
	"sort"
	"time"

	"github.com/rentnest/nestchat/internal/types"
)

// Status is the local lifecycle state of an entry.
type Status int

const (
	// Pending entries carry a local change (send or edit) the server has
	// not confirmed yet.
	Pending Status = iota
	// Confirmed entries match the server's record.
	Confirmed
	// Failed entries had their last local change rejected and reverted.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Entry is one message of the open conversation.
type Entry struct {
	Message types.Message
	Status  Status
	// Progress is the upload fraction (0..1) of a pending attachment.
	Progress float64
	// previous holds the record an in-flight edit would replace.
	previous *types.Message
}

// State is everything the conversation view renders. Operations never
// mutate their input; each returns a new State.
type State struct {
	Self types.ID
	Peer types.ID
	// Generation increments whenever the open conversation changes; fetch
	// results carrying an older generation are dropped.
	Generation uint64
	Loading    bool
	Messages   []Entry

	Conversations []types.ConversationSummary
	// ListGeneration is the newest conversation list request issued;
	// listApplied the newest one applied.
	ListGeneration uint64
	listApplied    uint64

	Presence   map[types.ID]types.Presence
	PeerTyping bool
	Connected  bool
}

// New returns the empty state of the given user.
func New(self types.ID) State {
	return State{Self: self}
}

func (s State) clone() State {
	out := s
	out.Messages = append([]Entry(nil), s.Messages...)
	out.Conversations = append([]types.ConversationSummary(nil), s.Conversations...)
	if s.Presence != nil {
		out.Presence = make(map[types.ID]types.Presence, len(s.Presence))
		for k, v := range s.Presence {
			out.Presence[k] = v
		}
	}
	return out
}

// ListApplied returns the generation of the conversation list in use.
func (s State) ListApplied() uint64 {
	return s.listApplied
}

// Index returns the position of id in Messages, or -1.
func (s State) Index(id types.ID) int {
	if id.IsZero() {
		return -1
	}
	for i, e := range s.Messages {
		if e.Message.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the entry with the given id.
func (s State) Find(id types.ID) (Entry, bool) {
	if i := s.Index(id); i >= 0 {
		return s.Messages[i], true
	}
	return Entry{}, false
}

// Summary returns the conversation summary for peer.
func (s State) Summary(peer types.ID) (types.ConversationSummary, bool) {
	for _, c := range s.Conversations {
		if c.UserID == peer {
			return c, true
		}
	}
	return types.ConversationSummary{}, false
}

// Blocked reports whether the open conversation is blocked in either direction.
func (s State) Blocked() bool {
	c, ok := s.Summary(s.Peer)
	return ok && c.Blocked()
}

// PeerPresence returns the last known presence of the open peer.
func (s State) PeerPresence() types.Presence {
	if p, ok := s.Presence[s.Peer]; ok {
		return p
	}
	if c, ok := s.Summary(s.Peer); ok {
		return types.Presence{UserID: c.UserID, IsOnline: c.IsOnline, LastSeen: c.LastSeen}
	}
	return types.Presence{UserID: s.Peer}
}

// Select opens the conversation with peer. The message list is cleared
// until LoadConversation delivers it.
func Select(s State, peer types.ID) State {
	out := s.clone()
	out.Peer = peer
	out.Generation++
	out.Messages = nil
	out.PeerTyping = false
	out.Loading = !peer.IsZero()
	return out
}

// LoadConversation replaces the message list with a fetch result. Results
// for a conversation that is no longer open, or from an older selection of
// the same one, are ignored. Pending sends survive the replacement.
func LoadConversation(s State, gen uint64, peer types.ID, msgs []types.Message) State {
	if gen != s.Generation || peer != s.Peer {
		return s
	}
	out := s.clone()
	out.Messages = confirmedEntries(msgs)
	out.Loading = false

	for _, e := range s.Messages {
		if e.Status != Pending || !e.Message.IsTemp() {
			continue
		}
		if out.Index(e.Message.ID) >= 0 || out.indexClientID(string(e.Message.ID)) >= 0 {
			continue
		}
		out.Messages = append(out.Messages, e)
	}
	return out
}

// loadFailed ends the loading state of a fetch that failed, keeping
// whatever the cache provided.
func loadFailed(s State, gen uint64, peer types.ID) State {
	if gen != s.Generation || peer != s.Peer {
		return s
	}
	out := s
	out.Loading = false
	return out
}

// LoadCached fills an empty, still loading conversation from the local
// cache. The network result replaces it later.
func LoadCached(s State, gen uint64, peer types.ID, msgs []types.Message) State {
	if gen != s.Generation || peer != s.Peer || !s.Loading || len(s.Messages) > 0 {
		return s
	}
	out := s.clone()
	out.Messages = confirmedEntries(msgs)
	return out
}

func confirmedEntries(msgs []types.Message) []Entry {
	entries := make([]Entry, 0, len(msgs))
	seen := make(map[types.ID]int, len(msgs))
	for _, m := range msgs {
		if i, ok := seen[m.ID]; ok && !m.ID.IsZero() {
			entries[i].Message = m.Clone()
			continue
		}
		seen[m.ID] = len(entries)
		entries = append(entries, Entry{Message: m.Clone(), Status: Confirmed})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Message.Timestamp.Before(entries[j].Message.Timestamp)
	})
	return entries
}

func (s State) indexClientID(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i, e := range s.Messages {
		if e.Message.ClientID == clientID {
			return i
		}
	}
	return -1
}

// AppendOptimistic adds a locally composed message to the tail as Pending.
func AppendOptimistic(s State, msg types.Message) State {
	if s.Index(msg.ID) >= 0 {
		return s
	}
	out := s.clone()
	out.Messages = append(out.Messages, Entry{Message: msg.Clone(), Status: Pending})
	return out
}

// ReconcileConfirmed swaps the pending entry tempID for the server record,
// keeping its position. When the record already arrived through the socket
// the pending entry is dropped instead.
func ReconcileConfirmed(s State, tempID types.ID, confirmed types.Message) State {
	tempIdx := s.Index(tempID)
	confirmedIdx := s.Index(confirmed.ID)
	out := s.clone()

	switch {
	case tempIdx >= 0 && confirmedIdx >= 0 && tempIdx != confirmedIdx:
		out.Messages[confirmedIdx] = Entry{Message: confirmed.Clone(), Status: Confirmed}
		out.Messages = append(out.Messages[:tempIdx], out.Messages[tempIdx+1:]...)
	case tempIdx >= 0:
		out.Messages[tempIdx] = Entry{Message: confirmed.Clone(), Status: Confirmed}
	case confirmedIdx >= 0:
		out.Messages[confirmedIdx] = Entry{Message: confirmed.Clone(), Status: Confirmed}
	default:
		if s.Peer.IsZero() || !confirmed.Between(s.Self, s.Peer) {
			return s
		}
		out.Messages = append(out.Messages, Entry{Message: confirmed.Clone(), Status: Confirmed})
	}
	return out
}

// Rollback removes a pending entry whose send failed.
func Rollback(s State, tempID types.ID) State {
	return RemoveLocal(s, tempID)
}

// SetProgress records the upload fraction of a pending attachment.
func SetProgress(s State, tempID types.ID, fraction float64) State {
	i := s.Index(tempID)
	if i < 0 || s.Messages[i].Status != Pending {
		return s
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	out := s.clone()
	out.Messages[i].Progress = fraction
	return out
}

// MarkDeleted flags a message as deleted for everyone, in place. Calling it
// again is a no-op.
func MarkDeleted(s State, id types.ID) State {
	i := s.Index(id)
	if i < 0 {
		return s
	}
	m := s.Messages[i].Message
	if m.IsDeleted && m.Content == "" && m.FileURL == "" {
		return s
	}
	out := s.clone()
	m = m.Clone()
	m.IsDeleted = true
	m.Content = ""
	m.FileURL = ""
	out.Messages[i] = Entry{Message: m, Status: Confirmed}
	return out
}

// RemoveLocal drops a message from the local list only (delete for me).
func RemoveLocal(s State, id types.ID) State {
	i := s.Index(id)
	if i < 0 {
		return s
	}
	out := s.clone()
	out.Messages = append(out.Messages[:i], out.Messages[i+1:]...)
	return out
}

// ApplyEdit applies an edited record. Only content and edit markers change;
// replies quoting the message keep their snapshot. Deleted messages stay
// deleted whatever order the edit and delete results arrive in.
func ApplyEdit(s State, updated types.Message) State {
	i := s.Index(updated.ID)
	if i < 0 || s.Messages[i].Message.IsDeleted {
		return s
	}
	out := s.clone()
	m := s.Messages[i].Message.Clone()
	m.Content = updated.Content
	m.IsEdited = true
	if updated.EditedAt != nil {
		at := *updated.EditedAt
		m.EditedAt = &at
	}
	out.Messages[i] = Entry{Message: m, Status: Confirmed}
	return out
}

// BeginEdit swaps the content of an own message optimistically.
func BeginEdit(s State, id types.ID, content string, at time.Time) State {
	i := s.Index(id)
	if i < 0 || s.Messages[i].Message.IsDeleted {
		return s
	}
	out := s.clone()
	prev := s.Messages[i].Message.Clone()
	if s.Messages[i].previous != nil {
		prev = s.Messages[i].previous.Clone()
	}
	m := s.Messages[i].Message.Clone()
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &at
	out.Messages[i] = Entry{Message: m, Status: Pending, previous: &prev}
	return out
}

// RevertEdit restores the record an edit replaced and marks it Failed.
func RevertEdit(s State, id types.ID) State {
	i := s.Index(id)
	if i < 0 || s.Messages[i].previous == nil || s.Messages[i].Message.IsDeleted {
		return s
	}
	out := s.clone()
	out.Messages[i] = Entry{Message: s.Messages[i].previous.Clone(), Status: Failed}
	return out
}

// RequestConversations reserves a generation for a conversation list fetch.
func RequestConversations(s State) (State, uint64) {
	out := s
	out.ListGeneration++
	return out, out.ListGeneration
}

// SetConversations stores a fetched conversation list unless a newer fetch
// has already been applied.
func SetConversations(s State, gen uint64, list []types.ConversationSummary) State {
	if gen <= s.listApplied {
		return s
	}
	out := s.clone()
	out.Conversations = append([]types.ConversationSummary(nil), list...)
	out.listApplied = gen
	if gen > out.ListGeneration {
		out.ListGeneration = gen
	}
	return out
}
