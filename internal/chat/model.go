package chat

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.uber.org/zap"

	"github.com/rentnest/nestchat/internal/convo"
	"github.com/rentnest/nestchat/internal/types"
)

// Options configure chat.
type Options struct {
	Controller *convo.Controller
	// Peer opens this conversation on start when set.
	Peer     types.ID
	SelfName string
	// Notifications enables desktop notifications for inbound messages in
	// conversations that are not open.
	Notifications bool
	// VoiceRecorder is the external recorder command; {file} is replaced by
	// the output path.
	VoiceRecorder string
	// SessionEnded closes when the stored login changes or is removed.
	SessionEnded <-chan struct{}
	Logger       *zap.SugaredLogger
}

// Run starts the chat UI.
func Run(opts Options) error {
	model := NewModel(opts)
	fmt.Printf("\033]0;%s\007", "nestchat")

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	model.Close()
	return err
}

type focusArea int

const (
	focusComposer focusArea = iota
	focusSidebar
	focusMessages
)

// Model implements the chat UI.
type Model struct {
	ctrl     *convo.Controller
	log      *zap.SugaredLogger
	selfName string
	peer     types.ID

	viewport    viewport.Model
	input       textarea.Model
	filter      textinput.Model
	zoneManager *zone.Manager

	width  int
	height int
	focus  focusArea

	sidebarOpen   bool
	sidebarIndex  int
	sidebarScroll int
	filterActive  bool

	selectedID types.ID
	editingID  types.ID
	deleteMenu *deleteMenu

	recorder  *Recorder
	recording *recordingModal

	notify       func(title, body string) error
	now          func() time.Time
	sessionEnded <-chan struct{}

	status      string
	initialLoad bool
}

// deleteMenu asks for the scope of a message deletion.
type deleteMenu struct {
	id          types.ID
	canEveryone bool
}

// NewModel creates a chat model over opts.Controller.
func NewModel(opts Options) *Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	filter := textinput.New()
	filter.Prompt = "# "
	filter.Placeholder = "filter"
	filter.CharLimit = 64

	m := &Model{
		ctrl:         opts.Controller,
		log:          log,
		selfName:     opts.SelfName,
		peer:         opts.Peer,
		viewport:     viewport.New(0, 0),
		input:        newInputModel(),
		filter:       filter,
		zoneManager:  zone.New(),
		sidebarOpen:  true,
		recorder:     NewRecorder(opts.VoiceRecorder, ""),
		now:          time.Now,
		sessionEnded: opts.SessionEnded,
		initialLoad:  true,
	}
	if opts.Notifications {
		m.notify = sendNotification
	}
	return m
}

func newInputModel() textarea.Model {
	input := textarea.New()
	input.Placeholder = "Write a message"
	input.Prompt = "› "
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(1)
	input.KeyMap.InsertNewline.SetKeys("ctrl+j", "alt+enter")
	applyInputStyles(&input, textColor, blurText)
	input.Focus()
	return input
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.ctrl.Init(), textarea.Blink, waitSessionEnded(m.sessionEnded)}
	if !m.peer.IsZero() {
		cmds = append(cmds, m.ctrl.Open(m.peer))
	}
	return tea.Batch(cmds...)
}

// Close releases the microphone if a recording is still running.
func (m *Model) Close() {
	if m.recording != nil && m.recording.rec != nil {
		m.recording.rec.Cancel()
	}
}

type sessionEndedMsg struct{}

func waitSessionEnded(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		<-ch
		return sessionEndedMsg{}
	}
}
