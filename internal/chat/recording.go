package chat

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rentnest/nestchat/internal/core"
	"github.com/rentnest/nestchat/internal/types"
)

// recordingModal is open while a voice note is recorded, or when starting
// one failed; the failure stays inside the modal until dismissed.
type recordingModal struct {
	rec *Recording
	err error
}

type recordingTickMsg struct{}

func recordingTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return recordingTickMsg{} })
}

func (m *Model) startRecording() tea.Cmd {
	if err := m.ctrl.CanCompose(); err != nil {
		m.status = composeErrorText(err)
		return nil
	}
	rec, err := m.recorder.Start()
	if err != nil {
		m.log.Debugw("voice recording failed to start", "error", err)
		m.recording = &recordingModal{err: err}
		m.resize()
		return nil
	}
	m.recording = &recordingModal{rec: rec}
	m.resize()
	return recordingTick()
}

func (m *Model) handleRecordingTick() tea.Cmd {
	if m.recording == nil || m.recording.rec == nil {
		return nil
	}
	return recordingTick()
}

func (m *Model) handleRecordingKeys(msg tea.KeyMsg) tea.Cmd {
	modal := m.recording
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		if modal.rec != nil {
			modal.rec.Cancel()
		}
		m.recording = nil
		m.resize()
		return nil
	case tea.KeyEnter, tea.KeyCtrlR:
		if modal.rec == nil {
			m.recording = nil
			m.resize()
			return nil
		}
		path, duration, err := modal.rec.Stop()
		modal.rec = nil
		if err != nil {
			modal.err = err
			return nil
		}
		follow := m.nearBottom()
		cmd, err := m.ctrl.SendAttachment(path, types.MessageTypeVoice, duration)
		_ = os.Remove(path)
		if err != nil {
			modal.err = errors.New(composeErrorText(err))
			return nil
		}
		m.recording = nil
		m.resize()
		m.refreshViewport(follow)
		return cmd
	}
	return nil
}

func (m *Model) renderRecordingModal() string {
	modal := m.recording
	var body string
	if modal.err != nil {
		body = lipgloss.NewStyle().Foreground(errorColor).Render(recordingErrorText(modal.err)) +
			"\n" + lipgloss.NewStyle().Foreground(metaColor).Render("esc to close")
	} else if modal.rec != nil {
		elapsed := modal.rec.Elapsed().Seconds()
		body = lipgloss.NewStyle().Foreground(errorColor).Render("● ") +
			fmt.Sprintf("Recording %s", core.DurationLabel(elapsed)) +
			"\n" + lipgloss.NewStyle().Foreground(metaColor).Render("enter to send · esc to cancel")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(caretColor).
		Padding(0, 2).
		Render("Voice note\n" + body)
}

func recordingErrorText(err error) string {
	switch {
	case errors.Is(err, ErrMicrophoneBusy):
		return "Microphone is busy with another recording."
	case errors.Is(err, ErrNoRecorder):
		return "No voice recorder configured (set voice_recorder)."
	case errors.Is(err, ErrEmptyRecording):
		return "Nothing was recorded. Check microphone permissions."
	}
	return "Microphone unavailable: " + err.Error()
}
