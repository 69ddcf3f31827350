package chat

import (
	"hash/fnv"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rentnest/nestchat/internal/types"
)

var (
	textColor    = lipgloss.Color("252")
	blurText     = lipgloss.Color("245")
	metaColor    = lipgloss.Color("242")
	caretColor   = lipgloss.Color("39")
	inputBg      = lipgloss.Color("236")
	selfColor    = lipgloss.Color("117")
	statusColor  = lipgloss.Color("244")
	errorColor   = lipgloss.Color("203")
	onlineColor  = lipgloss.Color("42")
	unreadBg     = lipgloss.Color("33")
	selectBg     = lipgloss.Color("238")
	bannerBg     = lipgloss.Color("124")
	dividerColor = lipgloss.Color("240")
)

var peerPalette = []lipgloss.Color{
	lipgloss.Color("111"),
	lipgloss.Color("157"),
	lipgloss.Color("216"),
	lipgloss.Color("36"),
	lipgloss.Color("183"),
	lipgloss.Color("230"),
}

// colorForUser picks a stable palette color for a user id.
func colorForUser(id types.ID) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return peerPalette[int(h.Sum32()%uint32(len(peerPalette)))]
}

func applyInputStyles(input *textarea.Model, textColor, blurColor lipgloss.Color) {
	input.FocusedStyle.Base = lipgloss.NewStyle().Foreground(textColor).Background(inputBg)
	input.FocusedStyle.Text = lipgloss.NewStyle().Foreground(textColor).Background(inputBg)
	input.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(caretColor).Background(inputBg)
	input.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(inputBg)
	input.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.Base = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.Text = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(caretColor).Background(inputBg)
	input.BlurredStyle.CursorLine = lipgloss.NewStyle().Background(inputBg)
	input.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
}
