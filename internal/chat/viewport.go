package chat

import "github.com/charmbracelet/lipgloss"

// followThreshold is how close to the tail (in lines) the viewport must be
// for new messages to keep it pinned to the bottom.
const followThreshold = 5

func (m *Model) refreshViewport(scrollToBottom bool) {
	content := m.renderMessages()
	m.viewport.SetContent(content)
	if scrollToBottom {
		m.viewport.GotoBottom()
		return
	}
	if m.viewport.Height <= 0 {
		return
	}
	maxOffset := lipgloss.Height(content) - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.viewport.YOffset > maxOffset {
		m.viewport.SetYOffset(maxOffset)
	}
}

// nearBottom reports whether the viewport is within followThreshold lines
// of the bottom.
func (m *Model) nearBottom() bool {
	return isNearBottom(m.viewport.TotalLineCount(), m.viewport.Height, m.viewport.YOffset)
}

func isNearBottom(total, height, offset int) bool {
	if height <= 0 {
		return true
	}
	maxOffset := total - height
	if maxOffset < 0 {
		maxOffset = 0
	}
	return maxOffset-offset <= followThreshold
}
