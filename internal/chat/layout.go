package chat

const inputMaxHeight = 8
const inputPadding = 1

// headerHeight covers the title line and the optional connection banner.
func (m *Model) headerHeight() int {
	if m.ctrl.State().Connected {
		return 1
	}
	return 2
}

func (m *Model) sidebarWidth() int {
	if !m.sidebarOpen {
		return 0
	}
	if m.width > 0 && m.width < 60 {
		return 18
	}
	return 26
}

func (m *Model) mainWidth() int {
	if m.width == 0 {
		return 0
	}
	width := m.width - m.sidebarWidth()
	if width < 1 {
		width = 1
	}
	return width
}

func (m *Model) toggleSidebar() {
	m.sidebarOpen = !m.sidebarOpen
	if !m.sidebarOpen && m.focus == focusSidebar {
		m.focusComposer()
	}
	m.resize()
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	width := m.mainWidth()
	inputWidth := width - inputPadding
	if inputWidth < 1 {
		inputWidth = 1
	}
	m.input.SetWidth(inputWidth)
	lineCount := m.input.LineCount()
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > inputMaxHeight {
		lineCount = inputMaxHeight
	}
	m.input.SetHeight(lineCount)
	inputHeight := m.input.Height() + 2
	if m.ctrl.ReplyTarget() != nil || !m.editingID.IsZero() {
		inputHeight++
	}
	if m.recording != nil || m.deleteMenu != nil {
		// Modals replace the composer: two bordered lines of content.
		inputHeight = 4
	}

	statusHeight := 1
	typingHeight := 1
	m.viewport.Width = width
	m.viewport.Height = m.height - m.headerHeight() - inputHeight - statusHeight - typingHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.refreshViewport(false)
}
