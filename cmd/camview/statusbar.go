package main

import (
	"fmt"
	"time"
)

// statusBarModel shows the most recent engine notice and the camera count.
type statusBarModel struct {
	notice   string
	isError  bool
	noticeAt time.Time
	cameras  int
	enabled  int
}

func (m *statusBarModel) setNotice(text string, isError bool) {
	m.notice = text
	m.isError = isError
	m.noticeAt = time.Now()
}

func (m statusBarModel) View() string {
	counts := fmt.Sprintf(" %d cameras · %d enabled", m.cameras, m.enabled)
	if m.notice == "" {
		return statusStyle.Render(counts)
	}

	notice := fmt.Sprintf(" · %s %s", m.noticeAt.Format("15:04:05"), m.notice)
	if m.isError {
		return statusStyle.Render(counts) + errorStyle.Render(notice)
	}
	return statusStyle.Render(counts + notice)
}
