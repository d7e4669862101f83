package sim

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	if err := w.Publish(context.Background(), testMessage("vt/car-0", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, ok := p.msgs[0].(publishMsg); !ok {
		t.Fatalf("expected publishMsg, got %T", p.msgs[0])
	}
	var _ AdminStatusWriter = w
	w.SetAdminStatus(true)
	if _, ok := p.msgs[1].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[1])
	}
}

func TestTUIModelTracksDevices(t *testing.T) {
	m := newTUIModel("run-1", 2)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)
	for _, msg := range []Message{testMessage("vt/car-1", 0), testMessage("vt/car-0", 0), testMessage("vt/car-0", 1)} {
		mi, _ = m.Update(publishMsg{msg})
		m = mi.(tuiModel)
	}
	if m.total != 3 || len(m.devices) != 2 {
		t.Fatalf("total=%d devices=%d", m.total, len(m.devices))
	}
	rows := m.table.Rows()
	if len(rows) != 2 || rows[0][0] != "vt/car-0" || rows[0][1] != "1" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if !strings.Contains(m.View(), "devices 2/2") {
		t.Fatalf("header missing counts: %q", m.View())
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel("run-1", 1)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(publishMsg{testMessage("vt/car-0", 0)})
	m = mi.(tuiModel)
	unwrapped := m.vp.TotalLineCount()
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	if m.vp.TotalLineCount() <= unwrapped {
		t.Fatalf("expected wrapped content to span more lines: %d <= %d", m.vp.TotalLineCount(), unwrapped)
	}
}
