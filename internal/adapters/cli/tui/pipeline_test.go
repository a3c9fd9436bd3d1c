package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/devbush/voxcribe/internal/domain"
)

func update(t *testing.T, m tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	t.Helper()
	return m.Update(msg)
}

func TestPipelineModel_Progress(t *testing.T) {
	var m tea.Model = NewPipelineModel("Transcribing talk.mp4", func() {})

	m, _ = update(t, m, ProgressMsg{Ratio: 0.42, Phase: "Transcribing", PartialText: "hello"})

	view := m.View()
	if !strings.Contains(view, "Transcribing") {
		t.Errorf("view missing phase:\n%s", view)
	}
	if !strings.Contains(view, "hello") {
		t.Errorf("view missing partial text:\n%s", view)
	}
}

func TestPipelineModel_KeepsRecentSegments(t *testing.T) {
	var m tea.Model = NewPipelineModel("t", func() {})

	for i := 0; i < 5; i++ {
		seg := domain.TextSegment{Text: string(rune('a' + i)), Start: time.Duration(i) * time.Second, End: time.Duration(i+1) * time.Second}
		m, _ = update(t, m, SegmentMsg(seg))
	}

	pm := m.(PipelineModel)
	if len(pm.segments) != recentSegments {
		t.Fatalf("segments = %d, want %d", len(pm.segments), recentSegments)
	}
	if !strings.HasSuffix(pm.segments[0], " c") || !strings.HasSuffix(pm.segments[2], " e") {
		t.Errorf("segments = %v, want the last three", pm.segments)
	}
}

func TestPipelineModel_CancelOnce(t *testing.T) {
	calls := 0
	var m tea.Model = NewPipelineModel("t", func() { calls++ })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("ctrl+c should not quit before the pipeline returns")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if calls != 1 {
		t.Errorf("cancel called %d times, want 1", calls)
	}
	if !strings.Contains(m.View(), "Cancelling") {
		t.Errorf("view should show cancelling:\n%s", m.View())
	}
}

func TestPipelineModel_Done(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "✓"},
		{"cancelled", domain.Cancelled("run", context.Canceled), "Cancelled"},
		{"failed", errors.New("boom"), "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = NewPipelineModel("Transcribing", func() {})
			m, cmd := update(t, m, pipelineDoneMsg{err: tt.err})
			if cmd == nil {
				t.Fatal("done should quit the program")
			}
			if !strings.Contains(m.View(), tt.want) {
				t.Errorf("view = %q, want %q", m.View(), tt.want)
			}
			if !errors.Is(m.(PipelineModel).Err(), tt.err) {
				t.Errorf("Err() = %v, want %v", m.(PipelineModel).Err(), tt.err)
			}
		})
	}
}

func TestRecordingModel(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want RecordingAction
	}{
		{"enter stops", tea.KeyMsg{Type: tea.KeyEnter}, RecordingStop},
		{"esc cancels", tea.KeyMsg{Type: tea.KeyEsc}, RecordingCancel},
		{"interrupt cancels", interruptMsg{}, RecordingCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = RecordingModel{action: -1}
			m, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("expected quit")
			}
			if got := m.(RecordingModel).Action(); got != tt.want {
				t.Errorf("Action() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordingModel_Elapsed(t *testing.T) {
	var m tea.Model = RecordingModel{}
	m, _ = m.Update(ElapsedMsg(65 * time.Second))

	if !strings.Contains(m.View(), "01:05.0") {
		t.Errorf("view missing clock:\n%s", m.View())
	}
}

func TestPickerModel_Filter(t *testing.T) {
	items := []PickerItem{
		{Label: "Auto (detect language)", Value: ""},
		{Label: "English", Value: "en"},
		{Label: "French", Value: "fr"},
		{Label: "German", Value: "de"},
	}
	var m tea.Model = NewPickerModel("Language", items, 2)

	for _, r := range "fre" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should quit")
	}

	item, ok := m.(PickerModel).Selected()
	if !ok || item.Value != "fr" {
		t.Errorf("Selected() = %+v, %v; want fr", item, ok)
	}
}

func TestPickerModel_ScrollAndCancel(t *testing.T) {
	items := []PickerItem{{Label: "a", Value: "a"}, {Label: "b", Value: "b"}, {Label: "c", Value: "c"}}
	var m tea.Model = NewPickerModel("Pick", items, 2)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})

	pm := m.(PickerModel)
	if pm.cursor != 2 || pm.offset != 1 {
		t.Errorf("cursor=%d offset=%d, want 2 and 1", pm.cursor, pm.offset)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := m.(PickerModel).Selected(); ok {
		t.Error("Selected() after esc should report cancelled")
	}
}

func TestCheckboxModel(t *testing.T) {
	var m tea.Model = NewCheckboxModel("Options", []CheckboxOption{
		{Label: "Segments", Value: "segments"},
		{Label: "No cache", Value: "no-cache", Checked: true},
	})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	cm := m.(CheckboxModel)
	if cm.Cancelled() {
		t.Fatal("Cancelled() = true after enter")
	}
	if !cm.Checked("segments") || !cm.Checked("no-cache") {
		t.Errorf("Checked() wrong: segments=%v no-cache=%v", cm.Checked("segments"), cm.Checked("no-cache"))
	}
}
