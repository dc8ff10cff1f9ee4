package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestMenuModel_Navigation(t *testing.T) {
	m := NewMenuModel("What would you like to do?", []MenuOption{
		{Label: "Transcribe a video", Value: "resolve"},
		{Label: "Manage models", Value: "models"},
	})

	var model tea.Model = m
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if got := model.(MenuModel).Selected(); got != "models" {
		t.Errorf("Selected() = %q, want models", got)
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}
}

func TestMenuModel_CursorStaysInBounds(t *testing.T) {
	var model tea.Model = NewMenuModel("Pick", []MenuOption{{Label: "Only", Value: "only"}})

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if got := model.(MenuModel).Selected(); got != "only" {
		t.Errorf("Selected() = %q, want only", got)
	}
}

func TestMenuModel_View(t *testing.T) {
	view := NewMenuModel("What would you like to do?", []MenuOption{{Label: "Manage cache", Value: "cache"}}).View()

	if !strings.Contains(view, "What would you like to do?") || !strings.Contains(view, "Manage cache") {
		t.Errorf("View() = %q", view)
	}
}

func typeString(model tea.Model, s string) tea.Model {
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return model
}

func TestPromptModel_AcceptsValue(t *testing.T) {
	var model tea.Model = NewPromptModel("Video URL", "https://www.youtube.com/watch?v=...", nil)

	model = typeString(model, "  https://www.youtube.com/watch?v=dQw4w9WgXcQ ")
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if got := model.(PromptModel).Value(); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("Value() = %q", got)
	}
}

func TestPromptModel_RejectsInvalid(t *testing.T) {
	validate := func(s string) error {
		if !strings.Contains(s, "v=") {
			return errors.New("not a watch URL")
		}
		return nil
	}
	var model tea.Model = NewPromptModel("Video URL", "", validate)

	model = typeString(model, "https://example.com")
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("invalid input should not quit")
	}
	if got := model.(PromptModel).Value(); got != "" {
		t.Errorf("Value() = %q, want empty", got)
	}
	if !strings.Contains(model.View(), "not a watch URL") {
		t.Errorf("View() should show the validation error: %q", model.View())
	}
}

func TestPromptModel_Cancel(t *testing.T) {
	var model tea.Model = NewPromptModel("Video URL", "", nil)

	model = typeString(model, "abc")
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if got := model.(PromptModel).Value(); got != "" {
		t.Errorf("Value() = %q, want empty after cancel", got)
	}
}
