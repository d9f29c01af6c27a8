package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/credentials"
)

const (
	dialogWidth  = 72
	dialogHeight = 14
)

// confirmModel asks a single yes/no question.
type confirmModel struct {
	question string
	answer   bool
	help     help.Model
	keys     keyMap
}

func newConfirmModel(question string) *confirmModel {
	return &confirmModel{question: question, help: newHelp(), keys: newKeyMap()}
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.yes):
		m.answer = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.no), key.Matches(keyMsg, m.keys.back), key.Matches(keyMsg, m.keys.quit):
		m.answer = false
		return m, tea.Quit
	}
	return m, nil
}

func (m *confirmModel) View() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n", styles.title.Render(m.question), helpView)
}

// choiceModel lets the user pick how to connect when no credential exists.
type choiceModel struct {
	list   list.Model
	choice auth.SetupChoice
	keys   keyMap
}

func newChoiceModel() *choiceModel {
	l := list.New(setupItems(), list.NewDefaultDelegate(), dialogWidth, dialogHeight)
	l.Title = "Connect Copy Spotify URL to Spotify"
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	return &choiceModel{list: l, choice: auth.SetupDeclined, keys: newKeyMap()}
}

func (m *choiceModel) Init() tea.Cmd { return nil }

func (m *choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(min(msg.Width, dialogWidth), min(msg.Height, dialogHeight))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.list.SelectedItem().(setupItem); ok {
				m.choice = item.choice
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
			m.choice = auth.SetupDeclined
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *choiceModel) View() string {
	return m.list.View()
}

const (
	fieldClientID = iota
	fieldClientSecret
)

// credentialForm collects a developer client id and secret.
type credentialForm struct {
	inputs    []textinput.Model
	focus     int
	err       string
	submitted bool
	help      help.Model
	keys      keyMap
}

func newCredentialForm() *credentialForm {
	id := textinput.New()
	id.Placeholder = "client id"
	id.Prompt = "Client ID:     "
	id.Focus()

	secret := textinput.New()
	secret.Placeholder = "client secret"
	secret.Prompt = "Client secret: "
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '•'

	return &credentialForm{
		inputs: []textinput.Model{id, secret},
		help:   newHelp(),
		keys:   newKeyMap(),
	}
}

func (m *credentialForm) Init() tea.Cmd { return textinput.Blink }

func (m *credentialForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
			m.submitted = false
			return m, tea.Quit
		case key.Matches(msg, m.keys.next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))
		case key.Matches(msg, m.keys.prev):
			return m, m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case key.Matches(msg, m.keys.enter):
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *credentialForm) submit() tea.Cmd {
	for i, in := range m.inputs {
		if strings.TrimSpace(in.Value()) == "" {
			m.err = "Both the client ID and the client secret are required."
			return m.setFocus(i)
		}
	}
	m.err = ""
	m.submitted = true
	return tea.Quit
}

func (m *credentialForm) setFocus(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
			continue
		}
		m.inputs[j].Blur()
	}
	return cmd
}

// credential returns nil unless the form was submitted with both fields filled.
func (m *credentialForm) credential() *credentials.DevCredential {
	if !m.submitted {
		return nil
	}
	return &credentials.DevCredential{
		ClientID:     strings.TrimSpace(m.inputs[fieldClientID].Value()),
		ClientSecret: strings.TrimSpace(m.inputs[fieldClientSecret].Value()),
	}
}

func (m *credentialForm) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Spotify developer app"))
	b.WriteString("\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.enter, m.keys.back}))
	return b.String()
}
