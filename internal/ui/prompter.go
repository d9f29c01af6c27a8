package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/shared"
)

var _ auth.Prompter = (*Prompter)(nil)

// Prompter runs the authentication dialogs in the terminal.
type Prompter struct {
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewPrompter creates a [Prompter] reading keys from in and drawing to out.
// Nil streams default to the process's stdin and stderr.
func NewPrompter(in io.Reader, out io.Writer, logger *log.Logger) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Prompter{in: in, out: out, logger: logger}
}

func (p *Prompter) ConfirmReauthorize(ctx context.Context) (bool, error) {
	m := newConfirmModel("Your Spotify sign-in has expired. Sign in again?")
	if _, err := p.run(ctx, m); err != nil {
		return false, err
	}
	return m.answer, nil
}

func (p *Prompter) ChooseSetup(ctx context.Context) (auth.SetupChoice, error) {
	m := newChoiceModel()
	if _, err := p.run(ctx, m); err != nil {
		return auth.SetupDeclined, err
	}
	p.logger.Debug("setup chosen", "choice", m.choice)
	return m.choice, nil
}

func (p *Prompter) EnterDeveloperCredential(ctx context.Context) (*credentials.DevCredential, error) {
	m := newCredentialForm()
	if _, err := p.run(ctx, m); err != nil {
		return nil, err
	}
	return m.credential(), nil
}

// ShowAuthorizationURL prints the URL for the user to open by hand.
func (p *Prompter) ShowAuthorizationURL(url string) {
	fmt.Fprintf(p.out, "%s\n%s\n",
		styles.warn.Render("Could not open a browser. Open this address to authorize Copy Spotify URL:"),
		styles.link.Render(url),
	)
}

func (p *Prompter) Warn(message string) {
	fmt.Fprintln(p.out, styles.warn.Render(message))
}

// run drives m until it quits. The model is updated in place, so callers read
// their answer from m afterwards.
func (p *Prompter) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	final, err := prog.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInteractiveAuthAbandoned, ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("dialog failed: %w", err)
	}
	return final, nil
}
