package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/plugin"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/desertthunder/copyurl/internal/ui"
)

// errReported marks a failure the user has already been shown.
var errReported = errors.New("failure already reported")

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	prompter    auth.Prompter
	prober      auth.Prober
	openBrowser func(string) error
	clipboard   plugin.Clipboard
	notifier    plugin.Notifier
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	Prompter    auth.Prompter
	Prober      auth.Prober
	OpenBrowser func(string) error
	Clipboard   plugin.Clipboard
	Notifier    plugin.Notifier
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Prompter == nil {
		opts.Prompter = ui.NewPrompter(opts.Input, nil, opts.Logger)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = ui.Clipboard{}
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.NewNotifier(opts.Output, true)
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		prompter:    opts.Prompter,
		prober:      opts.Prober,
		openBrowser: opts.OpenBrowser,
		clipboard:   opts.Clipboard,
		notifier:    opts.Notifier,
	}
}

func (r *Runner) store() *credentials.Store {
	return credentials.NewStoreFromConfig(r.config.Storage, r.logger)
}

func (r *Runner) authenticator() *auth.Authenticator {
	return auth.New(r.config, auth.Deps{
		Store:       r.store(),
		Prompter:    r.prompter,
		Prober:      r.prober,
		OpenBrowser: r.openBrowser,
		HTTPClient:  r.httpClient,
		Logger:      r.logger,
	})
}

func (r *Runner) pluginDeps(notifier plugin.Notifier) plugin.Deps {
	return plugin.Deps{
		Prompter:    r.prompter,
		Prober:      r.prober,
		OpenBrowser: r.openBrowser,
		HTTPClient:  r.httpClient,
		Notifier:    notifier,
		Clipboard:   r.clipboard,
		Logger:      r.logger,
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
