package auth

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/shared"
)

// SetupChoice is the user's answer when no credential exists.
type SetupChoice int

const (
	SetupDeclined SetupChoice = iota
	SetupInteractive
	SetupDeveloper
)

func (c SetupChoice) String() string {
	switch c {
	case SetupInteractive:
		return "interactive"
	case SetupDeveloper:
		return "developer"
	default:
		return "declined"
	}
}

// Prompter asks the user the questions the state machine cannot answer on its own.
type Prompter interface {
	// ConfirmReauthorize asks whether to sign in again after the saved token expired.
	ConfirmReauthorize(ctx context.Context) (bool, error)
	// ChooseSetup asks how to connect when no credential exists.
	ChooseSetup(ctx context.Context) (SetupChoice, error)
	// EnterDeveloperCredential collects a client id and secret. A nil credential means cancelled.
	EnterDeveloperCredential(ctx context.Context) (*credentials.DevCredential, error)
	// ShowAuthorizationURL is called when the browser could not be opened.
	ShowAuthorizationURL(url string)
	// Warn tells the user about a recoverable problem, such as an ignored corrupt file.
	Warn(message string)
}

// Prober checks that the remote service is reachable before any credential is touched.
type Prober interface {
	Probe(ctx context.Context) error
}

// DialProber probes by opening a TCP connection.
type DialProber struct {
	Address string
	Timeout time.Duration
}

// Probe dials Address and closes the connection.
func (p DialProber) Probe(ctx context.Context) error {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetworkUnreachable, err)
	}
	return conn.Close()
}

// ProberFunc adapts a function to [Prober].
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }
