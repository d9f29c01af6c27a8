package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the interactive PKCE flow and saves the resulting token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	a := r.authenticator()
	r.logger.Info("starting browser sign-in", "callback", r.config.Callback.Addr())

	if _, err := a.Login(ctx); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	return r.writePlain("✓ Signed in to Spotify\nToken saved to: %s\n", a.Store().TokenPath())
}

// AuthDeveloper saves a developer credential after verifying it with a client-credentials exchange.
//
// Missing flags are collected with the credential form.
func (r *Runner) AuthDeveloper(ctx context.Context, cmd *cli.Command) error {
	dev := &credentials.DevCredential{
		ClientID:     strings.TrimSpace(cmd.String("client-id")),
		ClientSecret: strings.TrimSpace(cmd.String("client-secret")),
	}

	if dev.ClientID == "" || dev.ClientSecret == "" {
		entered, err := r.prompter.EnterDeveloperCredential(ctx)
		if err != nil {
			return err
		}
		if entered == nil {
			return shared.ErrUserDeclined
		}
		dev = entered
	}

	a := r.authenticator()
	if _, err := a.ConnectDeveloper(ctx, dev); err != nil {
		return fmt.Errorf("developer credential rejected: %w", err)
	}
	return r.writePlain("✓ Developer credential verified\nSaved to: %s\n", a.Store().DevCredentialPath())
}

type authStatus struct {
	StorageDir        string     `json:"storage_dir"`
	DevCredentialFile string     `json:"dev_credential_file"`
	DevCredential     string     `json:"dev_credential"`
	TokenFile         string     `json:"token_file"`
	Token             string     `json:"token"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	Mode              string     `json:"mode"`
}

// AuthStatus reports the stored credentials and the mode startup would choose.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store := r.store()
	status := authStatus{
		StorageDir:        r.config.Storage.Dir,
		DevCredentialFile: store.DevCredentialPath(),
		TokenFile:         store.TokenPath(),
	}

	dev, err := store.LoadDevCredential()
	switch {
	case err != nil:
		status.DevCredential = "unreadable"
	case dev != nil:
		status.DevCredential = "present"
	default:
		status.DevCredential = "absent"
	}

	tok, err := store.LoadUserToken()
	switch {
	case err != nil:
		status.Token = "unreadable"
	case tok == nil:
		status.Token = "absent"
	case tok.Expired(time.Now()):
		status.Token = "expired"
	default:
		status.Token = "valid"
	}
	if err == nil && tok != nil {
		status.TokenExpiresAt = &tok.ExpiresAt
	}

	switch {
	case status.DevCredential == "present":
		status.Mode = "developer"
	case status.Token == "valid":
		status.Mode = "user"
	case status.Token == "expired":
		status.Mode = "user (sign-in again on next start)"
	default:
		status.Mode = "none (setup prompt on next start)"
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Storage:              %s\n", status.StorageDir)
	r.writePlain("Developer credential: %s (%s)\n", status.DevCredential, status.DevCredentialFile)
	r.writePlain("User token:           %s (%s)\n", status.Token, status.TokenFile)
	if status.TokenExpiresAt != nil {
		r.writePlain("Token expires:        %s\n", status.TokenExpiresAt.Format(time.RFC3339))
	}
	return r.writePlain("Mode:                 %s\n", status.Mode)
}

// AuthReset removes both credential files.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	if err := r.store().Reset(); err != nil {
		return err
	}
	r.logger.Info("credentials removed", "dir", r.config.Storage.Dir)
	return r.writePlain("✓ Saved Spotify credentials removed\n")
}
