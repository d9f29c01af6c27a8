package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/shared"
	"golang.org/x/oauth2"
)

// UserToken is the persisted result of the interactive authorization flow.
type UserToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope,omitempty"`
}

// DevCredential is an application client id and secret used for client-credentials exchange.
type DevCredential struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Expired reports whether the access token is past its expiry at now.
//
// A zero ExpiresAt is treated as expired so the token gets refreshed rather than trusted.
func (t *UserToken) Expired(now time.Time) bool {
	return t.ExpiresAt.IsZero() || !now.Before(t.ExpiresAt)
}

// OAuth2 converts the record into an [oauth2.Token].
func (t *UserToken) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
	if t.Scope != "" {
		tok = tok.WithExtra(map[string]any{"scope": t.Scope})
	}
	return tok
}

// UserTokenFrom builds a record from an exchanged or refreshed token.
//
// Providers may omit the refresh token on refresh; previous keeps the old one in that case.
func UserTokenFrom(tok *oauth2.Token, previous *UserToken) *UserToken {
	ut := &UserToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ut.Scope = scope
	}
	if ut.RefreshToken == "" && previous != nil {
		ut.RefreshToken = previous.RefreshToken
	}
	if ut.Scope == "" && previous != nil {
		ut.Scope = previous.Scope
	}
	return ut
}

func (t *UserToken) validate() error {
	if t.AccessToken == "" && t.RefreshToken == "" {
		return errors.New("record has neither access_token nor refresh_token")
	}
	return nil
}

func (c *DevCredential) validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("client_id and client_secret are both required")
	}
	return nil
}

// Store reads and writes the two credential files inside one storage directory.
//
// Credentials are stored as plaintext JSON. Files are created with 0600 permissions.
type Store struct {
	tokenPath string
	devPath   string
	logger    *log.Logger
}

// NewStore creates a store for the given file paths.
func NewStore(tokenPath, devPath string, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Store{tokenPath: tokenPath, devPath: devPath, logger: logger}
}

// NewStoreFromConfig creates a store at the configured storage paths.
func NewStoreFromConfig(cfg shared.StorageConfig, logger *log.Logger) *Store {
	return NewStore(cfg.TokenPath(), cfg.DevCredentialPath(), logger)
}

// TokenPath returns the user token file location.
func (s *Store) TokenPath() string { return s.tokenPath }

// DevCredentialPath returns the developer credential file location.
func (s *Store) DevCredentialPath() string { return s.devPath }

// LoadUserToken returns the persisted user token, nil if the file is absent,
// or an error wrapping [shared.ErrCredentialMalformed].
func (s *Store) LoadUserToken() (*UserToken, error) {
	var t UserToken
	found, err := load(s.tokenPath, &t)
	if err != nil || !found {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCredentialMalformed, s.tokenPath, err)
	}
	return &t, nil
}

// SaveUserToken replaces the user token file.
func (s *Store) SaveUserToken(t *UserToken) error {
	if t == nil {
		return fmt.Errorf("%w: nil user token", shared.ErrInvalidArgument)
	}
	if err := save(s.tokenPath, t); err != nil {
		return err
	}
	s.logger.Debug("user token saved", "path", s.tokenPath, "expires_at", t.ExpiresAt)
	return nil
}

// LoadDevCredential returns the persisted developer credential, nil if the file is absent,
// or an error wrapping [shared.ErrCredentialMalformed].
func (s *Store) LoadDevCredential() (*DevCredential, error) {
	var c DevCredential
	found, err := load(s.devPath, &c)
	if err != nil || !found {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCredentialMalformed, s.devPath, err)
	}
	return &c, nil
}

// SaveDevCredential replaces the developer credential file.
func (s *Store) SaveDevCredential(c *DevCredential) error {
	if c == nil {
		return fmt.Errorf("%w: nil developer credential", shared.ErrInvalidArgument)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if err := save(s.devPath, c); err != nil {
		return err
	}
	s.logger.Debug("developer credential saved", "path", s.devPath)
	return nil
}

// Reset removes both credential files. Missing files are not an error.
func (s *Store) Reset() error {
	var errs []error
	for _, path := range []string{s.tokenPath, s.devPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func load(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", shared.ErrCredentialMalformed, path, err)
	}
	return true, nil
}

// save writes v to a temporary file beside path and renames it into place, so a
// concurrent reader sees either the old file or the new one.
func save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
