package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/server"
	"github.com/desertthunder/copyurl/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultInteractiveTimeout = 5 * time.Minute
	listenerShutdownTimeout   = 5 * time.Second
)

// Deps are the collaborators of an [Authenticator]. Nil fields get defaults.
type Deps struct {
	Store    *credentials.Store
	Prompter Prompter
	// Prober defaults to a [DialProber] on the configured probe address.
	Prober Prober
	// OpenBrowser defaults to [shared.OpenBrowser].
	OpenBrowser func(url string) error
	// HTTPClient is used for token endpoint calls and as the base transport of sessions.
	HTTPClient *http.Client
	Logger     *log.Logger
	Now        func() time.Time
}

// Authenticator decides which credential to use, acquires tokens and rebuilds sessions.
//
// Authenticate and Refresh are serialized; a prompt or browser wait blocks other callers.
type Authenticator struct {
	spotify  shared.SpotifyConfig
	callback shared.CallbackConfig
	timeout  time.Duration

	store       *credentials.Store
	prompter    Prompter
	prober      Prober
	openBrowser func(string) error
	httpClient  *http.Client
	logger      *log.Logger
	now         func() time.Time

	// baseCtx outlives any single request; session transports refresh through it.
	baseCtx context.Context

	mu    sync.Mutex
	state State
	mode  Mode
}

// New creates an authenticator from cfg.
func New(cfg *shared.Config, deps Deps) *Authenticator {
	if deps.Logger == nil {
		deps.Logger = shared.NopLogger()
	}
	if deps.Prober == nil {
		deps.Prober = DialProber{Address: cfg.Auth.ProbeAddress, Timeout: cfg.Auth.ProbeTimeout.Duration}
	}
	if deps.OpenBrowser == nil {
		deps.OpenBrowser = shared.OpenBrowser
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Store == nil {
		deps.Store = credentials.NewStoreFromConfig(cfg.Storage, deps.Logger)
	}

	sp := cfg.Spotify
	if sp.AuthURL == "" {
		sp.AuthURL = spotifyauth.AuthURL
	}
	if sp.TokenURL == "" {
		sp.TokenURL = spotifyauth.TokenURL
	}

	timeout := cfg.Auth.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultInteractiveTimeout
	}

	a := &Authenticator{
		spotify:     sp,
		callback:    cfg.Callback,
		timeout:     timeout,
		store:       deps.Store,
		prompter:    deps.Prompter,
		prober:      deps.Prober,
		openBrowser: deps.OpenBrowser,
		httpClient:  deps.HTTPClient,
		logger:      shared.ComponentLogger(deps.Logger, "auth"),
		now:         deps.Now,
		state:       StateNoCredential,
	}
	a.baseCtx = a.tokenContext(context.Background())
	return a
}

// State returns the current state machine step.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Mode returns the credential kind of the last built session.
func (a *Authenticator) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Store returns the credential store in use.
func (a *Authenticator) Store() *credentials.Store {
	return a.store
}

func (a *Authenticator) transition(to State) {
	if a.state != to {
		a.logger.Debug("state", "from", a.state, "to", to)
	}
	a.state = to
}

// fail moves to [StateFailed] and returns err unchanged.
func (a *Authenticator) fail(err error) error {
	a.transition(StateFailed)
	return err
}

// Authenticate runs the startup decision:
//
//  1. developer credential present: client-credentials exchange, no prompt
//  2. user token present and valid: used as is
//  3. user token expired: ask to reauthorize; decline fails
//  4. nothing stored: ask to sign in or enter a developer credential; decline fails
func (a *Authenticator) Authenticate(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.prober.Probe(ctx); err != nil {
		a.logger.Warn("network probe failed", "error", err)
		if !errors.Is(err, shared.ErrNetworkUnreachable) {
			err = fmt.Errorf("%w: %v", shared.ErrNetworkUnreachable, err)
		}
		return nil, a.fail(err)
	}

	dev := a.loadDevCredential()
	if dev != nil {
		a.transition(StateDevCredentialLoaded)
		return a.developerSession(ctx, dev)
	}

	tok := a.loadUserToken()
	switch {
	case tok != nil && !tok.Expired(a.now()):
		a.logger.Info("using saved user token", "expires_at", tok.ExpiresAt)
		return a.userSession(tok), nil

	case a.prompter == nil:
		return nil, a.fail(fmt.Errorf("%w: no usable credential stored", shared.ErrCredentialMissing))

	case tok != nil:
		a.transition(StateAwaitingUserChoice)
		ok, err := a.prompter.ConfirmReauthorize(ctx)
		if err != nil {
			return nil, a.fail(fmt.Errorf("%w: %v", shared.ErrInteractiveAuthAbandoned, err))
		}
		if !ok {
			return nil, a.fail(shared.ErrUserDeclined)
		}
		return a.interactive(ctx)

	default:
		a.transition(StateAwaitingUserChoice)
		return a.setup(ctx)
	}
}

// Login forces the interactive flow regardless of stored credentials.
func (a *Authenticator) Login(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interactive(ctx)
}

// ConnectDeveloper persists c and builds a client-credentials session from it.
func (a *Authenticator) ConnectDeveloper(ctx context.Context, c *credentials.DevCredential) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.SaveDevCredential(c); err != nil {
		return nil, a.fail(err)
	}
	a.transition(StateDevCredentialLoaded)
	return a.developerSession(ctx, c)
}

// Refresh rebuilds the session after an authorization failure. Developer mode repeats the
// client-credentials exchange; user mode redeems the stored refresh token.
func (a *Authenticator) Refresh(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.transition(StateRefreshing)

	switch a.mode {
	case ModeDeveloper:
		dev, err := a.store.LoadDevCredential()
		if err != nil {
			return nil, a.fail(err)
		}
		if dev == nil {
			return nil, a.fail(fmt.Errorf("%w: developer credential removed", shared.ErrCredentialMissing))
		}
		return a.developerSession(ctx, dev)

	case ModeUser:
		tok, err := a.store.LoadUserToken()
		if err != nil {
			return nil, a.fail(err)
		}
		if tok == nil || tok.RefreshToken == "" {
			return nil, a.fail(fmt.Errorf("%w: no refresh token stored", shared.ErrAuthExpired))
		}
		return a.refreshUser(ctx, tok)

	default:
		return nil, a.fail(shared.ErrSessionUnavailable)
	}
}

func (a *Authenticator) setup(ctx context.Context) (*Session, error) {
	choice, err := a.prompter.ChooseSetup(ctx)
	if err != nil {
		return nil, a.fail(fmt.Errorf("%w: %v", shared.ErrInteractiveAuthAbandoned, err))
	}
	a.logger.Debug("setup choice", "choice", choice)

	switch choice {
	case SetupInteractive:
		return a.interactive(ctx)

	case SetupDeveloper:
		dev, err := a.prompter.EnterDeveloperCredential(ctx)
		if err != nil {
			return nil, a.fail(fmt.Errorf("%w: %v", shared.ErrInteractiveAuthAbandoned, err))
		}
		if dev == nil {
			return nil, a.fail(shared.ErrUserDeclined)
		}
		if err := a.store.SaveDevCredential(dev); err != nil {
			return nil, a.fail(err)
		}
		a.transition(StateDevCredentialLoaded)
		return a.developerSession(ctx, dev)

	default:
		return nil, a.fail(shared.ErrUserDeclined)
	}
}

// loadDevCredential treats a corrupt file as absent after warning the user.
func (a *Authenticator) loadDevCredential() *credentials.DevCredential {
	dev, err := a.store.LoadDevCredential()
	if err != nil {
		a.ignoreCorrupt(a.store.DevCredentialPath(), err)
		return nil
	}
	return dev
}

func (a *Authenticator) loadUserToken() *credentials.UserToken {
	tok, err := a.store.LoadUserToken()
	if err != nil {
		a.ignoreCorrupt(a.store.TokenPath(), err)
		return nil
	}
	return tok
}

func (a *Authenticator) ignoreCorrupt(path string, err error) {
	a.logger.Warn("ignoring unreadable credential file", "path", path, "error", err)
	if a.prompter != nil {
		a.prompter.Warn(fmt.Sprintf("The saved credential file %s could not be read and was ignored.", path))
	}
}

// tokenContext carries the injected HTTP client to the oauth2 package.
func (a *Authenticator) tokenContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *Authenticator) userConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    a.spotify.ClientID,
		RedirectURL: redirectURL,
		Scopes:      a.spotify.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.spotify.AuthURL,
			TokenURL:  a.spotify.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (a *Authenticator) developerSession(ctx context.Context, dev *credentials.DevCredential) (*Session, error) {
	conf := &clientcredentials.Config{
		ClientID:     dev.ClientID,
		ClientSecret: dev.ClientSecret,
		TokenURL:     a.spotify.TokenURL,
	}

	tok, err := conf.Token(a.tokenContext(ctx))
	if err != nil {
		return nil, a.fail(classifyTokenError(err))
	}

	a.logger.Info("authenticated with developer credential", "expires_at", tok.Expiry)
	src := oauth2.ReuseTokenSource(tok, conf.TokenSource(a.baseCtx))
	return a.publish(ModeDeveloper, oauth2.NewClient(a.baseCtx, src)), nil
}

func (a *Authenticator) userSession(tok *credentials.UserToken) *Session {
	conf := a.userConfig("")
	initial := tok.OAuth2()
	src := &persistingSource{
		src:    conf.TokenSource(a.baseCtx, initial),
		store:  a.store,
		last:   tok,
		logger: a.logger,
	}
	return a.publish(ModeUser, oauth2.NewClient(a.baseCtx, oauth2.ReuseTokenSource(initial, src)))
}

func (a *Authenticator) refreshUser(ctx context.Context, stored *credentials.UserToken) (*Session, error) {
	conf := a.userConfig("")
	// An access token left empty forces the source to redeem the refresh token.
	tok, err := conf.TokenSource(a.tokenContext(ctx), &oauth2.Token{RefreshToken: stored.RefreshToken}).Token()
	if err != nil {
		return nil, a.fail(classifyTokenError(err))
	}

	updated := credentials.UserTokenFrom(tok, stored)
	if err := a.store.SaveUserToken(updated); err != nil {
		a.logger.Warn("failed to persist refreshed token", "error", err)
	}
	a.logger.Info("user token refreshed", "expires_at", updated.ExpiresAt)
	return a.userSession(updated), nil
}

func (a *Authenticator) publish(mode Mode, client *http.Client) *Session {
	a.mode = mode
	a.transition(StateAuthenticated)
	return &Session{Mode: mode, HTTPClient: client, CreatedAt: a.now()}
}

// interactive runs the PKCE authorization-code flow on the loopback listener.
//
// The listener is shut down on every return path.
func (a *Authenticator) interactive(ctx context.Context) (*Session, error) {
	a.transition(StateInteractiveAuthInProgress)

	state := shared.NewState()
	verifier := oauth2.GenerateVerifier()

	callback := server.NewCallbackHandler(a.callback.Path, state)
	router := server.NewLoopbackRouter()
	router.Use(server.RequestLogger(a.logger))
	router.Handler(callback)

	srv, err := server.Listen(a.callback.Addr(), router, a.logger)
	if err != nil {
		return nil, a.fail(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("error shutting down callback listener", "error", err)
		}
	}()

	conf := a.userConfig(srv.URL(a.callback.Path))
	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	a.logger.Info("waiting for authorization", "redirect_uri", conf.RedirectURL, "timeout", a.timeout)
	if err := a.openBrowser(authURL); err != nil {
		a.logger.Warn("failed to open browser automatically", "error", err)
		if a.prompter != nil {
			a.prompter.ShowAuthorizationURL(authURL)
		}
	}

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	var result server.CallbackResult
	select {
	case result = <-callback.Result():
	case err := <-srv.Errors():
		return nil, a.fail(fmt.Errorf("%w: callback listener failed: %v", shared.ErrInteractiveAuthAbandoned, err))
	case <-timer.C:
		return nil, a.fail(fmt.Errorf("%w after %s", shared.ErrTimeout, a.timeout))
	case <-ctx.Done():
		return nil, a.fail(fmt.Errorf("%w: %v", shared.ErrInteractiveAuthAbandoned, ctx.Err()))
	}

	if err := result.Error(); err != nil {
		return nil, a.fail(fmt.Errorf("%w: %v", shared.ErrAuthExchangeFailed, err))
	}

	tok, err := conf.Exchange(a.tokenContext(ctx), result.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, a.fail(classifyTokenError(err))
	}

	saved := credentials.UserTokenFrom(tok, nil)
	if err := a.store.SaveUserToken(saved); err != nil {
		return nil, a.fail(err)
	}
	a.logger.Info("interactive authorization complete", "expires_at", saved.ExpiresAt)
	return a.userSession(saved), nil
}

// classifyTokenError maps token endpoint failures onto the error taxonomy.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %s %s", shared.ErrAuthExchangeFailed, re.ErrorCode, re.ErrorDescription)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", shared.ErrNetworkUnreachable, err)
	}
	return fmt.Errorf("%w: %v", shared.ErrAuthExchangeFailed, err)
}

// persistingSource writes a token back to the store whenever the transport refreshes it.
type persistingSource struct {
	src    oauth2.TokenSource
	store  *credentials.Store
	logger *log.Logger

	mu   sync.Mutex
	last *credentials.UserToken
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && p.last.AccessToken == tok.AccessToken {
		return tok, nil
	}

	updated := credentials.UserTokenFrom(tok, p.last)
	if err := p.store.SaveUserToken(updated); err != nil {
		p.logger.Warn("failed to persist refreshed token", "error", err)
	} else {
		p.logger.Info("refreshed token saved", "expires_at", updated.ExpiresAt)
	}
	p.last = updated
	return tok, nil
}
