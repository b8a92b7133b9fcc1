package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BeginSignIn opens an authorization-code flow against an external provider.
// It mints the CSRF state, persists the session in awaiting_callback, and
// returns the provider redirect URL for the caller's user agent.
func (s *Service) BeginSignIn(ctx context.Context, req BeginSignInRequest) (response BeginSignInResponse, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider": req.Provider, "client_id": req.ClientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "signin_begin", err, fields)
	}()

	if err = s.requireFederation(); err != nil {
		err = s.mapError(err)
		return BeginSignInResponse{}, err
	}
	flow, err := s.resolveFlow(req.Provider)
	if err != nil {
		return BeginSignInResponse{}, err
	}

	state, err := GenerateState()
	if err != nil {
		err = s.mapError(err)
		return BeginSignInResponse{}, err
	}

	scopes := append([]string(nil), req.Scopes...)
	if len(scopes) == 0 {
		scopes = append([]string(nil), flow.Scopes()...)
	}

	session := SignInSession{
		State:     state,
		Provider:  flow.Tag(),
		ClientID:  strings.TrimSpace(req.ClientID),
		Scopes:    scopes,
		Target:    strings.TrimSpace(req.Target),
		Status:    StatusInit,
		CreatedAt: time.Now().UTC(),
	}

	extra := map[string]string{}
	if hint := strings.TrimSpace(req.LoginHint); hint != "" {
		extra["login_hint"] = hint
	}
	redirectURL, err := flow.BuildAuthorizationURL(session, strings.TrimSpace(req.RedirectURI), extra)
	if err != nil {
		err = s.mapError(err)
		return BeginSignInResponse{}, err
	}

	if err = session.Transition(StatusAwaitingCallback); err != nil {
		err = s.mapError(err)
		return BeginSignInResponse{}, err
	}
	if err = s.sessionStore.Save(ctx, session); err != nil {
		err = s.mapError(err)
		return BeginSignInResponse{}, err
	}

	return BeginSignInResponse{RedirectURL: redirectURL, State: state}, nil
}

// CompleteSignIn processes the provider callback: it consumes the session,
// exchanges the code for tokens, validates scopes, fetches the user profile,
// and persists the normalized credential. A provider invalid_grant answer
// re-arms the session at init and surfaces the restart signal instead of a
// terminal failure.
func (s *Service) CompleteSignIn(ctx context.Context, req CompleteSignInRequest) (completion SignInCompletion, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "signin_complete", err, fields)
	}()

	if err = s.requireFederation(); err != nil {
		err = s.mapError(err)
		return SignInCompletion{}, err
	}
	if strings.TrimSpace(req.State) == "" {
		err = s.mapError(NewAuthenticationFailedError("callback state is required"))
		return SignInCompletion{}, err
	}

	session, err := s.sessionStore.Consume(ctx, req.State)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			err = s.mapError(NewAuthenticationFailedError("callback state mismatch"))
			return SignInCompletion{}, err
		}
		err = s.mapError(err)
		return SignInCompletion{}, err
	}
	fields["provider"] = session.Provider
	fields["client_id"] = session.ClientID

	if providerError := strings.TrimSpace(req.Error); providerError != "" {
		_ = session.Transition(StatusFailed)
		err = s.mapError(NewProviderError(session.Provider, providerError, callbackErrorMessage(req)))
		return SignInCompletion{}, err
	}
	if strings.TrimSpace(req.Code) == "" {
		_ = session.Transition(StatusFailed)
		err = s.mapError(NewAuthenticationFailedError("callback code is required"))
		return SignInCompletion{}, err
	}

	flow, err := s.resolveFlow(session.Provider)
	if err != nil {
		return SignInCompletion{}, err
	}
	clientID, clientSecret, err := s.resolveFlowCredentials(ctx, session.Provider)
	if err != nil {
		err = s.mapError(err)
		return SignInCompletion{}, err
	}

	exchangeCtx, cancelExchange := s.providerContext(ctx)
	tokenResponse, exchangeErr := flow.ExchangeCode(exchangeCtx, ExchangeCodeRequest{
		Code:         strings.TrimSpace(req.Code),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  strings.TrimSpace(req.RedirectURI),
	})
	cancelExchange()
	if exchangeErr != nil {
		if errors.Is(exchangeErr, ErrInvalidGrant) {
			err = s.restartSignIn(ctx, session)
			return SignInCompletion{}, err
		}
		_ = session.Transition(StatusFailed)
		err = s.mapError(exchangeErr)
		return SignInCompletion{}, err
	}

	if err = tokenResponse.Validate(session.Scopes); err != nil {
		_ = session.Transition(StatusFailed)
		err = s.mapError(err)
		return SignInCompletion{}, err
	}

	token, err := TokenFromResponse(session.Provider, tokenResponse, time.Now())
	if err != nil {
		_ = session.Transition(StatusFailed)
		err = s.mapError(err)
		return SignInCompletion{}, err
	}
	if err = session.Transition(StatusTokenObtained); err != nil {
		err = s.mapError(err)
		return SignInCompletion{}, err
	}

	infoCtx, cancelInfo := s.providerContext(ctx)
	profile, infoErr := flow.FetchUserInfo(infoCtx, token.AccessToken)
	cancelInfo()
	if infoErr != nil {
		if !errors.Is(infoErr, ErrUserInfoNotConfigured) {
			err = s.mapError(infoErr)
			return SignInCompletion{}, err
		}
		profile = nil
	}

	subject := ""
	completionProfile := copyAnyMap(profile)
	if len(profile) > 0 && s.profileResolver != nil {
		if userProfile, resolveErr := s.profileResolver.Resolve(session.Provider, profile); resolveErr == nil {
			subject = userProfile.Subject
			completionProfile = userProfile.Map()
		}
	}

	if s.credentialStore != nil {
		if subject == "" {
			subject = session.ClientID
		}
		if subject != "" {
			fields["subject"] = subject
			if saveErr := s.credentialStore.Put(ctx, session.Provider, subject, *token); saveErr != nil {
				err = s.mapError(saveErr)
				return SignInCompletion{}, err
			}
		}
	}

	return SignInCompletion{
		Token:   token,
		Target:  session.Target,
		Profile: completionProfile,
	}, nil
}

// EnsureFreshToken returns a usable access token for (provider, subject),
// refreshing through the provider when the stored token is inside the expiry
// threshold or force is set.
func (s *Service) EnsureFreshToken(ctx context.Context, provider, subject string, creds RefreshCredentials, force bool) (token CredentialToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"provider": provider, "subject": subject, "force": force}
	defer func() {
		s.observeOperation(ctx, startedAt, "token_ensure_fresh", err, fields)
	}()

	if s == nil || s.credentialStore == nil {
		err = s.mapError(fmt.Errorf("core: credential store is not configured"))
		return CredentialToken{}, err
	}
	token, err = s.credentialStore.Get(ctx, provider, subject)
	if err != nil {
		err = s.mapError(err)
		return CredentialToken{}, err
	}

	now := time.Now()
	if !force && !token.IsExpired(now, s.config.TokenExpiryThreshold) {
		return token, nil
	}

	if strings.TrimSpace(token.RefreshToken) == "" {
		err = s.mapError(NewTokenExpiredError("token expired and no refresh token is available"))
		return CredentialToken{}, err
	}
	if !token.RefreshTokenExpiresAt.IsZero() && !now.UTC().Before(token.RefreshTokenExpiresAt.UTC()) {
		err = s.mapError(NewTokenExpiredError("refresh token expired"))
		return CredentialToken{}, err
	}

	flow, err := s.resolveFlow(provider)
	if err != nil {
		return CredentialToken{}, err
	}
	// The staleness decision is made here, against the configured expiry
	// threshold. The flow must not second-guess it with its own zero
	// threshold check, so the refresh is always forced.
	refreshCtx, cancelRefresh := s.providerContext(ctx)
	err = flow.RefreshToken(refreshCtx, &token, creds, true)
	cancelRefresh()
	if err != nil {
		err = s.mapError(err)
		return CredentialToken{}, err
	}

	if err = s.credentialStore.Put(ctx, provider, subject, token); err != nil {
		err = s.mapError(err)
		return CredentialToken{}, err
	}
	return token, nil
}

// PruneSessions drops expired sign-in sessions. There is no background
// scheduler; hosts call this from their own maintenance loop.
func (s *Service) PruneSessions(ctx context.Context) (int, error) {
	if s == nil || s.sessionStore == nil {
		return 0, fmt.Errorf("core: session store is not configured")
	}
	pruned, err := s.sessionStore.PruneExpired(ctx, time.Now())
	if err != nil {
		return 0, s.mapError(err)
	}
	return pruned, nil
}

// restartSignIn re-arms a session whose code exchange failed with
// invalid_grant. The session returns to init under the same state value so
// the caller can retry the authorization step without losing its target.
func (s *Service) restartSignIn(ctx context.Context, session SignInSession) error {
	if err := session.Transition(StatusInit); err != nil {
		return s.mapError(err)
	}
	session.CreatedAt = time.Now().UTC()
	if err := s.sessionStore.Save(ctx, session); err != nil {
		return s.mapError(err)
	}
	return s.mapError(NewSignInRestartError(session.Provider, session.Target))
}

// providerContext bounds an outbound provider round trip with the configured
// timeout, independent of the flow's own transport timeout.
func (s *Service) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := s.config.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) resolveFlow(provider string) (Flow, error) {
	if s.registry == nil {
		return nil, s.mapError(fmt.Errorf("core: flow registry is not configured"))
	}
	flow, ok := s.registry.Get(provider)
	if !ok {
		return nil, s.mapError(fmt.Errorf("%w: %s", ErrFlowNotFound, strings.TrimSpace(provider)))
	}
	return flow, nil
}

func (s *Service) resolveFlowCredentials(ctx context.Context, provider string) (string, string, error) {
	if s.flowCredentials == nil {
		return "", "", fmt.Errorf("core: flow credentials are not configured")
	}
	return s.flowCredentials.Resolve(ctx, provider)
}

func (s *Service) requireFederation() error {
	if s == nil {
		return fmt.Errorf("core: service is not configured")
	}
	if s.sessionStore == nil {
		return fmt.Errorf("core: session store is not configured")
	}
	return nil
}

func callbackErrorMessage(req CompleteSignInRequest) string {
	description := strings.TrimSpace(req.ErrorDescription)
	if description != "" {
		return description
	}
	return "provider returned error: " + strings.TrimSpace(req.Error)
}
