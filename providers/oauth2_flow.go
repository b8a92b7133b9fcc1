package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-vault/core"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBodyBytes  = 1 << 20 // 1 MiB

	errorCodeInvalidGrant = "invalid_grant"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OAuth2Config describes an authorization-code provider endpoint set. Client
// credentials are NOT part of the config; they arrive per request so the
// same flow instance can serve multiple registered applications.
// ExtraParams ride on the authorization URL, TokenParams on the token
// request form, UserInfoParams on the user-info query, and Headers on both
// outbound requests. Providers vary in which of these they need.
type OAuth2Config struct {
	Tag            string
	AuthURL        string
	TokenURL       string
	UserInfoURL    string
	Scopes         []string
	ExtraParams    map[string]string
	TokenParams    map[string]string
	UserInfoParams map[string]string
	Headers        map[string]string
	RequestTimeout time.Duration
	Now            func() time.Time
	HTTPClient     HTTPDoer
}

// OAuth2Flow is the generic authorization-code implementation behind every
// provider package. It parses both JSON and form-encoded token payloads and
// translates invalid_grant answers into the restart sentinel.
type OAuth2Flow struct {
	cfg        OAuth2Config
	httpClient HTTPDoer
}

type tokenEndpointPayload struct {
	AccessToken           string
	TokenType             string
	RefreshToken          string
	Scope                 string
	ExpiresIn             int64
	RefreshTokenExpiresIn int64
	ErrorCode             string
	ErrorDescription      string
}

func NewOAuth2Flow(cfg OAuth2Config) (*OAuth2Flow, error) {
	cfg.Tag = strings.TrimSpace(strings.ToLower(cfg.Tag))
	if cfg.Tag == "" {
		return nil, fmt.Errorf("providers: flow tag is required")
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		return nil, fmt.Errorf("providers: auth url is required for flow %q", cfg.Tag)
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("providers: token url is required for flow %q", cfg.Tag)
	}

	cfg.AuthURL = strings.TrimSpace(cfg.AuthURL)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.UserInfoURL = strings.TrimSpace(cfg.UserInfoURL)
	cfg.Scopes = normalizeScopes(cfg.Scopes)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Now().UTC()
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &OAuth2Flow{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

func (f *OAuth2Flow) Tag() string {
	if f == nil {
		return ""
	}
	return f.cfg.Tag
}

func (f *OAuth2Flow) Scopes() []string {
	if f == nil {
		return []string{}
	}
	return append([]string(nil), f.cfg.Scopes...)
}

// BuildAuthorizationURL assembles the provider redirect. The session's state
// and scopes are authoritative; extra parameters (login_hint and friends)
// ride along untouched.
func (f *OAuth2Flow) BuildAuthorizationURL(session core.SignInSession, redirectURI string, extra map[string]string) (string, error) {
	if f == nil {
		return "", fmt.Errorf("providers: oauth2 flow is nil")
	}
	state := strings.TrimSpace(session.State)
	if state == "" {
		return "", fmt.Errorf("providers: session state is required")
	}

	scopes := normalizeScopes(session.Scopes)
	if len(scopes) == 0 {
		scopes = append([]string(nil), f.cfg.Scopes...)
	}

	// Provider extras first, caller extras on top, canonical parameters
	// last so neither can clobber them.
	values := url.Values{}
	for key, value := range f.cfg.ExtraParams {
		setTrimmed(values, key, value)
	}
	for key, value := range extra {
		setTrimmed(values, key, value)
	}
	values.Set("response_type", "code")
	if clientID := strings.TrimSpace(session.ClientID); clientID != "" {
		values.Set("client_id", clientID)
	}
	if redirectURI := strings.TrimSpace(redirectURI); redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	if len(scopes) > 0 {
		values.Set("scope", strings.Join(scopes, " "))
	}
	values.Set("state", state)

	authURL := f.cfg.AuthURL
	if strings.Contains(authURL, "?") {
		authURL += "&" + values.Encode()
	} else {
		authURL += "?" + values.Encode()
	}
	return authURL, nil
}

// ExchangeCode trades an authorization code for tokens. A provider answer of
// invalid_grant maps to core.ErrInvalidGrant so the caller can restart the
// flow instead of failing terminally.
func (f *OAuth2Flow) ExchangeCode(ctx context.Context, req core.ExchangeCodeRequest) (core.TokenResponse, error) {
	if f == nil {
		return core.TokenResponse{}, fmt.Errorf("providers: oauth2 flow is nil")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.TokenResponse{}, fmt.Errorf("providers: auth code is required")
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.ClientSecret) == "" {
		return core.TokenResponse{}, fmt.Errorf("providers: client credentials are required")
	}

	form := url.Values{}
	for key, value := range f.cfg.TokenParams {
		setTrimmed(form, key, value)
	}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", strings.TrimSpace(req.ClientID))
	form.Set("client_secret", strings.TrimSpace(req.ClientSecret))
	if redirectURI := strings.TrimSpace(req.RedirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	payload, err := f.postTokenRequest(ctx, form, nil)
	if err != nil {
		return core.TokenResponse{}, err
	}
	return payload.toTokenResponse(), nil
}

// RefreshToken refreshes the token in place using exactly one credential
// mode: HTTP basic auth or form-encoded client credentials. When force is
// false a still-fresh token short-circuits without a provider round trip.
func (f *OAuth2Flow) RefreshToken(ctx context.Context, token *core.CredentialToken, creds core.RefreshCredentials, force bool) error {
	if f == nil {
		return fmt.Errorf("providers: oauth2 flow is nil")
	}
	if token == nil {
		return fmt.Errorf("providers: credential token is required")
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	if !force && !token.IsExpired(f.cfg.Now(), 0) {
		return nil
	}
	refreshToken := strings.TrimSpace(token.RefreshToken)
	if refreshToken == "" {
		return fmt.Errorf("providers: refresh token is required")
	}

	form := url.Values{}
	for key, value := range f.cfg.TokenParams {
		setTrimmed(form, key, value)
	}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if len(token.Scopes) > 0 {
		form.Set("scope", strings.Join(token.Scopes, " "))
	}
	if creds.BasicAuth == nil {
		form.Set("client_id", strings.TrimSpace(creds.ClientID))
		form.Set("client_secret", strings.TrimSpace(creds.ClientSecret))
	}

	payload, err := f.postTokenRequest(ctx, form, creds.BasicAuth)
	if err != nil {
		return err
	}
	return token.RefreshFromResponse(payload.toTokenResponse(), f.cfg.Now())
}

// FetchUserInfo retrieves the provider's profile document for the token's
// subject.
func (f *OAuth2Flow) FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	if f == nil {
		return nil, fmt.Errorf("providers: oauth2 flow is nil")
	}
	if strings.TrimSpace(f.cfg.UserInfoURL) == "" {
		return nil, fmt.Errorf("%w: flow %q", core.ErrUserInfoNotConfigured, f.cfg.Tag)
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("providers: access token is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	userInfoURL := f.cfg.UserInfoURL
	if len(f.cfg.UserInfoParams) > 0 {
		params := url.Values{}
		for key, value := range f.cfg.UserInfoParams {
			setTrimmed(params, key, value)
		}
		if encoded := params.Encode(); encoded != "" {
			if strings.Contains(userInfoURL, "?") {
				userInfoURL += "&" + encoded
			} else {
				userInfoURL += "?" + encoded
			}
		}
	}

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	f.applyHeaders(httpReq)
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	response, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewProviderError(f.cfg.Tag, "", fmt.Sprintf("user info request failed: %v", err))
	}
	defer response.Body.Close()

	body, err := readLimitedBody(response.Body)
	if err != nil {
		return nil, core.NewProviderError(f.cfg.Tag, "", fmt.Sprintf("read user info response: %v", err))
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, core.NewProviderError(f.cfg.Tag,
			strconv.Itoa(response.StatusCode),
			fmt.Sprintf("user info endpoint returned %d", response.StatusCode))
	}

	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, core.NewProviderError(f.cfg.Tag, "", fmt.Sprintf("decode user info response: %v", err))
	}
	return profile, nil
}

func (f *OAuth2Flow) postTokenRequest(ctx context.Context, form url.Values, basicAuth *core.BasicAuthCredentials) (tokenEndpointPayload, error) {
	if f.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		f.cfg.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	f.applyHeaders(httpReq)
	if basicAuth != nil {
		httpReq.SetBasicAuth(basicAuth.Username, basicAuth.Password)
	}

	response, err := f.httpClient.Do(httpReq)
	if err != nil {
		return tokenEndpointPayload{}, core.NewProviderError(f.cfg.Tag, "",
			fmt.Sprintf("token request failed: %v", err))
	}
	defer response.Body.Close()

	body, readErr := readLimitedBody(response.Body)
	if readErr != nil {
		return tokenEndpointPayload{}, core.NewProviderError(f.cfg.Tag, "",
			fmt.Sprintf("read token response: %v", readErr))
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return tokenEndpointPayload{}, core.NewProviderError(f.cfg.Tag, "",
			fmt.Sprintf("decode token response: %v", parseErr))
	}
	if strings.EqualFold(payload.ErrorCode, errorCodeInvalidGrant) {
		return tokenEndpointPayload{}, fmt.Errorf("%w: %s", core.ErrInvalidGrant, describeTokenError(payload))
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, core.NewProviderError(f.cfg.Tag, payload.ErrorCode,
			fmt.Sprintf("token endpoint error (%d): %s", response.StatusCode, describeTokenError(payload)))
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, core.NewProviderError(f.cfg.Tag, payload.ErrorCode,
			"token endpoint error: "+describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, core.NewProviderError(f.cfg.Tag, "",
			"token endpoint response missing access token")
	}
	return payload, nil
}

func (f *OAuth2Flow) applyHeaders(req *http.Request) {
	for key, value := range f.cfg.Headers {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			req.Header.Set(key, value)
		}
	}
}

func setTrimmed(values url.Values, key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key != "" && value != "" {
		values.Set(key, value)
	}
}

func (p tokenEndpointPayload) toTokenResponse() core.TokenResponse {
	return core.TokenResponse{
		AccessToken:           p.AccessToken,
		TokenType:             p.TokenType,
		ExpiresIn:             p.ExpiresIn,
		Scope:                 p.Scope,
		RefreshToken:          p.RefreshToken,
		RefreshTokenExpiresIn: p.RefreshTokenExpiresIn,
		ErrorCode:             p.ErrorCode,
		ErrorDescription:      p.ErrorDescription,
	}
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func readLimitedBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxResponseBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBodyBytes)
	}
	return data, nil
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:           readAnyString(decoded["access_token"]),
		TokenType:             readAnyString(decoded["token_type"]),
		RefreshToken:          readAnyString(decoded["refresh_token"]),
		Scope:                 readAnyString(decoded["scope"]),
		ExpiresIn:             readAnyInt64(decoded["expires_in"]),
		RefreshTokenExpiresIn: readAnyInt64(decoded["refresh_token_expires_in"]),
		ErrorCode:             readAnyString(decoded["error"]),
		ErrorDescription:      readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	refreshExpiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("refresh_token_expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:           strings.TrimSpace(values.Get("access_token")),
		TokenType:             strings.TrimSpace(values.Get("token_type")),
		RefreshToken:          strings.TrimSpace(values.Get("refresh_token")),
		Scope:                 strings.TrimSpace(values.Get("scope")),
		ExpiresIn:             expiresIn,
		RefreshTokenExpiresIn: refreshExpiresIn,
		ErrorCode:             strings.TrimSpace(values.Get("error")),
		ErrorDescription:      strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatParsed, floatErr := typed.Float64()
		if floatErr == nil {
			return int64(floatParsed)
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func normalizeScopes(input []string) []string {
	if len(input) == 0 {
		return []string{}
	}
	values := make([]string, 0, len(input))
	seen := map[string]struct{}{}
	for _, value := range input {
		normalized := strings.TrimSpace(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		values = append(values, normalized)
	}
	sort.Strings(values)
	return values
}

var _ core.Flow = (*OAuth2Flow)(nil)
