// Package oidc provides an OpenID Connect login provider used when the
// gateway authenticates browsers itself instead of reading SP headers.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/campusops/shibgate/internal/domain/sso"
	"github.com/campusops/shibgate/internal/ports"
)

// Provider implements the LoginProvider interface using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewProvider creates a new OIDC provider from a discovery URL.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{httpClient: httpClient}

	// Single discovery fetch; accept either the issuer or the full
	// well-known URL in DiscoveryURL.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

func (p *Provider) Begin(_ context.Context, redirectURL string) (string, string, string, error) {
	if redirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}

	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// redirect_uri is not overridden here as it must match the configured
	// RedirectURL exactly at token exchange time.
	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
	)

	return authURL, state, nonce, nil
}

func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (sso.Assertion, error) {
	if in.Code == "" {
		return sso.Assertion{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return sso.Assertion{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return sso.Assertion{}, errors.New("nonce is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return sso.Assertion{}, fmt.Errorf("exchange code for token: %w", err)
	}

	fields, err := p.extractFromIDToken(ctx, token, in.Nonce)
	if err != nil {
		return sso.Assertion{}, fmt.Errorf("extract id_token: %w", err)
	}

	// Fill missing fields from UserInfo when the ID token is sparse.
	if fields.username == "" || fields.email == "" {
		if fillErr := p.fillFromUserInfo(ctx, token.AccessToken, &fields); fillErr != nil {
			return sso.Assertion{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}

	if fields.username == "" {
		return sso.Assertion{}, errors.New("identity provider returned no usable subject")
	}

	return sso.Assertion{
		Present:   true,
		Username:  fields.username,
		Email:     fields.email,
		FirstName: fields.givenName,
		LastName:  fields.familyName,
	}, nil
}

type idFields struct {
	username   string
	email      string
	givenName  string
	familyName string
}

// idTokenClaims covers the standard OIDC profile/email claim shape.
type idTokenClaims struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Nonce             string `json:"nonce"`
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (idFields, error) {
	var f idFields
	if !p.hasOpenIDScope() {
		return f, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return f, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return f, fmt.Errorf("verify id_token: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return f, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if nonceErr := validateNonce(claims.Nonce, expectedNonce); nonceErr != nil {
		return f, nonceErr
	}
	return mapIDTokenClaims(claims), nil
}

// validateNonce checks the nonce echoed in the ID token against the one
// issued at Begin. An empty expectation skips the check.
func validateNonce(got, want string) error {
	if want != "" && got != want {
		return errors.New("invalid nonce")
	}
	return nil
}

// mapIDTokenClaims maps standard OIDC profile/email claims onto idFields.
// preferred_username wins over sub as the local username.
func mapIDTokenClaims(claims idTokenClaims) idFields {
	return idFields{
		username:   firstNonEmpty(claims.PreferredUsername, claims.Sub),
		email:      claims.Email,
		givenName:  claims.GivenName,
		familyName: claims.FamilyName,
	}
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, f *idFields) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	fillFromUserInfoClaims(f, claims)
	return nil
}

// fillFromUserInfoClaims fills only the fields the ID token left empty;
// ID-token values are never overwritten by the UserInfo response.
func fillFromUserInfoClaims(f *idFields, claims idTokenClaims) {
	if f.username == "" {
		f.username = firstNonEmpty(claims.PreferredUsername, claims.Sub)
	}
	if f.email == "" {
		f.email = claims.Email
	}
	if f.givenName == "" {
		f.givenName = claims.GivenName
	}
	if f.familyName == "" {
		f.familyName = claims.FamilyName
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	for _, sc := range p.config.Scopes {
		if sc == gooidc.ScopeOpenID {
			return true
		}
	}
	return false
}

// getIDTokenFromToken extracts the raw id_token from a token response.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("no id_token in token response")
	}
	return raw, nil
}
