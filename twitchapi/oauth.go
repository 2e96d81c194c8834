// Package twitchapi holds the Twitch identity plumbing the chat bot needs: OAuth2
// configuration for the bot's user token, PASS credential formatting and token validation.
package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// passPrefix is what the chat gateway expects in front of the access token.
const passPrefix = "oauth:"

// OAuth2Config returns the user-token config for the bot. scopes may be separated by
// spaces or commas.
func OAuth2Config(clientID, clientSecret, scopes string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     twitch.Endpoint,
		Scopes:       strings.Fields(strings.ReplaceAll(scopes, ",", " ")),
	}
}

// ChatPassword formats an access token for the PASS command.
func ChatPassword(access string) string {
	if strings.HasPrefix(access, passPrefix) {
		return access
	}
	return passPrefix + access
}

// BareToken strips the PASS prefix so the token can be used against the Twitch HTTP APIs.
func BareToken(access string) string {
	return strings.TrimPrefix(access, passPrefix)
}

// UserTokenSource builds the token source the chat client logs in with. With a refresh
// token and a config it refreshes on expiry; otherwise it always returns access.
func UserTokenSource(ctx context.Context, conf *oauth2.Config, access, refresh string, expiry time.Time) oauth2.TokenSource {
	tok := &oauth2.Token{
		AccessToken:  BareToken(access),
		RefreshToken: refresh,
		TokenType:    "bearer",
		Expiry:       expiry,
	}
	if conf == nil || refresh == "" {
		return oauth2.StaticTokenSource(tok)
	}
	return conf.TokenSource(ctx, tok)
}

// RefreshToken exchanges a refresh token for a new access token.
func RefreshToken(ctx context.Context, conf *oauth2.Config, refreshToken string) (*oauth2.Token, error) {
	if conf == nil || conf.ClientID == "" || conf.ClientSecret == "" || refreshToken == "" {
		return nil, errors.New("missing clientID/clientSecret/refreshToken")
	}
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("twitch refresh failed: %w", err)
	}
	return tok, nil
}

// Scope returns the space separated scopes granted with tok. Twitch reports them as a JSON
// array in the token response.
func Scope(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	switch v := tok.Extra("scope").(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// ComputeExpiry returns absolute expiry time from seconds, defaulting to +60m when unknown.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}
