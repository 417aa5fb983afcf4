// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityLogger writes authentication events with credentials masked.
// Deny reasons only ever appear here, never in responses.
type SecurityLogger struct {
	logger zerolog.Logger
}

func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("auth")}
}

//nolint:gocritic // zerolog.Logger is a value type
func NewSecurityLoggerWithLogger(l zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: l.With().Str("component", "auth").Logger()}
}

func (l *SecurityLogger) event(ctx context.Context, level zerolog.Level, name string) *zerolog.Event {
	e := l.logger.WithLevel(level).Str("event", name)
	if ctx != nil {
		if id := RequestIDFromContext(ctx); id != "" {
			e = e.Str("request_id", id)
		}
	}
	return e
}

// LogGuardDenied records why a token was refused.
func (l *SecurityLogger) LogGuardDenied(ctx context.Context, reason, token string, err error) {
	e := l.event(ctx, zerolog.WarnLevel, "guard_denied").
		Str("reason", reason).
		Str("token", SanitizeToken(token))
	if err != nil {
		e = e.Str("error", SanitizeError(err.Error()))
	}
	e.Msg("request denied")
}

func (l *SecurityLogger) LogLoginSuccess(ctx context.Context, userID, email string) {
	l.event(ctx, zerolog.InfoLevel, "login_success").
		Str("user_id", SanitizeUserID(userID)).
		Str("email", SanitizeEmail(email)).
		Msg("user logged in")
}

func (l *SecurityLogger) LogLoginFailure(ctx context.Context, email, reason string) {
	l.event(ctx, zerolog.WarnLevel, "login_failure").
		Str("email", SanitizeEmail(email)).
		Str("reason", reason).
		Msg("login rejected")
}

func (l *SecurityLogger) LogRegistered(ctx context.Context, userID, email string) {
	l.event(ctx, zerolog.InfoLevel, "user_registered").
		Str("user_id", SanitizeUserID(userID)).
		Str("email", SanitizeEmail(email)).
		Msg("user registered")
}

// LogLogout records a logout; revoked is false when the token had already
// expired or could not be decoded.
func (l *SecurityLogger) LogLogout(ctx context.Context, subject string, revoked bool) {
	l.event(ctx, zerolog.InfoLevel, "logout").
		Str("user_id", SanitizeUserID(subject)).
		Bool("revoked", revoked).
		Msg("logout processed")
}

// SanitizeToken keeps the first and last four characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeEmail masks the local part: "john.doe@example.com" -> "jo***@example.com".
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

// SanitizeError hides messages that mention credentials and truncates the rest.
func SanitizeError(msg string) string {
	lower := strings.ToLower(msg)
	for _, p := range []string{"password", "secret", "bearer", "authorization"} {
		if strings.Contains(lower, p) {
			return "authentication error"
		}
	}
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}
