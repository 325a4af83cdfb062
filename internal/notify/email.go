// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

/*
Package notify delivers out-of-band messages to users.

The auth core hands off password reset secrets through the [Sender]
interface; wiring decides whether that means a real mail provider or the
local log-only stand-in.
*/
package notify

import (
	stdctx "context"
	"log/slog"
)

// Sender delivers a password reset secret to its owner.
type Sender interface {
	SendPasswordReset(context stdctx.Context, recipientEmail, resetSecret string) error
}

// LogSender is the development Sender: it writes the reset link to the
// structured log instead of sending mail.
//
// # Security
//
// This logs the raw secret. Never wire it in production.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender writing to the given logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendPasswordReset logs the reset secret for local testing.
func (sender *LogSender) SendPasswordReset(context stdctx.Context, recipientEmail, resetSecret string) error {
	sender.logger.InfoContext(context, "password_reset_email",
		slog.String("recipient", recipientEmail),
		slog.String("reset_url", "/api/v1/auth/reset-password/"+resetSecret),
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
