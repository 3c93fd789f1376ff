// Package notify delivers out-of-band messages such as password reset codes.
package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// LogSender writes reset codes to the service log. It stands in for an email
// gateway in development and single-node deployments.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendResetCode(_ context.Context, email, code string) error {
	s.log.Info().
		Str("to", maskEmail(email)).
		Str("code", code).
		Str("link", "/password-reset").
		Msg("password reset code issued")
	return nil
}

// maskEmail keeps the first character of the local part: "a***@x.com".
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
