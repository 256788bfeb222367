package app

import (
	"acervo_backend/internal/logger"
)

// LogMailer stands in for SMTP in environments without mail configured.
type LogMailer struct{}

func (m *LogMailer) SendWelcome(to, name, tempPassword string) error {
	logger.Info("welcome email (not sent, SMTP disabled)", "to", to, "name", name)
	return nil
}
