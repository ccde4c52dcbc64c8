package main

import (
	"log"

	"github.com/yourusername/task-forge/internal/config"
	"github.com/yourusername/task-forge/internal/mail"
)

// setupMail はメールキューとワーカーを組み立てます。
// SMTPが未設定の場合はログ出力のみのセンダーへフォールバックします。
func setupMail(cfg *config.Config) (*mail.Manager, error) {
	var sender mail.Sender
	if cfg.MailSMTPAddr != "" {
		sender = mail.NewSMTPSender(cfg.MailSMTPAddr, cfg.MailFrom, cfg.MailSMTPUser, cfg.MailSMTPPassword)
	} else {
		sender = mail.NewLogSender(log.Default())
	}

	return mail.NewManager(cfg.RedisURL, sender, log.Default())
}
