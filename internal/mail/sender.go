package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Sender はメールを1通配送します。実装は外部コラボレーターです。
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender は net/smtp でメールを配送します。
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender は SMTPSender を作成します。
// user が空の場合は認証なしで接続します。
func NewSMTPSender(addr, from, user, password string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{addr: addr, from: from, auth: auth}
}

// Send はメールを配送します。
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
}

// LogSender は配送せず内容をログに書くだけの実装です。
// SMTPが未設定のローカル開発で使います。
type LogSender struct {
	logger *log.Logger
}

// NewLogSender は LogSender を作成します。
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

// Send は件名と宛先をログに出力します。
func (s *LogSender) Send(to, subject, body string) error {
	s.logger.Printf("mail (log only) to=%s subject=%q", to, subject)
	return nil
}
