package notify

import (
	"net/smtp"
	"strings"
)

type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends plain-text mail without auth, which is what a local
// relay such as MailHog expects.
type SMTPMailer struct {
	Addr string
	From string
}

func (m SMTPMailer) Send(to, subject, body string) error {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(b.String()))
}
