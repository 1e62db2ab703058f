package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"path/filepath"
	"strings"

	"inkwell/internal/config"

	"github.com/rs/zerolog/log"
)

// MailService sends transactional mail over SMTP. When SMTP is not
// configured it stays disabled and every send is a no-op, so local
// development works without a mail server.
type MailService struct {
	host     string
	port     string
	username string
	password string
	from     string
	siteURL  string
	Enabled  bool
}

func NewMailService(cfg *config.Config) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Warn().Msg("mail disabled, SMTP not configured")
	}
	return &MailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPass,
		from:     cfg.SMTPFrom,
		siteURL:  cfg.SiteURL,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		var auth smtp.Auth
		if s.username != "" {
			auth = smtp.PlainAuth("", s.username, s.password, s.host)
		}
		addr := fmt.Sprintf("%s:%s", s.host, s.port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Inkwell <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.from, subject, mime, body))

		if err := smtp.SendMail(addr, auth, s.from, to, msg); err != nil {
			log.Error().Err(err).Strs("to", to).Msg("send mail failed")
			return
		}
		log.Info().Strs("to", to).Str("subject", subject).Msg("mail sent")
	}()
}

func (s *MailService) parseTemplate(name string, data interface{}) (string, error) {
	path := filepath.Join("web", "templates", "email", name)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parse mail template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute mail template %s: %w", name, err)
	}
	return buf.String(), nil
}

// SendConfirmationEmail mails the address verification link after signup.
func (s *MailService) SendConfirmationEmail(email, username, token string) {
	body, err := s.parseTemplate("confirm.html", map[string]string{
		"Username": username,
		"Link":     s.siteURL + "/auth/confirm/" + token,
	})
	if err != nil {
		log.Error().Err(err).Msg("render confirmation email failed")
		return
	}
	s.sendAsync([]string{email}, "Confirm your Inkwell account", body)
}

// SendPasswordResetEmail mails the reset link. The token expires after an
// hour, which the template mentions.
func (s *MailService) SendPasswordResetEmail(email, username, token string) {
	body, err := s.parseTemplate("reset.html", map[string]string{
		"Username": username,
		"Link":     s.siteURL + "/auth/reset-password/" + token,
	})
	if err != nil {
		log.Error().Err(err).Msg("render reset email failed")
		return
	}
	s.sendAsync([]string{email}, "Reset your Inkwell password", body)
}

// SendContactEmail forwards a contact-form message to the admin.
func (s *MailService) SendContactEmail(adminEmail, name, replyTo, message string) {
	body, err := s.parseTemplate("contact.html", map[string]string{
		"Name":    name,
		"Email":   replyTo,
		"Message": message,
	})
	if err != nil {
		log.Error().Err(err).Msg("render contact email failed")
		return
	}
	s.sendAsync([]string{adminEmail}, "Contact form: message from "+name, body)
}

// SendCommentEmail tells a post author about a new comment by mail, on top
// of the in-app notification.
func (s *MailService) SendCommentEmail(email, commenter, postTitle, comment string, postID uint) {
	body, err := s.parseTemplate("comment.html", map[string]string{
		"Commenter": commenter,
		"PostTitle": postTitle,
		"Comment":   comment,
		"Link":      fmt.Sprintf("%s/blog/post/%d", s.siteURL, postID),
	})
	if err != nil {
		log.Error().Err(err).Msg("render comment email failed")
		return
	}
	s.sendAsync([]string{email}, fmt.Sprintf("%s commented on \"%s\"", commenter, postTitle), body)
}
