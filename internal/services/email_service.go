package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, email, pseudo, newPassword string) error
}

type mailSender interface {
	Send(ctx context.Context, m ...*gomail.Message) error
}

type emailService struct {
	sender   mailSender
	from     string
	loginURL string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, loginURL string) EmailService {
	return &emailService{
		sender: &smtpTransport{
			host:     smtpHost,
			port:     smtpPort,
			username: smtpUser,
			password: smtpPassword,
		},
		from:     fromEmail,
		loginURL: loginURL,
	}
}

var resetTemplate = template.Must(template.New("reset").Parse(`
<div style="font-family:sans-serif;max-width:600px;margin:0 auto">
  <h1 style="color:#f97316">POKÉQUEST</h1>
  <p>Bonjour <strong>{{.Pseudo}}</strong>,</p>
  <p>Vous avez demandé la réinitialisation de votre mot de passe.</p>
  <p style="font-size:12px;text-transform:uppercase;color:#d97706">Votre nouveau mot de passe</p>
  <p style="font-size:28px;font-family:monospace;letter-spacing:2px"><strong>{{.Password}}</strong></p>
  <p>Connectez-vous immédiatement et changez ce mot de passe. Ne le partagez avec personne.</p>
  <p><a href="{{.LoginURL}}">Se connecter maintenant</a></p>
  <p style="color:#64748b;font-size:14px">Si vous n'avez pas demandé cette réinitialisation, ignorez cet email.</p>
</div>
`))

func renderResetBody(pseudo, newPassword, loginURL string) (string, error) {
	var body strings.Builder
	err := resetTemplate.Execute(&body, struct {
		Pseudo, Password, LoginURL string
	}{pseudo, newPassword, loginURL})
	if err != nil {
		return "", fmt.Errorf("render password reset email: %w", err)
	}
	return body.String(), nil
}

func (s *emailService) SendPasswordResetEmail(ctx context.Context, email, pseudo, newPassword string) error {
	body, err := renderResetBody(pseudo, newPassword, s.loginURL)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Réinitialisation de votre mot de passe - PokéQuest")
	m.SetBody("text/html", body)

	if err := s.sender.Send(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
