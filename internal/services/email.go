package services

import (
	"bytes"
	"context"
	"html/template"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"storefront_back_end/internal/config"
)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Bienvenue {{.UserName}} !</h2>
		<p>Votre compte est prêt. Votre panier vous suit désormais sur tous vos appareils.</p>
		<p style="margin-top: 30px; color: #555;">L'équipe Storefront</p>
	</div>
</body>
</html>`))

// Mailer envoie les emails transactionnels ; désactivé sans SMTP_HOST
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

func (m *Mailer) welcomeMessage(to, userName string) (*mail.Msg, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, map[string]string{"UserName": userName}); err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject("🎉 Bienvenue sur Storefront !")
	msg.SetBodyString(mail.TypeTextHTML, buf.String())
	return msg, nil
}

// SendWelcome envoie l'email de bienvenue après l'inscription
func (m *Mailer) SendWelcome(ctx context.Context, to, userName string) error {
	if !m.Enabled() {
		log.Debug().Str("to", to).Msg("📭 SMTP non configuré, email de bienvenue ignoré")
		return nil
	}

	msg, err := m.welcomeMessage(to, userName)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}
	log.Info().Str("to", to).Msg("📧 Email de bienvenue envoyé")
	return nil
}
