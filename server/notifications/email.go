package notifications

import (
	"fmt"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/wneessen/go-mail"

	"github.com/vigilcam/vigil/server/config"
)

// EmailDispatcher sends alert notifications over SMTP, with the annotated
// snapshot attached when one was saved.
type EmailDispatcher struct {
	log    logs.Log
	cfg    config.EmailConfig
	client *mail.Client
}

func NewEmailDispatcher(logger logs.Log, cfg config.EmailConfig) (*EmailDispatcher, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to create SMTP client for %v: %w", cfg.SMTPHost, err)
	}
	return &EmailDispatcher{
		log:    logger,
		cfg:    cfg,
		client: client,
	}, nil
}

func (d *EmailDispatcher) Notify(alert *Alert) error {
	m := mail.NewMsg()
	if err := m.From(d.cfg.From); err != nil {
		return fmt.Errorf("Invalid sender address %v: %w", d.cfg.From, err)
	}
	if err := m.To(d.cfg.To); err != nil {
		return fmt.Errorf("Invalid recipient address %v: %w", d.cfg.To, err)
	}
	m.Subject("Motion detected")
	m.SetBodyString(mail.TypeTextPlain, d.body(alert))
	if alert.ImagePath != "" {
		m.AttachFile(alert.ImagePath)
	}
	if err := d.client.DialAndSend(m); err != nil {
		return fmt.Errorf("Failed to send alert email: %w", err)
	}
	d.log.Infof("Alert email sent to %v for detection at %v", d.cfg.To, alert.Time)
	return nil
}

func (d *EmailDispatcher) body(alert *Alert) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Motion detected at %v\n", alert.Time.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Frame resolution: %vx%v\n", alert.Resolution[0], alert.Resolution[1])
	fmt.Fprintf(&b, "Regions (%v):\n", len(alert.Regions))
	for _, r := range alert.Regions {
		c := r.Box.Center()
		fmt.Fprintf(&b, "  centered at (%v,%v), size %vx%v, area %v px\n", c.X, c.Y, r.Box.Width, r.Box.Height, r.Area)
	}
	if alert.ImagePath == "" {
		b.WriteString("\nNo snapshot available (storage failure).\n")
	}
	return b.String()
}
