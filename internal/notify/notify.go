// Package notify delivers one-time codes by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

const (
	DefaultFrom = "ISAR <onboarding@resend.dev>"
	Subject     = "Your OTP for Password Reset"
)

var body = template.Must(template.New("otp").Parse(
	`<p>Your OTP for password reset is: <b>{{.Code}}</b></p>` +
		`<p>It is valid for {{.Minutes}} minutes.</p>`))

type Config struct {
	APIKey string
	From   string
}

// ConfigFromEnv reads RESEND_API_KEY and MAIL_FROM.
func ConfigFromEnv() Config {
	cfg := Config{APIKey: os.Getenv("RESEND_API_KEY"), From: os.Getenv("MAIL_FROM")}
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	return cfg
}

// Mailer is the part of the Resend client used here.
type Mailer interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendGateway sends codes through the Resend API.
type ResendGateway struct {
	mailer  Mailer
	from    string
	minutes int
	logger  *zap.SugaredLogger
}

func NewResendGateway(mailer Mailer, from string, minutes int, logger *zap.SugaredLogger) *ResendGateway {
	return &ResendGateway{mailer: mailer, from: from, minutes: minutes, logger: logger}
}

func renderBody(code string, minutes int) (string, error) {
	var buf bytes.Buffer
	err := body.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, minutes})
	return buf.String(), err
}

func (g *ResendGateway) Send(ctx context.Context, email, code string) error {
	html, err := renderBody(code, g.minutes)
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	res, err := g.mailer.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    g.from,
		To:      []string{email},
		Subject: Subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	g.logger.Debugw("otp email sent", "to", email, "id", res.Id)
	return nil
}

// LogGateway writes codes to the log instead of sending mail. For local
// development only.
type LogGateway struct {
	logger *zap.SugaredLogger
}

func NewLogGateway(logger *zap.SugaredLogger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, email, code string) error {
	g.logger.Warnw("RESEND_API_KEY not set, otp logged instead of mailed", "to", email, "code", code)
	return nil
}

// Gateway picks the Resend gateway when an API key is configured and the
// log gateway otherwise.
type Gateway interface {
	Send(ctx context.Context, email, code string) error
}

func New(cfg Config, minutes int, logger *zap.SugaredLogger) Gateway {
	if cfg.APIKey == "" {
		return NewLogGateway(logger)
	}
	client := resend.NewClient(cfg.APIKey)
	return NewResendGateway(client.Emails, cfg.From, minutes, logger)
}
