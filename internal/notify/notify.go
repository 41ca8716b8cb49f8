// Package notify adapts the teacher's internal/email package into the
// alert-dispatch seam for OrgSettings.email_alerts_enabled.
// Per spec.md §1, SMTP/email transport itself is an external collaborator
// concern, so the SMTP implementation sits behind a Transport interface:
// the pipeline calls Dispatcher.Dispatch whenever an org has email alerts
// enabled and an event reaches its high_priority_threshold, and whether
// that turns into an outbound email is entirely a matter of which
// Transport (if any) is configured.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/rs/zerolog"
)

// Alert is the payload rendered and dispatched when an event crosses an
// org's alerting thresholds (spec.md's supplemented dossier-driven
// alerting control flow; see SPEC_FULL.md).
type Alert struct {
	OrgID     string
	Event     models.Event
	Reason    string
	Recipient string
}

// Transport sends a rendered alert. The SMTP implementation below is kept
// from the teacher almost verbatim; a NoopTransport satisfies the
// interface for deployments that never configure SMTP_HOST.
type Transport interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Dispatcher renders and sends Alerts.
type Dispatcher struct {
	transport Transport
	log       zerolog.Logger
}

func NewDispatcher(transport Transport, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, log: log}
}

// Dispatch renders the alert and hands it to the configured Transport. A
// nil/Noop transport makes this a deliberate no-op, consistent with
// "the system remains fully functional without it".
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) error {
	if d.transport == nil || a.Recipient == "" {
		return nil
	}
	htmlBody, err := renderHTML(a)
	if err != nil {
		return fmt.Errorf("notify: render html: %w", err)
	}
	textBody := renderText(a)
	subject := fmt.Sprintf("[sitrep] %s", a.Event.Title)
	if err := d.transport.Send(ctx, a.Recipient, subject, htmlBody, textBody); err != nil {
		d.log.Warn().Err(err).Str("org", a.OrgID).Msg("notify: dispatch failed")
		return fmt.Errorf("notify: send: %w", err)
	}
	return nil
}

var alertHTMLTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	"nl2br": func(s string) template.HTML {
		return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
	},
}).Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, Arial, sans-serif; background:#f4f4f7; padding:24px;">
  <div style="max-width:640px;margin:0 auto;background:#fff;border-radius:8px;overflow:hidden;">
    <div style="background:linear-gradient(135deg,#1f2937,#111827);color:#fff;padding:20px;">
      <h2 style="margin:0;">{{.Event.Title}}</h2>
      <p style="margin:4px 0 0;opacity:0.8;">{{.Reason}}</p>
    </div>
    <div style="padding:20px;color:#111827;">
      <p>{{nl2br .Event.Summary}}</p>
      <p style="color:#6b7280;font-size:13px;">Priority: {{.Event.PriorityScore}} &middot; Sentiment: {{.Event.Sentiment}}</p>
      <p><a href="{{.Event.URL}}">Source link</a></p>
    </div>
  </div>
</body>
</html>
`))

func renderHTML(a Alert) (string, error) {
	var buf bytes.Buffer
	if err := alertHTMLTemplate.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(a Alert) string {
	return fmt.Sprintf("%s\n\n%s\n\nPriority: %.2f Sentiment: %s\n%s\n",
		a.Event.Title, a.Event.Summary, a.Event.PriorityScore, a.Event.Sentiment, a.Event.URL)
}

// SMTPTransport sends mail via net/smtp, selecting STARTTLS vs implicit
// TLS by port the same way the teacher's TestSMTPConnection did.
type SMTPTransport struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	addr := fmt.Sprintf("%s:%d", t.Host, t.Port)
	msg := buildMIMEMessage(t.From, to, subject, htmlBody, textBody)

	if t.Port == 465 {
		return t.sendDirectTLS(addr, to, msg)
	}
	return t.sendSTARTTLS(addr, to, msg)
}

func (t *SMTPTransport) auth() smtp.Auth {
	if t.User == "" {
		return nil
	}
	return smtp.PlainAuth("", t.User, t.Pass, t.Host)
}

func (t *SMTPTransport) sendSTARTTLS(addr, to, msg string) error {
	if err := smtp.SendMail(addr, t.auth(), t.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: smtp send (starttls): %w", err)
	}
	return nil
}

func (t *SMTPTransport) sendDirectTLS(addr, to, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: t.Host})
	if err != nil {
		return fmt.Errorf("notify: tls dial: %w", err)
	}
	defer conn.Close()
	client, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	defer client.Close()
	if a := t.auth(); a != nil {
		if err := client.Auth(a); err != nil {
			return fmt.Errorf("notify: smtp auth: %w", err)
		}
	}
	if err := client.Mail(t.From); err != nil {
		return fmt.Errorf("notify: smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("notify: smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("notify: smtp data: %w", err)
	}
	defer w.Close()
	_, err = w.Write([]byte(msg))
	return err
}

func buildMIMEMessage(from, to, subject, htmlBody, textBody string) string {
	boundary := "sitrep-boundary"
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n", from, to, subject)
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String()
}

// NoopTransport discards alerts; used when SMTP_HOST is unset.
type NoopTransport struct{}

func (NoopTransport) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return nil
}

// TestConnection dials the SMTP host to verify connectivity without
// sending mail, the teacher's TestSMTPConnection diagnostic kept intact.
func (t *SMTPTransport) TestConnection(timeout time.Duration) error {
	addr := fmt.Sprintf("%s:%d", t.Host, t.Port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("notify: dial %s: %w", addr, err)
	}
	return conn.Close()
}
