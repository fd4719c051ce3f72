package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	apiKey string
	host   string
}

// NewSendGridSender creates a sender. An empty host uses the public API.
func NewSendGridSender(apiKey, host string) *SendGridSender {
	return &SendGridSender{apiKey: apiKey, host: host}
}

// Send posts one personalization addressed to To with CC copies
func (s *SendGridSender) Send(ctx context.Context, out Outgoing) (Result, error) {
	if err := out.validate(); err != nil {
		return Result{Status: StatusFailed}, err
	}
	if out.MessageID == "" {
		out.MessageID = NewMessageID(out.From)
	}

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(buildSendGridMail(out))

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return Result{Status: StatusFailed}, sendFailed("sendgrid", err)
	}
	if resp.StatusCode >= 300 {
		return Result{Status: StatusFailed}, sendFailed("sendgrid",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body)))
	}

	providerID := out.MessageID
	for key, values := range resp.Headers {
		if strings.EqualFold(key, "X-Message-Id") && len(values) > 0 {
			providerID = values[0]
		}
	}

	return Result{MessageID: out.MessageID, ProviderID: providerID, Status: StatusSent}, nil
}

func buildSendGridMail(out Outgoing) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(splitAddress(out.FromName, out.From)))
	m.Subject = out.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(splitAddress("", out.To)))
	for _, cc := range out.CC {
		if !decider.SameAddress(cc, out.To) {
			p.AddCCs(mail.NewEmail(splitAddress("", cc)))
		}
	}
	m.AddPersonalizations(p)

	if out.Text != "" {
		m.AddContent(mail.NewContent("text/plain", out.Text))
	}
	m.AddContent(mail.NewContent("text/html", out.HTML))

	m.SetHeader("Message-ID", out.MessageID)
	if out.InReplyTo != "" {
		m.SetHeader("In-Reply-To", out.InReplyTo)
	}
	if refs := references(out); len(refs) > 0 {
		m.SetHeader("References", strings.Join(refs, " "))
	}
	return m
}
