// Package composer writes the subject and body of outgoing campaign mail.
//
// Text comes from a Generator; the composer adds the subject conventions, the
// HTML wrapper and the open-tracking pixel.
package composer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

const (
	replySystemPrompt = "You are a business development assistant writing short, warm, professional email replies. Write plain text without a subject line."

	outreachSystemPrompt = "You are a business development assistant writing short, personalized first-contact emails. Follow the requested output format exactly."

	fallbackOutreachBody = "I'd love to connect and learn more about your business. Would you be open to a short call this week?"
)

var (
	subjectLinePattern = regexp.MustCompile(`\*\*Subject Line:\*\*\s*(.*)`)
	emailBodyPattern   = regexp.MustCompile(`(?s)\*\*Email Body:\*\*\s*(.*)`)
)

// Draft is a composed message ready for a sender.
type Draft struct {
	Subject string
	Text    string
	HTML    string
}

// ReplyRequest describes the message being answered.
type ReplyRequest struct {
	RecipientName  string
	RecipientEmail string
	Subject        string
	IncomingBody   string
	// ActivitySummary is recent CRM history for the recipient, newest first.
	ActivitySummary string
}

// OutreachRequest describes a first-contact email to a campaign participant.
type OutreachRequest struct {
	Name            string
	Email           string
	Industry        string
	Website         string
	LastActivity    string
	ActivitySummary string
}

// Composer builds drafts from generated text.
type Composer struct {
	gen        Generator
	senderName string
	logger     *slog.Logger
}

// New creates a Composer that signs mail as senderName.
func New(gen Generator, senderName string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{gen: gen, senderName: senderName, logger: logger}
}

// Reply generates an answer to an incoming message. Generation failures are
// returned so that nothing is sent in place of a real reply.
func (c *Composer) Reply(ctx context.Context, req ReplyRequest) (Draft, error) {
	prompt := fmt.Sprintf(`You received this email from %s:

%s

Write a short, personalized reply.
If it's a meeting request, offer to schedule a time.
If it's a general inquiry, respond with relevant information.
If it's a rejection, acknowledge it and thank them.`, displayOr(req.RecipientName, req.RecipientEmail), strings.TrimSpace(req.IncomingBody))

	if req.ActivitySummary != "" {
		prompt += "\n\nRecent account history:\n" + req.ActivitySummary
	}

	text, err := c.gen.Generate(ctx, replySystemPrompt, prompt)
	if err != nil {
		return Draft{}, fmt.Errorf("generate reply: %w", err)
	}

	return Draft{
		Subject: ReplySubject(req.Subject),
		Text:    text,
		HTML:    RenderHTML(text, req.RecipientEmail, c.senderName),
	}, nil
}

// Outreach generates a first-contact email. It never fails: when the model is
// unavailable or its answer lacks the expected sections, fixed text is used.
func (c *Composer) Outreach(ctx context.Context, req OutreachRequest) Draft {
	prompt := fmt.Sprintf(`Write a short, personalized outreach email to %s.

- **Subject Line:** compelling and specific to the recipient.
- **Email Body:**
    - Greet the recipient professionally and personably.
    - Explain in three sentences how working together would help them.
    - Close with a clear call to action inviting a reply.

**Context:**
- Business Name: %s
- Last Activity: %s
- Industry: %s
- Website: %s

**Output Format:**
- **Subject Line:** [Generated Subject Here]
- **Email Body:** [Generated Email Content Here]`,
		req.Name, req.Name, orNone(req.LastActivity), orNone(req.Industry), orNone(req.Website))

	if req.ActivitySummary != "" {
		prompt += "\n\nRecent account history:\n" + req.ActivitySummary
	}

	text, err := c.gen.Generate(ctx, outreachSystemPrompt, prompt)
	if err != nil {
		c.logger.Warn("outreach generation failed, using fallback text",
			slog.String("recipient", req.Email),
			slog.Any("error", err))
		text = ""
	}

	subject, body := ExtractOutreach(text, req.Name)
	return Draft{
		Subject: subject,
		Text:    body,
		HTML:    RenderHTML(body, req.Email, c.senderName),
	}
}

// ExtractOutreach pulls the subject line and body out of generated outreach
// text, falling back to fixed text for whichever section is missing.
func ExtractOutreach(text, name string) (subject, body string) {
	subject = fmt.Sprintf("Hi %s, Let's Connect!", displayOr(name, "there"))
	body = fallbackOutreachBody

	if m := subjectLinePattern.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			subject = s
		}
	}
	if m := emailBodyPattern.FindStringSubmatch(text); m != nil {
		if b := strings.TrimSpace(m[1]); b != "" {
			body = b
		}
	}
	return subject, body
}

// ReplySubject prefixes "Re: " unless the subject already carries it.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	if subject == "" {
		return "Re:"
	}
	return "Re: " + subject
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, Helvetica, sans-serif; font-size: 14px; color: #1a1a1a;">
<div>{{.Content}}</div>
{{if .SenderName}}<p style="margin-top: 24px;">{{.SenderName}}</p>{{end}}
<p style="font-size: 11px; color: #888888;">This message was sent to {{.RecipientEmail}}.</p>
</body>
</html>
`))

// RenderHTML wraps plain text in the mail template, turning newlines into
// line breaks. The text is escaped.
func RenderHTML(text, recipientEmail, senderName string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}

	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Content        template.HTML
		SenderName     string
		RecipientEmail string
	}{
		Content:        template.HTML(strings.Join(lines, "<br>")),
		SenderName:     senderName,
		RecipientEmail: recipientEmail,
	})
	if err != nil {
		// Writes to a bytes.Buffer do not fail.
		panic(err)
	}
	return buf.String()
}

// PixelURL is the address of the open-tracking image for a tracking id.
func PixelURL(baseURL, trackingID string) string {
	return strings.TrimRight(baseURL, "/") + "/track/" + url.PathEscape(trackingID)
}

// InsertTrackingPixel places an invisible image before the closing body tag,
// or at the end when the document has none.
func InsertTrackingPixel(document, pixelURL string) string {
	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none;" alt="" />`, html.EscapeString(pixelURL))

	idx := lastIndexFold(document, "</body>")
	if idx == -1 {
		return document + pixel
	}
	return document[:idx] + pixel + document[idx:]
}

// lastIndexFold is strings.LastIndex ignoring ASCII case.
func lastIndexFold(s, substr string) int {
	for i := len(s) - len(substr); i >= 0; i-- {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func displayOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return strings.TrimSpace(name)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
