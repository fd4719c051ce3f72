package mailbox

import (
	"fmt"
	"io"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
)

var (
	scriptPattern = regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</(script|style)>`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	breakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
)

// ParsedMessage is a raw RFC 5322 message reduced to the fields threading and
// deciding need. Addresses are normalized.
type ParsedMessage struct {
	MessageID  string
	InReplyTo  string
	References []string
	From       string
	FromName   string
	To         []string
	CC         []string
	Subject    string
	Text       string
	HTML       string
	Date       time.Time

	// Gmail export headers, empty for other sources.
	GmailThreadID string
	GmailLabels   []string
}

// ParseMessage reads one MIME message.
func ParseMessage(r io.Reader) (*ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedInput, err)
	}

	parsed := &ParsedMessage{
		MessageID:     strings.TrimSpace(env.GetHeader("Message-Id")),
		InReplyTo:     firstMessageID(env.GetHeader("In-Reply-To")),
		References:    strings.Fields(env.GetHeader("References")),
		To:            decider.ParseAddressList(env.GetHeader("To")),
		CC:            decider.ParseAddressList(env.GetHeader("Cc")),
		Subject:       env.GetHeader("Subject"),
		Text:          env.Text,
		HTML:          env.HTML,
		GmailThreadID: strings.TrimSpace(env.GetHeader("X-Gm-Thrid")),
		GmailLabels:   splitLabels(env.GetHeader("X-Gmail-Labels")),
	}

	var rawFrom string
	if list, err := env.AddressList("From"); err == nil && len(list) > 0 {
		parsed.FromName, rawFrom = list[0].Name, list[0].Address
	} else {
		parsed.FromName, rawFrom = parseFromHeader(env.GetHeader("From"))
	}
	parsed.From = decider.NormalizeAddress(rawFrom)

	if date := env.GetHeader("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			parsed.Date = t.UTC()
		}
	}

	return parsed, nil
}

// Body returns the plain text body, derived from the HTML part when the
// message has no text part.
func (p *ParsedMessage) Body() string {
	if strings.TrimSpace(p.Text) != "" {
		return p.Text
	}
	return stripHTMLTags(p.HTML)
}

// ThreadRoot is the Message-ID that identifies the conversation: the first
// References entry, then In-Reply-To, then the message's own ID.
func (p *ParsedMessage) ThreadRoot() string {
	if len(p.References) > 0 {
		return p.References[0]
	}
	if p.InReplyTo != "" {
		return p.InReplyTo
	}
	return p.MessageID
}

// Ancestors lists the Message-IDs this message answers, nearest first.
func (p *ParsedMessage) Ancestors() []string {
	out := make([]string, 0, len(p.References)+1)
	if p.InReplyTo != "" {
		out = append(out, p.InReplyTo)
	}
	for i := len(p.References) - 1; i >= 0; i-- {
		if p.References[i] != p.InReplyTo {
			out = append(out, p.References[i])
		}
	}
	return out
}

// parseFromHeader splits a From value into display name and address. Values
// net/mail rejects are returned whole for NormalizeAddress, with a name only
// when an angle-bracketed address follows it.
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Name, addr.Address
	}
	if i := strings.LastIndex(from, "<"); i >= 0 && strings.Contains(from[i:], ">") {
		name = strings.Trim(strings.TrimSpace(from[:i]), `"`)
	}
	return name, from
}

func firstMessageID(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// splitLabels splits an X-Gmail-Labels value. Labels are comma separated and
// may be quoted.
func splitLabels(header string) []string {
	var labels []string
	for _, l := range strings.Split(header, ",") {
		l = strings.Trim(strings.TrimSpace(l), `"`)
		if l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// stripHTMLTags reduces an HTML body to readable text
func stripHTMLTags(html string) string {
	html = scriptPattern.ReplaceAllString(html, "")
	html = breakPattern.ReplaceAllString(html, "\n")
	html = tagPattern.ReplaceAllString(html, "")

	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", `"`)
	html = strings.ReplaceAll(html, "&#39;", "'")
	html = strings.ReplaceAll(html, "&amp;", "&")

	lines := strings.Split(html, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
