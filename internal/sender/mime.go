package sender

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// BuildMIME encodes out as an RFC 5322 message with text and HTML parts.
func BuildMIME(out Outgoing, date time.Time) ([]byte, error) {
	if err := out.validate(); err != nil {
		return nil, err
	}

	fromName, fromAddr := splitAddress(out.FromName, out.From)
	toName, toAddr := splitAddress("", out.To)

	builder := enmime.Builder().
		From(fromName, fromAddr).
		To(toName, toAddr).
		Subject(out.Subject).
		Date(date).
		Text([]byte(out.Text)).
		HTML([]byte(out.HTML))

	for _, cc := range out.CC {
		builder = builder.CC(splitAddress("", cc))
	}

	if out.MessageID != "" {
		builder = builder.Header("Message-ID", out.MessageID)
	}
	if out.InReplyTo != "" {
		builder = builder.Header("In-Reply-To", out.InReplyTo)
	}
	if refs := references(out); len(refs) > 0 {
		builder = builder.Header("References", strings.Join(refs, " "))
	}

	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// splitAddress separates "Name <addr>" into its parts; name wins over the
// display name embedded in raw.
func splitAddress(name, raw string) (string, string) {
	parsed, err := mail.ParseAddress(raw)
	if err != nil {
		return name, strings.TrimSpace(raw)
	}
	if name == "" {
		name = parsed.Name
	}
	return name, parsed.Address
}

// references is the References header of a reply: the parent's chain
// followed by the parent itself.
func references(out Outgoing) []string {
	refs := make([]string, 0, len(out.References)+1)
	for _, r := range out.References {
		if r != out.InReplyTo {
			refs = append(refs, r)
		}
	}
	if out.InReplyTo != "" {
		refs = append(refs, out.InReplyTo)
	}
	return refs
}
