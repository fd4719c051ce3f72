// Package crm reads CRM activity histories attached to participants.
//
// Two payload formats are accepted. The current one is a JSON array of
// activity objects. Older exports wrote Ruby hash literals
// ({"subject"=>"Call", "due"=>nil}); LegacyActivityParser rewrites those
// into JSON once and then decodes them with the same strict rules.
package crm

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Activity is one CRM task or event on a participant's record
type Activity struct {
	Subject     string    `json:"subject"`
	Type        string    `json:"type,omitempty"`
	Status      string    `json:"status,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"-"`
	RawDate     string    `json:"date,omitempty"`
}

// ActivityParser decodes one activities payload format
type ActivityParser interface {
	Name() string
	Parse(raw string) ([]Activity, error)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized activity date %q", raw)
}

// Parse decodes raw with the parser matching its format
func Parse(raw string) ([]Activity, error) {
	return DetectParser(raw).Parse(raw)
}

// Latest returns the most recent dated activity, or nil when none carry a date
func Latest(activities []Activity) *Activity {
	var latest *Activity
	for i := range activities {
		a := &activities[i]
		if a.Date.IsZero() {
			continue
		}
		if latest == nil || a.Date.After(latest.Date) {
			latest = a
		}
	}
	return latest
}

// Summary renders the n most recent activities as one line each, newest first
func Summary(activities []Activity, n int) string {
	sorted := make([]Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	var b strings.Builder
	for _, a := range sorted {
		if !a.Date.IsZero() {
			b.WriteString(a.Date.Format("2006-01-02"))
			b.WriteString(" ")
		}
		if a.Type != "" {
			b.WriteString("[" + a.Type + "] ")
		}
		b.WriteString(a.Subject)
		if a.Status != "" {
			b.WriteString(" (" + a.Status + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReplyNote formats the activity note logged when an automated reply answers a message.
func ReplyNote(sender, subject, body string) string {
	return fmt.Sprintf("Email Reply from %s\n\nSubject: %s\n\nMessage: %s", sender, subject, body)
}
