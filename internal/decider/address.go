package decider

import (
	"strings"
)

// NormalizeAddress maps a provider-format address ("Name <user+tag@domain.com>")
// to its canonical comparable form ("user@domain.com").
//
// Empty input yields an empty string. Input without an "@" is returned
// lowercased and trimmed and never matches a real address.
func NormalizeAddress(raw string) string {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return ""
	}

	if open := strings.LastIndex(addr, "<"); open != -1 {
		if end := strings.Index(addr[open:], ">"); end != -1 {
			addr = strings.TrimSpace(addr[open+1 : open+end])
		}
	}

	at := strings.LastIndex(addr, "@")
	if at == -1 {
		return addr
	}

	local, domain := addr[:at], addr[at+1:]
	if plus := strings.Index(local, "+"); plus != -1 {
		local = local[:plus]
	}

	return local + "@" + domain
}

// SameAddress reports whether two addresses are the same identity.
// An empty address is unknown and equals nothing, not even another empty one.
func SameAddress(a, b string) bool {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

// IsWellFormed reports whether a normalized address can take part in matching.
func IsWellFormed(addr string) bool {
	at := strings.LastIndex(addr, "@")
	return at > 0 && at < len(addr)-1
}

// ParseAddressList splits a header value such as
// `"Doe, Jane" <jane@x.com>, bob+news@y.com` and normalizes every entry.
// Empty entries are dropped; duplicates are kept once, in first-seen order.
func ParseAddressList(header string) []string {
	var (
		out     []string
		seen    = make(map[string]bool)
		current strings.Builder
		quoted  bool
		angle   int
	)

	flush := func() {
		addr := NormalizeAddress(current.String())
		current.Reset()
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	for _, r := range header {
		switch {
		case r == '"':
			quoted = !quoted
		case r == '<' && !quoted:
			angle++
		case r == '>' && !quoted && angle > 0:
			angle--
		case (r == ',' || r == ';') && !quoted && angle == 0:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return out
}

// NormalizeAll normalizes a list of addresses, dropping empties and duplicates.
func NormalizeAll(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		n := NormalizeAddress(a)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
