package decider

import (
	"fmt"
	"sort"
	"time"

	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
)

// ValidateOperator fails when the operator address cannot identify the
// operator's own messages. Callers check this once, before deciding anything.
func ValidateOperator(operatorAddress string) error {
	op := NormalizeAddress(operatorAddress)
	if op == "" {
		return apperrors.NewAppError(apperrors.ErrConfiguration, "operator address is not set", apperrors.CodeConfiguration)
	}
	if !IsWellFormed(op) {
		return apperrors.NewAppError(apperrors.ErrConfiguration,
			fmt.Sprintf("operator address %q is not an email address", operatorAddress), apperrors.CodeConfiguration)
	}
	return nil
}

// Decide evaluates the latest message of a thread.
//
// now is the reference instant for the cooldown; it is an argument so that the
// result depends only on the inputs. The inputs are never modified.
func Decide(thread Thread, operatorAddress string, watched []WatchedParticipant, cooldown time.Duration, now time.Time) ReplyDecision {
	if len(thread.Messages) == 0 {
		return ReplyDecision{Reason: ReasonNoMessages, CCList: []string{}}
	}

	op := NormalizeAddress(operatorAddress)
	index := newWatchIndex(watched)
	ordered := Ordered(thread)
	latest := ordered[len(ordered)-1]

	if isOperatorMessage(latest, op) {
		if now.Sub(latest.Timestamp) < cooldown {
			return ReplyDecision{Reason: ReasonRecentlyReplied, CCList: []string{}}
		}
		return staleOwnReply(ordered, latest, op, index)
	}

	participant := index.lookup(latest.From)
	if participant == nil {
		participant = seenAlongsideWatched(ordered[:len(ordered)-1], latest.From, index)
	}
	if participant == nil {
		return ReplyDecision{Reason: ReasonNotWatched, CCList: []string{}}
	}

	decision := resolveRecipients(ordered, op)
	decision.ShouldReply = true
	decision.Reason = ReasonNeedsReply
	decision.Participant = participant
	return decision
}

// Ordered returns a copy of the thread's messages sorted oldest first.
// Equal timestamps put OTHER before SENT/INBOX, then order by ID, so the
// last element is the latest message.
func Ordered(thread Thread) []Message {
	out := make([]Message, len(thread.Messages))
	copy(out, thread.Messages)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Location.rank() != b.Location.rank() {
			return a.Location.rank() < b.Location.rank()
		}
		return a.ID < b.ID
	})
	return out
}

// Latest returns the latest message of a thread, or false for an empty thread.
func Latest(thread Thread) (Message, bool) {
	if len(thread.Messages) == 0 {
		return Message{}, false
	}
	ordered := Ordered(thread)
	return ordered[len(ordered)-1], true
}

func isOperatorMessage(m Message, op string) bool {
	if m.Location == LocationSent {
		return true
	}
	return op != "" && NormalizeAddress(m.From) == op
}

// staleOwnReply handles an operator message older than the cooldown: a nudge
// is due, addressed to whoever last wrote to the operator.
func staleOwnReply(ordered []Message, latest Message, op string, index watchIndex) ReplyDecision {
	decision := resolveRecipients(ordered, op)

	if decision.PrimaryRecipient == "" {
		// Nobody has answered yet; nudge the original addressee instead.
		recipients := recipientsOf(latest)
		for _, to := range recipients {
			if to != op && IsWellFormed(to) {
				decision.PrimaryRecipient = to
				decision.CCList = without(recipients, op, to)
				replyTo := latest
				decision.ReplyTo = &replyTo
				break
			}
		}
	}

	if decision.PrimaryRecipient == "" {
		return ReplyDecision{Reason: ReasonNotWatched, CCList: []string{}}
	}

	decision.ShouldReply = true
	decision.Reason = ReasonStaleOwnReply
	decision.Participant = index.lookup(decision.PrimaryRecipient)
	return decision
}

// resolveRecipients scans backward for the latest non-operator author and
// copies everyone on that message except the operator and the author.
func resolveRecipients(ordered []Message, op string) ReplyDecision {
	for i := len(ordered) - 1; i >= 0; i-- {
		m := ordered[i]
		if isOperatorMessage(m, op) {
			continue
		}
		from := NormalizeAddress(m.From)
		if !IsWellFormed(from) {
			continue
		}
		replyTo := m
		return ReplyDecision{
			PrimaryRecipient: from,
			CCList:           without(recipientsOf(m), op, from),
			ReplyTo:          &replyTo,
		}
	}
	return ReplyDecision{CCList: []string{}}
}

// seenAlongsideWatched finds a prior message that addressed sender together
// with a watched participant and returns that participant.
func seenAlongsideWatched(prior []Message, sender string, index watchIndex) *WatchedParticipant {
	from := NormalizeAddress(sender)
	if !IsWellFormed(from) {
		return nil
	}

	for i := len(prior) - 1; i >= 0; i-- {
		m := prior[i]
		recipients := recipientsOf(m)
		if !contains(recipients, from) {
			continue
		}
		for _, addr := range append([]string{NormalizeAddress(m.From)}, recipients...) {
			if addr == from {
				continue
			}
			if p := index.lookup(addr); p != nil {
				return p
			}
		}
	}
	return nil
}

// recipientsOf returns the normalized To and CC addresses of a message.
func recipientsOf(m Message) []string {
	all := make([]string, 0, len(m.To)+len(m.CC))
	all = append(all, m.To...)
	all = append(all, m.CC...)
	return NormalizeAll(all)
}

type watchIndex map[string]*WatchedParticipant

func newWatchIndex(watched []WatchedParticipant) watchIndex {
	index := make(watchIndex, len(watched))
	for i := range watched {
		addr := NormalizeAddress(watched[i].EmailNormalized)
		if !IsWellFormed(addr) {
			continue
		}
		if _, exists := index[addr]; !exists {
			p := watched[i]
			index[addr] = &p
		}
	}
	return index
}

func (w watchIndex) lookup(addr string) *WatchedParticipant {
	n := NormalizeAddress(addr)
	if !IsWellFormed(n) {
		return nil
	}
	return w[n]
}

// without removes excluded addresses and malformed entries, returning a sorted list.
func without(addrs []string, exclude ...string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if !IsWellFormed(a) || contains(exclude, a) {
			continue
		}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, addr string) bool {
	for _, a := range list {
		if a != "" && a == addr {
			return true
		}
	}
	return false
}
