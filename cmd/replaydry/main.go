// Command replaydry replays an mbox export through the reply decider and
// prints one JSON decision per thread without sending anything.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/config"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
	"github.com/welldanyogia/webrana-replypilot/internal/mailbox"
)

type options struct {
	operator string
	watched  []decider.WatchedParticipant
	cooldown time.Duration
	now      time.Time
}

// result is one output line
type result struct {
	ThreadID string                `json:"thread_id"`
	Messages int                   `json:"messages"`
	Decision decider.ReplyDecision `json:"decision"`
}

func main() {
	_ = config.LoadDotEnv(".env")

	mboxPath := flag.String("mbox", os.Getenv("MBOX_PATH"), "mbox file to replay")
	operator := flag.String("operator", os.Getenv("OPERATOR_ADDRESS"), "operator mailbox address")
	cooldown := flag.Duration("cooldown", 27*time.Hour, "reply cooldown")
	watch := flag.String("watch", "", "comma-separated watched participant addresses")
	nowFlag := flag.String("now", "", "evaluation time (RFC 3339); defaults to the current time")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr, *logLevel)

	opts, err := buildOptions(*operator, *watch, *cooldown, *nowFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *mboxPath == "" {
		fmt.Fprintln(os.Stderr, "-mbox is required")
		os.Exit(2)
	}

	messages, err := mailbox.NewMboxGateway(*mboxPath, log).ReadAll(context.Background())
	if err != nil {
		log.Error("failed to read mbox", slog.String("path", *mboxPath), slog.Any("error", err))
		os.Exit(1)
	}

	if err := replay(os.Stdout, messages, opts); err != nil {
		log.Error("replay failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildOptions(operator, watch string, cooldown time.Duration, now string) (options, error) {
	if err := decider.ValidateOperator(operator); err != nil {
		return options{}, err
	}
	if cooldown < 0 {
		return options{}, fmt.Errorf("cooldown cannot be negative")
	}

	opts := options{
		operator: decider.NormalizeAddress(operator),
		cooldown: cooldown,
		now:      time.Now().UTC(),
	}
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return options{}, fmt.Errorf("invalid -now: %w", err)
		}
		opts.now = t.UTC()
	}

	for _, addr := range strings.Split(watch, ",") {
		if addr = decider.NormalizeAddress(addr); addr != "" {
			opts.watched = append(opts.watched, decider.WatchedParticipant{EmailNormalized: addr})
		}
	}
	if len(opts.watched) == 0 {
		return options{}, fmt.Errorf("-watch needs at least one address")
	}
	return opts, nil
}

// groupThreads buckets messages by thread, in thread ID order. Unlabelled
// messages written by the operator count as sent mail.
func groupThreads(messages []decider.Message, operator string) []decider.Thread {
	byID := make(map[string][]decider.Message)
	for _, m := range messages {
		if m.Location == decider.LocationInbox && decider.NormalizeAddress(m.From) == operator {
			m.Location = decider.LocationSent
		}
		byID[m.ThreadID] = append(byID[m.ThreadID], m)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	threads := make([]decider.Thread, 0, len(ids))
	for _, id := range ids {
		threads = append(threads, decider.Thread{ID: id, Messages: byID[id]})
	}
	return threads
}

func replay(w io.Writer, messages []decider.Message, opts options) error {
	enc := json.NewEncoder(w)
	for _, thread := range groupThreads(messages, opts.operator) {
		decision := decider.Decide(thread, opts.operator, opts.watched, opts.cooldown, opts.now)
		if err := enc.Encode(result{
			ThreadID: thread.ID,
			Messages: len(thread.Messages),
			Decision: decision,
		}); err != nil {
			return err
		}
	}
	return nil
}
