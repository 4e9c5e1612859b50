// Package notify posts a short report digest to Slack.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"delivery-shift-report/internal/report"
)

// Poster is the Slack call the notifier depends on.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts to a single channel.
type Slack struct {
	api     Poster
	channel string
}

// NewSlack builds a client from a bot token.
func NewSlack(token, channel string, options ...slack.Option) *Slack {
	return &Slack{api: slack.New(token, options...), channel: channel}
}

// NewSlackWithPoster uses an existing client, e.g. one pointed at a test server.
func NewSlackWithPoster(api Poster, channel string) *Slack {
	return &Slack{api: api, channel: channel}
}

// PostSummary sends FormatSummary(rep) to the configured channel.
func (s *Slack) PostSummary(ctx context.Context, rep report.Report) error {
	if strings.TrimSpace(s.channel) == "" {
		return fmt.Errorf("slack channel is not configured")
	}
	_, ts, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(FormatSummary(rep), false))
	if err != nil {
		return fmt.Errorf("post summary to %s: %w", s.channel, err)
	}
	log.Printf("Posted report %s to Slack channel %s (ts %s)", rep.ID, s.channel, ts)
	return nil
}

// FormatSummary renders the TOTAL row of each table, or the segment's
// condition when it produced no tables.
func FormatSummary(rep report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Delivery Shift Report* (%s buckets)\n", rep.Scheme)
	for _, warning := range rep.Warnings {
		fmt.Fprintf(&b, ":warning: %s\n", warning)
	}
	for _, seg := range rep.Segments {
		fmt.Fprintf(&b, "\n*%s*\n", seg.Title)
		if seg.Err != nil {
			fmt.Fprintf(&b, "%s\n", seg.Condition())
			continue
		}
		fmt.Fprintf(&b, "Window %s, %d orders in window\n", seg.Window, seg.InWindow)
		for _, table := range seg.Tables {
			total := table.Total
			if table.Kind == report.Summary {
				fmt.Fprintf(&b, "• %s: %d orders | morning %d (%d%%) | afternoon %d (%d%%) | avg %.2fh\n",
					table.Name, total.Total, total.Morning, total.MorningPct, total.Afternoon, total.AfternoonPct, total.AvgHours)
				continue
			}
			fmt.Fprintf(&b, "• %s: %d orders | avg %.2fh\n", table.Name, total.Total, total.AvgHours)
		}
		if seg.Anomalies > 0 {
			fmt.Fprintf(&b, "%d deliveries stamped before pickup\n", seg.Anomalies)
		}
	}
	return b.String()
}
