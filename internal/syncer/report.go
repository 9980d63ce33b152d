package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/notifications"
)

// StateReport counts managed assets stuck in a non-terminal state.
type StateReport struct {
	Counts map[assets.State]int
	Text   string
}

// Empty reports whether no asset is waiting.
func (r StateReport) Empty() bool {
	return len(r.Counts) == 0
}

// Reporter broadcasts how many assets still wait for their owner or a moderator.
type Reporter struct {
	notifier notifications.Service
	logger   *slog.Logger
}

// NewReporter wires a reporter.
func NewReporter(notifier notifications.Service, logger *slog.Logger) *Reporter {
	return &Reporter{notifier: notifier, logger: logging.NewComponentLogger(logger, "state-report")}
}

// Due reports whether the hourly state report falls into now. A negative
// minute disables the report.
func Due(now time.Time, minute int) bool {
	return minute >= 0 && now.Minute() == minute
}

// Report logs every pending asset and, when any exist, sends one WARN message
// with the count per state.
func (r *Reporter) Report(ctx context.Context, all []assets.Asset) StateReport {
	report := StateReport{Counts: map[assets.State]int{}}
	for _, asset := range assets.Pending(all) {
		report.Counts[asset.State]++
		r.logger.Info("asset waiting for moderation",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.String("state", asset.State.String()),
			logging.String("user", asset.User),
		)
	}
	if report.Empty() {
		r.logger.Info("no assets waiting for moderation")
		return report
	}

	states := make([]assets.State, 0, len(report.Counts))
	for state := range report.Counts {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	parts := make([]string, 0, len(states)+1)
	for _, state := range states {
		parts = append(parts, fmt.Sprintf("%d assets in state %s.", report.Counts[state], state))
	}
	parts = append(parts, "Check the logs for more information")
	report.Text = strings.Join(parts, " ")

	if r.notifier != nil {
		r.notifier.Message(ctx, notifications.Message{Text: report.Text, Level: notifications.LevelWarn})
	}
	return report
}
