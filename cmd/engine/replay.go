package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/query"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/messaging"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCENARIO
// ══════════════════════════════════════════════════════════════════════════════

// scenario is a replayable YAML document: definitions first, then events in
// timestamp order.
type scenario struct {
	// Start sets the replay clock before any definition is created. Defaults
	// to the first event timestamp.
	Start        time.Time                `yaml:"start"`
	Leaderboards []leaderboard.Definition `yaml:"leaderboards"`
	Challenges   []challenge.Definition   `yaml:"challenges"`
	Joins        []join                   `yaml:"joins"`
	Events       []messaging.Envelope     `yaml:"events"`
}

// join enrolls a user in a leaderboard or a challenge.
type join struct {
	UserID      string `yaml:"user_id"`
	Leaderboard string `yaml:"leaderboard"`
	Challenge   string `yaml:"challenge"`
}

func loadScenario(r io.Reader) (*scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return &sc, nil
		}
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i, j := range sc.Joins {
		if j.UserID == "" || (j.Leaderboard == "") == (j.Challenge == "") {
			return nil, fmt.Errorf("join %d: user_id and exactly one of leaderboard, challenge are required", i)
		}
	}
	if sc.Start.IsZero() && len(sc.Events) > 0 {
		sc.Start = sc.Events[0].Timestamp
	}
	return &sc, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND
// ══════════════════════════════════════════════════════════════════════════════

var (
	replayUsers         []string
	replayLeaderboards  []string
	replayKeepGoing     bool
	replayFromSystemNow bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a YAML scenario through the engine and print analytics",
	Long: `Creates the leaderboards and challenges a scenario defines, enrolls its
users, publishes its events in order and prints the resulting analytics as
JSON. The replay clock follows event timestamps unless --system-clock is set.

Transient store failures are retried with backoff. Other handler failures
stop the replay unless --keep-going is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringSliceVar(&replayUsers, "user", nil, "also print the summary of these users")
	replayCmd.Flags().StringSliceVar(&replayLeaderboards, "leaderboard", nil, "also print these leaderboards")
	replayCmd.Flags().BoolVar(&replayKeepGoing, "keep-going", false, "log failed events and continue")
	replayCmd.Flags().BoolVar(&replayFromSystemNow, "system-clock", false, "use the wall clock instead of event timestamps")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	sc, err := loadScenario(f)
	if err != nil {
		return err
	}

	var clock shared.Clock = shared.SystemClock{}
	manual := shared.NewManualClock(sc.Start)
	if !replayFromSystemNow {
		clock = manual
	}

	// Ordered replays need inline dispatch.
	replayCfg := *cfg
	replayCfg.Events.Async = false

	ctx := cmd.Context()
	a, err := openApp(ctx, &replayCfg, log, clock)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := replayOptions{
		Users:        replayUsers,
		Leaderboards: replayLeaderboards,
		KeepGoing:    replayKeepGoing,
	}
	if !replayFromSystemNow {
		opts.Clock = manual
	}
	report, err := replay(ctx, a, sc, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPLAY
// ══════════════════════════════════════════════════════════════════════════════

type replayOptions struct {
	Users        []string
	Leaderboards []string
	KeepGoing    bool

	// Clock follows event timestamps when set.
	Clock *shared.ManualClock

	// RetryDelay overrides the configured initial backoff.
	RetryDelay *time.Duration
}

type replayReport struct {
	Events       int                               `json:"events"`
	Failed       int                               `json:"failed"`
	Analytics    *query.GamificationAnalytics      `json:"analytics"`
	Users        []*query.UserSummary              `json:"users,omitempty"`
	Leaderboards []*query.GetLeaderboardResult     `json:"leaderboards,omitempty"`
	Bus          messaging.EventBusMetricsSnapshot `json:"bus"`
}

func replay(ctx context.Context, a *app, sc *scenario, opts replayOptions) (*replayReport, error) {
	if err := setupScenario(ctx, a, sc); err != nil {
		return nil, err
	}

	delay := a.cfg.Retry.InitialDelay
	if opts.RetryDelay != nil {
		delay = *opts.RetryDelay
	}
	retrier := retry.StoreRetrier(shared.IsRetryable,
		retry.WithMaxAttempts(a.cfg.Retry.MaxAttempts),
		retry.WithInitialDelay(delay),
		retry.WithMaxDelay(a.cfg.Retry.MaxDelay),
		retry.WithOnRetry(func(attempt int, err error, d time.Duration) {
			a.logger.Warn("retrying event", zap.Int("attempt", attempt), zap.Duration("delay", d), zap.Error(err))
		}),
	)

	report := &replayReport{}
	for i, env := range sc.Events {
		event, err := env.Decode()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if opts.Clock != nil && event.OccurredAt().After(opts.Clock.Now()) {
			opts.Clock.Set(event.OccurredAt())
		}

		report.Events++
		err = retrier.Do(ctx, func(ctx context.Context) error {
			return a.bus.Publish(ctx, event)
		})
		if err == nil {
			continue
		}
		report.Failed++
		if !opts.KeepGoing {
			return nil, fmt.Errorf("event %d (%s for %s): %w", i, env.Type, env.UserID, err)
		}
		a.logger.Error("event failed",
			zap.Int("index", i),
			zap.String("event_type", string(env.Type)),
			zap.String("user_id", env.UserID),
			zap.Error(err),
		)
	}

	analytics, err := query.NewGetGamificationAnalyticsHandler(a.engine).Handle(ctx)
	if err != nil {
		return nil, err
	}
	report.Analytics = analytics

	summaries := query.NewGetUserSummaryHandler(a.engine)
	for _, userID := range opts.Users {
		s, err := summaries.Handle(ctx, query.GetUserSummaryQuery{UserID: userID})
		if err != nil {
			return nil, fmt.Errorf("summary for %s: %w", userID, err)
		}
		report.Users = append(report.Users, s)
	}

	boards := query.NewGetLeaderboardHandler(a.engine)
	for _, id := range opts.Leaderboards {
		res, err := boards.Handle(ctx, query.GetLeaderboardQuery{LeaderboardID: id, Limit: 100})
		if err != nil {
			return nil, fmt.Errorf("leaderboard %s: %w", id, err)
		}
		report.Leaderboards = append(report.Leaderboards, res)
	}

	report.Bus = a.bus.Metrics().Snapshot()
	return report, nil
}

// setupScenario creates definitions and enrollments. Definitions that already
// exist are kept so a scenario can be replayed against a persistent store.
func setupScenario(ctx context.Context, a *app, sc *scenario) error {
	for _, def := range sc.Leaderboards {
		if _, err := a.engine.Leaderboards.Create(ctx, def); err != nil && !existing(err, func() error {
			_, err := a.engine.Leaderboards.Get(ctx, def.ID)
			return err
		}) {
			return fmt.Errorf("leaderboard %s: %w", def.ID, err)
		}
	}
	for _, def := range sc.Challenges {
		if _, err := a.engine.Challenges.Create(ctx, def); err != nil && !existing(err, func() error {
			_, err := a.engine.Challenges.Get(ctx, def.ID)
			return err
		}) {
			return fmt.Errorf("challenge %s: %w", def.ID, err)
		}
	}
	for _, j := range sc.Joins {
		var err error
		if j.Leaderboard != "" {
			_, err = a.engine.Leaderboards.Join(ctx, j.Leaderboard, j.UserID)
		} else {
			_, err = a.engine.Challenges.Join(ctx, j.Challenge, j.UserID)
		}
		if err != nil {
			return fmt.Errorf("join %s: %w", j.UserID, err)
		}
	}
	return nil
}

// existing reports whether a failed Create was a duplicate of a stored entity.
func existing(createErr error, get func() error) bool {
	if !shared.IsValidation(createErr) {
		return false
	}
	return get() == nil
}
