package payout

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/hackatime"
	"github.com/mmeshcher/converge-shop/internal/platform"
)

// RecordSource отдаёт записи таблицы заявок.
type RecordSource interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
}

// StatsFetcher запрашивает статистику Hackatime пользователя.
type StatsFetcher interface {
	Stats(ctx context.Context, slackID, start, end string) (*hackatime.Stats, error)
}

// PlatformDetector определяет чат-платформы, упомянутые в тексте.
type PlatformDetector interface {
	Detect(ctx context.Context, text string) ([]string, error)
}

// UserWork собирает всё, что известно о пользователе за один прогон.
type UserWork struct {
	SlackID     string
	Email       string
	Submissions []Submission
	Trust       hackatime.TrustLevel
	Seconds     float64
	Projects    []string
	Platforms   []string
	StatsErr    error
}

// Excluded сообщает, что пользователь исключён из начислений целиком.
func (u *UserWork) Excluded() bool {
	return u.Trust == hackatime.TrustRed
}

// NeedsReview сообщает, что начисление пользователя нужно проверить вручную.
func (u *UserWork) NeedsReview() bool {
	return u.Trust == hackatime.TrustYellow
}

// Hours возвращает учтённое время в часах.
func (u *UserWork) Hours() float64 {
	return u.Seconds / 3600
}

// GroupSubmissions группирует записи по Slack ID в порядке первого появления.
// Записи без Slack ID пропускаются.
func GroupSubmissions(records []airtable.Record, logger *zap.Logger) []*UserWork {
	var users []*UserWork
	byID := make(map[string]*UserWork)

	for _, r := range records {
		sub, ok := SubmissionFromRecord(r)
		if !ok {
			logger.Warn("skipping record without slack id", zap.String("record", r.ID))
			continue
		}

		u, ok := byID[sub.SlackID]
		if !ok {
			u = &UserWork{SlackID: sub.SlackID}
			byID[sub.SlackID] = u
			users = append(users, u)
		}
		if u.Email == "" {
			u.Email = sub.Email
		}
		u.Submissions = append(u.Submissions, sub)
	}

	return users
}

// Collect запрашивает статистику Hackatime для пользователей, которым она нужна,
// применяет ограничение по доверию и считает учтённое время.
// Статистика запрашивается один раз на пользователя. Ошибка запроса сохраняется
// в UserWork.StatsErr и не прерывает остальные запросы.
func Collect(ctx context.Context, users []*UserWork, fetcher StatsFetcher, p Policy, logger *zap.Logger) error {
	stats := make([]*hackatime.Stats, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)

	for i, u := range users {
		if !needsStats(u, p) {
			continue
		}
		g.Go(func() error {
			s, err := fetcher.Stats(gctx, u.SlackID, p.StartDate, p.EndDate)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("fetch hackatime stats", zap.String("user", u.SlackID), zap.Error(err))
				u.StatsErr = err
				return nil
			}
			stats[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, u := range users {
		u.Trust = stats[i].Trust()
		switch u.Trust {
		case hackatime.TrustRed:
			logger.Info("trust level is red, excluding user", zap.String("user", u.SlackID))
			continue
		case hackatime.TrustYellow:
			logger.Info("trust level is yellow, flagging for review", zap.String("user", u.SlackID))
		}
		accumulate(u, stats[i], p)
	}

	return nil
}

func needsStats(u *UserWork, p Policy) bool {
	for _, s := range u.Submissions {
		if useOverride(s, p) {
			continue
		}
		if len(s.ProjectNames) > 0 {
			return true
		}
	}
	return false
}

func useOverride(s Submission, p Policy) bool {
	return p.OverrideHours && s.OverrideHours > 0
}

func accumulate(u *UserWork, stats *hackatime.Stats, p Policy) {
	seen := make(map[string]struct{})
	addProject := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		u.Projects = append(u.Projects, name)
	}

	for _, s := range u.Submissions {
		if useOverride(s, p) {
			u.Seconds += s.OverrideHours * 3600
			addProject(OverrideLabel)
			continue
		}
		if stats == nil {
			continue
		}
		seconds, matched := MatchedSeconds(stats.Data.Projects, s.ProjectNames)
		u.Seconds += seconds
		for _, name := range matched {
			addProject(name)
		}
	}
}

// DetectPlatforms определяет платформы для всех не исключённых пользователей.
// Ошибка классификации записывается в лог и считается отсутствием платформ.
func DetectPlatforms(ctx context.Context, users []*UserWork, detector PlatformDetector, p Policy, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)

	for _, u := range users {
		if u.Excluded() {
			continue
		}
		text := submissionText(u.Submissions)
		if text == "" {
			continue
		}
		g.Go(func() error {
			found, err := detector.Detect(gctx, text)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("detect chat platforms", zap.String("user", u.SlackID), zap.Error(err))
				return nil
			}
			u.Platforms = platform.Distinct(found)
			return nil
		})
	}

	return g.Wait()
}

func submissionText(subs []Submission) string {
	parts := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
