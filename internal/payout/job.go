package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

// ErrAlreadyRunning возвращается, если другой прогон держит файловую блокировку.
var ErrAlreadyRunning = errors.New("payout job is already running")

// Ledger описывает операции журнала, нужные пересчёту.
type Ledger interface {
	PayoutBalances(ctx context.Context, userIDs []string, markers []string) (map[string]model.LedgerBalance, error)
	ReplacePayouts(ctx context.Context, markers []string, payouts []model.NewPayout) (repository.ReplaceResult, error)
}

// UserResult описывает итог начисления одному пользователю.
type UserResult struct {
	SlackID     string   `json:"slackId"`
	Email       string   `json:"email"`
	Hours       float64  `json:"hours"`
	Tokens      int64    `json:"tokens"`
	BonusTokens int64    `json:"bonusTokens,omitempty"`
	Platforms   []string `json:"platforms,omitempty"`
}

// Review описывает пользователя с жёлтым уровнем доверия.
type Review struct {
	SlackID string  `json:"slackId"`
	Email   string  `json:"email"`
	Hours   float64 `json:"hours"`
	Tokens  int64   `json:"tokens"`
}

// Result содержит итог прогона пересчёта.
type Result struct {
	PolicyVersion      string                   `json:"policyVersion"`
	DryRun             bool                     `json:"dryRun"`
	Records            int                      `json:"records"`
	Users              []UserResult             `json:"results"`
	Warnings           []Warning                `json:"warnings"`
	Review             []Review                 `json:"review"`
	Excluded           []string                 `json:"excluded"`
	FetchFailures      []string                 `json:"fetchFailures"`
	PlatformBonusUsers int                      `json:"platformBonusUsers"`
	Payouts            []model.NewPayout        `json:"-"`
	Ledger             repository.ReplaceResult `json:"ledger"`
}

// TotalTokens возвращает сумму начисленных токенов.
func (r *Result) TotalTokens() int64 {
	var total int64
	for _, u := range r.Users {
		total += u.Tokens
	}
	return total
}

// Options задаёт параметры одного прогона.
type Options struct {
	DryRun bool
	// LockPath задаёт путь к файлу блокировки, пустое значение отключает блокировку.
	LockPath string
}

// Job пересчитывает журнал начислений по одобренным заявкам.
type Job struct {
	records  RecordSource
	stats    StatsFetcher
	detector PlatformDetector
	ledger   Ledger
	policy   Policy
	logger   *zap.Logger
}

// NewJob создаёт задачу пересчёта.
func NewJob(records RecordSource, stats StatsFetcher, detector PlatformDetector, ledger Ledger, policy Policy, logger *zap.Logger) *Job {
	return &Job{
		records:  records,
		stats:    stats,
		detector: detector,
		ledger:   ledger,
		policy:   policy,
		logger:   logger,
	}
}

// Run выполняет пересчёт: получение заявок, подсчёт времени, бонусы, сверку
// балансов и, если это не пробный прогон, замену журнала в одной транзакции.
// Предупреждения о снижении баланса не блокируют запись.
func (j *Job) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.LockPath != "" {
		lock := flock.New(opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", opts.LockPath, err)
		}
		if !locked {
			return nil, ErrAlreadyRunning
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				j.logger.Warn("release lock", zap.Error(err))
			}
		}()
	}

	j.logger.Info("fetching approved submissions", zap.String("policy", j.policy.Version))

	records, err := j.records.List(ctx, airtable.ListOptions{FilterByFormula: j.policy.Filter})
	if err != nil {
		return nil, fmt.Errorf("fetch submissions: %w", err)
	}

	users := GroupSubmissions(records, j.logger)
	j.logger.Info("submissions grouped", zap.Int("records", len(records)), zap.Int("users", len(users)))

	if err := Collect(ctx, users, j.stats, j.policy, j.logger); err != nil {
		return nil, fmt.Errorf("collect hackatime stats: %w", err)
	}
	if err := DetectPlatforms(ctx, users, j.detector, j.policy, j.logger); err != nil {
		return nil, fmt.Errorf("detect platforms: %w", err)
	}

	res := j.compute(users)
	res.Records = len(records)
	res.DryRun = opts.DryRun

	ids := make([]string, len(users))
	emails := make(map[string]string, len(users))
	for i, u := range users {
		ids[i] = u.SlackID
		emails[u.SlackID] = u.Email
	}

	prior, err := j.ledger.PayoutBalances(ctx, ids, j.policy.ProtectedMarkers)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	newTokens := make(map[string]int64, len(res.Users))
	for _, u := range res.Users {
		newTokens[u.SlackID] = u.Tokens
	}
	res.Warnings = Reconcile(ids, prior, newTokens, emails)

	for _, w := range res.Warnings {
		j.logger.Warn("balance reduced",
			zap.String("user", w.SlackID),
			zap.Int64("old", w.OldBalance),
			zap.Int64("new", w.NewBalance),
		)
	}

	if opts.DryRun {
		j.logger.Info("dry run, ledger left untouched", zap.Int("payouts", len(res.Payouts)))
		return res, nil
	}

	res.Ledger, err = j.ledger.ReplacePayouts(ctx, j.policy.ProtectedMarkers, res.Payouts)
	if err != nil {
		return nil, fmt.Errorf("replace payouts: %w", err)
	}

	j.logger.Info("ledger replaced",
		zap.Int64("deleted", res.Ledger.Deleted),
		zap.Int("inserted", res.Ledger.Inserted),
		zap.Int("created_users", res.Ledger.CreatedUsers),
	)

	return res, nil
}

func (j *Job) compute(users []*UserWork) *Result {
	res := &Result{
		PolicyVersion: j.policy.Version,
		Excluded:      []string{},
		FetchFailures: []string{},
		Review:        []Review{},
		Warnings:      []Warning{},
	}

	for _, u := range users {
		if u.StatsErr != nil {
			res.FetchFailures = append(res.FetchFailures, u.SlackID)
		}
		if u.Excluded() {
			res.Excluded = append(res.Excluded, u.SlackID)
			continue
		}

		base := j.policy.Tokens(u.Seconds)
		if base > 0 {
			res.Payouts = append(res.Payouts, model.NewPayout{
				Tokens: base,
				UserID: u.SlackID,
				Memo:   fmt.Sprintf("Converge payout: %.2f hours worked (%s)", u.Hours(), j.policy.Period()),
			})
		}

		bonus := j.policy.BonusTokens(len(u.Platforms), base)
		if bonus > 0 {
			res.Payouts = append(res.Payouts, model.NewPayout{
				Tokens: bonus,
				UserID: u.SlackID,
				Memo:   j.bonusMemo(u.Platforms),
			})
			res.PlatformBonusUsers++
		}

		total := base + bonus
		if total > 0 {
			res.Users = append(res.Users, UserResult{
				SlackID:     u.SlackID,
				Email:       u.Email,
				Hours:       u.Hours(),
				Tokens:      total,
				BonusTokens: bonus,
				Platforms:   u.Platforms,
			})
		}

		if u.NeedsReview() {
			res.Review = append(res.Review, Review{
				SlackID: u.SlackID,
				Email:   u.Email,
				Hours:   u.Hours(),
				Tokens:  total,
			})
		}
	}

	return res
}

// bonusMemo описывает бонус. Memo не должно совпадать с защищёнными маркерами,
// иначе следующий пересчёт продублирует начисление.
func (j *Job) bonusMemo(platforms []string) string {
	memo := fmt.Sprintf("Platform bonus: Used %d chat platforms (%s) - capped at %d total tokens",
		len(platforms), strings.Join(platforms, ", "), j.policy.MaxTokens)
	if j.policy.IsProtected(&memo) {
		memo = fmt.Sprintf("Platform bonus: Used %d chat platforms - capped at %d total tokens",
			len(platforms), j.policy.MaxTokens)
	}
	return memo
}
