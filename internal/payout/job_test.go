package payout

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/hackatime"
	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

type stubRecords struct {
	records []airtable.Record
	opts    airtable.ListOptions
}

func (s *stubRecords) List(_ context.Context, opts airtable.ListOptions) ([]airtable.Record, error) {
	s.opts = opts
	return s.records, nil
}

type stubStats struct {
	mu    sync.Mutex
	stats map[string]*hackatime.Stats
	errs  map[string]error
	calls map[string]int
}

func (s *stubStats) Stats(_ context.Context, slackID, _, _ string) (*hackatime.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[slackID]++
	if err := s.errs[slackID]; err != nil {
		return nil, err
	}
	return s.stats[slackID], nil
}

type stubDetector struct {
	platforms map[string][]string
	err       error
}

func (s *stubDetector) Detect(_ context.Context, text string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.platforms[text], nil
}

type stubLedger struct {
	balances map[string]model.LedgerBalance
	written  []model.NewPayout
	replaced bool
	err      error
}

func (s *stubLedger) PayoutBalances(_ context.Context, ids []string, _ []string) (map[string]model.LedgerBalance, error) {
	res := make(map[string]model.LedgerBalance)
	for _, id := range ids {
		if b, ok := s.balances[id]; ok {
			res[id] = b
		}
	}
	return res, nil
}

func (s *stubLedger) ReplacePayouts(_ context.Context, _ []string, payouts []model.NewPayout) (repository.ReplaceResult, error) {
	if s.err != nil {
		return repository.ReplaceResult{}, s.err
	}
	s.replaced = true
	s.written = payouts
	return repository.ReplaceResult{Inserted: len(payouts)}, nil
}

func newStats(trust hackatime.TrustLevel, projects ...hackatime.Project) *hackatime.Stats {
	s := &hackatime.Stats{}
	s.Data.Projects = projects
	s.TrustFactor.TrustLevel = trust
	return s
}

func record(id, slackID, projects, description string) airtable.Record {
	return airtable.Record{ID: id, Fields: airtable.Fields{
		airtable.FieldSlackID:      slackID,
		airtable.FieldEmail:        slackID + "@example.com",
		airtable.FieldProjectNames: projects,
		airtable.FieldDescription:  description,
	}}
}

func totals(payouts []model.NewPayout) map[string]int64 {
	res := make(map[string]int64)
	for _, p := range payouts {
		res[p.UserID] += p.Tokens
	}
	return res
}

func TestJobRun(t *testing.T) {
	records := &stubRecords{records: []airtable.Record{
		record("r1", "UBLUE", "Foo, Bar", "bridges slack and discord"),
		record("r2", "UBLUE", "Qux", ""),
		record("r3", "URED", "Foo", "a discord and slack bot"),
		record("r4", "UYELLOW", "Baz", ""),
		{ID: "r5", Fields: airtable.Fields{airtable.FieldProjectNames: "Foo"}},
	}}
	stats := &stubStats{stats: map[string]*hackatime.Stats{
		"UBLUE": newStats(hackatime.TrustBlue,
			hackatime.Project{Name: "foo", TotalSeconds: 3600},
			hackatime.Project{Name: "qux", TotalSeconds: 2400},
			hackatime.Project{Name: "other", TotalSeconds: 99999},
		),
		"URED":    newStats(hackatime.TrustRed, hackatime.Project{Name: "foo", TotalSeconds: 36000}),
		"UYELLOW": newStats(hackatime.TrustYellow, hackatime.Project{Name: "BAZ", TotalSeconds: 5 * 3600}),
	}}
	detector := &stubDetector{platforms: map[string][]string{
		"Description: bridges slack and discord": {"Slack", "Discord", "slack"},
		"Description: a discord and slack bot":   {"Slack", "Discord"},
	}}
	ledger := &stubLedger{balances: map[string]model.LedgerBalance{
		"UYELLOW": {UserID: "UYELLOW", Payouts: 12, Spent: 5},
		"URED":    {UserID: "URED", Payouts: 4, Protected: 4},
	}}

	job := NewJob(records, stats, detector, ledger, DefaultPolicy(), zap.NewNop())

	res, err := job.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, airtable.ApprovedFormula, records.opts.FilterByFormula)
	assert.Equal(t, 5, res.Records)
	assert.Equal(t, 1, stats.calls["UBLUE"], "stats fetched once per user")

	// UBLUE: 1h + 40m = 1h40m -> 2 токена, бонус 2 за Slack и Discord.
	// URED исключён целиком, включая бонус.
	// UYELLOW: 5h -> 5 токенов, отмечен для проверки.
	assert.Equal(t, map[string]int64{"UBLUE": 4, "UYELLOW": 5}, totals(ledger.written))
	assert.True(t, ledger.replaced)

	assert.Equal(t, []string{"URED"}, res.Excluded)
	require.Len(t, res.Review, 1)
	assert.Equal(t, "UYELLOW", res.Review[0].SlackID)
	assert.Equal(t, 1, res.PlatformBonusUsers)

	require.Len(t, res.Users, 2)
	assert.Equal(t, "UBLUE", res.Users[0].SlackID)
	assert.Equal(t, int64(2), res.Users[0].BonusTokens)
	assert.Equal(t, []string{"Slack", "Discord"}, res.Users[0].Platforms)
	assert.Equal(t, int64(9), res.TotalTokens())

	// UYELLOW: было 12-5=7, стало 5-5=0. URED: защищённые 4 токена сохраняются.
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, Warning{SlackID: "UYELLOW", Email: "UYELLOW@example.com", OldBalance: 7, NewBalance: 0, Difference: 7}, res.Warnings[0])
}

func TestJobRun_Idempotent(t *testing.T) {
	records := &stubRecords{records: []airtable.Record{
		record("r1", "U1", "Foo", "slack, discord, zulip"),
		record("r2", "U2", "Bar", ""),
	}}
	stats := &stubStats{stats: map[string]*hackatime.Stats{
		"U1": newStats("", hackatime.Project{Name: "foo", TotalSeconds: 9 * 3600}),
		"U2": newStats(hackatime.TrustBlue, hackatime.Project{Name: "bar", TotalSeconds: 2*3600 + 45*60}),
	}}
	detector := &stubDetector{platforms: map[string][]string{
		"Description: slack, discord, zulip": {"Slack", "Discord", "Zulip"},
	}}

	first := &stubLedger{}
	_, err := NewJob(records, stats, detector, first, DefaultPolicy(), zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	second := &stubLedger{}
	_, err = NewJob(records, stats, detector, second, DefaultPolicy(), zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, totals(first.written), totals(second.written))
	// U1: 9 токенов + бонус, срезанный до 1 потолком.
	assert.Equal(t, map[string]int64{"U1": 10, "U2": 3}, totals(first.written))
}

func TestJobRun_DryRunLeavesLedger(t *testing.T) {
	records := &stubRecords{records: []airtable.Record{record("r1", "U1", "Foo", "")}}
	stats := &stubStats{stats: map[string]*hackatime.Stats{
		"U1": newStats(hackatime.TrustBlue, hackatime.Project{Name: "foo", TotalSeconds: 3600}),
	}}
	ledger := &stubLedger{}

	res, err := NewJob(records, stats, &stubDetector{}, ledger, DefaultPolicy(), zap.NewNop()).
		Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.False(t, ledger.replaced)
	assert.Len(t, res.Payouts, 1)
}

func TestJobRun_FetchErrorsAreCaptured(t *testing.T) {
	records := &stubRecords{records: []airtable.Record{
		record("r1", "U1", "Foo", "slack and discord"),
		record("r2", "U2", "Foo", ""),
	}}
	stats := &stubStats{
		stats: map[string]*hackatime.Stats{
			"U2": newStats(hackatime.TrustBlue, hackatime.Project{Name: "foo", TotalSeconds: 3600}),
		},
		errs: map[string]error{"U1": &hackatime.StatusError{StatusCode: 500}},
	}
	detector := &stubDetector{err: errors.New("classifier down")}
	ledger := &stubLedger{}

	res, err := NewJob(records, stats, detector, ledger, DefaultPolicy(), zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"U1"}, res.FetchFailures)
	assert.Equal(t, map[string]int64{"U2": 1}, totals(ledger.written))
}

func TestJobRun_LedgerErrorAborts(t *testing.T) {
	records := &stubRecords{records: []airtable.Record{record("r1", "U1", "Foo", "")}}
	stats := &stubStats{stats: map[string]*hackatime.Stats{
		"U1": newStats(hackatime.TrustBlue, hackatime.Project{Name: "foo", TotalSeconds: 3600}),
	}}
	ledger := &stubLedger{err: errors.New("tx aborted")}

	_, err := NewJob(records, stats, &stubDetector{}, ledger, DefaultPolicy(), zap.NewNop()).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace payouts")
}

func TestJobRun_RefusesConcurrentRun(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "payout.lock")

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	job := NewJob(&stubRecords{}, &stubStats{}, &stubDetector{}, &stubLedger{}, DefaultPolicy(), zap.NewNop())

	_, err = job.Run(context.Background(), Options{LockPath: lockPath})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestCollect_OverrideHours(t *testing.T) {
	users := GroupSubmissions([]airtable.Record{
		{ID: "r1", Fields: airtable.Fields{
			airtable.FieldSlackID:       "U1",
			airtable.FieldProjectNames:  "Foo",
			airtable.FieldOverrideHours: 2.0,
		}},
		record("r2", "U1", "Bar", ""),
	}, zap.NewNop())
	stats := &stubStats{stats: map[string]*hackatime.Stats{
		"U1": newStats(hackatime.TrustBlue,
			hackatime.Project{Name: "foo", TotalSeconds: 10 * 3600},
			hackatime.Project{Name: "bar", TotalSeconds: 3600},
		),
	}}

	require.NoError(t, Collect(context.Background(), users, stats, PaymentPolicy(), zap.NewNop()))

	require.Len(t, users, 1)
	assert.Equal(t, 3.0, users[0].Hours())
	assert.Equal(t, []string{OverrideLabel, "bar"}, users[0].Projects)
}

func TestCollect_OverrideOnlySkipsStats(t *testing.T) {
	users := GroupSubmissions([]airtable.Record{
		{ID: "r1", Fields: airtable.Fields{
			airtable.FieldSlackID:       "U1",
			airtable.FieldOverrideHours: 4.0,
		}},
	}, zap.NewNop())
	stats := &stubStats{}

	require.NoError(t, Collect(context.Background(), users, stats, PaymentPolicy(), zap.NewNop()))

	assert.Zero(t, stats.calls["U1"])
	assert.Equal(t, 4.0, users[0].Hours())
}
