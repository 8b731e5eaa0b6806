package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mmeshcher/converge-shop/internal/payout"
)

// Payout выводит итог пересчёта: результаты в JSON, сводку, бонусы,
// список на ручную проверку и предупреждения о снижении баланса.
func Payout(w io.Writer, res *payout.Result) error {
	p := &printer{w: w}

	p.section("FINAL RESULTS (JSON)")
	results := res.Users
	if results == nil {
		results = []payout.UserResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	p.line(string(data))

	p.section("SUMMARY")
	p.kv("Policy", res.PolicyVersion)
	p.kv("Approved submissions", res.Records)
	p.kv("Total users", len(res.Users))
	p.kv("Total tokens distributed", res.TotalTokens())
	p.kv("Users with platform bonuses", res.PlatformBonusUsers)
	if res.DryRun {
		p.line("%s %s", warningPrefix, warning.Render("Dry run: ledger was not modified"))
	} else {
		p.kv("Payouts deleted", res.Ledger.Deleted)
		p.kv("Payouts inserted", res.Ledger.Inserted)
		p.kv("Users created", res.Ledger.CreatedUsers)
	}

	var bonus []payout.UserResult
	for _, u := range res.Users {
		if u.BonusTokens > 0 {
			bonus = append(bonus, u)
		}
	}
	if len(bonus) > 0 {
		p.section("PLATFORM BONUSES")
		for _, u := range bonus {
			p.line("%s %s (%s): +%d for %s", arrowPrefix, u.SlackID, u.Email, u.BonusTokens, strings.Join(u.Platforms, ", "))
		}
	}

	if len(res.Excluded) > 0 {
		p.section("EXCLUDED (RED TRUST)")
		for _, id := range res.Excluded {
			p.line("%s %s", errorPrefix, id)
		}
	}

	if len(res.FetchFailures) > 0 {
		p.section("HACKATIME FETCH FAILURES")
		for _, id := range res.FetchFailures {
			p.line("%s %s", errorPrefix, id)
		}
	}

	if len(res.Review) > 0 {
		p.section("MANUAL REVIEW (YELLOW TRUST)")
		for _, r := range res.Review {
			p.line("%s %s (%s): %.2f hours → %d tokens", warningPrefix, r.SlackID, r.Email, r.Hours, r.Tokens)
		}
	}

	if len(res.Warnings) == 0 {
		p.blank()
		p.line("%s %s", successPrefix, success.Render("No users have reduced balances after recalculation"))
		return p.err
	}

	p.section("BALANCE REDUCTION WARNINGS")
	p.line(dim.Render("The following users have reduced available balances after recalculation."))
	p.blank()
	for _, wr := range res.Warnings {
		p.line("%s %s (%s):", warningPrefix, warning.Render(wr.SlackID), wr.Email)
		p.line("   Old available balance: %d tokens", wr.OldBalance)
		p.line("   New available balance: %d tokens", wr.NewBalance)
		p.line("   Reduction: %d tokens", wr.Difference)
	}
	p.blank()
	p.kv("Total users with reduced balances", len(res.Warnings))

	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	if len(args) == 0 {
		_, p.err = fmt.Fprintln(p.w, format)
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) blank() {
	p.line("")
}

func (p *printer) section(title string) {
	p.blank()
	p.line(heading.Render("=== " + title + " ==="))
}

func (p *printer) kv(key string, value any) {
	p.line("%s %v", dim.Render(key+":"), value)
}
