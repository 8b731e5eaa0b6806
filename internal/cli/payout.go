package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/config"
	"github.com/mmeshcher/converge-shop/internal/hackatime"
	"github.com/mmeshcher/converge-shop/internal/payout"
	"github.com/mmeshcher/converge-shop/internal/platform"
	"github.com/mmeshcher/converge-shop/internal/report"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

func newPayoutCommand(a *app) *cobra.Command {
	var (
		dryRun     bool
		policyPath string
		lockPath   string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Recompute the token ledger from approved submissions",
		Long: `Recompute token payouts for every approved submission.

Tracked time is fetched from Hackatime, converted to tokens, topped up
with the platform bonus and written to the ledger in one transaction.
Payouts whose memo carries a protected marker are never touched.
Users whose balance would drop are reported, the write still happens.

If Hackatime cannot be reached for a user, that user's tracked time
counts as zero: their unprotected payouts are deleted and nothing is
written back. Such users are listed under fetch failures; rerun the
job once Hackatime answers to restore their tokens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load[config.PayoutJob]()
			if err != nil {
				return err
			}

			policy := payout.DefaultPolicy()
			if policyPath != "" {
				if policy, err = payout.LoadPolicy(policyPath, policy); err != nil {
					return err
				}
			}

			repo, err := repository.NewPostgresRepository(cfg.Database.URI)
			if err != nil {
				return err
			}
			defer repo.Close()

			job := payout.NewJob(
				airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table),
				hackatime.NewClient(cfg.Hackatime.BaseURL, cfg.Hackatime.RackAttackBypass),
				platform.NewClassifier(cfg.Classifier.URL),
				repo,
				policy,
				a.logger,
			)

			res, err := job.Run(cmd.Context(), payout.Options{DryRun: dryRun, LockPath: lockPath})
			if err != nil {
				return err
			}

			a.logger.Info("payout finished",
				zap.Bool("dryRun", res.DryRun),
				zap.Int("users", len(res.Users)),
				zap.Int64("tokens", res.TotalTokens()),
				zap.Int("warnings", len(res.Warnings)),
			)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return report.Payout(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and report without writing to the ledger")
	cmd.Flags().StringVar(&policyPath, "policy", "", "TOML file overriding the default payout policy")
	cmd.Flags().StringVar(&lockPath, "lock", filepath.Join(os.TempDir(), "convergectl-payout.lock"), "lock file guarding concurrent runs (empty disables)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func newPaymentReportCommand(a *app) *cobra.Command {
	var (
		policyPath string
		xlsxPath   string
	)

	cmd := &cobra.Command{
		Use:   "payment-report",
		Short: "Compute cash payments for approved submissions",
		Long: `Compute how much each participant is paid for tracked time.

Uses the same Hackatime matching as payout with the multiplier policy
and honours override hours. Nothing is written to the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load[config.PaymentReport]()
			if err != nil {
				return err
			}

			policy := payout.PaymentPolicy()
			if policyPath != "" {
				if policy, err = payout.LoadPolicy(policyPath, policy); err != nil {
					return err
				}
			}

			records := airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table)
			stats := hackatime.NewClient(cfg.Hackatime.BaseURL, cfg.Hackatime.RackAttackBypass)

			all, err := records.List(cmd.Context(), airtable.ListOptions{FilterByFormula: policy.Filter})
			if err != nil {
				return err
			}

			users := payout.GroupSubmissions(all, a.logger)
			if err := payout.Collect(cmd.Context(), users, stats, policy, a.logger); err != nil {
				return err
			}

			payments, summary := payout.ComputePayments(users, policy)
			if err := report.Payments(cmd.OutOrStdout(), payments, summary, policy.HourlyRate); err != nil {
				return err
			}

			if xlsxPath == "" {
				return nil
			}

			f, err := createFile(xlsxPath)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := report.PaymentsXLSX(f, payments, summary); err != nil {
				return err
			}
			a.logger.Info("payment report exported", zap.String("path", xlsxPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", "", "TOML file overriding the payment policy")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the report to this XLSX file")

	return cmd
}
