package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/converge-shop/internal/addresses"
	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/backfill"
	"github.com/mmeshcher/converge-shop/internal/config"
	"github.com/mmeshcher/converge-shop/internal/fillout"
	"github.com/mmeshcher/converge-shop/internal/loops"
	"github.com/mmeshcher/converge-shop/internal/report"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

func newBackfillCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-users",
		Short: "Fill user country and upload status from submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load[config.BackfillJob]()
			if err != nil {
				return err
			}

			repo, err := repository.NewPostgresRepository(cfg.Database.URI)
			if err != nil {
				return err
			}
			defer repo.Close()

			records := airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table)

			res, err := backfill.Run(cmd.Context(), records, repo, a.logger)
			if err != nil {
				return err
			}

			warnings := make([]string, 0, len(res.Unresolved))
			for _, u := range res.Unresolved {
				warnings = append(warnings, "unresolved country: "+u)
			}

			return report.Summary(cmd.OutOrStdout(), "BACKFILL", []report.Row{
				{Key: "Users", Value: res.Users},
				{Key: "Records", Value: res.Records},
				{Key: "Uploaded records", Value: res.Uploaded},
				{Key: "Country updates", Value: res.CountryUpdates},
				{Key: "YSWS updates", Value: res.YswsUpdates},
				{Key: "Errors", Value: res.Errors},
			}, warnings)
		},
	}
}

func newLoopsSyncCommand(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "loops-sync",
		Short: "Copy mailing addresses from Loops into submissions",
		Long: `Look up every submission email in Loops.

Records that already have an address are marked as manually assigned.
Records without one get the Loops address and are marked as auto-assigned.
Records with no address anywhere are listed as warnings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load[config.LoopsSyncJob]()
			if err != nil {
				return err
			}

			store := airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table)
			finder := loops.NewClient(cfg.Loops.BaseURL, cfg.Loops.APIKey)

			res, err := addresses.Run(cmd.Context(), store, finder, concurrency, a.logger)
			if res != nil {
				if rerr := report.Summary(cmd.OutOrStdout(), "LOOPS SYNC", []report.Row{
					{Key: "Records", Value: res.Records},
					{Key: "Skipped (no email)", Value: res.Skipped},
					{Key: "Lookup errors", Value: res.LookupErrors},
					{Key: "Auto-assigned", Value: res.AutoAssigned},
					{Key: "Manually assigned", Value: res.Manual},
					{Key: "No address", Value: res.NoAddress},
					{Key: "Updated", Value: res.Updated},
				}, res.Warnings); rerr != nil && err == nil {
					err = rerr
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "parallel Loops lookups")

	return cmd
}

func newFilloutSyncCommand(a *app) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "fillout-sync",
		Short: "Merge a Fillout CSV export into submissions",
		Long: `Merge a Fillout CSV export into the submissions table.

Submissions are grouped per participant. Records created by a previous
run are deleted first, then each participant's pending record is updated
or a new pending record is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load[config.FilloutSyncJob]()
			if err != nil {
				return err
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			subs, err := fillout.ParseCSV(f)
			if err != nil {
				return err
			}

			store := airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table)

			res, err := fillout.Sync(cmd.Context(), store, subs, a.logger)
			if err != nil {
				return err
			}

			return report.Summary(cmd.OutOrStdout(), "FILLOUT SYNC", []report.Row{
				{Key: "Submissions", Value: res.Submissions},
				{Key: "Participants", Value: res.Users},
				{Key: "Deleted", Value: res.Deleted},
				{Key: "Updated", Value: res.Updated},
				{Key: "Created", Value: res.Created},
				{Key: "Failed", Value: res.Failed},
			}, nil)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the Fillout CSV export")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}
