package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ridersettle/internal/blob"
	"ridersettle/internal/config"
	"ridersettle/internal/importer"
	"ridersettle/internal/model"
	"ridersettle/internal/rule"
	"ridersettle/internal/store/memstore"
)

func newIngestCmd() *cobra.Command {
	var (
		branchID  string
		companyID string
		platform  string
		rulePath  string
		dryRun    bool
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [settlement.xlsx]",
		Short: "Ingest a settlement workbook",
		Long: `Ingest a settlement workbook for a branch and platform.

With --dry-run the workbook is parsed into an in-memory store and the result
is printed without touching the database. The rule comes from --rule, or the
built-in template for the platform when no rule file is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("file not found: %s", args[0])
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			req := importer.Request{
				FileName:  filepath.Base(args[0]),
				BranchID:  branchID,
				CompanyID: companyID,
				Platform:  platform,
			}
			if rulePath != "" {
				r, err := readRuleFile(rulePath)
				if err != nil {
					return err
				}
				req.Rule = r
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout := cfg.RunTimeout(); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			opts := []importer.Option{importer.WithLogger(logger), importer.WithLocation(cfg.Location())}

			var result *model.RunResult
			if dryRun {
				result, err = dryRunIngest(ctx, req, data, opts)
			} else {
				result, err = storedIngest(ctx, cfg, req, data, opts)
			}
			if result != nil {
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&branchID, "branch", "", "Branch id")
	cmd.Flags().StringVar(&companyID, "company", "", "Company id")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform name")
	cmd.Flags().StringVar(&rulePath, "rule", "", "Parsing rule JSON file (overrides the stored rule)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse into memory without writing the database")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	cmd.MarkFlagRequired("branch")
	cmd.MarkFlagRequired("platform")
	return cmd
}

func dryRunIngest(ctx context.Context, req importer.Request, data []byte, opts []importer.Option) (*model.RunResult, error) {
	mem := memstore.NewMemoryStore()
	if req.Rule == nil {
		tpl, ok := rule.TemplateFor(req.Platform)
		if !ok {
			return nil, fmt.Errorf("no --rule given and no built-in template for platform %q", req.Platform)
		}
		req.Rule = &tpl
	}
	req.FilePath = blob.SettlementPath(req.BranchID, req.FileName, time.Now())
	if err := mem.PutBytes(ctx, req.FilePath, data); err != nil {
		return nil, err
	}
	coord := importer.NewCoordinator(importer.Deps{Rules: mem, Blobs: mem, Riders: mem, Repo: mem}, opts...)
	return coord.Run(ctx, req)
}

func storedIngest(ctx context.Context, cfg *config.AppConfig, req importer.Request, data []byte, opts []importer.Option) (*model.RunResult, error) {
	st, blobs, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	req.FilePath = blob.SettlementPath(req.BranchID, req.FileName, time.Now())
	if err := blobs.PutBytes(ctx, req.FilePath, data); err != nil {
		return nil, err
	}
	coord := importer.NewCoordinator(importer.Deps{Rules: st, Blobs: blobs, Riders: st, Repo: st}, opts...)
	return coord.Run(ctx, req)
}
