package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/interviewer/internal/analytics"
	appI18n "github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/jobs"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

func pregenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pregenerate",
		Short: "Fill the question bank once and exit",
		RunE:  runPregenerate,
	}
	f := cmd.Flags()
	addPregenFlags(f)
	addStoreFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func runPregenerate(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	logger := setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	gen, err := newLLMService(ctx, v, logger, nil)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	job := jobs.NewPregenerator(db, gen, logger, nil, pregenConfig(v))
	added, err := job.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %d questions to the bank\n", added)
	return nil
}

func leaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top candidates by average score",
		RunE:  runLeaderboard,
	}
	f := cmd.Flags()
	f.StringP("role", "r", "", "Only rank sessions for this role")
	f.StringP("lang", "l", "en", "Output language (en, ru)")
	addStoreFlags(f)
	addLogFlags(f)
	return cmd
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	logger := setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang, logger); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	entries, err := analytics.NewEngine(db, logger, nil).Leaderboard(v.GetString("role"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%.1f%%\t%s\n", i+1, e.Owner, e.AvgScore,
			appI18n.Tp(ctx, "SessionsCount", e.TotalSessions))
	}
	return tw.Flush()
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session results to JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("owner", "", "Only export sessions for this owner")
	addStoreFlags(f)
	addLogFlags(f)
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	logger := setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	owner := v.GetString("owner")
	results, err := db.ExportSessions(owner)
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	export := model.SessionsExport{
		ExportedAt: time.Now().UTC(),
		Owner:      owner,
		Results:    results,
	}
	if export.Results == nil {
		export.Results = []model.SessionResult{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	data = append(data, '\n')

	output := v.GetString("output")
	if output == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("exported sessions", "count", len(results), "output", output)
	return nil
}
