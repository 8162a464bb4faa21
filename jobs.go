package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/catalog"
	"github.com/shelfwise/bookcat/internal/domain"
)

func newIngestionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingestion",
		Short: "Run and monitor document ingestion",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "run",
			Short:   "Start ingestion of all pending documents",
			Args:    cobra.NoArgs,
			PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
			RunE: func(cmd *cobra.Command, _ []string) error {
				cc := mustCLIContext(cmd.Context())
				return emitJobAck(cc, cc.Svc.Ingestion.Run, cmd, "Ingestion started.")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current ingestion job",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cc := mustCLIContext(cmd.Context())

				env, err := cc.Svc.Ingestion.Status(cmd.Context())

				return emitJobStatus(cc, env, err)
			},
		},
		&cobra.Command{
			Use:     "trigger <document-id>",
			Short:   "Ingest one document",
			Args:    cobra.ExactArgs(1),
			PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
			RunE:    runIngestionTrigger,
		},
		&cobra.Command{
			Use:   "doc-status <document-id>",
			Short: "Show the ingestion status of one document",
			Args:  cobra.ExactArgs(1),
			RunE:  runIngestionDocStatus,
		},
		&cobra.Command{
			Use:   "today",
			Short: "Show how many documents were processed today",
			Args:  cobra.NoArgs,
			RunE:  runIngestionToday,
		},
		&cobra.Command{
			Use:   "overview",
			Short: "Summarize ingestion across documents",
			Args:  cobra.NoArgs,
			RunE:  runIngestionOverview,
		},
	)

	return cmd
}

func newImbibingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imbibing",
		Short: "Run and monitor the imbibing job",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "run",
			Short:   "Start the imbibing job",
			Args:    cobra.NoArgs,
			PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
			RunE: func(cmd *cobra.Command, _ []string) error {
				cc := mustCLIContext(cmd.Context())
				return emitJobAck(cc, cc.Svc.Imbibing.Run, cmd, "Imbibing started.")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the imbibing job status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cc := mustCLIContext(cmd.Context())

				env, err := cc.Svc.Imbibing.Status(cmd.Context())

				return emitJobStatus(cc, env, err)
			},
		},
	)

	return cmd
}

func newRecommendationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "List book recommendations",
		Args:    cobra.NoArgs,
		RunE:    runRecommendations,
	}

	cmd.Flags().Int("limit", 0, "maximum recommendations")
	cmd.Flags().Int("user-id", 0, "recommend for this user")

	return cmd
}

func emitJobAck(
	cc *CLIContext,
	run func(ctx context.Context) (api.Envelope[domain.JobAck], error),
	cmd *cobra.Command,
	fallbackText string,
) error {
	env, err := run(cmd.Context())
	if err != nil {
		return err
	}

	text := fallbackText
	if env.Data.Message != "" {
		text = env.Data.Message
	}

	if env.Data.JobID != "" {
		text += fmt.Sprintf(" (job %s)", env.Data.JobID)
	}

	return cc.emitMessage(env.Data, env.Substituted, text)
}

func emitJobStatus(cc *CLIContext, env api.Envelope[domain.JobStatus], err error) error {
	if err != nil {
		return err
	}

	s := env.Data

	return cc.emit(s, env.Substituted, func(w io.Writer) {
		status := s.Status
		if status == "" {
			status = "unknown"
		}

		fmt.Fprintf(w, "Status:   %s\n", status)
		fmt.Fprintf(w, "Progress: %d%%\n", s.Progress)

		if s.TotalDocuments > 0 {
			fmt.Fprintf(w, "Done:     %d of %d documents\n", s.DocumentsProcessed, s.TotalDocuments)
		}
	})
}

func runIngestionTrigger(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	trigger := func(ctx context.Context) (api.Envelope[domain.JobAck], error) {
		return cc.Svc.Ingestion.Trigger(ctx, id)
	}

	return emitJobAck(cc, trigger, cmd, fmt.Sprintf("Ingestion of document %d started.", id))
}

func runIngestionDocStatus(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Ingestion.DocumentStatus(cmd.Context(), id)
	if err == nil && env.Data.Progress == 0 {
		env.Data.Progress = catalog.Progress(env.Data.Status)
	}

	return emitJobStatus(cc, env, err)
}

func runIngestionToday(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.Ingestion.TodayCount(cmd.Context())
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted,
		fmt.Sprintf("Processed today: %d", env.Data.TodayProcessed))
}

// overviewOutput is the schema for `ingestion overview --json`.
type overviewOutput struct {
	TotalDocuments int                   `json:"total_documents" yaml:"total_documents"`
	ProcessedToday int                   `json:"processed_today" yaml:"processed_today"`
	FailedJobs     int                   `json:"failed_jobs" yaml:"failed_jobs"`
	Jobs           []domain.IngestionJob `json:"jobs" yaml:"jobs"`
}

func runIngestionOverview(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ov, err := cc.Svc.Ingestion.Overview(cmd.Context())
	if err != nil {
		return err
	}

	out := overviewOutput{
		TotalDocuments: ov.TotalDocuments,
		ProcessedToday: ov.ProcessedToday,
		FailedJobs:     ov.FailedJobs,
		Jobs:           ov.Jobs,
	}

	return cc.emit(out, false, func(w io.Writer) {
		fmt.Fprintf(w, "Documents: %d  Processed today: %d  Failed: %d\n\n",
			ov.TotalDocuments, ov.ProcessedToday, ov.FailedJobs)

		if len(ov.Jobs) == 0 {
			fmt.Fprintln(w, "No ingestion jobs.")
			return
		}

		rows := make([][]string, 0, len(ov.Jobs))
		for _, j := range ov.Jobs {
			rows = append(rows, []string{itoa(j.DocumentID), truncate(j.Name, 40), j.Status, fmt.Sprintf("%d%%", j.Progress)})
		}

		printTable(w, []string{"DOC", "NAME", "STATUS", "PROGRESS"}, rows)
	})
}

func runRecommendations(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	params := url.Values{}

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	if userID, _ := cmd.Flags().GetInt("user-id"); userID > 0 {
		params.Set("user_id", strconv.Itoa(userID))
	}

	env, err := cc.Svc.Recommendations.List(cmd.Context(), params)
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		if len(env.Data) == 0 {
			fmt.Fprintln(w, "No recommendations.")
			return
		}

		rows := make([][]string, 0, len(env.Data))
		for _, r := range env.Data {
			rows = append(rows, []string{itoa(r.ID), truncate(r.Title, 40), r.Author, fmt.Sprintf("%.2f", r.Score)})
		}

		printTable(w, []string{"ID", "TITLE", "AUTHOR", "SCORE"}, rows)
	})
}
