package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/catalog"
	"github.com/shelfwise/bookcat/internal/domain"
)

func newRAGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Search documents and ask questions about them",
	}

	cmd.AddCommand(
		newRAGSearchCmd(),
		newRAGAskCmd(),
		newRAGQuickCmd(),
		newRAGStatsCmd(),
		newRAGRebuildCmd(),
	)

	return cmd
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-results", catalog.DefaultMaxResults, "maximum passages to retrieve")
	cmd.Flags().Float64("threshold", catalog.DefaultThreshold, "minimum similarity score")
}

func searchOptions(cmd *cobra.Command) catalog.SearchOptions {
	var opts catalog.SearchOptions

	opts.MaxResults, _ = cmd.Flags().GetInt("max-results")
	opts.Threshold, _ = cmd.Flags().GetFloat64("threshold")

	return opts
}

func newRAGSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Find passages matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRAGSearch,
	}

	addSearchFlags(cmd)

	return cmd
}

func newRAGAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Answer a question from the retrieved passages",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRAGAsk,
	}

	addSearchFlags(cmd)

	return cmd
}

func newRAGQuickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quick <query>...",
		Short: "Search and answer in one request",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRAGQuick,
	}

	cmd.Flags().Int("limit", catalog.DefaultQuickLimit, "maximum results")

	return cmd
}

func newRAGStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE:  runRAGStats,
	}
}

func newRAGRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rebuild",
		Short:   "Start a rebuild of the search index",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireAdmin(cmd) },
		RunE:    runRAGRebuild,
	}
}

func queryArg(args []string) (string, error) {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	return q, nil
}

func runRAGSearch(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	q, err := queryArg(args)
	if err != nil {
		return err
	}

	env, err := cc.Svc.RAG.Search(cmd.Context(), q, searchOptions(cmd))
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		printSearchResults(w, env.Data)
	})
}

func printSearchResults(w io.Writer, hits []domain.SearchResult) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching passages.")
		return
	}

	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{
			fmt.Sprintf("%.2f", h.Score),
			truncate(h.Title, 30),
			truncate(h.Source, 24),
			truncate(h.Content, 60),
		})
	}

	printTable(w, []string{"SCORE", "TITLE", "SOURCE", "PASSAGE"}, rows)
}

// askOutput is the schema for `rag ask --json`.
type askOutput struct {
	Question string                 `json:"question" yaml:"question"`
	Answer   domain.GeneratedAnswer `json:"answer" yaml:"answer"`
	Passages []domain.SearchResult  `json:"passages" yaml:"passages"`
}

// runRAGAsk retrieves passages, then generates an answer from them. The
// second request needs the first one's results, so they run in order.
func runRAGAsk(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	q, err := queryArg(args)
	if err != nil {
		return err
	}

	hits, err := cc.Svc.RAG.Search(cmd.Context(), q, searchOptions(cmd))
	if err != nil {
		return fmt.Errorf("retrieving passages: %w", err)
	}

	answer, err := cc.Svc.RAG.Generate(cmd.Context(), q, hits.Data)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	out := askOutput{Question: q, Answer: answer.Data, Passages: hits.Data}

	return cc.emit(out, hits.Substituted || answer.Substituted, func(w io.Writer) {
		fmt.Fprintln(w, answer.Data.Answer)

		if len(answer.Data.Sources) > 0 {
			fmt.Fprintf(w, "\nSources: %s\n", strings.Join(answer.Data.Sources, ", "))
		}

		if answer.Data.Confidence > 0 {
			fmt.Fprintf(w, "Confidence: %.0f%%\n", answer.Data.Confidence*100)
		}
	})
}

func runRAGQuick(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	q, err := queryArg(args)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	env, err := cc.Svc.RAG.QuickSearch(cmd.Context(), q, limit)
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		if env.Data.Answer != "" {
			fmt.Fprintf(w, "%s\n\n", env.Data.Answer)
		}

		printSearchResults(w, env.Data.Results)
	})
}

func runRAGStats(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.RAG.Stats(cmd.Context())
	if err != nil {
		return err
	}

	s := env.Data

	return cc.emit(s, env.Substituted, func(w io.Writer) {
		fmt.Fprintf(w, "Documents:   %d (%d indexed)\n", s.TotalDocuments, s.IndexedDocuments)
		fmt.Fprintf(w, "Embeddings:  %d\n", s.TotalEmbeddings)
		fmt.Fprintf(w, "Index:       %s\n", s.IndexStatus)
		fmt.Fprintf(w, "Updated:     %s\n", s.LastUpdated)
	})
}

func runRAGRebuild(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.RAG.RebuildIndex(cmd.Context())
	if err != nil {
		return err
	}

	j := env.Data

	return cc.emit(j, env.Substituted, func(w io.Writer) {
		fmt.Fprintln(w, j.Message)

		if j.JobID != "" {
			fmt.Fprintf(w, "Job: %s\n", j.JobID)
		}

		if j.EstimatedTime != "" {
			fmt.Fprintf(w, "Estimated time: %s\n", j.EstimatedTime)
		}
	})
}
