package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/catalog"
	"github.com/shelfwise/bookcat/internal/domain"
)

func newBooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "List and manage books",
	}

	cmd.AddCommand(
		newBooksLsCmd(),
		newBooksGetCmd(),
		newBooksAddCmd(),
		newBooksUpdateCmd(),
		newBooksRmCmd(),
		newBooksOptionsCmd(),
		newBooksSummaryCmd(),
		newBooksGenerateSummaryCmd(),
		newBooksReviewsCmd(),
		newBooksReviewCmd(),
	)

	return cmd
}

func newBooksLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE:  runBooksLs,
	}

	cmd.Flags().Int("page", 0, "show only this page (size from [ui] page_size)")

	return cmd
}

func newBooksGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE:  runBooksGet,
	}
}

func newBooksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a book",
		Long: `Create a book referencing an existing author and genre by id, or create
the author and genre first with --new-author and --new-genre.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runBooksAdd,
	}

	addBookFlags(cmd)
	cmd.Flags().String("new-author", "", "create an author with this name")
	cmd.Flags().String("new-genre", "", "create a genre with this name")
	_ = cmd.MarkFlagRequired("title")
	cmd.MarkFlagsRequiredTogether("new-author", "new-genre")
	cmd.MarkFlagsMutuallyExclusive("new-author", "author-id")
	cmd.MarkFlagsMutuallyExclusive("new-genre", "genre-id")

	return cmd
}

func newBooksUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change fields of a book",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runBooksUpdate,
	}

	addBookFlags(cmd)

	return cmd
}

func newBooksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Short:   "Delete a book",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runBooksRm,
	}
}

func newBooksOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the authors and genres a book can reference",
		Args:  cobra.NoArgs,
		RunE:  runBooksOptions,
	}
}

func newBooksSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Show the stored summary of a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runBooksSummary,
	}
}

func newBooksGenerateSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "generate-summary <id>",
		Short:   "Ask the backend to generate a summary for a book",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runBooksGenerateSummary,
	}
}

func newBooksReviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviews <id>",
		Short: "List the reviews of a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runBooksReviews,
	}
}

func newBooksReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "review <id>",
		Short:   "Add a review to a book",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runBooksReview,
	}

	cmd.Flags().Int("rating", 0, "rating from 1 to 5 (required)")
	cmd.Flags().String("text", "", "review text")
	cmd.Flags().Int("user-id", 0, "reviewing user id")
	_ = cmd.MarkFlagRequired("rating")

	return cmd
}

func addBookFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "book title")
	cmd.Flags().Int("author-id", 0, "existing author id")
	cmd.Flags().Int("genre-id", 0, "existing genre id")
	cmd.Flags().Int("year", 0, "year published")
}

// bookInput collects the flags the user set; unset flags stay zero and are
// omitted from the request body.
func bookInput(cmd *cobra.Command) domain.BookInput {
	var in domain.BookInput

	in.Title, _ = cmd.Flags().GetString("title")
	in.AuthorID, _ = cmd.Flags().GetInt("author-id")
	in.GenreID, _ = cmd.Flags().GetInt("genre-id")
	in.YearPublished, _ = cmd.Flags().GetInt("year")

	return in
}

// parseID parses a positional resource id.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}

	return id, nil
}

// page returns the pageNum-th slice of items, 1-based. Zero means all.
func page[T any](items []T, pageNum, size int) []T {
	if pageNum <= 0 || size <= 0 {
		return items
	}

	// Compare page indexes before multiplying so a huge --page cannot overflow.
	if len(items) == 0 || pageNum-1 > (len(items)-1)/size {
		return nil
	}

	start := (pageNum - 1) * size

	return items[start:min(start+size, len(items))]
}

func runBooksLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.Books.List(cmd.Context())
	if err != nil {
		return err
	}

	pageNum, _ := cmd.Flags().GetInt("page")
	books := page(env.Data, pageNum, cc.Cfg.UI.PageSize)

	return cc.emit(books, env.Substituted, func(w io.Writer) {
		printBooks(w, books)
	})
}

func printBooks(w io.Writer, books []domain.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}

	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{itoa(b.ID), truncate(b.Title, 40), b.Author, b.Genre, itoa(b.YearPublished)})
	}

	printTable(w, []string{"ID", "TITLE", "AUTHOR", "GENRE", "YEAR"}, rows)
}

func printBook(w io.Writer, b domain.Book) {
	fmt.Fprintf(w, "ID:     %d\n", b.ID)
	fmt.Fprintf(w, "Title:  %s\n", b.Title)

	if b.Author != "" {
		fmt.Fprintf(w, "Author: %s\n", b.Author)
	}

	if b.Genre != "" {
		fmt.Fprintf(w, "Genre:  %s\n", b.Genre)
	}

	if b.YearPublished != 0 {
		fmt.Fprintf(w, "Year:   %d\n", b.YearPublished)
	}

	if b.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", b.Summary)
	}
}

func runBooksGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Books.Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	if env.Data == nil {
		return fmt.Errorf("book %d not found", id)
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		printBook(w, *env.Data)
	})
}

func runBooksAdd(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	in := bookInput(cmd)

	newAuthor, _ := cmd.Flags().GetString("new-author")
	newGenre, _ := cmd.Flags().GetString("new-genre")

	if newAuthor != "" {
		book, err := cc.Svc.Books.AddWithNewRefs(cmd.Context(), catalog.NewBook{
			Title:         in.Title,
			AuthorName:    newAuthor,
			GenreName:     newGenre,
			YearPublished: in.YearPublished,
		})
		if err != nil {
			return err
		}

		return cc.emitMessage(book, false, fmt.Sprintf("Created book %d %q.", book.ID, book.Title))
	}

	if in.AuthorID == 0 || in.GenreID == 0 {
		return errors.New("--author-id and --genre-id are required unless --new-author and --new-genre are given")
	}

	env, err := cc.Svc.Books.Create(cmd.Context(), in)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Created book %d %q.", env.Data.ID, env.Data.Title))
}

func runBooksUpdate(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	in := bookInput(cmd)
	if in == (domain.BookInput{}) {
		return errors.New("nothing to update: set at least one of --title, --author-id, --genre-id, --year")
	}

	env, err := cc.Svc.Books.Update(cmd.Context(), id, in)
	if err != nil {
		return err
	}

	if env.Data == nil {
		return fmt.Errorf("book %d not found", id)
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Updated book %d.", id))
}

func runBooksRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Books.Delete(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, messageOr(env.Data, fmt.Sprintf("Deleted book %d.", id)))
}

// formOptionsOutput is the schema for `books options --json`.
type formOptionsOutput struct {
	Authors []domain.Author `json:"authors" yaml:"authors"`
	Genres  []domain.Genre  `json:"genres" yaml:"genres"`
}

func runBooksOptions(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	opts, err := cc.Svc.Books.FormOptions(cmd.Context())
	if err != nil {
		return err
	}

	out := formOptionsOutput{Authors: opts.Authors, Genres: opts.Genres}

	return cc.emit(out, opts.Substituted, func(w io.Writer) {
		fmt.Fprintln(w, "Authors:")
		printAuthors(w, opts.Authors)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Genres:")
		printGenres(w, opts.Genres)
	})
}

func runBooksSummary(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Books.Summary(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, summaryText(env.Data))
}

func runBooksGenerateSummary(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	cc.Statusf("Generating summary for book %d...\n", id)

	env, err := cc.Svc.Books.GenerateSummary(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, summaryText(env.Data))
}

func summaryText(s domain.BookSummary) string {
	switch {
	case s.Summary != "":
		return s.Summary
	case s.Message != "":
		return s.Message
	default:
		return "No summary available."
	}
}

func runBooksReviews(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Reviews.List(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		if len(env.Data) == 0 {
			fmt.Fprintln(w, "No reviews yet.")
			return
		}

		rows := make([][]string, 0, len(env.Data))
		for _, r := range env.Data {
			rows = append(rows, []string{itoa(r.ID), itoa(r.UserID), strconv.Itoa(r.Rating), truncate(r.ReviewText, 60)})
		}

		printTable(w, []string{"ID", "USER", "RATING", "REVIEW"}, rows)
	})
}

func runBooksReview(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	rating, _ := cmd.Flags().GetInt("rating")
	if rating < 1 || rating > 5 {
		return fmt.Errorf("--rating must be between 1 and 5, got %d", rating)
	}

	text, _ := cmd.Flags().GetString("text")
	userID, _ := cmd.Flags().GetInt("user-id")

	env, err := cc.Svc.Reviews.Add(cmd.Context(), id, domain.Review{
		UserID:     userID,
		ReviewText: text,
		Rating:     rating,
	})
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Added review to book %d.", id))
}

// messageOr returns the backend's message, or fallback when it sent none.
func messageOr(m domain.Message, fallback string) string {
	if m.Message != "" {
		return m.Message
	}

	return fallback
}
