package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// refResource adapts the author and genre accessors, which share a shape,
// to one set of commands.
type refResource struct {
	singular string
	plural   string

	list   func(ctx context.Context, cc *CLIContext) (api.Envelope[[]domain.Author], error)
	create func(ctx context.Context, cc *CLIContext, name string) (api.Envelope[domain.Author], error)
	update func(ctx context.Context, cc *CLIContext, id int, name string) (api.Envelope[domain.Author], error)
	remove func(ctx context.Context, cc *CLIContext, id int) (api.Envelope[domain.Message], error)
}

func newAuthorsCmd() *cobra.Command {
	return newRefCmd(refResource{
		singular: "author",
		plural:   "authors",
		list: func(ctx context.Context, cc *CLIContext) (api.Envelope[[]domain.Author], error) {
			return cc.Svc.Authors.List(ctx)
		},
		create: func(ctx context.Context, cc *CLIContext, name string) (api.Envelope[domain.Author], error) {
			return cc.Svc.Authors.Create(ctx, name)
		},
		update: func(ctx context.Context, cc *CLIContext, id int, name string) (api.Envelope[domain.Author], error) {
			return cc.Svc.Authors.Update(ctx, id, name)
		},
		remove: func(ctx context.Context, cc *CLIContext, id int) (api.Envelope[domain.Message], error) {
			return cc.Svc.Authors.Delete(ctx, id)
		},
	})
}

func newGenresCmd() *cobra.Command {
	return newRefCmd(refResource{
		singular: "genre",
		plural:   "genres",
		list: func(ctx context.Context, cc *CLIContext) (api.Envelope[[]domain.Author], error) {
			env, err := cc.Svc.Genres.List(ctx)
			return mapEnvelope(env, genresAsAuthors), err
		},
		create: func(ctx context.Context, cc *CLIContext, name string) (api.Envelope[domain.Author], error) {
			env, err := cc.Svc.Genres.Create(ctx, name)
			return mapEnvelope(env, genreAsAuthor), err
		},
		update: func(ctx context.Context, cc *CLIContext, id int, name string) (api.Envelope[domain.Author], error) {
			env, err := cc.Svc.Genres.Update(ctx, id, name)
			return mapEnvelope(env, genreAsAuthor), err
		},
		remove: func(ctx context.Context, cc *CLIContext, id int) (api.Envelope[domain.Message], error) {
			return cc.Svc.Genres.Delete(ctx, id)
		},
	})
}

func mapEnvelope[A, B any](env api.Envelope[A], f func(A) B) api.Envelope[B] {
	return api.Envelope[B]{Status: env.Status, Data: f(env.Data), Substituted: env.Substituted}
}

// genreAsAuthor converts between the two id/name records; both render and
// encode identically.
func genreAsAuthor(g domain.Genre) domain.Author {
	return domain.Author(g)
}

func genresAsAuthors(gs []domain.Genre) []domain.Author {
	if gs == nil {
		return nil
	}

	out := make([]domain.Author, len(gs))
	for i, g := range gs {
		out[i] = domain.Author(g)
	}

	return out
}

func newRefCmd(res refResource) *cobra.Command {
	cmd := &cobra.Command{
		Use:   res.plural,
		Short: fmt.Sprintf("List and manage %s", res.plural),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: fmt.Sprintf("List %s", res.plural),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cc := mustCLIContext(cmd.Context())

				env, err := res.list(cmd.Context(), cc)
				if err != nil {
					return err
				}

				return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
					if len(env.Data) == 0 {
						fmt.Fprintf(w, "No %s found.\n", res.plural)
						return
					}

					printAuthors(w, env.Data)
				})
			},
		},
		&cobra.Command{
			Use:     "add <name>",
			Short:   fmt.Sprintf("Create a %s", res.singular),
			Args:    cobra.ExactArgs(1),
			PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
			RunE: func(cmd *cobra.Command, args []string) error {
				cc := mustCLIContext(cmd.Context())

				env, err := res.create(cmd.Context(), cc, args[0])
				if err != nil {
					return err
				}

				return cc.emitMessage(env.Data, env.Substituted,
					fmt.Sprintf("Created %s %d %q.", res.singular, env.Data.ID, env.Data.Name))
			},
		},
		&cobra.Command{
			Use:     "update <id> <name>",
			Short:   fmt.Sprintf("Rename a %s", res.singular),
			Args:    cobra.ExactArgs(2),
			PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
			RunE: func(cmd *cobra.Command, args []string) error {
				cc := mustCLIContext(cmd.Context())

				id, err := parseID(args[0])
				if err != nil {
					return err
				}

				env, err := res.update(cmd.Context(), cc, id, args[1])
				if err != nil {
					return err
				}

				return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Updated %s %d.", res.singular, id))
			},
		},
		&cobra.Command{
			Use:     "rm <id>",
			Short:   fmt.Sprintf("Delete a %s", res.singular),
			Args:    cobra.ExactArgs(1),
			PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
			RunE: func(cmd *cobra.Command, args []string) error {
				cc := mustCLIContext(cmd.Context())

				id, err := parseID(args[0])
				if err != nil {
					return err
				}

				env, err := res.remove(cmd.Context(), cc, id)
				if err != nil {
					return err
				}

				return cc.emitMessage(env.Data, env.Substituted,
					messageOr(env.Data, fmt.Sprintf("Deleted %s %d.", res.singular, id)))
			},
		},
	)

	return cmd
}

func printAuthors(w io.Writer, refs []domain.Author) {
	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, []string{itoa(r.ID), r.Name})
	}

	printTable(w, []string{"ID", "NAME"}, rows)
}

func printGenres(w io.Writer, genres []domain.Genre) {
	printAuthors(w, genresAsAuthors(genres))
}
