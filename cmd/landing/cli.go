package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HenryOlvera28/landing/internal/catalog"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/tally"
	"github.com/HenryOlvera28/landing/internal/vote"
)

var voteCmd = &cobra.Command{
	Use:   "vote [productID]",
	Short: "Cast one vote and print the tally",
	Args:  cobra.ExactArgs(1),
	RunE:  runVote,
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print the current tally",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the featured products and the categories",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func newCLIFlow(cmd *cobra.Command, deps vote.Deps) *vote.Flow {
	deps.Presenter = render.TablePresenter{W: cmd.OutOrStdout()}
	deps.Logger = logger
	return vote.NewFlow(deps)
}

func runVote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	publish, closePublisher, err := tallyPublisher(ctx)
	if err != nil {
		return err
	}
	defer closePublisher()

	flow := newCLIFlow(cmd, vote.Deps{Votes: store, Tally: tally.NewEngine(store), Publish: publish})

	res, err := flow.Submit(ctx, args[0])
	if err != nil && !errors.Is(err, vote.ErrRefreshFailed) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s)\n", res.Message, res.Record.ID)
	return err
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	flow := newCLIFlow(cmd, vote.Deps{Votes: store, Tally: tally.NewEngine(store)})
	_, err = flow.Refresh(ctx)
	return err
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	page := catalog.NewClient(cfg.Catalog, nil, logger).Load(ctx, cfg.Catalog.FeaturedLimit)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Products:")
	for _, p := range page.Products {
		fmt.Fprintf(out, "  %-8s %-23s $%s\n", p.SubjectID(), p.ShortTitle(), p.Price)
	}
	fmt.Fprintln(out, "Categories:")
	for _, c := range page.Categories {
		fmt.Fprintf(out, "  %-8s %s\n", c.ID, c.Name)
	}

	return errors.Join(page.ProductsErr, page.CategoriesErr)
}
