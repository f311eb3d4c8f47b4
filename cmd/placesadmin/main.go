// backend/cmd/placesadmin/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Ayash-Bera/placefinder/backend/internal/config"
	"github.com/Ayash-Bera/placefinder/backend/internal/database"
	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/Ayash-Bera/placefinder/backend/internal/repository"
	"github.com/Ayash-Bera/placefinder/backend/internal/services"
	"github.com/Ayash-Bera/placefinder/backend/pkg/utils"
	"github.com/joho/godotenv"
)

const usage = `usage: placesadmin <command> [flags]

commands:
  queries [-search text] [-since RFC3339]   list recorded searches
  results [-search text] [-rating x]        list stored results
  show -id N                                show one search with its results
  delete -id N                              delete a search and its results
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	utils.SetLogLevel(cfg.Log.Level)

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	var cache services.ResultsCache
	if dbManager.Redis != nil {
		cache = database.NewCache(dbManager.Redis, cfg.Cache.ResultsTTL, logger)
	}

	// The admin tool never searches, so no places client is wired.
	svc := services.NewSearchService(nil, repository.NewRepositoryManager(dbManager.DB), cache, logger)

	if err := run(context.Background(), svc, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		dbManager.Close()
		os.Exit(2)
	}
}

func run(ctx context.Context, svc *services.SearchService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "queries":
		return listQueries(ctx, svc, rest, out)
	case "results":
		return listResults(ctx, svc, rest, out)
	case "show":
		return showQuery(ctx, svc, rest, out)
	case "delete":
		return deleteQuery(ctx, svc, rest, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func listQueries(ctx context.Context, svc *services.SearchService, args []string, out io.Writer) error {
	fs := newFlagSet("queries")
	search := fs.String("search", "", "match query text")
	since := fs.String("since", "", "only searches created at or after this RFC3339 time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.QueryFilter{Search: *search}
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			return fmt.Errorf("invalid -since: %w", err)
		}
		filter.Since = &t
	}

	queries, err := svc.FindQueries(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUERY\tLATITUDE\tLONGITUDE\tRADIUS\tCREATED AT")
	for _, q := range queries {
		fmt.Fprintf(w, "%d\t%s\t%v\t%v\t%d\t%s\n",
			q.ID, q.Query, q.Latitude, q.Longitude, q.Radius, q.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func listResults(ctx context.Context, svc *services.SearchService, args []string, out io.Writer) error {
	fs := newFlagSet("results")
	search := fs.String("search", "", "match name or address")
	rating := fs.Float64("rating", -1, "exact rating")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.ResultFilter{Search: *search}
	if *rating >= 0 {
		filter.Rating = rating
	}

	results, err := svc.FindResults(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeResults(w, results)
	return w.Flush()
}

func showQuery(ctx context.Context, svc *services.SearchService, args []string, out io.Writer) error {
	id, err := parseID("show", args)
	if err != nil {
		return err
	}

	query, err := svc.Query(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "#%d %s radius=%d created=%s\n",
		query.ID, query, query.Radius, query.CreatedAt.Format(time.RFC3339))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeResults(w, query.Results)
	return w.Flush()
}

func deleteQuery(ctx context.Context, svc *services.SearchService, args []string, out io.Writer) error {
	id, err := parseID("delete", args)
	if err != nil {
		return err
	}

	if err := svc.DeleteQuery(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted search %d\n", id)
	return nil
}

func parseID(name string, args []string) (uint, error) {
	fs := newFlagSet(name)
	id := fs.Uint("id", 0, "search query id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id == 0 {
		return 0, fmt.Errorf("%s: -id is required", name)
	}
	return *id, nil
}

func writeResults(w io.Writer, results []models.SearchResult) {
	fmt.Fprintln(w, "ID\tPLACE ID\tNAME\tADDRESS\tRATING\tQUALITY")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.PlaceID, r.Name, orDash(r.Address), formatRating(r.Rating), orDash(r.CustomData.Quality))
	}
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}

func formatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *r)
}
