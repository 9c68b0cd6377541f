// Package run provides a command that executes one operation in process and
// prints the collected listings.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/jobsweep/cmd/common"
	"github.com/jonesrussell/jobsweep/internal/bootstrap"
	"github.com/jonesrussell/jobsweep/internal/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"

	titleWidth = 48
)

// ErrOperationFailed is returned when no source completed.
var ErrOperationFailed = errors.New("operation failed")

type flags struct {
	sources   []string
	dateRange string
	keywords  string
	user      string
	output    string
	limit     int
}

// Command creates the run command.
func Command() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one operation and print the listings",
		Long: `Runs the selected sources sequentially in this process, without the
queue or the HTTP server, and prints the aggregated listings.

Example:
  jobsweep run --sources kalibrr,jobstreet --date-range PAST_WEEK --keywords golang`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, f)
		},
	}

	all := common.SourceNames(domain.AllSources)
	cmd.Flags().StringSliceVarP(&f.sources, "sources", "s", all, "sources to query")
	cmd.Flags().StringVarP(&f.dateRange, "date-range", "d", string(domain.PastWeek),
		"PAST_24_HOURS, PAST_WEEK, PAST_15_DAYS or PAST_MONTH")
	cmd.Flags().StringVarP(&f.keywords, "keywords", "k", "", "search keywords")
	cmd.Flags().StringVar(&f.user, "user", "cli", "requesting user recorded on the operation")
	cmd.Flags().StringVarP(&f.output, "output", "o", outputTable, "output format: table or json")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum listings to print (0 prints all)")

	return cmd
}

func execute(cmd *cobra.Command, f *flags) error {
	if f.output != outputTable && f.output != outputJSON {
		return fmt.Errorf("unknown output format %q", f.output)
	}

	sources, err := common.ParseSources(f.sources)
	if err != nil {
		return err
	}

	deps, err := common.Deps()
	if err != nil {
		return err
	}
	defer func() { _ = deps.Logger.Sync() }()

	params := domain.SearchParameters{
		Sources:        sources,
		DateRange:      domain.DateRange(f.dateRange),
		Keywords:       f.keywords,
		RequestingUser: f.user,
	}

	op, err := bootstrap.RunOnce(cmd.Context(), deps, params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.output == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err = enc.Encode(op); err != nil {
			return fmt.Errorf("failed to encode operation: %w", err)
		}
	} else {
		renderSummary(out, op)
		renderListings(out, op.AggregatedListings, f.limit)
	}

	if op.Outcome == domain.OutcomeFailed || op.Outcome == domain.OutcomeInternalError {
		return fmt.Errorf("%w: %s", ErrOperationFailed, op.Outcome)
	}
	return nil
}

func renderSummary(w io.Writer, op *domain.Operation) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Operation %s (%s)", op.RequestID, op.Outcome)
	t.AppendHeader(table.Row{"Source", "State", "Listings", "Error"})
	for _, s := range op.Sources {
		t.AppendRow(table.Row{s, op.PerSourceState[s], op.PerSourceCount[s], op.PerSourceError[s]})
	}
	t.AppendFooter(table.Row{"", "Total", op.ListingsCount, ""})
	t.Render()
}

func renderListings(w io.Writer, listings domain.Listings, limit int) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings collected")
		return
	}
	if limit > 0 && limit < len(listings) {
		listings = listings[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: titleWidth, WidthMaxEnforcer: text.WrapSoft},
	})
	t.AppendHeader(table.Row{"Source", "Posted", "Title", "Company", "Location", "URL"})
	for i := range listings {
		l := &listings[i]
		t.AppendRow(table.Row{l.Source, l.PostedDate, strings.TrimSpace(l.Title), l.Company, l.Location, l.URL})
	}
	t.Render()
}
