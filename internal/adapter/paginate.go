package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// DefaultMaxPages bounds a paginated crawl when the source keeps returning data.
const DefaultMaxPages = 20

// PageSource is the source-specific half of a paginated collection.
type PageSource interface {
	// FetchPage returns the candidates listed on page (zero-based). An empty
	// slice means there are no more pages.
	FetchPage(ctx context.Context, page int) ([]RawRecord, error)
	// FetchDetail completes a candidate, usually by visiting its detail page.
	FetchDetail(ctx context.Context, candidate RawRecord) (RawRecord, error)
	// MapToCanonical maps a completed record.
	MapToCanonical(rec RawRecord) (domain.Listing, error)
}

// StopReason explains why pagination ended.
type StopReason string

const (
	StopEmptyPage   StopReason = "empty_page"
	StopOutOfWindow StopReason = "out_of_window"
	StopPageCeiling StopReason = "page_ceiling"
)

// PaginateOptions bounds a paginated collection.
type PaginateOptions struct {
	Window   domain.DateRange
	Now      time.Time
	MaxPages int
	Logger   logger.Logger
}

// PageResult is the outcome of Paginate.
type PageResult struct {
	Records []RawRecord
	Dropped int
	Pages   int
	Stop    StopReason
}

// Paginate walks pages of a reverse-chronological source. For every page it
// visits each candidate's detail, maps it and keeps it when its posted date
// lies within the window. Undated records are kept. It stops on an empty
// page, on a page whose newest dated item is older than the window start, or
// at the page ceiling. Detail and mapping failures drop only that record.
func Paginate(ctx context.Context, src PageSource, opts PaginateOptions) (PageResult, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	windowStart := opts.Window.WindowStart(opts.Now)

	var res PageResult
	for page := 0; page < opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		candidates, err := src.FetchPage(ctx, page)
		if err != nil {
			return res, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		res.Pages++
		if len(candidates) == 0 {
			res.Stop = StopEmptyPage
			return res, nil
		}

		var newest time.Time
		kept := 0
		for _, candidate := range candidates {
			rec, detailErr := src.FetchDetail(ctx, candidate)
			if detailErr != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Dropped++
				log.Debug("Dropped candidate after detail failure", logger.Error(detailErr))
				continue
			}
			listing, mapErr := src.MapToCanonical(rec)
			if mapErr != nil {
				res.Dropped++
				log.Debug("Dropped candidate after mapping failure", logger.Error(mapErr))
				continue
			}

			posted, dated := listing.Posted()
			if !dated {
				res.Records = append(res.Records, rec)
				kept++
				continue
			}
			if posted.After(newest) {
				newest = posted
			}
			if opts.Window.Contains(posted, opts.Now) {
				res.Records = append(res.Records, rec)
				kept++
			}
		}

		log.Debug("Page processed",
			logger.Int("page", page),
			logger.Int("candidates", len(candidates)),
			logger.Int("kept", kept),
		)

		if !newest.IsZero() && newest.Before(windowStart) {
			res.Stop = StopOutOfWindow
			return res, nil
		}
	}

	res.Stop = StopPageCeiling
	log.Warn("Pagination stopped at page ceiling", logger.Int("max_pages", opts.MaxPages))
	return res, nil
}
