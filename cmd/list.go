package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lo-bi/vintedreposter/internal/session"
	"github.com/lo-bi/vintedreposter/internal/store"
	"github.com/lo-bi/vintedreposter/internal/vinted"
)

func newListCmd() *cobra.Command {
	var (
		configPath string
		curlPath   string
		perPage    int
		maxPages   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your wardrobe, oldest listings first",
		Long: `Fetches every page of your wardrobe and prints a table of your
listings sorted by age, so the stalest ones are easy to spot before
reposting them.`,
		Example: `  # List wardrobe using a captured request
  vintedreposter list --curl request.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configPath, curlPath)
			if err != nil {
				return err
			}

			userID, err := a.client.UserID()
			if err != nil {
				return fmt.Errorf("could not determine your user id from the session cookies: %w", err)
			}

			ctx := cmd.Context()
			items, err := a.client.WardrobeAll(ctx, userID, perPage, maxPages)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No listings found.")
				return nil
			}

			if creds, err := a.resolver.Resolve(ctx, nil); err != nil {
				slog.Warn("Skipping per-item enrichment, no credentials", "error", err)
			} else {
				enrichListings(ctx, a.client, creds, items)
			}

			seen := openSeenStore(a.cfg.CachePath)
			if seen != nil {
				defer seen.Close()
			}

			rememberCreationTimes(items, seen)
			sortOldestFirst(items, seen)
			renderTable(items, seen)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
	cmd.Flags().StringVar(&curlPath, "curl", "", "File containing the cURL request copied from the browser (stdin when omitted)")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Wardrobe page size")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop after this many wardrobe pages (0 for all)")

	return cmd
}

type listingFetcher interface {
	FetchListing(ctx context.Context, id int64, creds session.Credentials) (*vinted.Listing, error)
}

// enrichListings fetches the full record for wardrobe rows that came back
// without engagement counters or a creation date, so the table is complete
// even on a first run. The client's rate limiter paces the extra requests;
// a row that cannot be enriched just stays sparse.
func enrichListings(ctx context.Context, fetcher listingFetcher, creds session.Credentials, items []vinted.Listing) {
	for i := range items {
		l := &items[i]
		if _, ok := l.CreatedTime(); ok && l.HasStats() {
			continue
		}
		full, err := fetcher.FetchListing(ctx, l.ID, creds)
		if err != nil {
			slog.Debug("Could not enrich listing", "listing", l.ID, "error", err)
			continue
		}
		l.MergeFrom(full)
	}
}

// openSeenStore opens the timestamp cache when configured. The cache is
// purely cosmetic, so failures only log.
func openSeenStore(path string) *store.SeenStore {
	if path == "" {
		return nil
	}
	s, err := store.Open(path)
	if err != nil {
		slog.Warn("Could not open listing timestamp cache", "path", path, "error", err)
		return nil
	}
	return s
}

func rememberCreationTimes(items []vinted.Listing, seen *store.SeenStore) {
	if seen == nil {
		return
	}
	for i := range items {
		if created, ok := items[i].CreatedTime(); ok {
			if err := seen.Put(items[i].ID, created); err != nil {
				slog.Debug("Could not cache creation time", "listing", items[i].ID, "error", err)
			}
		}
	}
}

func createdTime(l *vinted.Listing, seen *store.SeenStore) (time.Time, bool) {
	if created, ok := l.CreatedTime(); ok {
		return created, true
	}
	if seen != nil {
		if created, ok, err := seen.Get(l.ID); err == nil && ok {
			return created, true
		}
	}
	return time.Time{}, false
}

func sortOldestFirst(items []vinted.Listing, seen *store.SeenStore) {
	sort.SliceStable(items, func(a, b int) bool {
		ta, oka := createdTime(&items[a], seen)
		tb, okb := createdTime(&items[b], seen)
		if oka != okb {
			return oka // unknown dates go last
		}
		return ta.Before(tb)
	})
}

func renderTable(items []vinted.Listing, seen *store.SeenStore) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tPRICE\tDAYS\tFAVS\tVIEWS")
	for i := range items {
		l := &items[i]
		days := "?"
		if created, ok := createdTime(l, seen); ok {
			d := int(time.Since(created).Hours() / 24)
			if d < 0 {
				d = 0
			}
			days = fmt.Sprintf("%d", d)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%d\t%d\n",
			i+1, l.ID, l.Title, formatPrice(l), days, l.Favourites(), l.ViewsCount())
	}
	if err := w.Flush(); err != nil {
		slog.Error("Unable to render table", "err", err)
	}
}

func formatPrice(l *vinted.Listing) string {
	var amount float64
	currency := l.PriceCurrency
	switch {
	case l.PriceNumeric != nil:
		amount = l.PriceNumeric.Amount
	case l.Price != nil:
		amount = l.Price.Amount
		if currency == "" {
			currency = l.Price.Currency
		}
	default:
		return ""
	}
	if currency == "" {
		currency = l.Currency
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
