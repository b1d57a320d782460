package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lo-bi/vintedreposter/internal/repost"
	"github.com/lo-bi/vintedreposter/internal/store"
	"github.com/lo-bi/vintedreposter/internal/vinted"
)

func newRepostCmd() *cobra.Command {
	var (
		configPath  string
		curlPath    string
		itemID      int64
		yes         bool
		concurrency int
		brandID     int64
		sizeID      int64
		catalogID   int64
		statusID    int64
	)

	cmd := &cobra.Command{
		Use:   "repost",
		Short: "Clone a listing into a fresh one and delete the original",
		Long: `Reposts one of your listings: downloads its photos, re-uploads them
under a new upload session, deletes the original listing, and creates an
identical new one.

The delete only happens once at least one photo transferred successfully.
If creating the clone fails after the original was already deleted, the
original listing's data is printed and saved to a recovery file so you can
recreate it by hand.`,
		Example: `  # Repost listing 123456789 using a captured request
  vintedreposter repost --item 123456789 --curl request.txt

  # Skip the confirmation prompt
  vintedreposter repost --item 123456789 --curl request.txt --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if itemID <= 0 {
				return errors.New("--item is required and must be a listing id")
			}

			a, err := loadApp(configPath, curlPath)
			if err != nil {
				return err
			}

			if !yes && !confirm(fmt.Sprintf("Repost listing %d? The original will be deleted. This cannot be undone.", itemID)) {
				fmt.Println("Aborted.")
				return nil
			}

			if concurrency <= 0 {
				concurrency = a.cfg.PhotoConcurrency
			}
			orchestrator := &repost.Orchestrator{
				Market:      a.client,
				Transport:   a.client,
				Resolver:    a.resolver,
				Concurrency: concurrency,
				RecoveryDir: a.cfg.RecoveryDir,
				PrepareSource: func(ctx context.Context, src *vinted.Listing) error {
					applyIDOverrides(src, brandID, sizeID, catalogID, statusID)
					if yes {
						return nil
					}
					return promptMissingIDs(os.Stdin, src)
				},
			}

			result, err := orchestrator.Run(cmd.Context(), itemID, nil)

			var createFailed *repost.CreateFailedError
			if errors.As(err, &createFailed) {
				reportRecovery(result, createFailed)
				return err
			}
			if err != nil {
				return err
			}

			fmt.Printf("Listing republished: %d -> %d (%d photos)\n", result.OriginalID, result.NewListingID, result.Uploaded)
			updateSeenCache(a.cfg.CachePath, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
	cmd.Flags().StringVar(&curlPath, "curl", "", "File containing the cURL request copied from the browser (stdin when omitted)")
	cmd.Flags().Int64Var(&itemID, "item", 0, "ID of the listing to repost")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().IntVar(&concurrency, "photo-concurrency", 0, "Concurrent photo transfers (0 uses the configured default)")
	cmd.Flags().Int64Var(&brandID, "brand-id", 0, "Brand id to use when the listing lacks one")
	cmd.Flags().Int64Var(&sizeID, "size-id", 0, "Size id to use when the listing lacks one")
	cmd.Flags().Int64Var(&catalogID, "catalog-id", 0, "Catalog id to use when the listing lacks one")
	cmd.Flags().Int64Var(&statusID, "status-id", 0, "Condition status id to use when the listing lacks one")

	return cmd
}

// applyIDOverrides copies flag-supplied catalog ids onto the source
// listing; 0 means the flag was not given.
func applyIDOverrides(src *vinted.Listing, brandID, sizeID, catalogID, statusID int64) {
	set := func(dst **int64, v int64) {
		if v > 0 {
			*dst = &v
		}
	}
	set(&src.BrandID, brandID)
	set(&src.SizeID, sizeID)
	set(&src.CatalogID, catalogID)
	set(&src.StatusID, statusID)
}

// promptMissingIDs asks for the ids the create endpoint usually rejects a
// listing without, while the original is still untouched. Blank input
// leaves a field unset; a value that does not parse aborts the run.
func promptMissingIDs(in io.Reader, src *vinted.Listing) error {
	fields := []struct {
		name string
		dst  **int64
	}{
		{"brand_id", &src.BrandID},
		{"size_id", &src.SizeID},
		{"catalog_id", &src.CatalogID},
		{"status_id", &src.StatusID},
	}

	reader := bufio.NewReader(in)
	for _, f := range fields {
		if *f.dst != nil {
			continue
		}
		fmt.Printf("The listing has no %s; the new listing may be rejected without it.\nEnter %s (blank to leave unset): ", f.name, f.name)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			// Stdin exhausted (e.g. the cURL text was piped in); nothing
			// more to ask.
			slog.Warn("Cannot prompt for missing fields, continuing without", "field", f.name)
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			slog.Warn("Leaving field unset", "field", f.name)
			continue
		}
		id, parseErr := strconv.ParseInt(line, 10, 64)
		if parseErr != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, line, parseErr)
		}
		v := id
		*f.dst = &v
	}
	return nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// reportRecovery prints the deleted listing's data so it survives even if
// the recovery file could not be written.
func reportRecovery(result *repost.Result, createFailed *repost.CreateFailedError) {
	fmt.Println()
	fmt.Println("The original listing was deleted but creating the clone failed.")
	fmt.Println("Save the data below to recreate it manually:")
	fmt.Println()
	if data, err := yaml.Marshal(createFailed.Summary); err == nil {
		fmt.Println(string(data))
	}
	if result != nil && result.SummaryPath != "" {
		fmt.Printf("A copy was saved to: %s\n", result.SummaryPath)
	}
}

// updateSeenCache moves the timestamp cache entry from the old listing to
// the new one. Best effort only.
func updateSeenCache(path string, result *repost.Result) {
	if path == "" {
		return
	}
	seen, err := store.Open(path)
	if err != nil {
		slog.Debug("Could not open listing timestamp cache", "path", path, "error", err)
		return
	}
	defer seen.Close()
	if err := seen.Delete(result.OriginalID); err != nil {
		slog.Debug("Could not drop cache entry", "listing", result.OriginalID, "error", err)
	}
	if err := seen.Put(result.NewListingID, time.Now()); err != nil {
		slog.Debug("Could not cache creation time", "listing", result.NewListingID, "error", err)
	}
}
