// Package photos moves listing photos from their source URLs to fresh
// server-side handles under a new upload session.
package photos

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lo-bi/vintedreposter/internal/session"
	"github.com/lo-bi/vintedreposter/internal/vinted"
)

// DefaultConcurrency is deliberately conservative; the marketplace rate
// limiter is the real ceiling.
const DefaultConcurrency = 3

// Transport is the slice of the marketplace client the transfer needs.
type Transport interface {
	DownloadPhoto(ctx context.Context, photoURL string) (data []byte, contentType string, err error)
	UploadPhoto(ctx context.Context, creds session.Credentials, uploadSessionID, filename string, data []byte, contentType string) (vinted.PhotoHandle, error)
}

// Transfer re-acquires every source photo and uploads it under
// uploadSessionID, returning the server-issued handles. It never fails as a
// whole: a photo that cannot be downloaded or uploaded is logged and
// skipped, so the result can be shorter than the input. Relative order of
// the successful handles always follows the input order, even when photos
// are transferred concurrently.
func Transfer(ctx context.Context, transport Transport, creds session.Credentials, sourcePhotos []vinted.Photo, uploadSessionID string, concurrency int) []vinted.PhotoHandle {
	if len(sourcePhotos) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	type tagged struct {
		index  int
		handle vinted.PhotoHandle
	}
	results := make(chan tagged, len(sourcePhotos))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i, photo := range sourcePhotos {
		group.Go(func() error {
			// Failures only skip this photo; siblings keep going.
			handle, err := transferOne(gctx, transport, creds, photo, uploadSessionID, i)
			if err != nil {
				slog.Warn("Skipping photo", "index", i, "error", err)
				return nil
			}
			results <- tagged{index: i, handle: handle}
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	collected := make([]tagged, 0, len(sourcePhotos))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(a, b int) bool { return collected[a].index < collected[b].index })

	handles := make([]vinted.PhotoHandle, 0, len(collected))
	for _, r := range collected {
		handles = append(handles, r.handle)
	}
	slog.Info("Photo transfer finished", "uploaded", len(handles), "total", len(sourcePhotos))
	return handles
}

func transferOne(ctx context.Context, transport Transport, creds session.Credentials, photo vinted.Photo, uploadSessionID string, index int) (vinted.PhotoHandle, error) {
	photoURL := photo.BestURL()
	if photoURL == "" {
		return vinted.PhotoHandle{}, fmt.Errorf("photo %d has no usable URL", index)
	}

	data, contentType, err := transport.DownloadPhoto(ctx, photoURL)
	if err != nil {
		return vinted.PhotoHandle{}, fmt.Errorf("download failed for %s: %w", photoURL, err)
	}

	filename := fmt.Sprintf("img_%d%s", index+1, extensionFor(contentType))
	handle, err := transport.UploadPhoto(ctx, creds, uploadSessionID, filename, data, contentType)
	if err != nil {
		return vinted.PhotoHandle{}, fmt.Errorf("upload failed for %s: %w", photoURL, err)
	}
	slog.Debug("Photo transferred", "index", index, "photo_id", handle.ID)
	return handle, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
