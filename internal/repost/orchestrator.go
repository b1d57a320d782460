// Package repost sequences the republish pipeline: resolve credentials,
// read the source listing, transfer its photos, delete the original, and
// create the clone. Everything before the delete can abort with zero remote
// side effects; everything after it is committed.
package repost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lo-bi/vintedreposter/internal/payload"
	"github.com/lo-bi/vintedreposter/internal/photos"
	"github.com/lo-bi/vintedreposter/internal/session"
	"github.com/lo-bi/vintedreposter/internal/vinted"
)

// ErrNoPhotosTransferred trips the pre-delete guard: a clone without a
// single photo would be rejected by the marketplace, so the original is
// never touched.
var ErrNoPhotosTransferred = errors.New("no photos could be transferred; original listing left untouched")

// CreateFailedError means the original was already deleted when the create
// failed. The summary it carries is the user's only copy of the listing.
type CreateFailedError struct {
	Summary *Summary
	Err     error
}

func (e *CreateFailedError) Error() string {
	return fmt.Sprintf("clone creation failed after the original listing %d was deleted: %v", e.Summary.ID, e.Err)
}

func (e *CreateFailedError) Unwrap() error {
	return e.Err
}

// State names the pipeline step a run is in, mostly for logs and the
// result report.
type State int

const (
	StateResolvingCredentials State = iota
	StateReadingSource
	StateTransferringPhotos
	StateGuard
	StateDeletingOriginal
	StateCreatingClone
	StateDone
	StateErrorRecovery
)

func (s State) String() string {
	switch s {
	case StateResolvingCredentials:
		return "resolving_credentials"
	case StateReadingSource:
		return "reading_source"
	case StateTransferringPhotos:
		return "transferring_photos"
	case StateGuard:
		return "guard"
	case StateDeletingOriginal:
		return "deleting_original"
	case StateCreatingClone:
		return "creating_clone"
	case StateDone:
		return "done"
	case StateErrorRecovery:
		return "error_recovery"
	default:
		return "unknown"
	}
}

// Marketplace is the slice of the API client the orchestrator drives.
type Marketplace interface {
	FetchListing(ctx context.Context, id int64, creds session.Credentials) (*vinted.Listing, error)
	DeleteItem(ctx context.Context, id int64, creds session.Credentials) error
	CreateItem(ctx context.Context, p *vinted.ItemPayload, creds session.Credentials) (int64, error)
}

// CredentialResolver produces the per-run credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, pageMarkup []byte) (session.Credentials, error)
}

// Result reports how a run ended. Summary and SummaryPath are only set when
// the run landed in error recovery.
type Result struct {
	OriginalID   int64
	NewListingID int64
	Uploaded     int
	State        State
	Summary      *Summary
	SummaryPath  string
}

// Orchestrator runs one republish per call. It holds no per-run state, so
// a single instance can serve sequential runs.
type Orchestrator struct {
	Market      Marketplace
	Transport   photos.Transport
	Resolver    CredentialResolver
	Concurrency int
	RecoveryDir string

	// PrepareSource, when set, runs right after the source listing is read
	// and may fill in fields the endpoint omitted (catalog, size, status).
	// A create submitted without those ids is the usual way to end up in
	// error recovery, so this is the caller's chance to complete them while
	// aborting is still free. Returning an error stops the run with the
	// original listing intact.
	PrepareSource func(ctx context.Context, src *vinted.Listing) error
}

// Run clones the listing and deletes the original. pageMarkup is optional
// page source the caller already holds for token extraction; nil is fine.
//
// Every failure up to and including the delete returns a nil Result and an
// error, with the original listing intact. After a successful delete the
// run is committed: a create failure returns a Result in the error-recovery
// state together with a CreateFailedError carrying the pre-delete summary.
func (o *Orchestrator) Run(ctx context.Context, listingID int64, pageMarkup []byte) (*Result, error) {
	slog.Info("Republishing listing", "listing", listingID, "state", StateResolvingCredentials)
	creds, err := o.Resolver.Resolve(ctx, pageMarkup)
	if err != nil {
		return nil, fmt.Errorf("credential resolution failed: %w", err)
	}

	slog.Info("Reading source listing", "listing", listingID, "state", StateReadingSource)
	src, err := o.Market.FetchListing(ctx, listingID, creds)
	if err != nil {
		return nil, fmt.Errorf("source listing read failed: %w", err)
	}

	if o.PrepareSource != nil {
		if err := o.PrepareSource(ctx, src); err != nil {
			return nil, fmt.Errorf("source listing not ready to republish: %w", err)
		}
	}

	uploadSessionID := uuid.NewString()
	slog.Info("Transferring photos", "listing", listingID, "photos", len(src.Photos), "state", StateTransferringPhotos)
	handles := photos.Transfer(ctx, o.Transport, creds, src.Photos, uploadSessionID, o.Concurrency)

	if len(handles) == 0 {
		return nil, fmt.Errorf("listing %d: %w", listingID, ErrNoPhotosTransferred)
	}

	// Snapshot before the point of no return.
	summary := NewSummary(src)

	slog.Info("Deleting original listing", "listing", listingID, "state", StateDeletingOriginal)
	if err := o.Market.DeleteItem(ctx, listingID, creds); err != nil {
		return nil, fmt.Errorf("delete of original listing failed, nothing was changed: %w", err)
	}

	slog.Info("Creating clone", "listing", listingID, "state", StateCreatingClone)
	clone := payload.Build(src, uploadSessionID, handles)
	newID, err := o.Market.CreateItem(ctx, clone, creds)
	if err != nil {
		slog.Error("Clone creation failed after delete; surfacing original listing data", "listing", listingID, "state", StateErrorRecovery, "error", err)
		result := &Result{
			OriginalID: listingID,
			Uploaded:   len(handles),
			State:      StateErrorRecovery,
			Summary:    summary,
		}
		path, writeErr := summary.WriteFile(o.RecoveryDir)
		if writeErr != nil {
			slog.Error("Could not save recovery summary to disk", "error", writeErr)
		} else {
			result.SummaryPath = path
			slog.Info("Recovery summary saved", "path", path)
		}
		return result, &CreateFailedError{Summary: summary, Err: err}
	}

	slog.Info("Listing republished", "listing", listingID, "new_listing", newID, "photos", len(handles), "state", StateDone)
	return &Result{
		OriginalID:   listingID,
		NewListingID: newID,
		Uploaded:     len(handles),
		State:        StateDone,
	}, nil
}
