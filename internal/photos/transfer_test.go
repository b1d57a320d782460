package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/lo-bi/vintedreposter/internal/session"
	"github.com/lo-bi/vintedreposter/internal/vinted"
)

// fakeTransport maps photo URLs to handles and records upload order.
type fakeTransport struct {
	mu            sync.Mutex
	failDownload  map[string]bool
	failUpload    map[string]bool
	uploads       []string
	sessionIDs    map[string]bool
	nextID        int64
	downloadCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failDownload: make(map[string]bool),
		failUpload:   make(map[string]bool),
		sessionIDs:   make(map[string]bool),
	}
}

func (f *fakeTransport) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	if f.failDownload[photoURL] {
		return nil, "", errors.New("download refused")
	}
	return []byte("bytes:" + photoURL), "image/jpeg", nil
}

func (f *fakeTransport) UploadPhoto(ctx context.Context, creds session.Credentials, uploadSessionID, filename string, data []byte, contentType string) (vinted.PhotoHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := strings.TrimPrefix(string(data), "bytes:")
	if f.failUpload[url] {
		return vinted.PhotoHandle{}, &vinted.UploadFailedError{StatusCode: 500, Body: "boom"}
	}
	f.uploads = append(f.uploads, url)
	f.sessionIDs[uploadSessionID] = true
	f.nextID++
	// Derive a stable id from the URL so ordering is checkable.
	var id int64
	fmt.Sscanf(url, "https://x/%d.jpg", &id)
	return vinted.PhotoHandle{ID: id, Orientation: 0}, nil
}

func sourcePhotos(n int) []vinted.Photo {
	photos := make([]vinted.Photo, n)
	for i := range photos {
		photos[i] = vinted.Photo{FullSizeURL: fmt.Sprintf("https://x/%d.jpg", i+1)}
	}
	return photos
}

func TestTransferPreservesInputOrder(t *testing.T) {
	transport := newFakeTransport()
	handles := Transfer(context.Background(), transport, session.Credentials{}, sourcePhotos(8), "uuid", 4)

	if len(handles) != 8 {
		t.Fatalf("Expected 8 handles, got %d", len(handles))
	}
	for i, h := range handles {
		if h.ID != int64(i+1) {
			t.Errorf("Expected handle %d at position %d, got %d", i+1, i, h.ID)
		}
	}
	if !transport.sessionIDs["uuid"] {
		t.Error("Expected uploads to carry the upload session id")
	}
}

func TestTransferSkipsFailures(t *testing.T) {
	tests := []struct {
		name        string
		failDown    []string
		failUp      []string
		expectedIDs []int64
	}{
		{
			name:        "download failure skipped",
			failDown:    []string{"https://x/2.jpg"},
			expectedIDs: []int64{1, 3, 4},
		},
		{
			name:        "upload failure skipped",
			failUp:      []string{"https://x/1.jpg", "https://x/4.jpg"},
			expectedIDs: []int64{2, 3},
		},
		{
			name:        "all fail yields empty result",
			failDown:    []string{"https://x/1.jpg", "https://x/2.jpg", "https://x/3.jpg", "https://x/4.jpg"},
			expectedIDs: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			for _, u := range tt.failDown {
				transport.failDownload[u] = true
			}
			for _, u := range tt.failUp {
				transport.failUpload[u] = true
			}

			handles := Transfer(context.Background(), transport, session.Credentials{}, sourcePhotos(4), "uuid", 2)

			if len(handles) != len(tt.expectedIDs) {
				t.Fatalf("Expected %d handles, got %d", len(tt.expectedIDs), len(handles))
			}
			for i, id := range tt.expectedIDs {
				if handles[i].ID != id {
					t.Errorf("Expected handle %d at position %d, got %d", id, i, handles[i].ID)
				}
			}
		})
	}
}

func TestTransferSkipsPhotosWithoutURLs(t *testing.T) {
	transport := newFakeTransport()
	photos := []vinted.Photo{
		{FullSizeURL: "https://x/1.jpg"},
		{}, // no usable URL variant at all
		{ThumbnailURL: "https://x/3.jpg"},
	}

	handles := Transfer(context.Background(), transport, session.Credentials{}, photos, "uuid", 1)

	if len(handles) != 2 {
		t.Fatalf("Expected 2 handles, got %d", len(handles))
	}
	if handles[0].ID != 1 || handles[1].ID != 3 {
		t.Errorf("Expected handles [1 3], got %v", handles)
	}
	if transport.downloadCalls != 2 {
		t.Errorf("Expected 2 download attempts, got %d", transport.downloadCalls)
	}
}

func TestTransferEmptyInput(t *testing.T) {
	handles := Transfer(context.Background(), newFakeTransport(), session.Credentials{}, nil, "uuid", 3)
	if len(handles) != 0 {
		t.Errorf("Expected no handles for empty input, got %v", handles)
	}
}
