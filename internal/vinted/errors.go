package vinted

import (
	"fmt"
	"strings"
)

// ListingUnavailableError means both the editor and the public read
// endpoints refused to return the listing.
type ListingUnavailableError struct {
	StatusCode int
	Body       string
}

func (e *ListingUnavailableError) Error() string {
	return fmt.Sprintf("listing unavailable (status %d): %s", e.StatusCode, e.Body)
}

// ChallengeBlockedError means the marketplace answered with a bot-protection
// challenge instead of the API response. The fix is on the user's side:
// refresh the browser session and paste fresh credentials.
type ChallengeBlockedError struct {
	StatusCode int
}

func (e *ChallengeBlockedError) Error() string {
	return fmt.Sprintf("blocked by a bot-protection challenge (status %d); refresh your session in the browser and retry with fresh cookies", e.StatusCode)
}

// UploadFailedError reports a single failed photo upload. The transfer step
// recovers from it by skipping the photo.
type UploadFailedError struct {
	StatusCode int
	Body       string
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("photo upload failed (status %d): %s", e.StatusCode, e.Body)
}

// challengeMarkers are substrings the bot-protection interstitial pages are
// known to contain while real API error bodies are not.
var challengeMarkers = []string{
	"captcha",
	"datadome",
	"challenge-platform",
}

func isChallenge(status int, body []byte) bool {
	if status != 403 {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// snippet truncates a response body for inclusion in error messages.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
