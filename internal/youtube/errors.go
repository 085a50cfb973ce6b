package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound means the identifier did not resolve to a channel or video,
// including after the search fallback.
var ErrNotFound = errors.New("not found")

// ErrQuotaExceeded means the API rejected the call because the daily unit
// budget is spent. The provider signals this in the error body, not the
// status code alone, so it is detected from the reason field. Callers react
// to it specifically: the sync sweeper aborts and blocks further sweeps.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// FetchError covers transport failures and non-quota API errors. The sync
// sweeper treats these as transient: log, skip the channel, continue.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("youtube %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("youtube %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// errorBody is the API's error envelope.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// apiError maps a non-200 response to the right error kind.
func apiError(op string, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	for _, e := range eb.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return fmt.Errorf("youtube %s: %w", op, ErrQuotaExceeded)
		}
	}
	msg := eb.Error.Message
	if msg == "" {
		msg = string(body)
	}
	return &FetchError{Op: op, Status: status, Err: errors.New(msg)}
}
