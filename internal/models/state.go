package models

import "time"

// VideoState is the per-video mutable annotation layer: read/save/delete
// flags plus optional custom title, AI summary, and notes. A row exists only
// once the user first touches the video; writes are upsert-by-video-id.
type VideoState struct {
	VideoID     string    `json:"video_id"`
	Seen        bool      `json:"seen"`
	Saved       bool      `json:"saved"`
	Deleted     bool      `json:"deleted"`
	CustomTitle string    `json:"custom_title,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// VideoStateUpdate is a partial update; nil fields are left unchanged.
type VideoStateUpdate struct {
	Seen        *bool   `json:"seen,omitempty"`
	Saved       *bool   `json:"saved,omitempty"`
	Deleted     *bool   `json:"deleted,omitempty"`
	CustomTitle *string `json:"custom_title,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// Apply merges the non-nil fields of u into s and stamps LastUpdated.
func (s *VideoState) Apply(u VideoStateUpdate, now time.Time) {
	if u.Seen != nil {
		s.Seen = *u.Seen
	}
	if u.Saved != nil {
		s.Saved = *u.Saved
	}
	if u.Deleted != nil {
		s.Deleted = *u.Deleted
	}
	if u.CustomTitle != nil {
		s.CustomTitle = *u.CustomTitle
	}
	if u.Summary != nil {
		s.Summary = *u.Summary
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	s.LastUpdated = now
}
