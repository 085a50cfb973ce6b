package models

// Category groups channels in the sidebar. Names are unique per user,
// case-insensitively. Channels hold the back-reference; deleting a category
// nulls that reference rather than deleting its channels.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
