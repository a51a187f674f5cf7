package models

import "time"

// Snapshot is a full export of posts, drafts and their interaction records.
type Snapshot struct {
	Posts        []Post                       `json:"posts"`
	Drafts       []Post                       `json:"drafts"`
	Interactions map[string]InteractionRecord `json:"interactions"`
	ExportDate   time.Time                    `json:"exportDate"`
}
