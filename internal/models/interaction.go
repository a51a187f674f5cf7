package models

import "time"

// InteractionRecord holds the engagement state of one post. It is stored
// apart from the post and may outlive it.
//
// Liked records whether "the viewer" liked the post. The store has no notion
// of distinct readers, so this flag is shared by everyone reading the record.
type InteractionRecord struct {
	Likes           int       `json:"likes"`
	Liked           bool      `json:"liked"`
	Comments        []Comment `json:"comments"`
	Bookmarked      bool      `json:"bookmarked"`
	Views           int       `json:"views"`
	LastInteraction time.Time `json:"lastInteraction,omitzero"`
}

// ZeroInteraction is the state of a post nobody has interacted with.
func ZeroInteraction() InteractionRecord {
	return InteractionRecord{Comments: []Comment{}}
}

// StatsPatch is a partial update of an InteractionRecord.
type StatsPatch struct {
	Likes      *int       `json:"likes,omitempty" validate:"omitempty,min=0"`
	Liked      *bool      `json:"liked,omitempty"`
	Comments   *[]Comment `json:"comments,omitempty"`
	Bookmarked *bool      `json:"bookmarked,omitempty"`
	Views      *int       `json:"views,omitempty" validate:"omitempty,min=0"`
}

// Apply merges the patch into r.
func (patch StatsPatch) Apply(r *InteractionRecord) {
	if patch.Likes != nil {
		r.Likes = *patch.Likes
	}
	if patch.Liked != nil {
		r.Liked = *patch.Liked
	}
	if patch.Comments != nil {
		r.Comments = append([]Comment{}, (*patch.Comments)...)
	}
	if patch.Bookmarked != nil {
		r.Bookmarked = *patch.Bookmarked
	}
	if patch.Views != nil {
		r.Views = *patch.Views
	}
}

// UserStats aggregates a user's content and engagement totals
type UserStats struct {
	TotalPosts     int `json:"totalPosts"`
	TotalDrafts    int `json:"totalDrafts"`
	TotalBookmarks int `json:"totalBookmarks"`
	TotalLikes     int `json:"totalLikes"`
	TotalComments  int `json:"totalComments"`
	TotalViews     int `json:"totalViews"`
}
