package models

import "time"

// Status is the lifecycle state of a content record.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Post is a content record. Published posts and drafts share this shape and
// differ only in Status and in the collection that holds them.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Images      []string  `json:"images"` // encoded image payloads, passed through untouched
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"authorEmail"`
	Likes       int       `json:"likes"`    // denormalized at creation time
	Comments    []Comment `json:"comments"` // denormalized at creation time
	Views       int       `json:"views"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PostInput defines the fields a caller supplies when creating a post or draft
type PostInput struct {
	Title       string   `json:"title" validate:"notblank,max=100"`
	Content     string   `json:"content" validate:"notblank,max=5000"`
	Images      []string `json:"images,omitempty" validate:"max=4"`
	AuthorID    string   `json:"authorId"`
	AuthorName  string   `json:"authorName"`
	AuthorEmail string   `json:"authorEmail"`
}

// WithAuthor fills the author fields from the current actor.
func (in PostInput) WithAuthor(id Identity) PostInput {
	in.AuthorID = id.UID
	in.AuthorName = id.DisplayName
	in.AuthorEmail = id.Email
	return in
}

// PostPatch is a partial update. Nil fields are left unchanged.
type PostPatch struct {
	Title       *string   `json:"title,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Images      *[]string `json:"images,omitempty"`
	AuthorID    *string   `json:"authorId,omitempty"`
	AuthorName  *string   `json:"authorName,omitempty"`
	AuthorEmail *string   `json:"authorEmail,omitempty"`
}

// Apply merges the patch into p field by field. ID, status, counters and
// timestamps are never touched.
func (patch PostPatch) Apply(p *Post) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Images != nil {
		p.Images = append([]string{}, (*patch.Images)...)
	}
	if patch.AuthorID != nil {
		p.AuthorID = *patch.AuthorID
	}
	if patch.AuthorName != nil {
		p.AuthorName = *patch.AuthorName
	}
	if patch.AuthorEmail != nil {
		p.AuthorEmail = *patch.AuthorEmail
	}
}

// Input returns the content fields of p, e.g. to re-validate after a patch.
func (p Post) Input() PostInput {
	return PostInput{
		Title:       p.Title,
		Content:     p.Content,
		Images:      p.Images,
		AuthorID:    p.AuthorID,
		AuthorName:  p.AuthorName,
		AuthorEmail: p.AuthorEmail,
	}
}
