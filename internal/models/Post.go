package models

import "time"

// Item is anything a paginated feed can hold.
type Item interface {
	ItemID() string
}

type Post struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	ParentID  string     `json:"parent_id,omitempty"`
	ReshareOf *Post      `json:"reshare_of,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

func (p Post) ItemID() string {
	return p.ID
}

func (p Post) IsReshare() bool {
	return p.ReshareOf != nil
}

// ReshareTargetID returns the id of the reshared original or "" for plain posts.
func (p Post) ReshareTargetID() string {
	if p.ReshareOf == nil {
		return ""
	}
	return p.ReshareOf.ID
}

type EventKind int

const (
	EventCreate EventKind = iota
	EventDelete
	EventEdit
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventDelete:
		return "delete"
	case EventEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// StreamEvent is a live mutation of the post feed. Post is set for create and
// edit, PostID for delete.
type StreamEvent struct {
	Kind   EventKind
	Post   Post
	PostID string
}

func CreateEvent(p Post) StreamEvent {
	return StreamEvent{Kind: EventCreate, Post: p, PostID: p.ID}
}

func EditEvent(p Post) StreamEvent {
	return StreamEvent{Kind: EventEdit, Post: p, PostID: p.ID}
}

func DeleteEvent(id string) StreamEvent {
	return StreamEvent{Kind: EventDelete, PostID: id}
}
