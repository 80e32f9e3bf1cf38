package domain

import "time"

const CommentTextMaxLen = 500

// Comment is a node in a ticket's discussion tree.
type Comment struct {
	ID        string
	TicketID  string
	CreatedBy string
	ParentID  *string
	Text      string
	CreatedOn time.Time
}
