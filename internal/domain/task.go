package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"      json:"id"`
	Title       string             `bson:"title"              json:"title"`
	Description string             `bson:"description"        json:"description"`
	Completed   bool               `bson:"completed"          json:"completed"`
	UserID      string             `bson:"user_id"            json:"userId"`
	Priority    string             `bson:"priority"           json:"priority"`
	DueDate     *time.Time         `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Tags        []string           `bson:"tags"               json:"tags"`
	CreatedAt   time.Time          `bson:"created_at"         json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at"         json:"updatedAt"`
}

// TaskPatch carries the mutable fields of an update; nil means "leave
// as is". Tags replaces the whole list when present.
type TaskPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Completed   *bool      `json:"completed"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        *[]string  `json:"tags"`
}
