package domain

import "time"

const (
	AuthTypeEmail  = "email"
	AuthTypeGoogle = "google"
)

// User is the profile-store record. ID equals the directory-assigned
// uid once both stores know the account, and is immutable afterwards.
type User struct {
	ID          string     `bson:"_id"                   json:"id"`
	Email       string     `bson:"email"                 json:"email"`
	DisplayName string     `bson:"display_name"          json:"displayName"`
	PhotoURL    string     `bson:"photo_url,omitempty"   json:"photoURL,omitempty"`
	AuthType    string     `bson:"auth_type"             json:"authType"` // "email" | "google"
	ExternalID  string     `bson:"external_id,omitempty" json:"externalId,omitempty"`
	Active      bool       `bson:"active"                json:"active"`
	CreatedAt   time.Time  `bson:"created_at"            json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at"            json:"updatedAt"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"lastLoginAt,omitempty"`
}
