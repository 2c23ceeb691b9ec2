package queue

// Exchanges and routing keys. Consumers bind by topic.
const (
	ExchangeAuth  = "auth.events"
	ExchangeTasks = "task.events"

	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyTaskCreated    = "task.created"
	KeyTaskDeleted    = "task.deleted"
)

type UserRegistered struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	AuthType string `json:"auth_type"`
}

type UserLoggedIn struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	AuthType string `json:"auth_type"`
}

type TaskCreated struct {
	TaskID   string `json:"task_id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

type TaskDeleted struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}
