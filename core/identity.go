package core

// Identity identifies the author of revisions on versioned backends.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials is the username/password pair presented to every engine operation.
type Credentials struct {
	Username string
	Password string
}
