package models

type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// User is a staff account allowed to operate the terminal.
type User struct {
	Username     string
	PasswordHash string
}
