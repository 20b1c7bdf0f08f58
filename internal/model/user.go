// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is the bcrypt digest of the user's password. It carries the
// json:"-" tag so it can never be serialized, and handlers only ever see the
// copy returned by Public.
//
// WHY Email IS THE LOGIN KEY:
// Users authenticate with email + password. The UNIQUE constraint on email in
// the DB ensures one email maps to exactly one account; Username is a display
// name and is not unique.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Public returns a copy of u with every sensitive field cleared.
// Every path that hands a User to a caller goes through here.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}
