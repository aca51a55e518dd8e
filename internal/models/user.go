package models

import "time"

// User is an authenticated account. Handle is unique and stored
// lowercase-normalized; it never changes once set.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	Handle       string    `db:"handle" json:"handle"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PublicUser is the view of a user exposed to other users.
type PublicUser struct {
	ID          string `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Handle      string `db:"handle" json:"handle"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, DisplayName: u.DisplayName, Handle: u.Handle}
}
