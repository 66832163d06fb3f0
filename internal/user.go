package internal

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// User is an account able to own tasks and categories. PasswordHash is never
// serialized by the outer layers.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the name shown for assignees; falls back to the username.
func (u User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}

	if u.LastName == "" {
		return u.FirstName
	}

	return u.FirstName + " " + u.LastName
}

// RegisterParams defines the values required for creating a new User.
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Validate ...
func (p RegisterParams) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(3, 30), is.Alphanumeric),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&p.FirstName, validation.Length(0, 50)),
		validation.Field(&p.LastName, validation.Length(0, 50)),
	); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation.Validate")
	}

	return nil
}

// LoginParams defines the credentials presented when logging in.
type LoginParams struct {
	Username string
	Password string
}

// Validate ...
func (p LoginParams) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation.Validate")
	}

	return nil
}
