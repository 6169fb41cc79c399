package domain

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound indicates that the user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrReceiverNotFound indicates that no user owns the given phone number.
	ErrReceiverNotFound = errors.New("receiver not found")
	// ErrPhoneAlreadyExists indicates that the phone number is already registered.
	ErrPhoneAlreadyExists = errors.New("phone number already registered")
)

// User is the owner of a wallet. Registration, login and verification are
// managed outside the engine; the engine only resolves users by id or phone.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
