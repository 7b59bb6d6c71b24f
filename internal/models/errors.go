package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserExists         = errors.New("user with this name already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
