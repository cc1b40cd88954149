package service

import "errors"

var (
	ErrMissingField       = errors.New("missing required field")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrDuplicateIdentity  = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenNotRecognized = errors.New("refresh token not recognized")
	ErrNotFound           = errors.New("not found")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrAlreadyFollowing   = errors.New("already following this user")
	ErrNotFollowing       = errors.New("not following this user")
)
