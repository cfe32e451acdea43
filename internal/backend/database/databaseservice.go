package database

import "errors"

// ErrDuplicateUser is returned when a user insert violates the username or email uniqueness.
var ErrDuplicateUser = errors.New("user with this username or email already exists")

type DatabaseService interface {
	CreateDatabase() error
	DoesDatabaseExist() bool
	Close() error

	// CreateImage assigns ID and timestamps and persists the record.
	CreateImage(image *ImageRecord) (*ImageRecord, error)
	// GetImageByID returns nil and no error when no record exists for id.
	GetImageByID(id string) (*ImageRecord, error)
	// GetImages returns all records ordered by creation time.
	GetImages() ([]*ImageRecord, error)
	// UpdateImage overwrites the stored record and refreshes UpdatedAt.
	UpdateImage(image *ImageRecord) error
	DeleteImage(id string) error

	CreateUser(user *UserAccount) (*UserAccount, error)
	// GetUserByID and the other user lookups return nil and no error when nothing matches.
	GetUserByID(id string) (*UserAccount, error)
	GetUserByEmail(email string) (*UserAccount, error)
	// FindUserByEmailOrUsername returns the first account whose email or username matches.
	FindUserByEmailOrUsername(email, username string) (*UserAccount, error)
	GetUsers() ([]*UserAccount, error)
}
