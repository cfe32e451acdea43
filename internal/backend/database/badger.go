package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	imagePrefix         = "image:"
	userPrefix          = "user:"
	userEmailPrefix     = "user-email:"
	userUsernamePrefix  = "user-username:"
	badgerInMemoryToken = ":memory:"
)

// BadgerDatabase stores records as JSON documents keyed by prefix and ID.
type BadgerDatabase struct {
	db   *badger.DB
	path string
}

func NewBadgerDatabase(path string) (DatabaseService, error) {
	var opts badger.Options
	if path == badgerInMemoryToken {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &BadgerDatabase{db: db, path: path}, nil
}

// CreateDatabase is a no-op; badger has no schema.
func (b *BadgerDatabase) CreateDatabase() error {
	return nil
}

func (b *BadgerDatabase) DoesDatabaseExist() bool {
	return b.db != nil && !b.db.IsClosed()
}

func (b *BadgerDatabase) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *BadgerDatabase) CreateImage(image *ImageRecord) (*ImageRecord, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	created := *image
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now

	err = b.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, imagePrefix+id, &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (b *BadgerDatabase) GetImageByID(id string) (*ImageRecord, error) {
	var img ImageRecord
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, imagePrefix+id, &img)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &img, nil
}

func (b *BadgerDatabase) GetImages() ([]*ImageRecord, error) {
	images := []*ImageRecord{}
	err := b.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, imagePrefix, func(val []byte) error {
			var img ImageRecord
			if err := json.Unmarshal(val, &img); err != nil {
				return err
			}
			images = append(images, &img)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].CreatedAt.Before(images[j].CreatedAt)
	})
	return images, nil
}

func (b *BadgerDatabase) UpdateImage(image *ImageRecord) error {
	now := time.Now().UTC()
	err := b.db.Update(func(txn *badger.Txn) error {
		var stored ImageRecord
		found, err := getJSON(txn, imagePrefix+image.ID, &stored)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("image %s does not exist", image.ID)
		}
		updated := *image
		updated.CreatedAt = stored.CreatedAt
		updated.UpdatedAt = now
		return setJSON(txn, imagePrefix+image.ID, &updated)
	})
	if err != nil {
		return err
	}
	image.UpdatedAt = now
	return nil
}

func (b *BadgerDatabase) DeleteImage(id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(imagePrefix + id))
	})
}

func (b *BadgerDatabase) CreateUser(user *UserAccount) (*UserAccount, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	created := *user
	created.ID = id
	created.CreatedAt = time.Now().UTC()

	err = b.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{userEmailPrefix + created.Email, userUsernamePrefix + created.Username} {
			_, err := txn.Get([]byte(key))
			if err == nil {
				return ErrDuplicateUser
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		if err := setJSON(txn, userPrefix+id, &created); err != nil {
			return err
		}
		if err := txn.Set([]byte(userEmailPrefix+created.Email), []byte(id)); err != nil {
			return err
		}
		return txn.Set([]byte(userUsernamePrefix+created.Username), []byte(id))
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (b *BadgerDatabase) GetUserByID(id string) (*UserAccount, error) {
	var user *UserAccount
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

func (b *BadgerDatabase) GetUserByEmail(email string) (*UserAccount, error) {
	var user *UserAccount
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUserByIndex(txn, userEmailPrefix+email)
		return err
	})
	return user, err
}

func (b *BadgerDatabase) FindUserByEmailOrUsername(email, username string) (*UserAccount, error) {
	var user *UserAccount
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUserByIndex(txn, userEmailPrefix+email)
		if err != nil || user != nil {
			return err
		}
		user, err = getUserByIndex(txn, userUsernamePrefix+username)
		return err
	})
	return user, err
}

func (b *BadgerDatabase) GetUsers() ([]*UserAccount, error) {
	users := []*UserAccount{}
	err := b.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, userPrefix, func(val []byte) error {
			var user UserAccount
			if err := json.Unmarshal(val, &user); err != nil {
				return err
			}
			users = append(users, &user)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// userDocument carries the password, which UserAccount hides from JSON.
type userDocument struct {
	UserAccount
	Password string `json:"password"`
}

func getUser(txn *badger.Txn, id string) (*UserAccount, error) {
	var doc userDocument
	found, err := getJSON(txn, userPrefix+id, &doc)
	if err != nil || !found {
		return nil, err
	}
	user := doc.UserAccount
	user.Password = doc.Password
	return &user, nil
}

func getUserByIndex(txn *badger.Txn, indexKey string) (*UserAccount, error) {
	item, err := txn.Get([]byte(indexKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return getUser(txn, string(id))
}

func setJSON(txn *badger.Txn, key string, value any) error {
	if user, ok := value.(*UserAccount); ok {
		value = &userDocument{UserAccount: *user, Password: user.Password}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, target any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, target)
	})
}

func iteratePrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
