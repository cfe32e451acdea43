package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const imageColumns = "id, filename, brightness, contrast, saturation, rotation, format, status, created_at, updated_at"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" opens a separate database.
	if strings.Contains(connectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		brightness REAL NOT NULL DEFAULT 1,
		contrast REAL NOT NULL DEFAULT 1,
		saturation REAL NOT NULL DEFAULT 1,
		rotation REAL NOT NULL DEFAULT 0,
		format TEXT NOT NULL DEFAULT 'jpeg' CHECK (format IN ('png', 'jpeg')),
		status TEXT NOT NULL DEFAULT 'uploaded' CHECK (status IN ('uploaded', 'processed')),
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateImage(image *ImageRecord) (*ImageRecord, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	created := *image
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err = s.db.Exec("INSERT INTO images ("+imageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		created.ID, created.Filename, created.Brightness, created.Contrast, created.Saturation,
		created.Rotation, created.Format, created.Status, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *SQLiteDatabase) GetImageByID(id string) (*ImageRecord, error) {
	row := s.db.QueryRow("SELECT "+imageColumns+" FROM images WHERE id = ?", id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *SQLiteDatabase) GetImages() ([]*ImageRecord, error) {
	rows, err := s.db.Query("SELECT " + imageColumns + " FROM images ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	images := []*ImageRecord{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *SQLiteDatabase) UpdateImage(image *ImageRecord) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE images SET filename = ?, brightness = ?, contrast = ?, saturation = ?,
		rotation = ?, format = ?, status = ?, updated_at = ? WHERE id = ?`,
		image.Filename, image.Brightness, image.Contrast, image.Saturation,
		image.Rotation, image.Format, image.Status, now.UnixNano(), image.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("image %s does not exist", image.ID)
	}
	image.UpdatedAt = now
	return nil
}

func (s *SQLiteDatabase) DeleteImage(id string) error {
	_, err := s.db.Exec("DELETE FROM images WHERE id = ?", id)
	return err
}

func (s *SQLiteDatabase) CreateUser(user *UserAccount) (*UserAccount, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	created := *user
	created.ID = id
	created.CreatedAt = time.Now().UTC()

	_, err = s.db.Exec("INSERT INTO users (id, username, email, password, created_at) VALUES (?, ?, ?, ?, ?)",
		created.ID, created.Username, created.Email, created.Password, created.CreatedAt.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	return &created, nil
}

func (s *SQLiteDatabase) GetUserByID(id string) (*UserAccount, error) {
	return s.queryUser("SELECT id, username, email, password, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteDatabase) GetUserByEmail(email string) (*UserAccount, error) {
	return s.queryUser("SELECT id, username, email, password, created_at FROM users WHERE email = ?", email)
}

func (s *SQLiteDatabase) FindUserByEmailOrUsername(email, username string) (*UserAccount, error) {
	return s.queryUser(`SELECT id, username, email, password, created_at FROM users
		WHERE email = ? OR username = ? ORDER BY created_at ASC LIMIT 1`, email, username)
}

func (s *SQLiteDatabase) GetUsers() ([]*UserAccount, error) {
	rows, err := s.db.Query("SELECT id, username, email, password, created_at FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	users := []*UserAccount{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLiteDatabase) queryUser(query string, args ...any) (*UserAccount, error) {
	user, err := scanUser(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*ImageRecord, error) {
	var img ImageRecord
	var createdAt, updatedAt int64
	if err := row.Scan(&img.ID, &img.Filename, &img.Brightness, &img.Contrast, &img.Saturation,
		&img.Rotation, &img.Format, &img.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	img.CreatedAt = time.Unix(0, createdAt).UTC()
	img.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &img, nil
}

func scanUser(row rowScanner) (*UserAccount, error) {
	var user UserAccount
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}
