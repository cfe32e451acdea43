package database

import (
	"errors"
	"testing"
)

func newTestDB(t *testing.T) DatabaseService {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestSQLite_DoesDatabaseExist(t *testing.T) {
	ds := newTestDB(t)
	if !ds.DoesDatabaseExist() {
		t.Fatalf("expected DoesDatabaseExist to return true")
	}
}

func TestSQLite_CreateDatabase_Idempotent(t *testing.T) {
	ds := newTestDB(t)
	if err := ds.CreateDatabase(); err != nil {
		t.Fatalf("second CreateDatabase error: %v", err)
	}
}

func TestSQLite_CreateImage_Defaults(t *testing.T) {
	ds := newTestDB(t)

	img, err := ds.CreateImage(NewImageRecord("1700000000000-photo.jpg", FormatJPEG))
	if err != nil {
		t.Fatalf("CreateImage error: %v", err)
	}

	got, err := ds.GetImageByID(img.ID)
	if err != nil {
		t.Fatalf("GetImageByID error: %v", err)
	}
	if got == nil {
		t.Fatalf("GetImageByID returned nil; expected image")
	}
	if got.Brightness != 1 || got.Contrast != 1 || got.Saturation != 1 || got.Rotation != 0 {
		t.Errorf("unexpected adjustment defaults: %+v", got)
	}
	if got.Status != StatusUploaded {
		t.Errorf("expected status %q, got %q", StatusUploaded, got.Status)
	}
	if got.CreatedAt.IsZero() || !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("expected equal non-zero timestamps, got created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestSQLite_CreateImage_RejectsUnknownFormat(t *testing.T) {
	ds := newTestDB(t)
	img := NewImageRecord("a.gif", FormatJPEG)
	img.Format = "gif"
	if _, err := ds.CreateImage(img); err == nil {
		t.Fatal("expected check constraint error for format gif")
	}
}

func TestSQLite_CreateUser_UniqueConstraint(t *testing.T) {
	ds := newTestDB(t)

	if _, err := ds.CreateUser(&UserAccount{Username: "alice", Email: "a@example.com", Password: "x"}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	_, err := ds.CreateUser(&UserAccount{Username: "alice", Email: "other@example.com", Password: "x"})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}
