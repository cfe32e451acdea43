package core

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/jo-hoe/imagehost/internal/backend/database"
	"github.com/jo-hoe/imagehost/internal/blobstore"
)

var fixedNow = time.UnixMilli(1700000000000)

func newTestConfig(t *testing.T) *ServiceConfig {
	t.Helper()
	config := &ServiceConfig{
		Database:  Database{Type: "sqlite", ConnectionString: ":memory:"},
		BlobStore: BlobStore{Root: t.TempDir()},
		Auth:      Auth{Secret: "test-secret"},
	}
	config.ApplyDefaults()
	return config
}

func newTestService(t *testing.T) *ImageService {
	t.Helper()
	config := newTestConfig(t)
	service, err := NewImageService(config)
	if err != nil {
		t.Fatalf("failed to create image service: %v", err)
	}
	t.Cleanup(func() {
		if err := service.Close(); err != nil {
			t.Errorf("failed to close image service: %v", err)
		}
	})
	service.now = func() time.Time { return fixedNow }
	return service
}

func pngFixture(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func uploadPNG(t *testing.T, service *ImageService, name string, c color.NRGBA) *database.ImageRecord {
	t.Helper()
	record, err := service.UploadImage(UploadInput{
		OriginalName: name,
		ContentType:  "image/png",
		Content:      bytes.NewReader(pngFixture(t, 2, 1, c)),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return record
}

func decodeBlob(t *testing.T, store blobstore.BlobStore, name string) image.Image {
	t.Helper()
	file, err := store.Open(name)
	if err != nil {
		t.Fatalf("failed to open blob %s: %v", name, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		t.Fatalf("failed to decode blob %s: %v", name, err)
	}
	return img
}

func assertGray(t *testing.T, img image.Image, x, y int, want uint8) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	if got.R != want || got.G != want || got.B != want {
		t.Errorf("pixel (%d,%d) = %v, want gray %d", x, y, got, want)
	}
}

func float(v float64) *float64 { return &v }

func str(v string) *string { return &v }
