package storage

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
)

func newLocalBackend(t *testing.T, baseURL string) *LocalStorage {
	t.Helper()
	backend, err := NewLocalStorage(&config.Config{
		LocalStoragePath:    t.TempDir(),
		LocalStorageBaseURL: baseURL,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	return backend
}

func TestPersistStoresInlinePayload(t *testing.T) {
	backend := newLocalBackend(t, "http://localhost:8380/images")
	sink := NewDishImageSink(backend, zerolog.Nop())

	payload := []byte("fake-png-bytes")
	ref, err := sink.Persist(context.Background(), "dish_01", dish.ImageRef{
		B64JSON:  base64.StdEncoding.EncodeToString(payload),
		MimeType: "image/png",
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if ref.URL != "http://localhost:8380/images/dishes/dish_01.png" {
		t.Errorf("URL = %q", ref.URL)
	}
	if ref.B64JSON != "" {
		t.Errorf("B64JSON retained after upload")
	}

	rc, mime, err := backend.Download(context.Background(), "dishes/dish_01.png")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != string(payload) {
		t.Errorf("stored bytes = %q, want %q", got, payload)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q", mime)
	}
}

func TestPersistKeepsInlineWhenNoBaseURL(t *testing.T) {
	backend := newLocalBackend(t, "")
	sink := NewDishImageSink(backend, zerolog.Nop())

	b64 := base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
	ref, err := sink.Persist(context.Background(), "dish_02", dish.ImageRef{B64JSON: b64})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if ref.URL != "" {
		t.Errorf("URL = %q, want empty without a base URL", ref.URL)
	}
	if ref.B64JSON != b64 {
		t.Errorf("inline payload dropped")
	}
}

func TestPersistPassesThroughURLRefs(t *testing.T) {
	sink := NewDishImageSink(newLocalBackend(t, ""), zerolog.Nop())

	in := dish.ImageRef{URL: "https://img.example/dish.png"}
	out, err := sink.Persist(context.Background(), "dish_03", in)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if out != in {
		t.Errorf("ref changed: %+v", out)
	}
}

func TestPersistRejectsCorruptPayload(t *testing.T) {
	sink := NewDishImageSink(newLocalBackend(t, ""), zerolog.Nop())

	if _, err := sink.Persist(context.Background(), "dish_04", dish.ImageRef{B64JSON: "not base64!!"}); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestLocalStorageDisabledWithoutPath(t *testing.T) {
	backend, err := NewLocalStorage(&config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if err := backend.Upload(context.Background(), "dishes/x.png", strings.NewReader("x"), 1, "image/png"); err == nil {
		t.Fatal("expected disabled error, got nil")
	}
}

func TestExtForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{mime: "image/png", want: ".png"},
		{mime: "image/jpeg", want: ".jpg"},
		{mime: "image/webp", want: ".webp"},
		{mime: "", want: ".png"},
	}
	for _, tt := range tests {
		if got := extForMIME(tt.mime); got != tt.want {
			t.Errorf("extForMIME(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestUploadCreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalStorage(&config.Config{LocalStoragePath: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	if err := backend.Upload(context.Background(), "dishes/nested/dish.png", strings.NewReader("img"), 3, "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dishes", "nested", "dish.png")); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}
