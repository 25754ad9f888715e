package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirectoryPublisher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("asset-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	publisher := NewDirectoryPublisher(dir, 5*time.Second, nil)

	req := Request{
		Title:     "Lighthouse at dusk",
		Markup:    "Harvested from the west pier archive.",
		Extension: "jpg",
		AssetURL:  server.URL + "/asset.jpg",
		SHA1:      "abcdef0123456789",
	}

	name, err := publisher.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if name != "Lighthouse_at_dusk_abcdef01.jpg" {
		t.Fatalf("published name = %q", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read published asset: %v", err)
	}
	if string(data) != "asset-bytes" {
		t.Fatalf("published asset = %q", data)
	}
	sidecar, err := os.ReadFile(filepath.Join(dir, "Lighthouse_at_dusk_abcdef01.txt"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if string(sidecar) != "Lighthouse at dusk\n\nHarvested from the west pier archive.\n" {
		t.Fatalf("sidecar = %q", sidecar)
	}

	// Republishing the same content is rejected, not duplicated.
	if _, err := publisher.Publish(context.Background(), req); !errors.Is(err, ErrAlreadyPresent) {
		t.Fatalf("expected ErrAlreadyPresent, got %v", err)
	}
}

func TestDirectoryPublisherRejectsIncompleteRequests(t *testing.T) {
	publisher := NewDirectoryPublisher(t.TempDir(), time.Second, nil)

	if _, err := publisher.Publish(context.Background(), Request{Title: "x", SHA1: "abc"}); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("missing asset url: got %v", err)
	}
	if _, err := publisher.Publish(context.Background(), Request{Title: "x", AssetURL: "http://127.0.0.1/a"}); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("missing hash: got %v", err)
	}

	req := Request{Title: "   ", AssetURL: "http://127.0.0.1/a", SHA1: "abc"}
	if _, err := publisher.Publish(context.Background(), req); !errors.Is(err, ErrBadTemplate) {
		t.Fatalf("empty title: got %v", err)
	}
}
