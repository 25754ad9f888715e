package fingerprint

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediaharvest/internal/records"
)

func encodeTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestComputeFillsImageFingerprint(t *testing.T) {
	payload := encodeTestImage(t, 32, 24)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	engine := NewEngine(5*time.Second, "test-agent")
	variant := &records.FileVariant{Name: "standard", AssetURL: server.URL + "/asset"}
	if err := engine.Compute(context.Background(), variant); err != nil {
		t.Fatalf("compute: %v", err)
	}

	if variant.SHA1 == "" || len(variant.SHA1) != 40 {
		t.Fatalf("sha1 = %q", variant.SHA1)
	}
	if variant.SizeBytes != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", variant.SizeBytes, len(payload))
	}
	if variant.Width != 32 || variant.Height != 24 {
		t.Fatalf("dimensions = %dx%d", variant.Width, variant.Height)
	}
	if variant.PerceptualHash == 0 {
		t.Fatal("perceptual hash not computed")
	}
	if variant.FileExtension != "png" {
		t.Fatalf("extension = %q", variant.FileExtension)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	engine := NewEngine(5*time.Second, "")
	variant := &records.FileVariant{Name: "standard", AssetURL: server.URL, SHA1: "already-hashed"}
	if err := engine.Compute(context.Background(), variant); err != nil {
		t.Fatalf("compute: %v", err)
	}
	if requests != 0 {
		t.Fatalf("hashed variant was re-fetched %d times", requests)
	}
	if variant.SHA1 != "already-hashed" {
		t.Fatalf("sha1 overwritten: %q", variant.SHA1)
	}
}

func TestComputeReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	engine := NewEngine(5*time.Second, "")
	variant := &records.FileVariant{Name: "standard", AssetURL: server.URL}
	if err := engine.Compute(context.Background(), variant); err == nil {
		t.Fatal("expected fetch error")
	}
	if variant.SHA1 != "" {
		t.Fatalf("failed fetch left sha1 %q", variant.SHA1)
	}
}

func TestComputeRejectsVariantWithoutAsset(t *testing.T) {
	engine := NewEngine(time.Second, "")
	if err := engine.Compute(context.Background(), &records.FileVariant{Name: "standard"}); err == nil {
		t.Fatal("expected error for missing asset url")
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(0xF0F0F0F0F0F0F0F0, 0xF0F0F0F0F0F0F0F0); d != 0 {
		t.Fatalf("identical hashes distance = %d", d)
	}
	if d := Distance(0, 0xFFFFFFFFFFFFFFFF); d != 64 {
		t.Fatalf("inverse hashes distance = %d", d)
	}
	if d := Distance(0, 0b1011); d != 3 {
		t.Fatalf("distance = %d, want 3", d)
	}
}
