package fingerprint

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corona10/goimagehash"

	"mediaharvest/internal/records"
	"mediaharvest/internal/sources"
)

// maxAssetBytes bounds how much of an asset is read for hashing.
const maxAssetBytes = 512 << 20

// Engine fetches assets and computes their content fingerprints.
type Engine struct {
	client    *http.Client
	userAgent string
}

// NewEngine constructs a fingerprint engine with the given fetch timeout.
func NewEngine(timeout time.Duration, userAgent string) *Engine {
	return &Engine{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Compute fetches the variant's asset and fills in its sha1, size, and, for
// images, dimensions and perceptual hash. It is idempotent: a variant that
// already carries a sha1 is returned untouched so refreshes never re-download
// hashed content.
func (e *Engine) Compute(ctx context.Context, variant *records.FileVariant) error {
	if variant == nil {
		return fmt.Errorf("variant is nil")
	}
	if variant.SHA1 != "" {
		return nil
	}
	if variant.AssetURL == "" {
		return fmt.Errorf("variant %s has no asset url", variant.Name)
	}

	data, contentType, err := e.fetch(ctx, variant.AssetURL)
	if err != nil {
		return err
	}

	sum := sha1.Sum(data)
	variant.SHA1 = hex.EncodeToString(sum[:])
	variant.SizeBytes = int64(len(data))
	if variant.FileExtension == "" {
		variant.FileExtension = sources.ExtensionForURL(variant.AssetURL, contentType)
	}

	if isImage(contentType, variant.FileExtension) {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			bounds := img.Bounds()
			variant.Width = bounds.Dx()
			variant.Height = bounds.Dy()
			if hash, err := goimagehash.PerceptionHash(img); err == nil {
				variant.PerceptualHash = hash.GetHash()
			}
		}
		// Undecodable image data still gets a sha1; perceptual matching is
		// simply unavailable for it.
	}

	return nil
}

// Distance returns the hamming distance between two stored perceptual hashes.
func Distance(a, b uint64) int {
	ha := goimagehash.NewImageHash(a, goimagehash.PHash)
	hb := goimagehash.NewImageHash(b, goimagehash.PHash)
	d, err := ha.Distance(hb)
	if err != nil {
		return 64
	}
	return d
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build asset request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch asset: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read asset body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func isImage(contentType, extension string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch strings.ToLower(extension) {
	case "jpg", "jpeg", "png", "gif", "webp", "tif", "tiff":
		return true
	}
	return false
}
