package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Typed destination errors. The harvest loop records all of them as
// Problems; none abort a loop.
var (
	ErrAlreadyPresent = errors.New("content already present at destination")
	ErrNotPermitted   = errors.New("publish not permitted by destination")
	ErrBadTemplate    = errors.New("description template failed")
)

// Request carries everything the destination needs for one variant.
type Request struct {
	Title     string
	Markup    string
	Extension string
	AssetURL  string
	SHA1      string
}

// Publisher sends one variant to the destination and returns the identifier
// the destination assigned to it.
type Publisher interface {
	Publish(ctx context.Context, req Request) (publishedName string, err error)
}

// Renderer produces the destination description text for a request. The
// default renderer emits plain title-plus-markup text; callers with a
// destination-specific template supply their own.
type Renderer func(req Request) (string, error)

// DefaultRenderer joins the title and markup with a blank line.
func DefaultRenderer(req Request) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", fmt.Errorf("%w: empty title", ErrBadTemplate)
	}
	if req.Markup == "" {
		return req.Title, nil
	}
	return req.Title + "\n\n" + req.Markup, nil
}

// DirectoryPublisher is the built-in destination: it downloads the asset
// into a local directory and writes the rendered description alongside it.
// A name collision is reported as ErrAlreadyPresent, which makes republish
// attempts idempotent.
type DirectoryPublisher struct {
	dir    string
	client *http.Client
	render Renderer
}

// NewDirectoryPublisher creates a publisher writing into dir.
func NewDirectoryPublisher(dir string, timeout time.Duration, render Renderer) *DirectoryPublisher {
	if render == nil {
		render = DefaultRenderer
	}
	return &DirectoryPublisher{
		dir:    dir,
		client: &http.Client{Timeout: timeout},
		render: render,
	}
}

// Publish downloads the asset and stores it with a stable generated name.
func (p *DirectoryPublisher) Publish(ctx context.Context, req Request) (string, error) {
	if req.AssetURL == "" {
		return "", fmt.Errorf("%w: request has no asset url", ErrNotPermitted)
	}
	if req.SHA1 == "" {
		return "", fmt.Errorf("%w: request has no content hash", ErrNotPermitted)
	}

	name := DestinationName(req.Title, req.SHA1, req.Extension)
	assetPath := filepath.Join(p.dir, name)
	if _, err := os.Stat(assetPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyPresent, name)
	}

	description, err := p.render(req)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}
	if err := p.download(ctx, req.AssetURL, assetPath); err != nil {
		return "", err
	}
	sidecar := strings.TrimSuffix(assetPath, filepath.Ext(assetPath)) + ".txt"
	if err := os.WriteFile(sidecar, []byte(description+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write description: %w", err)
	}
	return name, nil
}

func (p *DirectoryPublisher) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download asset: HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("write destination file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination file: %w", err)
	}
	return nil
}

// DestinationName derives a stable destination identifier from the title,
// content hash, and extension. The hash prefix keeps names unique across
// records sharing a title.
func DestinationName(title, sha1, extension string) string {
	base := sanitizeTitle(title)
	if base == "" {
		base = "untitled"
	}
	if len(sha1) > 8 {
		sha1 = sha1[:8]
	}
	extension = strings.ToLower(strings.TrimPrefix(extension, "."))
	if extension == "" {
		return fmt.Sprintf("%s_%s", base, sha1)
	}
	return fmt.Sprintf("%s_%s.%s", base, sha1, extension)
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
