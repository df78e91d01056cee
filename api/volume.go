package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	gsp "github.com/richinsley/goshaderplayground"
)

// SampleAnkle is the ankle CT scan the playground opens by default.
const SampleAnkle = "https://public1-eu-sethealth.ams3.cdn.digitaloceanspaces.com/public/ankle.nrrd.gz"

const maxVolumeBytes = 1 << 30

var (
	ErrUnsupportedSource = errors.New("api: unsupported source")
	ErrTooLarge          = errors.New("api: volume exceeds size limit")
)

// Source describes where a volume comes from. Input is an http(s) URL, an
// s3://bucket/key URL or a file path.
type Source struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

// DefaultSource returns the sample ankle volume.
func DefaultSource() Source {
	return Source{Type: "nrrd", Input: SampleAnkle}
}

func (s Source) String() string {
	return s.Type + ":" + s.Input
}

// VolumeData holds the raw bytes of a volume as fetched. Decoding is left
// to the rendering SDK.
type VolumeData struct {
	Type       string
	Name       string
	Data       []byte
	Compressed bool // gzip stream
}

// Progress receives the fraction of a transfer done, in [0, 1].
type Progress func(fraction float64)

// Fetcher retrieves volumes from http(s), S3-compatible stores and disk.
type Fetcher struct {
	http     httpSource
	s3       *s3Source
	cacheDir string
	maxBytes int64
}

// FetcherOptions configures a Fetcher. Zero values select defaults.
type FetcherOptions struct {
	// UseCache stores fetched remote volumes in the user cache directory.
	UseCache bool
	// CacheDir overrides the cache location; implies UseCache.
	CacheDir string
	S3       S3Options
	MaxBytes int64
}

// NewFetcher builds a Fetcher. S3 sessions are created on first use.
func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	f := &Fetcher{
		http:     httpSource{client: httpClient},
		s3:       &s3Source{opts: opts.S3},
		maxBytes: opts.MaxBytes,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = maxVolumeBytes
	}
	switch {
	case opts.CacheDir != "":
		if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory at %s: %w", opts.CacheDir, err)
		}
		f.cacheDir = opts.CacheDir
	case opts.UseCache:
		dir, err := getCacheDir("volumes")
		if err != nil {
			return nil, fmt.Errorf("could not get cache directory: %w", err)
		}
		f.cacheDir = dir
	}
	return f, nil
}

// Fetch retrieves src. progress, if non-nil, is called with non-decreasing
// fractions and exactly once with 1.0, on success.
func (f *Fetcher) Fetch(ctx context.Context, src Source, progress Progress) (*VolumeData, error) {
	report := monotonic(progress)

	u, err := url.Parse(src.Input)
	if err != nil {
		return nil, fmt.Errorf("invalid volume source %q: %w", src.Input, err)
	}

	var opener func(context.Context, *url.URL) (io.ReadCloser, int64, error)
	remote := true
	switch u.Scheme {
	case "http", "https":
		opener = f.http.open
	case "s3":
		opener = f.s3.open
	case "file", "":
		opener = openFile
		remote = false
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}

	cachePath := ""
	if remote && f.cacheDir != "" {
		cachePath = filepath.Join(f.cacheDir, cacheKey(src))
		if data, err := os.ReadFile(cachePath); err == nil {
			gsp.Logger().Debug("volume cache hit", "source", src.Input, "path", cachePath)
			report(1)
			return newVolume(src, data), nil
		}
	}

	body, size, err := opener(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var buf bytes.Buffer
	if size > 0 {
		if size > f.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
		}
		buf.Grow(int(size))
	}
	pr := &progressReader{r: io.LimitReader(body, f.maxBytes+1), total: size, report: report}
	if _, err := io.Copy(&buf, pr); err != nil {
		return nil, fmt.Errorf("failed to read volume data from %s: %w", src.Input, err)
	}
	if int64(buf.Len()) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}

	if cachePath != "" {
		if err := os.WriteFile(cachePath, buf.Bytes(), 0644); err != nil {
			gsp.Logger().Warn("failed to save volume to cache", "path", cachePath, "err", err)
		}
	}

	vol := newVolume(src, buf.Bytes())
	gsp.Logger().Info("volume fetched", "source", src.Input, "bytes", len(vol.Data), "compressed", vol.Compressed)
	report(1)
	return vol, nil
}

func newVolume(src Source, data []byte) *VolumeData {
	name := path.Base(src.Input)
	if u, err := url.Parse(src.Input); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	return &VolumeData{
		Type:       src.Type,
		Name:       name,
		Data:       data,
		Compressed: len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b,
	}
}

func cacheKey(src Source) string {
	sum := sha256.Sum256([]byte(src.String()))
	name := hex.EncodeToString(sum[:12])
	ext := path.Ext(src.Input)
	if strings.ContainsAny(ext, "/?#") || len(ext) > 8 {
		ext = ""
	}
	return name + ext
}

func openFile(_ context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	p := u.Path
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open volume %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat volume %s: %w", p, err)
	}
	return f, info.Size(), nil
}
