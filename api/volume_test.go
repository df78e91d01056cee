package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func gzipped(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	if _, err := zw.Write(payload); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	return buf.Bytes()
}

type progressLog struct {
	mu     sync.Mutex
	values []float64
}

func (p *progressLog) add(f float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, f)
}

func (p *progressLog) check(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.values) == 0 {
		t.Fatal("Expected progress reports")
	}
	ones := 0
	for i, v := range p.values {
		if v < 0 || v > 1 {
			t.Errorf("progress %v out of range", v)
		}
		if i > 0 && v <= p.values[i-1] {
			t.Errorf("progress not increasing: %v after %v", v, p.values[i-1])
		}
		if v == 1 {
			ones++
		}
	}
	if ones != 1 || p.values[len(p.values)-1] != 1 {
		t.Errorf("Expected exactly one final 1.0, got %v", p.values)
	}
}

func newVolumeServer(t *testing.T, data []byte) (*httptest.Server, *int32) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/ankle.nrrd.gz" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		// Write in chunks so the client sees several reads.
		for off := 0; off < len(data); off += 4096 {
			end := off + 4096
			if end > len(data) {
				end = len(data)
			}
			w.Write(data[off:end])
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchHTTP(t *testing.T) {
	data := gzipped(t, 200000)
	srv, _ := newVolumeServer(t, data)

	f, err := NewFetcher(FetcherOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var prog progressLog
	vol, err := f.Fetch(context.Background(), Source{Type: "nrrd", Input: srv.URL + "/public/ankle.nrrd.gz"}, prog.add)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(vol.Data, data) {
		t.Error("fetched bytes differ")
	}
	if !vol.Compressed {
		t.Error("Expected gzip payload to be flagged")
	}
	if vol.Name != "ankle.nrrd.gz" || vol.Type != "nrrd" {
		t.Errorf("unexpected metadata: %q %q", vol.Name, vol.Type)
	}
	prog.check(t)
}

func TestFetchHTTPStatusError(t *testing.T) {
	srv, _ := newVolumeServer(t, nil)
	f, _ := NewFetcher(FetcherOptions{})

	var prog progressLog
	_, err := f.Fetch(context.Background(), Source{Type: "nrrd", Input: srv.URL + "/missing"}, prog.add)
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if len(prog.values) != 0 {
		t.Errorf("failed fetch must not report progress, got %v", prog.values)
	}
}

func TestFetchUsesCache(t *testing.T) {
	data := gzipped(t, 1000)
	srv, hits := newVolumeServer(t, data)
	dir := t.TempDir()

	f, err := NewFetcher(FetcherOptions{CacheDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	src := Source{Type: "nrrd", Input: srv.URL + "/public/ankle.nrrd.gz"}
	for i := 0; i < 2; i++ {
		var prog progressLog
		vol, err := f.Fetch(context.Background(), src, prog.add)
		if err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
		if !bytes.Equal(vol.Data, data) {
			t.Errorf("Fetch %d: bytes differ", i)
		}
		prog.check(t)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("Expected one download, got %d", n)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".gz" {
		t.Errorf("Expected one cached .gz file, got %v", entries)
	}
}

func TestFetchFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "head.nrrd")
	if err := os.WriteFile(p, []byte("NRRD0004\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f, _ := NewFetcher(FetcherOptions{})

	for _, input := range []string{p, "file://" + p} {
		var prog progressLog
		vol, err := f.Fetch(context.Background(), Source{Type: "nrrd", Input: input}, prog.add)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", input, err)
		}
		if string(vol.Data) != "NRRD0004\n" || vol.Compressed {
			t.Errorf("Fetch(%q): unexpected volume %+v", input, vol)
		}
		prog.check(t)
	}
}

func TestFetchTooLarge(t *testing.T) {
	data := gzipped(t, 50000)
	srv, _ := newVolumeServer(t, data)
	f, _ := NewFetcher(FetcherOptions{MaxBytes: 100})

	_, err := f.Fetch(context.Background(), Source{Type: "nrrd", Input: srv.URL + "/public/ankle.nrrd.gz"}, nil)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	f, _ := NewFetcher(FetcherOptions{})
	_, err := f.Fetch(context.Background(), Source{Type: "nrrd", Input: "ftp://example.com/a.nrrd"}, nil)
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Expected ErrUnsupportedSource, got %v", err)
	}
}

func TestFetchCancelled(t *testing.T) {
	srv, _ := newVolumeServer(t, gzipped(t, 1000))
	f, _ := NewFetcher(FetcherOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, Source{Type: "nrrd", Input: srv.URL + "/public/ankle.nrrd.gz"}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestFetchS3(t *testing.T) {
	data := gzipped(t, 100000)
	client := &fakeS3{objects: map[string][]byte{"public1-eu-sethealth/public/ankle.nrrd.gz": data}}
	f, _ := NewFetcher(FetcherOptions{S3: S3Options{Client: client}})

	var prog progressLog
	vol, err := f.Fetch(context.Background(), Source{Type: "nrrd", Input: "s3://public1-eu-sethealth/public/ankle.nrrd.gz"}, prog.add)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(vol.Data, data) || vol.Name != "ankle.nrrd.gz" {
		t.Errorf("unexpected volume %q (%d bytes)", vol.Name, len(vol.Data))
	}
	prog.check(t)

	_, err = f.Fetch(context.Background(), Source{Type: "nrrd", Input: "s3://public1-eu-sethealth/missing"}, nil)
	var aerr awserr.Error
	if !errors.As(err, &aerr) || aerr.Code() != s3.ErrCodeNoSuchKey {
		t.Errorf("Expected NoSuchKey, got %v", err)
	}

	_, err = f.Fetch(context.Background(), Source{Type: "nrrd", Input: "s3://bucket-only"}, nil)
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Expected ErrUnsupportedSource for missing key, got %v", err)
	}
}

func TestMonotonic(t *testing.T) {
	var got []float64
	p := monotonic(func(f float64) { got = append(got, f) })
	for _, f := range []float64{-1, 0.2, 0.1, 0.5, 2, 1, 0.7} {
		p(f)
	}
	want := []float64{0, 0.2, 0.5, 1}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("report %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	monotonic(nil)(0.5)
}

func TestDefaultSource(t *testing.T) {
	src := DefaultSource()
	if src.Type != "nrrd" || src.Input != SampleAnkle {
		t.Errorf("unexpected default source %+v", src)
	}
}

func TestGetCacheDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" || runtime.GOOS == "plan9" {
		t.Skip("user cache dir is not taken from XDG_CACHE_HOME on " + runtime.GOOS)
	}
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)

	dir, err := getCacheDir("volumes")
	if err != nil {
		t.Fatalf("getCacheDir failed: %v", err)
	}
	want := filepath.Join(base, "goshaderplayground", "volumes")
	if dir != want {
		t.Errorf("Expected %s, got %s", want, dir)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("cache directory was not created: %v", err)
	}

	f, err := NewFetcher(FetcherOptions{UseCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if f.cacheDir != want {
		t.Errorf("Expected fetcher to cache in %s, got %s", want, f.cacheDir)
	}
}
