package options

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvImage      = "PLAYGROUND_IMAGE"
	EnvS3Endpoint = "PLAYGROUND_S3_ENDPOINT"
	EnvS3Region   = "PLAYGROUND_S3_REGION"
)

type PlaygroundOptions struct {
	Help        *bool
	Port        *int
	StaticDir   *string
	Image       *string // volume URL, s3://bucket/key or path; defaults to the sample ankle
	ImageType   *string
	NoCache     *bool
	CacheDir    *string
	S3Endpoint  *string // S3-compatible endpoint such as DigitalOcean Spaces
	S3Region    *string
	S3PathStyle *bool
	Debounce    *time.Duration
	LogLevel    *string
	Validate    *string // compile a shader file and exit
}

// Register defines every option on fs.
func Register(fs *flag.FlagSet) *PlaygroundOptions {
	return &PlaygroundOptions{
		Help:        fs.Bool("help", false, "Show help message"),
		Port:        fs.Int("port", 8080, "HTTP port"),
		StaticDir:   fs.String("static", "", "Directory of front-end files to serve"),
		Image:       fs.String("image", "", "Volume to load (from "+EnvImage+" env var if not set)"),
		ImageType:   fs.String("image-type", "nrrd", "Volume format passed to the renderer"),
		NoCache:     fs.Bool("nocache", false, "Do not cache downloaded volumes"),
		CacheDir:    fs.String("cache-dir", "", "Cache directory (default: user cache dir)"),
		S3Endpoint:  fs.String("s3-endpoint", "", "S3-compatible endpoint (from "+EnvS3Endpoint+" env var if not set)"),
		S3Region:    fs.String("s3-region", "", "S3 region (from "+EnvS3Region+" env var if not set)"),
		S3PathStyle: fs.Bool("s3-path-style", false, "Use path-style S3 addressing"),
		Debounce:    fs.Duration("debounce", 500*time.Millisecond, "Idle time before a shader edit is rendered"),
		LogLevel:    fs.String("log-level", "info", "Log level: debug, info, warn or error"),
		Validate:    fs.String("validate", "", "Compile a fragment snippet file and exit"),
	}
}

// ApplyEnv fills unset options from the environment.
func (o *PlaygroundOptions) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	fill := func(p *string, key string) {
		if *p == "" {
			*p = getenv(key)
		}
	}
	fill(o.Image, EnvImage)
	fill(o.S3Endpoint, EnvS3Endpoint)
	fill(o.S3Region, EnvS3Region)
}

// Level parses LogLevel.
func (o *PlaygroundOptions) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(*o.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", *o.LogLevel)
	}
	return l, nil
}
