package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/gg"
	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/api"
	"github.com/richinsley/goshaderplayground/options"
	"github.com/richinsley/goshaderplayground/renderer"
	"github.com/richinsley/goshaderplayground/server"
	"github.com/richinsley/goshaderplayground/state"
	"github.com/richinsley/goshaderplayground/translator"
)

func validateFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	report, err := translator.Validate(context.Background(), string(src))
	var cerr *translator.CompileError
	if errors.As(err, &cerr) {
		fmt.Fprintln(os.Stderr, cerr.Log)
		return fmt.Errorf("%s does not compile", path)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", path)
	for _, v := range report.Variables {
		fmt.Printf("  %s\n", v)
	}
	return nil
}

func main() {
	opts := options.Register(flag.CommandLine)
	flag.Parse()

	if *opts.Help {
		fmt.Println("Shader Playground server")
		flag.PrintDefaults()
		return
	}
	opts.ApplyEnv(os.Getenv)

	level, err := opts.Level()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	gsp.SetLogger(logger)
	gg.SetLogger(logger.With("component", "gg"))

	if *opts.Validate != "" {
		if err := validateFile(*opts.Validate); err != nil {
			log.Fatal(err)
		}
		return
	}

	fetcher, err := api.NewFetcher(api.FetcherOptions{
		UseCache: !*opts.NoCache,
		CacheDir: *opts.CacheDir,
		S3: api.S3Options{
			Endpoint:  *opts.S3Endpoint,
			Region:    *opts.S3Region,
			PathStyle: *opts.S3PathStyle,
		},
	})
	if err != nil {
		log.Fatalf("Error creating fetcher: %v", err)
	}

	source := api.DefaultSource()
	if *opts.Image != "" {
		source = api.Source{Type: *opts.ImageType, Input: *opts.Image}
	}
	sdk := renderer.NewHeadless(fetcher)

	srv := server.NewServer(server.Config{
		Port:      *opts.Port,
		StaticDir: *opts.StaticDir,
		Codec:     state.NewCodec(),
		Loader:    sdk,
		Factory:   sdk,
		Source:    source,
		Debounce:  *opts.Debounce,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving playground", "port", *opts.Port, "image", source.Input)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
