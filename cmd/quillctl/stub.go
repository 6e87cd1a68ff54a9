package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/stub"
)

func runStub() {
	fs := flag.NewFlagSet("stub", flag.ExitOnError)
	addr := fs.String("addr", "localhost:5000", "Listen address")
	posts := fs.Int("posts", 20, "Number of seed posts")
	fs.Parse(os.Args[1:])

	logging.SetOutput(os.Stderr)

	backend, err := seedStub(*posts)
	if err != nil {
		fatal("seed: %v", err)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stubHandler(backend),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Serving stub API at http://%s/api\n", *addr)
	fmt.Println("  admin@example.com / admin123 (admin)")
	fmt.Println("  writer@example.com / writer123")
	logging.Info("stub listening", "addr", *addr, "posts", *posts)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("listen: %v", err)
	}
}

// seedStub returns a backend with an admin, a writer and n posts by the
// writer.
func seedStub(n int) (*stub.Server, error) {
	backend := stub.New()
	if _, _, err := backend.AddUser("Admin", "admin@example.com", "admin123", blog.RoleAdmin); err != nil {
		return nil, err
	}
	writer, _, err := backend.AddUser("Writer", "writer@example.com", "writer123", blog.RoleUser)
	if err != nil {
		return nil, err
	}
	backend.SeedPosts(writer, n)
	return backend, nil
}

// stubHandler mounts the backend under /api, matching the default base URL.
func stubHandler(backend http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", backend))
	return mux
}
