package noteboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/noteboard/internal/platform"
	"github.com/aretw0/noteboard/pkg/core"
)

// --- Types ---

// Board is the note board state and reordering engine.
type Board = core.Board

// Remote is the authoritative persistence service a board talks to.
type Remote = core.Remote

// --- Configuration ---

// Option defines a functional option for configuring a board.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS   = platform.AdapterFS
	AdapterREST = platform.AdapterREST
)

// WithAutoInit creates the board directory, seed document and git repository when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables committing every change to git.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the board directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly rejects every mutation.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the dev sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithFormat selects the document format of new fs boards ("yaml" or "json").
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithObserver receives the outcome of every board operation.
func WithObserver(obs core.Observer) Option {
	return platform.WithObserver(obs)
}

// WithRemote injects a custom remote.
func WithRemote(remote Remote) Option {
	return platform.WithRemote(remote)
}

// WithAdapter selects the remote by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithToken sets the bearer token of the rest adapter.
func WithToken(token string) Option {
	return platform.WithToken(token)
}

// WithHTTPClient sets the HTTP client of the rest adapter.
func WithHTTPClient(hc *http.Client) Option {
	return platform.WithHTTPClient(hc)
}

// WithTimeout bounds each rest request.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithEventBuffer sets the buffer of subscription channels.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New creates a board. uri is a directory for the fs adapter or an API base
// URL for the rest adapter.
func New(ctx context.Context, uri string, opts ...Option) (*Board, error) {
	return platform.New(ctx, uri, opts...)
}

// Open creates a board and loads it.
func Open(ctx context.Context, uri string, opts ...Option) (*Board, error) {
	board, err := platform.New(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}
	if err := board.Load(ctx); err != nil {
		return nil, err
	}
	return board, nil
}

// Init builds and initializes a remote without creating a board.
func Init(ctx context.Context, uri string, opts ...Option) (Remote, error) {
	return platform.Init(ctx, uri, opts...)
}

// --- Safety & Utils ---

// ResolveBoardPath determines the actual board directory based on safety rules.
func ResolveBoardPath(userPath string, forceTemp bool) string {
	return platform.ResolveBoardPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindBoardRoot recursively looks upwards for a board root indicator.
func FindBoardRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
