package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/noteboard/pkg/core"
)

// Adapter names.
const (
	AdapterFS   = "fs"
	AdapterREST = "rest"
)

// options holds the internal configuration for a board.
type options struct {
	remote   core.Remote
	logger   *slog.Logger
	adapter  string
	observer core.Observer
	config   map[string]any
}

// Option defines a functional option for configuring a board.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		config:  make(map[string]any),
	}
}

func (o *options) bool(key string) (value, set bool) {
	value, set = o.config[key].(bool)
	return value, set
}

// WithAutoInit creates the board directory, the seed document and, with
// versioning on, the git repository when they are missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables committing every change to git.
// When not set, versioning follows the presence of a .git directory.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["versioning"] = enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the board directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithReadOnly rejects every mutation with core.ErrReadOnly and skips
// initialization. It also bypasses the dev sandbox.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`. By default (true) the fs adapter is re-rooted into a temporary
// directory so a dev run never touches a real board.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithFormat selects the board document format for new boards ("yaml" or "json").
func WithFormat(format string) Option {
	return func(o *options) {
		o.config["format"] = format
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithToken sets the bearer token sent by the rest adapter.
func WithToken(token string) Option {
	return func(o *options) {
		o.config["token"] = token
	}
}

// WithHTTPClient sets the HTTP client used by the rest adapter.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.config["http_client"] = hc
	}
}

// WithTimeout bounds each rest request. Ignored when WithHTTPClient is set.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config["timeout"] = d
	}
}

// WithEventBuffer sets the buffer of subscription channels. Zero means default.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithLogger sets the logger for the board and its remote.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver receives the outcome of every board operation.
func WithObserver(obs core.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithRemote injects a remote (e.g. a fake). Adapter selection is skipped.
func WithRemote(remote core.Remote) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithAdapter selects the remote by name ("fs" or "rest"). Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}
