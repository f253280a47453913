package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/noteboard/pkg/adapters/fs"
	"github.com/aretw0/noteboard/pkg/adapters/rest"
	"github.com/aretw0/noteboard/pkg/core"
	"github.com/aretw0/noteboard/pkg/git"
)

// New builds a board over the remote selected by opts. The uri argument is
// adapter-specific: a directory for "fs", an API base URL for "rest".
// The board is not loaded; call Load before reading it.
//
//	board, err := platform.New("./board", platform.WithAutoInit(true))
func New(ctx context.Context, uri string, opts ...Option) (*core.Board, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	remote, err := initRemote(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	boardOpts := []core.BoardOption{core.WithLogger(o.logger)}
	if o.observer != nil {
		boardOpts = append(boardOpts, core.WithObserver(o.observer))
	}
	if size, ok := o.config["event_buffer"].(int); ok && size > 0 {
		boardOpts = append(boardOpts, core.WithEventBuffer(size))
	}
	return core.NewBoard(remote, boardOpts...), nil
}

// Init builds the remote selected by opts and runs its initialization.
func Init(ctx context.Context, uri string, opts ...Option) (core.Remote, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initRemote(ctx, uri, o)
}

func initRemote(ctx context.Context, uri string, o *options) (core.Remote, error) {
	if o.remote != nil {
		return o.remote, nil
	}

	var remote core.Remote
	var err error
	switch o.adapter {
	case AdapterFS:
		remote, err = initFS(uri, o)
	case AdapterREST:
		remote, err = initREST(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if initializer, ok := remote.(core.Initializer); ok {
		if err := initializer.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return remote, nil
}

// initFS handles path resolution and versioning detection for the fs adapter.
func initFS(path string, o *options) (*fs.Backend, error) {
	autoInit, _ := o.bool("auto_init")
	tempDir, _ := o.bool("temp_dir")
	mustExist, _ := o.bool("must_exist")
	readOnly, _ := o.bool("read_only")
	format, _ := o.config["format"].(string)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	devSafety := true
	if val, ok := o.bool("dev_safety"); ok {
		devSafety = val
	}
	bypassSafety := readOnly || !devSafety

	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolvedPath := ResolveBoardPath(path, useTemp)

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if useTemp {
		logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolvedPath)
	}

	versioning, set := o.bool("versioning")
	if !set {
		versioning = detectVersioning(resolvedPath, autoInit)
		logger.Debug("auto-detected versioning", "enabled", versioning, "path", resolvedPath)
	}

	switch format {
	case "", "yaml", "yml", "json":
	default:
		return nil, fmt.Errorf("unsupported board format: %s", format)
	}

	return fs.NewBackend(fs.Config{
		Path:         resolvedPath,
		Format:       format,
		AutoInit:     autoInit,
		MustExist:    mustExist || (!autoInit && !useTemp),
		Versioning:   versioning,
		ReadOnly:     readOnly,
		Logger:       logger,
		ErrorHandler: errorHandler,
	}), nil
}

// detectVersioning enables git for an existing repository, and for a fresh
// board created with auto init when git is available.
func detectVersioning(path string, autoInit bool) bool {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return true
	}
	if !autoInit || !git.IsInstalled() {
		return false
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		if _, err := os.Stat(filepath.Join(path, fs.BoardFile+ext)); err == nil {
			// An existing board without .git stays unversioned.
			return false
		}
	}
	return true
}

func initREST(baseURL string, o *options) (*rest.Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("rest adapter requires a base url")
	}

	clientOpts := []rest.Option{rest.WithLogger(o.logger)}
	if token, _ := o.config["token"].(string); token != "" {
		clientOpts = append(clientOpts, rest.WithToken(token))
	}
	if hc, ok := o.config["http_client"].(*http.Client); ok && hc != nil {
		clientOpts = append(clientOpts, rest.WithHTTPClient(hc))
	} else if d, ok := o.config["timeout"].(time.Duration); ok && d > 0 {
		clientOpts = append(clientOpts, rest.WithHTTPClient(&http.Client{Timeout: d}))
	}
	return rest.NewClient(baseURL, clientOpts...), nil
}
