// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package processor holds the ordered chain of file processors and
// dispatches a stored file to the first one that handles it successfully.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/pdiddy/files-processor/pkg/types"
)

// Processor extracts metadata from one category of files. Implementations
// must be safe for concurrent use; the registry calls them from every
// request goroutine.
type Processor interface {
	// Name identifies the processor in logs.
	Name() string

	// CanProcess reports whether the processor handles files of the given
	// MIME type.
	CanProcess(mimeType string) bool

	// Process extracts a metadata record. A returned error makes the
	// dispatcher try the next processor, unless it is an *AbortError.
	Process(ctx context.Context, file File, setting types.ProcessorSetting) (*types.MetadataRecord, error)
}

// Opener opens the content of a stored version.
type Opener interface {
	Open(v *types.ObjectVersion) (io.ReadCloser, error)
}

// File is a stored version together with the means to read it.
type File struct {
	Version *types.ObjectVersion
	opener  Opener
}

// NewFile binds a version to the opener that serves its content.
func NewFile(v *types.ObjectVersion, o Opener) File {
	return File{Version: v, opener: o}
}

// Open returns a reader over the file content. The caller must close it.
func (f File) Open() (io.ReadCloser, error) {
	if f.opener == nil {
		return nil, fmt.Errorf("file %s has no opener", f.Version.VersionID)
	}
	return f.opener.Open(f.Version)
}

// AbortError marks a failure that must end the whole request instead of
// falling through to the next processor.
type AbortError struct {
	Err error
}

func (e *AbortError) Error() string { return "processing aborted: " + e.Err.Error() }

func (e *AbortError) Unwrap() error { return e.Err }

// Abort wraps err so that Dispatch stops and returns it.
func Abort(err error) error {
	return &AbortError{Err: err}
}

// IsAbort reports whether err carries an *AbortError.
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}

// Registry is an ordered list of processors. Order is registration order;
// the first processor that both applies and succeeds wins.
type Registry struct {
	mu         sync.RWMutex
	processors []Processor
	logger     *slog.Logger
}

// NewRegistry returns an empty registry that logs to logger. A nil logger
// discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{logger: logger}
}

// Register appends p. Duplicates are allowed and consulted twice.
func (r *Registry) Register(p Processor) error {
	if p == nil {
		return errors.New("registering nil processor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors = append(r.processors, p)
	return nil
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processors)
}

// Processors yields the registered processors in registration order. Each
// call iterates a fresh snapshot, so the sequence can be ranged repeatedly.
func (r *Registry) Processors() iter.Seq[Processor] {
	return func(yield func(Processor) bool) {
		r.mu.RLock()
		snapshot := make([]Processor, len(r.processors))
		copy(snapshot, r.processors)
		r.mu.RUnlock()

		for _, p := range snapshot {
			if !yield(p) {
				return
			}
		}
	}
}

// Dispatch runs file through the first applicable processor that succeeds.
// mimeType is the stored file's declared type. Failing processors are
// logged and skipped. When nothing applies or everything fails, Dispatch
// returns a nil record and a nil error. The only errors returned are
// aborts and context cancellation.
func (r *Registry) Dispatch(ctx context.Context, mimeType string, file File, setting types.ProcessorSetting) (*types.MetadataRecord, error) {
	for p := range r.Processors() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.CanProcess(mimeType) {
			continue
		}

		rec, err := safeProcess(ctx, p, file, setting.Clone())
		if err == nil {
			if rec == nil {
				rec = &types.MetadataRecord{}
			}
			return rec, nil
		}
		if IsAbort(err) {
			r.logger.Warn("file processor aborted",
				"processor", p.Name(),
				"version_id", file.Version.VersionID,
				"uri", file.Version.URI,
				"error", err)
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		r.logger.Warn("file processor failed",
			"processor", p.Name(),
			"version_id", file.Version.VersionID,
			"uri", file.Version.URI,
			"error", err)
	}
	return nil, nil
}

// safeProcess turns a panicking processor into an ordinary failure.
func safeProcess(ctx context.Context, p Processor, file File, setting types.ProcessorSetting) (rec *types.MetadataRecord, err error) {
	defer func() {
		if v := recover(); v != nil {
			rec, err = nil, fmt.Errorf("processor %s panicked: %v", p.Name(), v)
		}
	}()
	return p.Process(ctx, file, setting)
}
