// Package progrock provides the Progrock implementation of the telemetry adapter.
package progrock

import (
	"context"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/knit/internal/core/ports"
)

// Recorder implements the ports.Telemetry interface using the vito/progrock library.
// Vertices with a group are recorded on a per-group child recorder.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder

	mu     sync.Mutex
	groups map[string]*progrock.Recorder
}

// New creates a new Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:      w,
		rec:    progrock.NewRecorder(w),
		groups: make(map[string]*progrock.Recorder),
	}
}

// Record starts recording a new vertex.
func (r *Recorder) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	cfg := ports.ApplyVertexOptions(opts...)

	var vopts []progrock.VertexOpt
	if cfg.Internal {
		vopts = append(vopts, progrock.Internal())
	}

	v := r.recorder(cfg.Group).Vertex(digest.FromString(cfg.Group+"/"+name), name, vopts...)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

func (r *Recorder) recorder(group string) *progrock.Recorder {
	if group == "" {
		return r.rec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.groups[group]
	if !ok {
		rec = r.rec.WithGroup(group)
		r.groups[group] = rec
	}
	return rec
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
