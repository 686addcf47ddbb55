package telemetry

import (
	"context"
	"errors"
	"io"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
)

// Fanout forwards every vertex to several sinks.
type Fanout struct {
	sinks []ports.Telemetry
}

// NewFanout creates a Fanout over sinks. Nil sinks are skipped.
func NewFanout(sinks ...ports.Telemetry) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Record starts the vertex on every sink. Each sink sees the context returned by the previous one,
// so a span started by one sink is the parent of spans started by later sinks for nested records.
func (f *Fanout) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	vs := make(fanoutVertex, 0, len(f.sinks))
	for _, s := range f.sinks {
		var v ports.Vertex
		ctx, v = s.Record(ctx, name, opts...)
		vs = append(vs, v)
	}
	return ports.ContextWithVertex(ctx, vs), vs
}

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type fanoutVertex []ports.Vertex

func (vs fanoutVertex) Stdout() io.Writer {
	ws := make([]io.Writer, len(vs))
	for i, v := range vs {
		ws[i] = v.Stdout()
	}
	return io.MultiWriter(ws...)
}

func (vs fanoutVertex) Stderr() io.Writer {
	ws := make([]io.Writer, len(vs))
	for i, v := range vs {
		ws[i] = v.Stderr()
	}
	return io.MultiWriter(ws...)
}

func (vs fanoutVertex) Log(level domain.LogLevel, msg string) {
	for _, v := range vs {
		v.Log(level, msg)
	}
}

func (vs fanoutVertex) Complete(err error) {
	for _, v := range vs {
		v.Complete(err)
	}
}

func (vs fanoutVertex) Cached() {
	for _, v := range vs {
		v.Cached()
	}
}
