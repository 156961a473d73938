package ioutils

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/ioutils")

type tracingReadCloser struct {
	ctx       context.Context
	span      trace.Span
	inner     io.ReadCloser
	bytesRead int64
}

// NewTracingReadCloser fails reads once ctx is done and ends span on Close.
func NewTracingReadCloser(ctx context.Context, span trace.Span, inner io.ReadCloser) io.ReadCloser {
	return &tracingReadCloser{
		ctx:   ctx,
		span:  span,
		inner: inner,
	}
}

func (t *tracingReadCloser) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := t.inner.Read(p)
	t.bytesRead += int64(n)
	return n, err
}

func (t *tracingReadCloser) Close() error {
	err := t.inner.Close()
	t.span.SetAttributes(attribute.Int64("file.bytes_read", t.bytesRead))
	t.span.End()
	return err
}

// OpenFile opens path for reading. A single span covers the file from open to close.
func OpenFile(ctx context.Context, path string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "ioutils.OpenFile", trace.WithAttributes(attribute.String("file.path", path)))
	f, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	return NewTracingReadCloser(ctx, span, f), nil
}

func ReadFile(ctx context.Context, path string) ([]byte, error) {
	r, err := OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
