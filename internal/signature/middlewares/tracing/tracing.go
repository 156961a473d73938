package tracing

import (
	"context"
	"runtime/trace"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/jdillenkofer/signet/internal/signature"
	"github.com/jdillenkofer/signet/internal/signing"
)

type tracingServiceMiddleware struct {
	regionName   string
	tracer       oteltrace.Tracer
	innerService signature.Service
}

// Compile-time check to ensure tracingServiceMiddleware implements signature.Service
var _ signature.Service = (*tracingServiceMiddleware)(nil)

func NewServiceMiddleware(regionName string, innerService signature.Service) signature.Service {
	return &tracingServiceMiddleware{
		regionName:   regionName,
		tracer:       otel.Tracer("internal/signature"),
		innerService: innerService,
	}
}

func (tsm *tracingServiceMiddleware) start(ctx context.Context, op string) (context.Context, oteltrace.Span, *trace.Region) {
	region := trace.StartRegion(ctx, tsm.regionName+"."+op+"()")
	ctx, span := tsm.tracer.Start(ctx, tsm.regionName+"."+op)
	return ctx, span, region
}

func endWithError(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (tsm *tracingServiceMiddleware) CreateKeys(ctx context.Context) (*signing.KeyPair, error) {
	ctx, span, region := tsm.start(ctx, "CreateKeys")
	defer region.End()

	keyPair, err := tsm.innerService.CreateKeys(ctx)
	endWithError(span, err)
	return keyPair, err
}

func (tsm *tracingServiceMiddleware) Sign(ctx context.Context, req signature.SignRequest) (*signature.SignResponse, error) {
	ctx, span, region := tsm.start(ctx, "Sign")
	defer region.End()
	span.SetAttributes(attribute.Int("signature.data_bytes", len(req.Data)))

	signed, err := tsm.innerService.Sign(ctx, req)
	if err == nil {
		span.SetAttributes(
			attribute.String("signature.algorithm", signed.Algorithm),
			attribute.String("signature.hash_algorithm", string(signed.HashAlgorithm)),
		)
	}
	endWithError(span, err)
	return signed, err
}

func (tsm *tracingServiceMiddleware) Verify(ctx context.Context, req signature.VerifyRequest) (*signature.VerifyResult, error) {
	ctx, span, region := tsm.start(ctx, "Verify")
	defer region.End()
	span.SetAttributes(
		attribute.Bool("signature.has_data", req.Data != nil),
		attribute.Bool("signature.has_digest", len(req.Digest) != 0),
	)

	result, err := tsm.innerService.Verify(ctx, req)
	if err == nil {
		span.SetAttributes(
			attribute.Bool("signature.valid", result.Valid),
			attribute.String("signature.reason", string(result.Reason)),
		)
	}
	endWithError(span, err)
	return result, err
}
