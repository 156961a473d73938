package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jdillenkofer/signet/internal/signature"
	"github.com/jdillenkofer/signet/internal/signing"
	testutils "github.com/jdillenkofer/signet/internal/testing"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	return recorder
}

func newTestService(t *testing.T) signature.Service {
	t.Helper()
	scheme, err := signing.NewScheme(signing.Options{Algorithm: signing.AlgorithmEd25519})
	require.NoError(t, err)
	svc, err := signature.NewService(signature.Config{Scheme: scheme})
	require.NoError(t, err)
	return svc
}

func TestTracingServiceMiddlewareRecordsSpans(t *testing.T) {
	testutils.SkipIfIntegration(t)
	recorder := setupRecorder(t)
	ctx := context.Background()
	svc := NewServiceMiddleware("Signature", newTestService(t))

	keyPair, err := svc.CreateKeys(ctx)
	require.NoError(t, err)
	signed, err := svc.Sign(ctx, signature.SignRequest{Data: []byte("data"), PrivateKey: keyPair.PrivateKey})
	require.NoError(t, err)
	result, err := svc.Verify(ctx, signature.VerifyRequest{Signature: signed.Signature, PublicKey: keyPair.PublicKey, Data: []byte("data")})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "Signature.CreateKeys", spans[0].Name())
	assert.Equal(t, "Signature.Sign", spans[1].Name())
	assert.Equal(t, "Signature.Verify", spans[2].Name())
	for _, span := range spans {
		assert.NotEqual(t, codes.Error, span.Status().Code)
	}
}

func TestTracingServiceMiddlewareRecordsErrors(t *testing.T) {
	testutils.SkipIfIntegration(t)
	recorder := setupRecorder(t)
	svc := NewServiceMiddleware("Signature", newTestService(t))

	_, err := svc.Sign(context.Background(), signature.SignRequest{Data: []byte("data"), PrivateKey: []byte("not-a-key")})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
