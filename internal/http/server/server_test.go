package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jdillenkofer/signet/internal/http/middlewares"
	"github.com/jdillenkofer/signet/internal/signature"
	prometheusMiddleware "github.com/jdillenkofer/signet/internal/signature/middlewares/prometheus"
	"github.com/jdillenkofer/signet/internal/signing"
	testutils "github.com/jdillenkofer/signet/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxUploadSize = 1 << 20

func newTestHandler(t *testing.T, algorithm string) http.Handler {
	t.Helper()
	testutils.SkipUnlessAlgorithm(t, algorithm)
	scheme, err := signing.NewScheme(signing.Options{Algorithm: algorithm})
	require.NoError(t, err)
	svc, err := signature.NewService(signature.Config{Scheme: scheme})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupServer(logger, testMaxUploadSize, svc)
}

// multipartRequest sends every part as a file upload, the way the browser
// frontend does.
func multipartRequest(t *testing.T, path string, parts map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range parts {
		part, err := writer.CreateFormFile(name, name+".txt")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(contentTypeHeader, writer.FormDataContentType())
	return req
}

func do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func createKeys(t *testing.T, handler http.Handler) KeyPairResult {
	t.Helper()
	rec := do(handler, httptest.NewRequest(http.MethodPost, "/api/create-keys", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, applicationJsonContentType, rec.Header().Get(contentTypeHeader))
	assert.NotEmpty(t, rec.Header().Get(middlewares.RequestIdHeader))
	return decode[KeyPairResult](t, rec)
}

func sign(t *testing.T, handler http.Handler, data []byte, privateKey string) SignResult {
	t.Helper()
	rec := do(handler, multipartRequest(t, "/api/sign", map[string][]byte{
		"file":        data,
		"private_key": []byte(privateKey),
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[SignResult](t, rec)
}

func TestCreateSignVerifyRoundTrip(t *testing.T) {
	testutils.SkipIfIntegration(t)
	for _, algorithm := range signing.SupportedAlgorithms() {
		t.Run(algorithm, func(t *testing.T) {
			handler := newTestHandler(t, algorithm)
			keys := createKeys(t, handler)
			assert.Contains(t, keys.PrivateKey, "PRIVATE")
			assert.Contains(t, keys.PublicKey, "PUBLIC")

			data := []byte("hello world\n")
			signed := sign(t, handler, data, keys.PrivateKey)
			assert.Equal(t, "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447", signed.Hash)
			assert.Equal(t, algorithm, signed.Algorithm)
			assert.Equal(t, "sha256", signed.HashAlgorithm)

			rec := do(handler, multipartRequest(t, "/api/verify", map[string][]byte{
				"signature":  []byte(signed.Signature),
				"public_key": []byte(keys.PublicKey),
				"hash":       []byte(signed.Hash),
			}))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, VerifyResult{Status: "valid"}, decode[VerifyResult](t, rec))

			rec = do(handler, multipartRequest(t, "/api/verify", map[string][]byte{
				"signature":  []byte(signed.Signature),
				"public_key": []byte(keys.PublicKey),
				"file":       data,
			}))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestVerifyAlteredData(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)
	keys := createKeys(t, handler)
	signed := sign(t, handler, []byte("original"), keys.PrivateKey)

	rec := do(handler, multipartRequest(t, "/api/verify", map[string][]byte{
		"signature":  []byte(signed.Signature),
		"public_key": []byte(keys.PublicKey),
		"file":       []byte("altered"),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, VerifyResult{Status: "invalid", Error: string(signing.ReasonSignatureInvalid)}, decode[VerifyResult](t, rec))

	rec = do(handler, multipartRequest(t, "/api/verify", map[string][]byte{
		"signature":  []byte(signed.Signature),
		"public_key": []byte(keys.PublicKey),
		"file":       []byte("altered"),
		"hash":       []byte(signed.Hash),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, VerifyResult{Status: "invalid", Error: string(signing.ReasonDigestMismatch)}, decode[VerifyResult](t, rec))
}

func TestSignMissingFiles(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)

	rec := do(handler, multipartRequest(t, "/api/sign", map[string][]byte{"file": []byte("data")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorResult{Error: "Missing files"}, decode[ErrorResult](t, rec))

	rec = do(handler, httptest.NewRequest(http.MethodPost, "/api/sign", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorResult{Error: "Missing files"}, decode[ErrorResult](t, rec))
}

func TestVerifyMissingFiles(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)

	rec := do(handler, multipartRequest(t, "/api/verify", map[string][]byte{"signature": []byte("00")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorResult{Error: "Missing files"}, decode[ErrorResult](t, rec))
}

func TestSignWithMalformedKey(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmRsaPss)

	rec := do(handler, multipartRequest(t, "/api/sign", map[string][]byte{
		"file":        []byte("data"),
		"private_key": []byte("not-a-key"),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResult](t, rec).Error, "invalid key format")
}

func TestVerifyWithMalformedHash(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)
	keys := createKeys(t, handler)

	rec := do(handler, multipartRequest(t, "/api/verify", map[string][]byte{
		"signature":  []byte("00"),
		"public_key": []byte(keys.PublicKey),
		"hash":       []byte("not hex"),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResult](t, rec).Error, "failed to decode hex")
}

func TestUploadTooLarge(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)

	req := multipartRequest(t, "/api/sign", map[string][]byte{
		"file":        bytes.Repeat([]byte{'a'}, testMaxUploadSize+1),
		"private_key": []byte("key"),
	})
	rec := do(handler, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChunkedUploadTooLarge(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)

	req := multipartRequest(t, "/api/sign", map[string][]byte{
		"file":        bytes.Repeat([]byte{'a'}, testMaxUploadSize+1),
		"private_key": []byte("key"),
	})
	req.ContentLength = -1
	rec := do(handler, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, applicationJsonContentType, rec.Header().Get(contentTypeHeader))
	assert.Contains(t, decode[ErrorResult](t, rec).Error, "request body too large")
}

func TestCorsPreflight(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)

	req := httptest.NewRequest(http.MethodOptions, "/api/verify", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(handler, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	testutils.SkipIfIntegration(t)
	handler := newTestHandler(t, signing.AlgorithmEd25519)

	rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/sign", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = do(handler, httptest.NewRequest(http.MethodPost, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonitoringServer(t *testing.T) {
	testutils.SkipIfIntegration(t)
	testutils.SkipUnlessAlgorithm(t, signing.AlgorithmEd25519)
	registry := prometheus.NewRegistry()
	scheme, err := signing.NewScheme(signing.Options{Algorithm: signing.AlgorithmEd25519})
	require.NoError(t, err)
	svc, err := signature.NewService(signature.Config{Scheme: scheme})
	require.NoError(t, err)
	svc, err = prometheusMiddleware.NewServiceMiddleware(svc, registry)
	require.NoError(t, err)

	api := SetupServer(slog.New(slog.NewTextHandler(io.Discard, nil)), testMaxUploadSize, svc)
	createKeys(t, api)

	monitoring := SetupMonitoringServer(registry)
	rec := do(monitoring, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())

	rec = do(monitoring, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `signet_signature_successful_ops_total{type="CreateKeys"} 1`))
}
