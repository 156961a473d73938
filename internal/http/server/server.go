package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"runtime/trace"

	"github.com/jdillenkofer/signet/internal/cryptoerr"
	"github.com/jdillenkofer/signet/internal/http/middlewares"
	"github.com/jdillenkofer/signet/internal/signature"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const contentTypeHeader = "Content-Type"
const applicationJsonContentType = "application/json"

// multipart parts above this size are spooled to disk by the standard library
const maxMultipartMemory = 8 << 20

const missingFilesMessage = "Missing files"
const statusValid = "valid"
const statusInvalid = "invalid"

type Server struct {
	service signature.Service
	logger  *slog.Logger
}

type KeyPairResult struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

type SignResult struct {
	Signature     string `json:"signature"`
	Hash          string `json:"hash"`
	Algorithm     string `json:"algorithm"`
	HashAlgorithm string `json:"hash_algorithm"`
}

type VerifyResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ErrorResult struct {
	Error string `json:"error"`
}

func SetupServer(logger *slog.Logger, maxUploadSize int64, service signature.Service) http.Handler {
	server := &Server{
		service: service,
		logger:  logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/create-keys", server.createKeysHandler)
	mux.HandleFunc("POST /api/sign", server.signHandler)
	mux.HandleFunc("POST /api/verify", server.verifyHandler)
	var rootHandler http.Handler = mux
	rootHandler = middlewares.MakeBodyLimitMiddleware(maxUploadSize, rootHandler)
	rootHandler = middlewares.MakeCorsMiddleware(rootHandler)
	rootHandler = middlewares.MakeLoggingMiddleware(logger, rootHandler)
	rootHandler = middlewares.MakeRequestIdMiddleware(rootHandler)
	return rootHandler
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	w.Write([]byte("Healthy"))
}

func SetupMonitoringServer(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", healthCheckHandler)
	var rootHandler http.Handler = mux
	return rootHandler
}

func (s *Server) writeJson(w http.ResponseWriter, r *http.Request, statusCode int, body any) {
	w.Header().Set(contentTypeHeader, applicationJsonContentType)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "Error while writing response", "requestId", middlewares.RequestIdFromContext(r.Context()), "error", err)
	}
}

func (s *Server) handleError(err error, w http.ResponseWriter, r *http.Request) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		s.writeJson(w, r, http.StatusRequestEntityTooLarge, ErrorResult{Error: err.Error()})
	case errors.Is(err, cryptoerr.ErrMissingInput):
		s.writeJson(w, r, http.StatusBadRequest, ErrorResult{Error: missingFilesMessage})
	case cryptoerr.IsUserError(err):
		s.writeJson(w, r, http.StatusBadRequest, ErrorResult{Error: err.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "requestId", middlewares.RequestIdFromContext(r.Context()), "error", err)
		s.writeJson(w, r, http.StatusInternalServerError, ErrorResult{Error: err.Error()})
	}
}

// parseForm accepts multipart bodies. Any other body is treated as a request
// without files so that the caller reports the missing fields.
func parseForm(r *http.Request) (*multipart.Form, error) {
	err := r.ParseMultipartForm(maxMultipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return &multipart.Form{}, nil
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, cryptoerr.NewInputError("body", err)
	}
	return r.MultipartForm, nil
}

// readPart returns the content of the uploaded file or plain form field called
// name, or nil if the request carries neither.
func readPart(form *multipart.Form, name string) ([]byte, error) {
	if headers := form.File[name]; len(headers) > 0 {
		file, err := headers[0].Open()
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	if values := form.Value[name]; len(values) > 0 {
		return []byte(values[0]), nil
	}
	return nil, nil
}

func readParts(form *multipart.Form, names ...string) (map[string][]byte, error) {
	parts := make(map[string][]byte, len(names))
	for _, name := range names {
		content, err := readPart(form, name)
		if err != nil {
			return nil, err
		}
		parts[name] = content
	}
	return parts, nil
}

func (s *Server) createKeysHandler(w http.ResponseWriter, r *http.Request) {
	ctx, task := trace.NewTask(r.Context(), "Server.createKeysHandler()")
	defer task.End()

	keyPair, err := s.service.CreateKeys(ctx)
	if err != nil {
		s.handleError(err, w, r)
		return
	}
	s.writeJson(w, r, http.StatusOK, KeyPairResult{
		PrivateKey: string(keyPair.PrivateKey),
		PublicKey:  string(keyPair.PublicKey),
	})
}

func (s *Server) signHandler(w http.ResponseWriter, r *http.Request) {
	ctx, task := trace.NewTask(r.Context(), "Server.signHandler()")
	defer task.End()

	form, err := parseForm(r)
	if err != nil {
		s.handleError(err, w, r)
		return
	}
	defer form.RemoveAll()
	parts, err := readParts(form, signature.FieldData, signature.FieldPrivateKey)
	if err != nil {
		s.handleError(err, w, r)
		return
	}

	signed, err := s.service.Sign(ctx, signature.SignRequest{
		Data:       parts[signature.FieldData],
		PrivateKey: parts[signature.FieldPrivateKey],
	})
	if err != nil {
		s.handleError(err, w, r)
		return
	}
	s.writeJson(w, r, http.StatusOK, SignResult{
		Signature:     string(signed.Signature),
		Hash:          string(signed.Digest),
		Algorithm:     signed.Algorithm,
		HashAlgorithm: string(signed.HashAlgorithm),
	})
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, task := trace.NewTask(r.Context(), "Server.verifyHandler()")
	defer task.End()

	form, err := parseForm(r)
	if err != nil {
		s.handleError(err, w, r)
		return
	}
	defer form.RemoveAll()
	parts, err := readParts(form, signature.FieldSignature, signature.FieldPublicKey, signature.FieldData, signature.FieldDigest)
	if err != nil {
		s.handleError(err, w, r)
		return
	}

	result, err := s.service.Verify(ctx, signature.VerifyRequest{
		Signature: parts[signature.FieldSignature],
		PublicKey: parts[signature.FieldPublicKey],
		Data:      parts[signature.FieldData],
		Digest:    parts[signature.FieldDigest],
	})
	if err != nil {
		s.handleError(err, w, r)
		return
	}
	if !result.Valid {
		s.writeJson(w, r, http.StatusBadRequest, VerifyResult{Status: statusInvalid, Error: string(result.Reason)})
		return
	}
	s.writeJson(w, r, http.StatusOK, VerifyResult{Status: statusValid})
}
