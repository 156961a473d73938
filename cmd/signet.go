package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jdillenkofer/signet/internal/codec"
	"github.com/jdillenkofer/signet/internal/hashing"
	"github.com/jdillenkofer/signet/internal/http/server"
	"github.com/jdillenkofer/signet/internal/settings"
	"github.com/jdillenkofer/signet/internal/signature"
	prometheusMiddleware "github.com/jdillenkofer/signet/internal/signature/middlewares/prometheus"
	tracingMiddleware "github.com/jdillenkofer/signet/internal/signature/middlewares/tracing"
	"github.com/jdillenkofer/signet/internal/signing"
	"github.com/jdillenkofer/signet/internal/telemetry"
	"github.com/jdillenkofer/signet/internal/tool"
)

const shutdownTimeout = 10 * time.Second
const readHeaderTimeout = 10 * time.Second

const logMaxSizeMB = 10
const logMaxBackups = 3
const logMaxAgeDays = 28

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// app carries the state shared between the root command and its subcommands.
type app struct {
	configFile   string
	flagSettings func() *settings.Settings
	settings     *settings.Settings
	logger       *slog.Logger
	logCloser    io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{logCloser: nopCloser{}}
	err := a.execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// execute runs the command line and releases the log file afterwards, also
// when the command fails.
func (a *app) execute(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	defer a.closeLog(stderr)
	cmd := a.newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func (a *app) closeLog(stderr io.Writer) {
	if err := a.logCloser.Close(); err != nil {
		fmt.Fprintln(stderr, "Couldn't close log file:", err)
	}
	a.logCloser = nopCloser{}
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signet",
		Short: "Create key pairs, sign files and verify detached signatures",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings.LoadSettings(a.configFile, a.flagSettings())
			if err != nil {
				return fmt.Errorf("error while loading settings: %w", err)
			}
			a.settings = s
			return a.setupLogger(cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a json or yaml config file")
	a.flagSettings = settings.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(a.newCreateKeysCmd())
	cmd.AddCommand(a.newSignCmd())
	cmd.AddCommand(a.newVerifyCmd())
	cmd.AddCommand(a.newHashCmd())
	cmd.AddCommand(a.newServeCmd())
	return cmd
}

func (a *app) setupLogger(stderr io.Writer) error {
	programLevel := new(slog.LevelVar)
	if err := programLevel.UnmarshalText([]byte(a.settings.LogLevel())); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.settings.LogLevel(), err)
	}

	var out io.Writer = stderr
	if a.settings.LogFile() != "" {
		logFile := &lumberjack.Logger{
			Filename:   a.settings.LogFile(),
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		out = logFile
		a.logCloser = logFile
	}

	a.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		AddSource: true,
		Level:     programLevel,
	}))
	slog.SetDefault(a.logger)
	return nil
}

type components struct {
	service     signature.Service
	hasher      *hashing.Hasher
	digestCodec codec.Codec
}

// buildService wires the signature service from the settings. The metrics
// middleware is only added when registerer is not nil.
func buildService(s *settings.Settings, registerer prometheus.Registerer) (*components, error) {
	hasher, err := hashing.New(hashing.Algorithm(s.HashAlgorithm()))
	if err != nil {
		return nil, err
	}
	scheme, err := signing.NewScheme(signing.Options{
		Algorithm:     s.Algorithm(),
		Hasher:        hasher,
		RsaKeyBits:    s.RsaKeyBits(),
		Deterministic: s.Deterministic(),
	})
	if err != nil {
		return nil, err
	}
	digestCodec, err := codec.ByName(s.DigestEncoding(), codec.DigestBlockType)
	if err != nil {
		return nil, err
	}
	signatureCodec, err := codec.ByName(s.SignatureEncoding(), codec.SignatureBlockType)
	if err != nil {
		return nil, err
	}

	svc, err := signature.NewService(signature.Config{
		Scheme:         scheme,
		Hasher:         hasher,
		DigestCodec:    digestCodec,
		SignatureCodec: signatureCodec,
		RequireData:    s.RequireData(),
	})
	if err != nil {
		return nil, err
	}
	svc = tracingMiddleware.NewServiceMiddleware("SignatureService", svc)
	if registerer != nil {
		svc, err = prometheusMiddleware.NewServiceMiddleware(svc, registerer)
		if err != nil {
			return nil, err
		}
	}
	return &components{service: svc, hasher: hasher, digestCodec: digestCodec}, nil
}

func (a *app) newTool() (*tool.SignatureTool, error) {
	c, err := buildService(a.settings, nil)
	if err != nil {
		return nil, err
	}
	return tool.NewSignatureTool(c.service, c.hasher, c.digestCodec), nil
}

func (a *app) newCreateKeysCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "create-keys",
		Short: "Generate a key pair",
		Long:  "Generate a key pair. With --out the private key is written to <out> and the public key to <out>.pub, otherwise both are printed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.newTool()
			if err != nil {
				return err
			}
			return t.CreateKeys(cmd.Context(), out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path of the private key file")
	return cmd
}

func (a *app) newSignCmd() *cobra.Command {
	var keyPath, dataPath, out string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a file and write <out>.sig and <out>.hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.newTool()
			if err != nil {
				return err
			}
			return t.Sign(cmd.Context(), keyPath, dataPath, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "path of the private key")
	cmd.Flags().StringVar(&dataPath, "file", "", "path of the file to sign")
	cmd.Flags().StringVar(&out, "out", "", "prefix of the written artifacts (defaults to --file)")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) newVerifyCmd() *cobra.Command {
	var keyPath, sigPath, dataPath, digestPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a detached signature against a file or a hash file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.newTool()
			if err != nil {
				return err
			}
			err = t.Verify(cmd.Context(), keyPath, sigPath, dataPath, digestPath, cmd.OutOrStdout())
			var verificationErr *tool.VerificationError
			if errors.As(err, &verificationErr) {
				a.logger.Warn("Signature rejected", "signature", verificationErr.Path, "reason", verificationErr.Reason)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "path of the public key")
	cmd.Flags().StringVar(&sigPath, "sig", "", "path of the signature")
	cmd.Flags().StringVar(&dataPath, "file", "", "path of the signed file")
	cmd.Flags().StringVar(&digestPath, "hash", "", "path of the hash file")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("sig")
	cmd.MarkFlagsOneRequired("file", "hash")
	return cmd
}

func (a *app) newHashCmd() *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the encoded digest of a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.newTool()
			if err != nil {
				return err
			}
			return t.Hash(cmd.Context(), dataPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dataPath, "file", "", "path of the file to hash")
	cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the signature api and the monitoring endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	s := a.settings
	shutdownOtel, err := telemetry.SetupOTelSDK(ctx, s)
	if err != nil {
		return fmt.Errorf("error while setting up opentelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Error(fmt.Sprint("Couldn't shutdown opentelemetry: ", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c, err := buildService(s, registry)
	if err != nil {
		return err
	}

	handler := server.SetupServer(a.logger, s.MaxUploadSize(), c.service)
	addr := fmt.Sprintf("%v:%v", s.BindAddress(), s.Port())
	httpServers := []*http.Server{{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}}

	if s.MonitoringPortEnabled() {
		monitoringAddr := fmt.Sprintf("%v:%v", s.BindAddress(), s.MonitoringPort())
		httpServers = append(httpServers, &http.Server{
			BaseContext:       func(net.Listener) context.Context { return ctx },
			Addr:              monitoringAddr,
			Handler:           server.SetupMonitoringServer(registry),
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, httpServer := range httpServers {
		g.Go(func() error {
			slog.Info(fmt.Sprintf("Listening on http://%v", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("error while running http server on %v: %w", httpServer.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var err error
		for _, httpServer := range httpServers {
			err = errors.Join(err, httpServer.Shutdown(shutdownCtx))
		}
		slog.Info("Stopped http servers")
		return err
	})
	return g.Wait()
}
