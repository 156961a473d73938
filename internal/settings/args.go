package settings

import (
	"github.com/spf13/pflag"
)

func registerStringFlag(flags *pflag.FlagSet, name string, defaultValue string, description string) func() *string {
	stringVar := flags.String(name, defaultValue, description)
	return func() *string {
		if !flags.Changed(name) {
			return nil
		}
		return stringVar
	}
}

func registerIntFlag(flags *pflag.FlagSet, name string, defaultValue int, description string) func() *int {
	intVar := flags.Int(name, defaultValue, description)
	return func() *int {
		if !flags.Changed(name) {
			return nil
		}
		return intVar
	}
}

func registerInt64Flag(flags *pflag.FlagSet, name string, defaultValue int64, description string) func() *int64 {
	int64Var := flags.Int64(name, defaultValue, description)
	return func() *int64 {
		if !flags.Changed(name) {
			return nil
		}
		return int64Var
	}
}

func registerBoolFlag(flags *pflag.FlagSet, name string, defaultValue bool, description string) func() *bool {
	boolVar := flags.Bool(name, defaultValue, description)
	return func() *bool {
		if !flags.Changed(name) {
			return nil
		}
		return boolVar
	}
}

// RegisterFlags adds one flag per setting to flags. The returned function must
// be called after the flags were parsed; it only reports flags that were set
// explicitly so that they do not shadow the config file.
func RegisterFlags(flags *pflag.FlagSet) func() *Settings {
	bindAddressAccessor := registerStringFlag(flags, "bind-address", defaultBindAddress, "the address the api socket is bound to")
	portAccessor := registerIntFlag(flags, "port", defaultPort, "the port for the signature api")
	monitoringPortAccessor := registerIntFlag(flags, "monitoring-port", defaultMonitoringPort, "the port serving /metrics and /health")
	monitoringPortEnabledAccessor := registerBoolFlag(flags, "monitoring-port-enabled", defaultMonitoringPortEnabled, "serve metrics on the monitoring port")
	algorithmAccessor := registerStringFlag(flags, "algorithm", defaultAlgorithm, "the signature algorithm")
	hashAlgorithmAccessor := registerStringFlag(flags, "hash-algorithm", defaultHashAlgorithm, "the hash algorithm used for digests")
	rsaKeyBitsAccessor := registerIntFlag(flags, "rsa-key-bits", defaultRsaKeyBits, "the size of generated rsa keys")
	deterministicAccessor := registerBoolFlag(flags, "deterministic", defaultDeterministic, "require reproducible signatures")
	digestEncodingAccessor := registerStringFlag(flags, "digest-encoding", defaultDigestEncoding, "the encoding of digest files (hex, base64, pem)")
	signatureEncodingAccessor := registerStringFlag(flags, "signature-encoding", defaultSignatureEncoding, "the encoding of signature files (hex, base64, pem)")
	requireDataAccessor := registerBoolFlag(flags, "require-data", defaultRequireData, "reject verifications without the data file")
	maxUploadSizeAccessor := registerInt64Flag(flags, "max-upload-size", defaultMaxUploadSize, "the maximum request body size in bytes")
	logLevelAccessor := registerStringFlag(flags, "log-level", defaultLogLevel, "the log level (debug, info, warn, error)")
	logFileAccessor := registerStringFlag(flags, "log-file", defaultLogFile, "write logs to this file with rotation instead of stderr")
	otelExporterAccessor := registerStringFlag(flags, "otel-exporter", defaultOtelExporter, "the opentelemetry trace exporter (otlp, stdout)")
	otelEndpointAccessor := registerStringFlag(flags, "otel-endpoint", defaultOtelEndpoint, "the otlp http endpoint")

	return func() *Settings {
		return &Settings{
			bindAddress:           bindAddressAccessor(),
			port:                  portAccessor(),
			monitoringPort:        monitoringPortAccessor(),
			monitoringPortEnabled: monitoringPortEnabledAccessor(),
			algorithm:             algorithmAccessor(),
			hashAlgorithm:         hashAlgorithmAccessor(),
			rsaKeyBits:            rsaKeyBitsAccessor(),
			deterministic:         deterministicAccessor(),
			digestEncoding:        digestEncodingAccessor(),
			signatureEncoding:     signatureEncodingAccessor(),
			requireData:           requireDataAccessor(),
			maxUploadSize:         maxUploadSizeAccessor(),
			logLevel:              logLevelAccessor(),
			logFile:               logFileAccessor(),
			otelExporter:          otelExporterAccessor(),
			otelEndpoint:          otelEndpointAccessor(),
		}
	}
}
