package settings

import (
	"fmt"
	"reflect"
	"unsafe"
)

const defaultBindAddress = "0.0.0.0"
const defaultPort = 9000
const defaultMonitoringPort = 9001
const defaultMonitoringPortEnabled = true
const defaultAlgorithm = "rsa-pss"
const defaultHashAlgorithm = "sha256"
const defaultRsaKeyBits = 2048
const defaultDeterministic = false
const defaultDigestEncoding = "hex"
const defaultSignatureEncoding = "hex"
const defaultRequireData = false
const defaultMaxUploadSize int64 = 32 << 20
const defaultLogLevel = "info"
const defaultLogFile = ""
const (
	OtelExporterNone   = ""
	OtelExporterOtlp   = "otlp"
	OtelExporterStdout = "stdout"
)

const defaultOtelExporter = OtelExporterNone
const defaultOtelEndpoint = ""

const mergableTagKey = "mergable"

type Settings struct {
	bindAddress           *string `mergable:""`
	port                  *int    `mergable:""`
	monitoringPort        *int    `mergable:""`
	monitoringPortEnabled *bool   `mergable:""`
	algorithm             *string `mergable:""`
	hashAlgorithm         *string `mergable:""`
	rsaKeyBits            *int    `mergable:""`
	deterministic         *bool   `mergable:""`
	digestEncoding        *string `mergable:""`
	signatureEncoding     *string `mergable:""`
	requireData           *bool   `mergable:""`
	maxUploadSize         *int64  `mergable:""`
	logLevel              *string `mergable:""`
	logFile               *string `mergable:""`
	otelExporter          *string `mergable:""`
	otelEndpoint          *string `mergable:""`
}

func valueOrDefault[V any](v *V, defaultValue V) V {
	if v == nil {
		return defaultValue
	}
	return *v
}

func (s *Settings) BindAddress() string {
	return valueOrDefault(s.bindAddress, defaultBindAddress)
}

func (s *Settings) Port() int {
	return valueOrDefault(s.port, defaultPort)
}

func (s *Settings) MonitoringPort() int {
	return valueOrDefault(s.monitoringPort, defaultMonitoringPort)
}

func (s *Settings) MonitoringPortEnabled() bool {
	return valueOrDefault(s.monitoringPortEnabled, defaultMonitoringPortEnabled)
}

func (s *Settings) Algorithm() string {
	return valueOrDefault(s.algorithm, defaultAlgorithm)
}

func (s *Settings) HashAlgorithm() string {
	return valueOrDefault(s.hashAlgorithm, defaultHashAlgorithm)
}

func (s *Settings) RsaKeyBits() int {
	return valueOrDefault(s.rsaKeyBits, defaultRsaKeyBits)
}

func (s *Settings) Deterministic() bool {
	return valueOrDefault(s.deterministic, defaultDeterministic)
}

func (s *Settings) DigestEncoding() string {
	return valueOrDefault(s.digestEncoding, defaultDigestEncoding)
}

func (s *Settings) SignatureEncoding() string {
	return valueOrDefault(s.signatureEncoding, defaultSignatureEncoding)
}

func (s *Settings) RequireData() bool {
	return valueOrDefault(s.requireData, defaultRequireData)
}

func (s *Settings) MaxUploadSize() int64 {
	return valueOrDefault(s.maxUploadSize, defaultMaxUploadSize)
}

func (s *Settings) LogLevel() string {
	return valueOrDefault(s.logLevel, defaultLogLevel)
}

func (s *Settings) LogFile() string {
	return valueOrDefault(s.logFile, defaultLogFile)
}

// OtelExporter is OtelExporterOtlp, OtelExporterStdout or OtelExporterNone
// when tracing is disabled.
func (s *Settings) OtelExporter() string {
	return valueOrDefault(s.otelExporter, defaultOtelExporter)
}

func (s *Settings) OtelEndpoint() string {
	return valueOrDefault(s.otelEndpoint, defaultOtelEndpoint)
}

func getUnexportedField(field reflect.Value) interface{} {
	return reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Interface()
}

func setUnexportedField(field reflect.Value, value interface{}) {
	reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Set(reflect.ValueOf(value))
}

func isNilish(val any) bool {
	if val == nil {
		return true
	}

	v := reflect.ValueOf(val)
	k := v.Kind()
	switch k {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer,
		reflect.UnsafePointer, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}

	return false
}

func (s *Settings) merge(other *Settings) {
	fields := reflect.VisibleFields(reflect.TypeOf(other).Elem())
	sStruct := reflect.ValueOf(s).Elem()
	otherStruct := reflect.ValueOf(other).Elem()

	for _, field := range fields {
		if _, ok := field.Tag.Lookup(mergableTagKey); !ok {
			continue
		}
		sField := sStruct.FieldByName(field.Name)
		otherField := otherStruct.FieldByName(field.Name)

		otherFieldValue := getUnexportedField(otherField)
		if field.Type.Kind() == reflect.Pointer && isNilish(otherFieldValue) {
			continue
		}
		setUnexportedField(sField, otherFieldValue)
	}
}

func mergeSettings(settings ...*Settings) *Settings {
	var result *Settings = &Settings{}
	for _, setting := range settings {
		if setting == nil {
			continue
		}
		result.merge(setting)
	}
	return result
}

// LoadSettings layers the config file, the command line flags and the
// environment, in that order. An empty configFile skips the file layer.
func LoadSettings(configFile string, flagSettings *Settings) (*Settings, error) {
	var fileSettings *Settings
	if configFile != "" {
		var err error
		fileSettings, err = loadSettingsFromFile(configFile)
		if err != nil {
			return nil, err
		}
	}
	envSettings, err := loadSettingsFromEnv()
	if err != nil {
		return nil, err
	}
	settings := mergeSettings(fileSettings, flagSettings, envSettings)
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) validate() error {
	switch s.OtelExporter() {
	case OtelExporterNone, OtelExporterOtlp, OtelExporterStdout:
	default:
		return fmt.Errorf("unknown otel exporter %q", s.OtelExporter())
	}
	if s.OtelEndpoint() != "" && s.OtelExporter() != OtelExporterOtlp {
		return fmt.Errorf("otel endpoint requires the %q exporter", OtelExporterOtlp)
	}
	return nil
}
