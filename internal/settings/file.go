package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileSettings struct {
	BindAddress           *string `json:"bindAddress" yaml:"bindAddress"`
	Port                  *int    `json:"port" yaml:"port"`
	MonitoringPort        *int    `json:"monitoringPort" yaml:"monitoringPort"`
	MonitoringPortEnabled *bool   `json:"monitoringPortEnabled" yaml:"monitoringPortEnabled"`
	Algorithm             *string `json:"algorithm" yaml:"algorithm"`
	HashAlgorithm         *string `json:"hashAlgorithm" yaml:"hashAlgorithm"`
	RsaKeyBits            *int    `json:"rsaKeyBits" yaml:"rsaKeyBits"`
	Deterministic         *bool   `json:"deterministic" yaml:"deterministic"`
	DigestEncoding        *string `json:"digestEncoding" yaml:"digestEncoding"`
	SignatureEncoding     *string `json:"signatureEncoding" yaml:"signatureEncoding"`
	RequireData           *bool   `json:"requireData" yaml:"requireData"`
	MaxUploadSize         *int64  `json:"maxUploadSize" yaml:"maxUploadSize"`
	LogLevel              *string `json:"logLevel" yaml:"logLevel"`
	LogFile               *string `json:"logFile" yaml:"logFile"`
	OtelExporter          *string `json:"otelExporter" yaml:"otelExporter"`
	OtelEndpoint          *string `json:"otelEndpoint" yaml:"otelEndpoint"`
}

func (f *fileSettings) toSettings() *Settings {
	return &Settings{
		bindAddress:           f.BindAddress,
		port:                  f.Port,
		monitoringPort:        f.MonitoringPort,
		monitoringPortEnabled: f.MonitoringPortEnabled,
		algorithm:             f.Algorithm,
		hashAlgorithm:         f.HashAlgorithm,
		rsaKeyBits:            f.RsaKeyBits,
		deterministic:         f.Deterministic,
		digestEncoding:        f.DigestEncoding,
		signatureEncoding:     f.SignatureEncoding,
		requireData:           f.RequireData,
		maxUploadSize:         f.MaxUploadSize,
		logLevel:              f.LogLevel,
		logFile:               f.LogFile,
		otelExporter:          f.OtelExporter,
		otelEndpoint:          f.OtelEndpoint,
	}
}

// loadSettingsFromFile reads a yaml file when the extension is .yaml or .yml and
// json otherwise. Unknown keys are rejected.
func loadSettingsFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var settings fileSettings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	return settings.toSettings(), nil
}
