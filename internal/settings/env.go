package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envKeyPrefix string = "SIGNET"

const bindAddressEnvKey string = envKeyPrefix + "_BIND_ADDRESS"
const portEnvKey string = envKeyPrefix + "_PORT"
const monitoringPortEnvKey string = envKeyPrefix + "_MONITORING_PORT"
const monitoringPortEnabledEnvKey string = envKeyPrefix + "_MONITORING_PORT_ENABLED"
const algorithmEnvKey string = envKeyPrefix + "_ALGORITHM"
const hashAlgorithmEnvKey string = envKeyPrefix + "_HASH_ALGORITHM"
const rsaKeyBitsEnvKey string = envKeyPrefix + "_RSA_KEY_BITS"
const deterministicEnvKey string = envKeyPrefix + "_DETERMINISTIC"
const digestEncodingEnvKey string = envKeyPrefix + "_DIGEST_ENCODING"
const signatureEncodingEnvKey string = envKeyPrefix + "_SIGNATURE_ENCODING"
const requireDataEnvKey string = envKeyPrefix + "_REQUIRE_DATA"
const maxUploadSizeEnvKey string = envKeyPrefix + "_MAX_UPLOAD_SIZE"
const logLevelEnvKey string = envKeyPrefix + "_LOG_LEVEL"
const logFileEnvKey string = envKeyPrefix + "_LOG_FILE"
const otelExporterEnvKey string = envKeyPrefix + "_OTEL_EXPORTER"
const otelEndpointEnvKey string = envKeyPrefix + "_OTEL_ENDPOINT"

func getStringFromEnv(envKey string) *string {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	return &val
}

func getIntFromEnv(envKey string) (*int, error) {
	val := os.Getenv(envKey)
	if val == "" {
		return nil, nil
	}
	int64Val, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", envKey, err)
	}
	intVal := int(int64Val)
	return &intVal, nil
}

func getInt64FromEnv(envKey string) (*int64, error) {
	val := os.Getenv(envKey)
	if val == "" {
		return nil, nil
	}
	int64Val, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", envKey, err)
	}
	return &int64Val, nil
}

func getBoolFromEnv(envKey string) *bool {
	val := os.Getenv(envKey)
	val = strings.ToLower(val)
	if val == "" {
		return nil
	}
	retval := val == "1" || val == "t" || val == "true"
	return &retval
}

func loadSettingsFromEnv() (*Settings, error) {
	port, err := getIntFromEnv(portEnvKey)
	if err != nil {
		return nil, err
	}
	monitoringPort, err := getIntFromEnv(monitoringPortEnvKey)
	if err != nil {
		return nil, err
	}
	rsaKeyBits, err := getIntFromEnv(rsaKeyBitsEnvKey)
	if err != nil {
		return nil, err
	}
	maxUploadSize, err := getInt64FromEnv(maxUploadSizeEnvKey)
	if err != nil {
		return nil, err
	}
	return &Settings{
		bindAddress:           getStringFromEnv(bindAddressEnvKey),
		port:                  port,
		monitoringPort:        monitoringPort,
		monitoringPortEnabled: getBoolFromEnv(monitoringPortEnabledEnvKey),
		algorithm:             getStringFromEnv(algorithmEnvKey),
		hashAlgorithm:         getStringFromEnv(hashAlgorithmEnvKey),
		rsaKeyBits:            rsaKeyBits,
		deterministic:         getBoolFromEnv(deterministicEnvKey),
		digestEncoding:        getStringFromEnv(digestEncodingEnvKey),
		signatureEncoding:     getStringFromEnv(signatureEncodingEnvKey),
		requireData:           getBoolFromEnv(requireDataEnvKey),
		maxUploadSize:         maxUploadSize,
		logLevel:              getStringFromEnv(logLevelEnvKey),
		logFile:               getStringFromEnv(logFileEnvKey),
		otelExporter:          getStringFromEnv(otelExporterEnvKey),
		otelEndpoint:          getStringFromEnv(otelEndpointEnvKey),
	}, nil
}
