package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
	// PublicBaseURL overrides the host used in returned object URLs.
	PublicBaseURL string
	// Inferred is set when the mode was derived from an emulator host alone.
	Inferred bool
}

func (cfg ObjectStorageConfig) IsEmulator() bool { return cfg.Mode == ObjectStorageModeGCSEmulator }

type ObjectStorageConfigError struct {
	Field string
	Value string
	Cause error
}

func (e *ObjectStorageConfigError) Error() string {
	switch e.Field {
	case "OBJECT_STORAGE_MODE":
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	case "STORAGE_EMULATOR_HOST":
		if e.Value == "" {
			return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", ObjectStorageModeGCSEmulator)
		}
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	default:
		return fmt.Sprintf("invalid %s=%q", e.Field, e.Value)
	}
}

func (e *ObjectStorageConfigError) Unwrap() error { return e.Cause }

// ResolveObjectStorageConfig normalizes the configured mode. An empty mode
// with an emulator host selects the emulator.
func ResolveObjectStorageConfig(mode, emulatorHost, publicBaseURL string) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		EmulatorHost:  strings.TrimRight(strings.TrimSpace(emulatorHost), "/"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
	switch m := ObjectStorageMode(strings.ToLower(strings.TrimSpace(mode))); m {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode, cfg.Inferred = ObjectStorageModeGCSEmulator, true
		}
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		cfg.Mode = m
	default:
		return cfg, &ObjectStorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: mode}
	}

	if cfg.PublicBaseURL != "" && !absoluteURL(cfg.PublicBaseURL) {
		return cfg, &ObjectStorageConfigError{Field: "OBJECT_STORAGE_PUBLIC_BASE_URL", Value: cfg.PublicBaseURL}
	}
	if !cfg.IsEmulator() {
		return cfg, nil
	}
	if cfg.EmulatorHost == "" || !absoluteURL(cfg.EmulatorHost) {
		return cfg, &ObjectStorageConfigError{Field: "STORAGE_EMULATOR_HOST", Value: cfg.EmulatorHost}
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.EmulatorHost
	}
	return cfg, nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && strings.TrimSpace(u.Scheme) != "" && strings.TrimSpace(u.Host) != ""
}
