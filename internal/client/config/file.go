package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/srpgate/internal/flagx"
	"github.com/dmitrijs2005/srpgate/internal/timex"
)

// fileConfig is the on-disk shape of Config. Durations accept "3s" or
// integer nanoseconds.
type fileConfig struct {
	ServerURL          string         `json:"server_url" toml:"server_url" yaml:"server_url"`
	Transport          string         `json:"transport" toml:"transport" yaml:"transport"`
	RequestTimeout     timex.Duration `json:"request_timeout" toml:"request_timeout" yaml:"request_timeout"`
	RequiredRole       string         `json:"required_role" toml:"required_role" yaml:"required_role"`
	RequireServerProof bool           `json:"require_server_proof" toml:"require_server_proof" yaml:"require_server_proof"`
	OTPResendInterval  timex.Duration `json:"otp_resend_interval" toml:"otp_resend_interval" yaml:"otp_resend_interval"`
	GroupBits          int            `json:"group_bits" toml:"group_bits" yaml:"group_bits"`
	Hash               string         `json:"hash" toml:"hash" yaml:"hash"`
	Evidence           string         `json:"evidence" toml:"evidence" yaml:"evidence"`
	Hardening          string         `json:"hardening" toml:"hardening" yaml:"hardening"`
	LogLevel           string         `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFormat          string         `json:"log_format" toml:"log_format" yaml:"log_format"`
}

func fromConfig(c *Config) fileConfig {
	return fileConfig{
		ServerURL:          c.ServerURL,
		Transport:          c.Transport,
		RequestTimeout:     timex.Of(c.RequestTimeout),
		RequiredRole:       c.RequiredRole,
		RequireServerProof: c.RequireServerProof,
		OTPResendInterval:  timex.Of(c.OTPResendInterval),
		GroupBits:          c.GroupBits,
		Hash:               c.Hash,
		Evidence:           c.Evidence,
		Hardening:          c.Hardening,
		LogLevel:           c.LogLevel,
		LogFormat:          c.LogFormat,
	}
}

func (fc fileConfig) apply(c *Config) {
	c.ServerURL = fc.ServerURL
	c.Transport = fc.Transport
	c.RequestTimeout = fc.RequestTimeout.Duration
	c.RequiredRole = fc.RequiredRole
	c.RequireServerProof = fc.RequireServerProof
	c.OTPResendInterval = fc.OTPResendInterval.Duration
	c.GroupBits = fc.GroupBits
	c.Hash = fc.Hash
	c.Evidence = fc.Evidence
	c.Hardening = fc.Hardening
	c.LogLevel = fc.LogLevel
	c.LogFormat = fc.LogFormat
}

// parseFile overlays cfg with the file named by -c / -config. Keys missing
// from the file keep their current value. The format follows the extension:
// .json, .toml, .yaml or .yml. Panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := loadFile(path, cfg); err != nil {
		panic(err)
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := fromConfig(cfg)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}
