package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/srpgate/internal/client/client"
	"github.com/dmitrijs2005/srpgate/internal/client/flow"
	"github.com/dmitrijs2005/srpgate/internal/cryptox"
	"github.com/dmitrijs2005/srpgate/internal/logging"
	"github.com/dmitrijs2005/srpgate/internal/srp"
)

// Transports understood by the CLI.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the auth CLI.
//
// ServerURL is a base URL for the HTTP transport and a host:port target for
// gRPC. The SRP fields must match the server's parameters exactly.
type Config struct {
	ServerURL      string
	Transport      string
	RequestTimeout time.Duration

	RequiredRole       string
	RequireServerProof bool
	OTPResendInterval  time.Duration

	GroupBits int
	Hash      string
	Evidence  string
	Hardening string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Transport = TransportHTTP
	c.RequestTimeout = client.DefaultTimeout
	c.RequiredRole = flow.DefaultRequiredRole
	c.RequireServerProof = false
	c.OTPResendInterval = 30 * time.Second
	c.GroupBits = 2048
	c.Hash = "sha256"
	c.Evidence = srp.EvidenceSimple.String()
	c.Hardening = string(cryptox.HardeningNone)
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then an optional config file, then flags.
// Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is empty")
	}
	switch c.Transport {
	case TransportHTTP, TransportGRPC:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if _, err := c.EngineOptions(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// EngineOptions translates the SRP settings into engine options.
func (c *Config) EngineOptions() ([]srp.Option, error) {
	group, err := srp.GroupByBits(c.GroupBits)
	if err != nil {
		return nil, err
	}
	hashID, err := srp.ParseHash(c.Hash)
	if err != nil {
		return nil, err
	}
	evidence, err := srp.ParseEvidenceMode(c.Evidence)
	if err != nil {
		return nil, err
	}
	hardening, err := cryptox.ParseHardening(c.Hardening)
	if err != nil {
		return nil, err
	}
	return []srp.Option{
		srp.WithGroup(group),
		srp.WithHash(hashID),
		srp.WithEvidence(evidence),
		srp.WithHardening(hardening),
	}, nil
}
