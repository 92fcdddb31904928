// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package config loads the configuration of the server daemon.
//
// Values are read from a YAML file, if one is given, over the defaults.
// Environment variables prefixed with VYSPER_ take precedence over both.
package config // import "github.com/pokebadgerswithspoon/vysper/internal/config"

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
	"mellium.im/sasl"

	"github.com/pokebadgerswithspoon/vysper/jid"
)

// Config is the configuration of the daemon.
type Config struct {
	// Domain is the XMPP domain served.
	Domain string `yaml:"domain" env:"VYSPER_DOMAIN"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug" env:"VYSPER_DEBUG"`

	Client ClientConfig `yaml:"client"`
	BOSH   BOSHConfig   `yaml:"bosh"`
	TLS    TLSConfig    `yaml:"tls"`

	// Mechanisms lists the SASL mechanisms offered, in order of preference.
	Mechanisms []string `yaml:"mechanisms"`

	// Accounts maps usernames to passwords.
	Accounts map[string]string `yaml:"accounts"`
}

// ClientConfig configures the client-to-server listener.
type ClientConfig struct {
	Addr             string        `yaml:"addr" env:"VYSPER_CLIENT_ADDR"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"VYSPER_HANDSHAKE_TIMEOUT"`
}

// BOSHConfig configures the HTTP binding.
type BOSHConfig struct {
	Enabled      bool          `yaml:"enabled" env:"VYSPER_BOSH_ENABLED"`
	Addr         string        `yaml:"addr" env:"VYSPER_BOSH_ADDR"`
	Path         string        `yaml:"path" env:"VYSPER_BOSH_PATH"`
	Wait         int           `yaml:"wait" env:"VYSPER_BOSH_WAIT"`
	MaxBodySize  int64         `yaml:"max_body_size" env:"VYSPER_BOSH_MAX_BODY_SIZE"`
	ReapInterval time.Duration `yaml:"reap_interval" env:"VYSPER_BOSH_REAP_INTERVAL"`
	Gzip         bool          `yaml:"gzip" env:"VYSPER_BOSH_GZIP"`
}

// TLSConfig locates the certificate of the server.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" env:"VYSPER_TLS_CERT"`
	KeyFile  string `yaml:"key_file" env:"VYSPER_TLS_KEY"`
	Required bool   `yaml:"required" env:"VYSPER_TLS_REQUIRED"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Domain: "localhost",
		Client: ClientConfig{
			Addr:             ":5222",
			HandshakeTimeout: 30 * time.Second,
		},
		BOSH: BOSHConfig{
			Enabled:      true,
			Addr:         ":5280",
			Path:         "/http-bind/",
			Wait:         60,
			MaxBodySize:  1 << 20,
			ReapInterval: 10 * time.Second,
			Gzip:         true,
		},
		Mechanisms: []string{sasl.Plain.Name},
	}
}

// Load reads the file at path, if path is not empty, and applies environment
// overrides.
func Load(path string) (Config, error) {
	var r io.Reader = bytes.NewReader(nil)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		r = f
	}
	return Parse(r)
}

// Parse reads a YAML configuration from r and applies environment overrides.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parsing: %w", err)
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration can be used to start a server.
func (c Config) Validate() error {
	j, err := jid.Parse(c.Domain)
	if err != nil {
		return fmt.Errorf("config: invalid domain %q: %w", c.Domain, err)
	}
	if j.Localpart() != "" || j.Resourcepart() != "" {
		return fmt.Errorf("config: domain %q must not have a localpart or resourcepart", c.Domain)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("config: both a certificate and a key are required for TLS")
	}
	if c.TLS.Required && c.TLS.CertFile == "" {
		return errors.New("config: TLS is required but no certificate is configured")
	}
	if c.BOSH.Wait < 0 {
		return fmt.Errorf("config: invalid BOSH wait %d", c.BOSH.Wait)
	}
	if _, err := c.SASLMechanisms(); err != nil {
		return err
	}
	return nil
}

// DomainJID returns the domain as an address.
func (c Config) DomainJID() (*jid.JID, error) {
	return jid.Parse(c.Domain)
}

var mechanisms = []sasl.Mechanism{
	sasl.Plain,
	sasl.ScramSha1,
	sasl.ScramSha1Plus,
	sasl.ScramSha256,
	sasl.ScramSha256Plus,
}

// SASLMechanisms resolves the configured mechanism names.
func (c Config) SASLMechanisms() ([]sasl.Mechanism, error) {
	out := make([]sasl.Mechanism, 0, len(c.Mechanisms))
	for _, name := range c.Mechanisms {
		found := false
		for _, m := range mechanisms {
			if strings.EqualFold(m.Name, name) {
				out = append(out, m)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("config: unknown SASL mechanism %q", name)
		}
	}
	return out, nil
}

// LoadTLS loads the certificate of the server.
// It returns nil if no certificate is configured.
func (c Config) LoadTLS() (*tls.Config, error) {
	if c.TLS.CertFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("config: loading certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   c.Domain,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
