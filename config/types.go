package config

import "time"

// Logging configures the structured logger and its optional rotating file.
type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays"`
}

// Auth configures bearer-token verification for the RPC surface.
type Auth struct {
	HMACSecret          string        `toml:"HMACSecret" yaml:"hmacSecret"`
	Issuer              string        `toml:"Issuer" yaml:"issuer"`
	Audience            string        `toml:"Audience" yaml:"audience"`
	AllowAnonymousReads bool          `toml:"AllowAnonymousReads" yaml:"allowAnonymousReads"`
	ClockSkew           time.Duration `toml:"ClockSkew" yaml:"clockSkew"`
}

// RateLimit bounds requests per client address.
type RateLimit struct {
	RequestsPerMinute int  `toml:"RequestsPerMinute" yaml:"requestsPerMinute"`
	Burst             int  `toml:"Burst" yaml:"burst"`
	TrustForwardedFor bool `toml:"TrustForwardedFor" yaml:"trustForwardedFor"`
}

// Telemetry configures OTLP export of traces and metrics.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	Headers  string `toml:"Headers" yaml:"headers"`
	Traces   bool   `toml:"Traces" yaml:"traces"`
	Metrics  bool   `toml:"Metrics" yaml:"metrics"`
}

// GenesisEntry seeds one balance on first start. Asset is "native" or a hex
// token address; Amount is a base-10 integer.
type GenesisEntry struct {
	Address string `toml:"Address" yaml:"address"`
	Asset   string `toml:"Asset" yaml:"asset"`
	Amount  string `toml:"Amount" yaml:"amount"`
}
