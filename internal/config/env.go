package config

import (
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv
const (
	EnvAddr            = "DSLA_ADDR"
	EnvStoreDriver     = "DSLA_STORE_DRIVER"
	EnvStoreDSN        = "DSLA_STORE_DSN"
	EnvStoreCollection = "DSLA_STORE_COLLECTION"
	EnvIdentitySchema  = "DSLA_IDENTITY_SCHEMA"
)

// ApplyEnv overrides file values with any set environment variables.
// getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	env := envReader(getenv)

	c.Server.Addr = env.String(EnvAddr, c.Server.Addr)
	c.Store.Driver = strings.ToLower(env.String(EnvStoreDriver, c.Store.Driver))
	c.Store.DSN = env.String(EnvStoreDSN, c.Store.DSN)
	c.Store.Collection = env.String(EnvStoreCollection, c.Store.Collection)
	c.Identity.Schema = env.String(EnvIdentitySchema, c.Identity.Schema)

	c.Tracing.Enabled = env.Bool("OTEL_ENABLED", c.Tracing.Enabled)
	c.Tracing.ServiceName = env.String("OTEL_SERVICE_NAME", c.Tracing.ServiceName)
	c.Tracing.Endpoint = env.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.Protocol = strings.ToLower(env.String("OTEL_EXPORTER_OTLP_PROTOCOL", c.Tracing.Protocol))
	c.Tracing.Insecure = env.Bool("OTEL_EXPORTER_OTLP_INSECURE", c.Tracing.Insecure)
	c.Tracing.SampleRatio = env.Float("OTEL_TRACES_SAMPLE_RATIO", c.Tracing.SampleRatio)
	if h := parseHeaders(env.String("OTEL_EXPORTER_OTLP_HEADERS", "")); len(h) > 0 {
		c.Tracing.Headers = h
	}
}

type envReader func(string) string

func (e envReader) String(key, fallback string) string {
	if v := strings.TrimSpace(e(key)); v != "" {
		return v
	}
	return fallback
}

func (e envReader) Bool(key string, fallback bool) bool {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (e envReader) Float(key string, fallback float64) float64 {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// parseHeaders reads the OTLP "k1=v1,k2=v2" header list
func parseHeaders(s string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
