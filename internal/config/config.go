package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type TransportMode string

const (
	TransportREST TransportMode = "rest"
	TransportGRPC TransportMode = "grpc"

	AgentVersion = "0.4.0"

	// Target filename for remotely issued configuration updates,
	// written next to the properties file.
	targetConfigFileName = "config-new.yml"
	defaultConfDir       = "./conf"
)

type Config struct {
	AgentClass      string
	AgentIdentifier string
	FullHeartbeat   bool

	HeartbeatPeriod time.Duration
	InitialDelay    time.Duration
	TerminationWait time.Duration
	ShutdownTimeout time.Duration

	C2URL              string
	C2AckURL           string
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	CallTimeout        time.Duration
	RequestCompression string
	Transport          TransportMode
	GRPCAddr           string
	GRPCToken          string

	ConfDirectory             string
	PropertiesPath            string
	RuntimeManifestIdentifier string
	RuntimeType               string

	FlowFileRepositoryDir   string
	ProvenanceRepositoryDir string
	FlowStatusFile          string

	ConfigFile       string
	BootstrapFile    string
	LogDirectory     string
	AppLogFile       string
	BootstrapLogFile string

	TLSEnabled    bool
	TLSSkipVerify bool
	TLSCAPath     string
	TLSCertPath   string
	TLSKeyPath    string

	LogJSON  bool
	LogLevel string

	// Empty disables the local liveness probe endpoint.
	ProbeListenAddr string
}

// Load reads the agent properties file named by C2_AGENT_PROPERTIES
// (optional; defaults apply without one) and builds the configuration
// from the resulting flat property bag.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("C2_AGENT_PROPERTIES"))
	props := map[string]string{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read properties file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &props); err != nil {
			return Config{}, fmt.Errorf("parse properties file %s: %w", path, err)
		}
	}
	overlayEnv(props)
	cfg, err := FromProperties(props)
	if err != nil {
		return Config{}, err
	}
	cfg.PropertiesPath = path
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromProperties populates a Config from a flat property bag. It is
// pure: no environment, no filesystem, no partially constructed state on
// error.
func FromProperties(props map[string]string) (Config, error) {
	p := bag{props: props}

	cfg := Config{
		AgentClass:      p.str("c2.agent.class", ""),
		AgentIdentifier: p.str("c2.agent.identifier", ""),
		FullHeartbeat:   p.boolean("c2.full.heartbeat", true),

		HeartbeatPeriod: p.duration("c2.agent.heartbeat.period", time.Second),
		InitialDelay:    p.duration("c2.agent.heartbeat.initial.delay", 10*time.Second),
		TerminationWait: p.duration("c2.agent.termination.wait", 5*time.Second),
		ShutdownTimeout: p.duration("c2.agent.shutdown.timeout", 20*time.Second),

		C2URL:              p.str("c2.rest.url", ""),
		C2AckURL:           p.str("c2.rest.url.ack", ""),
		ConnectTimeout:     p.duration("c2.connection.timeout", 5*time.Second),
		ReadTimeout:        p.duration("c2.read.timeout", 5*time.Second),
		CallTimeout:        p.duration("c2.call.timeout", 10*time.Second),
		RequestCompression: strings.ToLower(p.str("c2.request.compression", "none")),
		Transport:          TransportMode(strings.ToLower(p.str("c2.transport", string(TransportREST)))),
		GRPCAddr:           p.str("c2.grpc.addr", ""),
		GRPCToken:          p.str("c2.grpc.token", ""),

		ConfDirectory:             p.str("c2.config.directory", defaultConfDir),
		RuntimeManifestIdentifier: p.str("c2.runtime.manifest.identifier", ""),
		RuntimeType:               p.str("c2.runtime.type", ""),

		FlowFileRepositoryDir:   p.str("flow.repository.directory", ""),
		ProvenanceRepositoryDir: p.str("flow.provenance.repository.directory", ""),
		FlowStatusFile:          p.str("flow.status.file", ""),

		ConfigFile:       p.str("agent.config.file", ""),
		BootstrapFile:    p.str("agent.bootstrap.file", ""),
		LogDirectory:     p.str("agent.log.directory", ""),
		AppLogFile:       p.str("agent.app.log.file", "app.log"),
		BootstrapLogFile: p.str("agent.bootstrap.log.file", "bootstrap.log"),

		TLSEnabled:    p.boolean("c2.security.tls.enabled", false),
		TLSSkipVerify: p.boolean("c2.security.tls.skip.verify", false),
		TLSCAPath:     p.str("c2.security.truststore.location", ""),
		TLSCertPath:   p.str("c2.security.keystore.location", ""),
		TLSKeyPath:    p.str("c2.security.keystore.key", ""),

		LogJSON:  p.boolean("log.json", false),
		LogLevel: strings.ToLower(p.str("log.level", "info")),

		ProbeListenAddr: p.str("agent.probe.addr", ""),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.AgentIdentifier == "" {
		cfg.AgentIdentifier = uuid.NewString()
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HeartbeatPeriod <= 0 {
		return errors.New("c2.agent.heartbeat.period must be > 0")
	}
	if c.TerminationWait <= 0 {
		return errors.New("c2.agent.termination.wait must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("c2.agent.shutdown.timeout must be > 0")
	}
	switch c.Transport {
	case TransportREST, TransportGRPC:
	default:
		return fmt.Errorf("unsupported transport mode %q", c.Transport)
	}
	if c.Transport == TransportREST && c.C2URL == "" {
		return errors.New("c2.rest.url is required for rest transport")
	}
	if c.Transport == TransportGRPC && c.GRPCAddr == "" {
		return errors.New("c2.grpc.addr is required for grpc transport")
	}
	switch c.RequestCompression {
	case "none", "gzip":
	default:
		return fmt.Errorf("unsupported request compression %q", c.RequestCompression)
	}
	return nil
}

// TargetConfigFile is where remotely issued configuration updates are
// written: beside the properties file when one was loaded, else under
// the default conf directory.
func (c Config) TargetConfigFile() string {
	if c.PropertiesPath != "" {
		if parent := filepath.Dir(c.PropertiesPath); parent != "" {
			return filepath.Join(parent, targetConfigFileName)
		}
	}
	return filepath.Join(c.ConfDirectory, targetConfigFileName)
}

// DebugBundleCandidates lists the fixed set of file paths eligible for a
// diagnostic bundle. Existence is checked at collection time, not here;
// paths with unconfigured components are left out entirely so collection
// never matches stray files relative to the working directory.
func (c Config) DebugBundleCandidates() []string {
	var out []string
	if c.ConfigFile != "" {
		out = append(out, c.ConfigFile)
	}
	if c.BootstrapFile != "" {
		out = append(out, c.BootstrapFile)
	}
	if c.LogDirectory != "" {
		if c.AppLogFile != "" {
			out = append(out, filepath.Join(c.LogDirectory, c.AppLogFile))
		}
		if c.BootstrapLogFile != "" {
			out = append(out, filepath.Join(c.LogDirectory, c.BootstrapLogFile))
		}
	}
	return out
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load mTLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

var propertyKeys = []string{
	"c2.agent.class",
	"c2.agent.identifier",
	"c2.full.heartbeat",
	"c2.agent.heartbeat.period",
	"c2.agent.heartbeat.initial.delay",
	"c2.agent.termination.wait",
	"c2.agent.shutdown.timeout",
	"c2.rest.url",
	"c2.rest.url.ack",
	"c2.connection.timeout",
	"c2.read.timeout",
	"c2.call.timeout",
	"c2.request.compression",
	"c2.transport",
	"c2.grpc.addr",
	"c2.grpc.token",
	"c2.config.directory",
	"c2.runtime.manifest.identifier",
	"c2.runtime.type",
	"flow.repository.directory",
	"flow.provenance.repository.directory",
	"flow.status.file",
	"agent.config.file",
	"agent.bootstrap.file",
	"agent.log.directory",
	"agent.app.log.file",
	"agent.bootstrap.log.file",
	"c2.security.tls.enabled",
	"c2.security.tls.skip.verify",
	"c2.security.truststore.location",
	"c2.security.keystore.location",
	"c2.security.keystore.key",
	"log.json",
	"log.level",
	"agent.probe.addr",
}

// overlayEnv lets each property be overridden individually through its
// environment form (c2.rest.url -> C2_REST_URL); the env value wins over
// the properties file.
func overlayEnv(props map[string]string) {
	for _, key := range propertyKeys {
		if v := strings.TrimSpace(os.Getenv(envKey(key))); v != "" {
			props[key] = v
		}
	}
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bag accumulates the first parse error instead of failing key by key,
// keeping FromProperties a single pass.
type bag struct {
	props map[string]string
	err   error
}

func (b *bag) str(key, fallback string) string {
	v := strings.TrimSpace(b.props[key])
	if v == "" {
		return fallback
	}
	return v
}

func (b *bag) boolean(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(b.props[key]))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		b.fail(fmt.Errorf("property %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (b *bag) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(b.props[key])
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		b.fail(fmt.Errorf("property %s: %w", key, err))
		return fallback
	}
	return d
}

func (b *bag) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
