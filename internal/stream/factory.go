package stream

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"flowbridge-c2-agent/internal/config"
)

func NewTransportFromConfig(cfg config.Config, tlsCfg *tls.Config, logger *slog.Logger) (Transport, error) {
	switch cfg.Transport {
	case config.TransportREST:
		return NewHTTPClient(
			cfg.C2URL,
			cfg.C2AckURL,
			cfg.RequestCompression,
			tlsCfg,
			cfg.ConnectTimeout,
			cfg.ReadTimeout,
			cfg.CallTimeout,
			logger,
		), nil
	case config.TransportGRPC:
		return NewGRPCClient(cfg.GRPCAddr, tlsCfg, cfg.GRPCToken, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport mode %q", cfg.Transport)
	}
}
