package main

import (
	"context"
	"log"

	"flowbridge-c2-agent/internal/agent"
	"flowbridge-c2-agent/internal/config"
	"flowbridge-c2-agent/internal/flow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := agent.BuildLogger(cfg)
	status := flow.NewLocalStatusSource(cfg.FlowFileRepositoryDir, cfg.ProvenanceRepositoryDir, cfg.FlowStatusFile)
	manifest := flow.NewStaticManifestSource(cfg.RuntimeManifestIdentifier, cfg.RuntimeType, config.AgentVersion)

	a, err := agent.New(cfg, status, manifest, logger)
	if err != nil {
		logger.Error("agent initialization failed", "error", err)
		return
	}

	if err := a.Run(context.Background()); err != nil {
		logger.Error("agent runtime failed", "error", err)
	}
}
