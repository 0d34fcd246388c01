package stream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"flowbridge-c2-agent/internal/model"
)

const (
	compressionNone = "none"
	compressionGzip = "gzip"
)

// HTTPClient posts heartbeats as JSON to the controller's REST endpoint
// and decodes issued operations from the response body. Acknowledgments
// go to a separate ack endpoint when one is configured.
type HTTPClient struct {
	logger      *slog.Logger
	client      *http.Client
	url         string
	ackURL      string
	compression string
}

func NewHTTPClient(url, ackURL, compression string, tlsCfg *tls.Config, connectTimeout, readTimeout, callTimeout time.Duration, logger *slog.Logger) *HTTPClient {
	transport := &http.Transport{
		TLSClientConfig:       tlsCfg,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: readTimeout,
	}
	return &HTTPClient{
		logger:      logger,
		client:      &http.Client{Transport: transport, Timeout: callTimeout},
		url:         url,
		ackURL:      ackURL,
		compression: compression,
	}
}

func (c *HTTPClient) SendHeartbeat(ctx context.Context, hb model.Heartbeat) ([]model.Operation, error) {
	body, err := c.post(ctx, c.url, hb)
	if err != nil {
		return nil, fmt.Errorf("send heartbeat: %w", err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	var resp model.HeartbeatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode heartbeat response: %w", err)
	}
	return resp.Operations, nil
}

func (c *HTTPClient) SendAck(ctx context.Context, ack model.OperationAck) error {
	if c.ackURL == "" {
		return nil
	}
	if _, err := c.post(ctx, c.ackURL, ack); err != nil {
		return fmt.Errorf("send ack for operation %s: %w", ack.OperationID, err)
	}
	return nil
}

func (c *HTTPClient) Close(ctx context.Context) error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var body bytes.Buffer
	encoding := ""
	if c.compression == compressionGzip {
		zw := gzip.NewWriter(&body)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
		encoding = compressionGzip
	} else {
		body.Write(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("controller returned status %d", resp.StatusCode)
	}
	return respBody, nil
}
