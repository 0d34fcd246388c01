package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"flowbridge-c2-agent/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

const (
	defaultHeartbeatMethod = "/c2.v1.C2Service/Heartbeat"
	defaultAckMethod       = "/c2.v1.C2Service/Acknowledge"
)

// GRPCClient exchanges heartbeat frames over a bidirectional JSON-codec
// stream: one heartbeat out, one response carrying issued operations
// back. Acknowledgments go over a separate client stream.
type GRPCClient struct {
	mu sync.Mutex

	logger          *slog.Logger
	addr            string
	tlsConfig       *tls.Config
	token           string
	heartbeatMethod string
	ackMethod       string
	conn            *grpc.ClientConn
	heartbeatStream grpc.ClientStream
	ackStream       grpc.ClientStream
	dialTimeout     time.Duration
}

func NewGRPCClient(addr string, tlsCfg *tls.Config, token string, logger *slog.Logger) *GRPCClient {
	encoding.RegisterCodec(jsonCodec{})
	return &GRPCClient{
		logger:          logger,
		addr:            addr,
		tlsConfig:       tlsCfg,
		token:           token,
		heartbeatMethod: defaultHeartbeatMethod,
		ackMethod:       defaultAckMethod,
		dialTimeout:     8 * time.Second,
	}
}

func (c *GRPCClient) SendHeartbeat(ctx context.Context, hb model.Heartbeat) ([]model.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return nil, err
	}
	if c.heartbeatStream == nil {
		if err := c.openHeartbeatStreamLocked(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := c.exchangeLocked(hb)
	if err != nil {
		c.logger.Warn("grpc heartbeat exchange failed, reopening stream", "error", err)
		c.heartbeatStream = nil
		if err2 := c.openHeartbeatStreamLocked(ctx); err2 != nil {
			return nil, fmt.Errorf("reopen heartbeat stream: %w", err2)
		}
		resp, err = c.exchangeLocked(hb)
		if err != nil {
			return nil, fmt.Errorf("heartbeat exchange: %w", err)
		}
	}
	return resp.Operations, nil
}

func (c *GRPCClient) SendAck(ctx context.Context, ack model.OperationAck) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if c.ackStream == nil {
		if err := c.openAckStreamLocked(ctx); err != nil {
			return err
		}
	}
	if err := c.ackStream.SendMsg(ack); err != nil {
		c.logger.Warn("grpc ack send failed, reopening stream", "error", err)
		c.ackStream = nil
		if err2 := c.openAckStreamLocked(ctx); err2 != nil {
			return fmt.Errorf("reopen ack stream: %w", err2)
		}
		if err2 := c.ackStream.SendMsg(ack); err2 != nil {
			return fmt.Errorf("send ack: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.heartbeatStream != nil {
		_ = c.heartbeatStream.CloseSend()
		c.heartbeatStream = nil
	}
	if c.ackStream != nil {
		_ = c.ackStream.CloseSend()
		c.ackStream = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *GRPCClient) exchangeLocked(hb model.Heartbeat) (model.HeartbeatResponse, error) {
	var resp model.HeartbeatResponse
	if err := c.heartbeatStream.SendMsg(hb); err != nil {
		return resp, err
	}
	if err := c.heartbeatStream.RecvMsg(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *GRPCClient) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		dialCtx, cancel = context.WithDeadline(context.Background(), dl)
		defer cancel()
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.DialContext(
		dialCtx,
		c.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc transport connected", "addr", c.addr)
	return nil
}

func (c *GRPCClient) openHeartbeatStreamLocked(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx := c.decorateContext(ctx)
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true, ServerStreams: true}, c.heartbeatMethod)
	if err != nil {
		return fmt.Errorf("open heartbeat stream: %w", err)
	}
	c.heartbeatStream = s
	return nil
}

func (c *GRPCClient) openAckStreamLocked(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx := c.decorateContext(ctx)
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.ackMethod)
	if err != nil {
		return fmt.Errorf("open ack stream: %w", err)
	}
	c.ackStream = s
	return nil
}

func (c *GRPCClient) decorateContext(ctx context.Context) context.Context {
	out := context.Background()
	if dl, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		out, cancel = context.WithDeadline(out, dl)
		_ = cancel
	}
	if c.token != "" {
		out = metadata.AppendToOutgoingContext(out, "authorization", "Bearer "+c.token)
	}
	return out
}
