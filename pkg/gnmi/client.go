package gnmi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/ygot/ygot"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/newtron-network/newtgrade/pkg/util"
)

// DefaultPort is the SR Linux gNMI server port.
const DefaultPort = 57400

// DefaultTimeout bounds a single get or set RPC.
const DefaultTimeout = 60 * time.Second

// Config describes how to reach one device.
type Config struct {
	Target     string // management address
	Port       int
	Username   string
	Password   string
	Hostname   string // TLS server name override; usually the device hostname
	Insecure   bool   // plaintext gRPC
	SkipVerify bool   // TLS without certificate verification
	Timeout    time.Duration

	// Optional SSH tunnel. When SSHUser is set the gNMI connection is carried
	// over SSH to Target and dialed to 127.0.0.1:<Port> from there.
	SSHUser string
	SSHPass string
	SSHPort int

	// DialOptions are appended to the gRPC dial options.
	DialOptions []grpc.DialOption
}

// Client is a gNMI gateway to a single device. Requests are synchronous.
type Client struct {
	cfg    Config
	conn   *grpc.ClientConn
	client gnmipb.GNMIClient
	tunnel *SSHTunnel

	mu sync.Mutex // serialises Set
}

// Dial connects to the device described by cfg.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("gnmi: target address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{cfg: cfg}
	addr := net.JoinHostPort(cfg.Target, strconv.Itoa(cfg.Port))
	if cfg.SSHUser != "" {
		tun, err := NewSSHTunnel(cfg.Target, cfg.SSHPort, cfg.SSHUser, cfg.SSHPass, net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port)))
		if err != nil {
			return nil, fmt.Errorf("SSH tunnel to %s: %w", cfg.Target, err)
		}
		c.tunnel = tun
		addr = tun.LocalAddr()
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(c.credentials())}
	opts = append(opts, cfg.DialOptions...)

	// passthrough hands the address straight to the dialer, as grpc.Dial did.
	conn, err := grpc.NewClient("passthrough:///"+addr, opts...)
	if err != nil {
		c.closeTunnel()
		return nil, fmt.Errorf("gnmi: connecting to %s: %w", addr, err)
	}
	c.conn = conn
	c.client = gnmipb.NewGNMIClient(conn)

	util.WithDevice(cfg.Hostname).Debugf("gNMI client ready for %s", addr)
	return c, nil
}

func (c *Client) credentials() credentials.TransportCredentials {
	if c.cfg.Insecure {
		return insecure.NewCredentials()
	}
	return credentials.NewTLS(&tls.Config{
		ServerName:         c.cfg.Hostname,
		InsecureSkipVerify: c.cfg.SkipVerify,
	})
}

// Close releases the connection and any SSH tunnel.
func (c *Client) Close() error {
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.closeTunnel()
	return err
}

func (c *Client) closeTunnel() {
	if c.tunnel != nil {
		c.tunnel.Close()
		c.tunnel = nil
	}
}

// rpcContext attaches credentials and the per-call timeout.
func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	if c.cfg.Username != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "username", c.cfg.Username, "password", c.cfg.Password)
	}
	return ctx, cancel
}

// Get fetches one path with JSON_IETF encoding.
func (c *Client) Get(ctx context.Context, path string) (Response, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, util.NewGatewayError("get", path, err)
	}

	rctx, cancel := c.rpcContext(ctx)
	defer cancel()

	util.Logger.Debugf("Running gnmi query for %s", path)
	resp, err := c.client.Get(rctx, &gnmipb.GetRequest{
		Path:     []*gnmipb.Path{p},
		Encoding: gnmipb.Encoding_JSON_IETF,
	})
	if err != nil {
		return nil, util.NewGatewayError("get", path, err)
	}

	doc, err := EncodeGetResponse(resp)
	if err != nil {
		return nil, util.NewGatewayError("get", path, err)
	}
	util.Logger.Debugf("gnmi query %s returned: %s", path, doc)
	return doc, nil
}

// Set applies a single update. The returned Ack always carries the outcome;
// err is non-nil for any outcome other than applied.
func (c *Client) Set(ctx context.Context, path string, update map[string]any) (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ack := Ack{Path: path, Update: update, Timestamp: time.Now(), Outcome: OutcomeUnknown}

	p, err := ParsePath(path)
	if err != nil {
		ack.Outcome = OutcomeRejected
		ack.Message = err.Error()
		return ack, util.NewGatewayError("set", path, err)
	}
	val, err := json.Marshal(update)
	if err != nil {
		ack.Outcome = OutcomeRejected
		ack.Message = err.Error()
		return ack, util.NewGatewayError("set", path, err)
	}

	rctx, cancel := c.rpcContext(ctx)
	defer cancel()

	util.Logger.Debugf("Running gnmi set %s %s", path, val)
	resp, err := c.client.Set(rctx, &gnmipb.SetRequest{
		Update: []*gnmipb.Update{{
			Path: p,
			Val:  &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: val}},
		}},
	})
	if err != nil {
		ack.Outcome = ClassifySetError(err)
		ack.Message = err.Error()
		return ack, util.NewGatewayError("set", path, err)
	}

	ack.Outcome = OutcomeApplied
	if resp.GetTimestamp() > 0 {
		ack.Timestamp = time.Unix(0, resp.GetTimestamp())
	}
	util.Logger.Debugf("gnmi set %s acknowledged: %v", path, resp.GetResponse())
	return ack, nil
}

// ClassifySetError maps an RPC error onto a mutation outcome. Errors carrying
// a definitive answer from the device are rejections; everything else
// leaves the device state unknown.
func ClassifySetError(err error) Outcome {
	if err == nil {
		return OutcomeApplied
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeUnknown
	}
	st, ok := status.FromError(err)
	if !ok {
		return OutcomeUnknown
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Unavailable, codes.Canceled:
		return OutcomeUnknown
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied,
		codes.Unauthenticated, codes.NotFound, codes.AlreadyExists, codes.Aborted,
		codes.Unimplemented, codes.OutOfRange:
		return OutcomeRejected
	}
	return OutcomeUnknown
}

// ParsePath converts "/a/b[k=v]/c" into a structured gNMI path. Leading and
// trailing slashes are optional.
func ParsePath(path string) (*gnmipb.Path, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return &gnmipb.Path{}, nil
	}
	return ygot.StringToStructuredPath("/" + trimmed)
}
