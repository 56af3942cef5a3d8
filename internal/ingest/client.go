package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/report"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// FrameStatus is the monitor's answer to one pushed frame.
type FrameStatus struct {
	Text            string
	Color           string
	Level           string
	BlinkCount      int
	Numbness        bool
	Sleep           bool
	DroppedRequests int
}

// Stats mirrors session.Stats on the wire.
type Stats struct {
	SessionID  string
	Frames     int
	Seconds    float64
	FPS        float64
	BlinkCount int
	Status     string
}

// #endregion types

// #region client-struct
// Client talks to a running monitor.
type Client struct {
	conn *grpc.ClientConn
}

// #endregion client-struct

// #region constructor
// NewClient connects to addr without transport security. Extra options are appended.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Conn exposes the connection, e.g. for health checks.
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// #endregion constructor

// #region push-frame
// PushFrame sends one sample. The timestamp is sent as given, so the monitor
// uses it instead of its own clock.
func (c *Client) PushFrame(ctx context.Context, s estimator.Sample) (FrameStatus, error) {
	fields := map[string]any{"timestamp": s.Timestamp}
	setOptional(fields, "left_eye_open", s.LeftEyeOpen)
	setOptional(fields, "right_eye_open", s.RightEyeOpen)
	setOptional(fields, "face_width", s.FaceWidth)

	req, err := structpb.NewStruct(fields)
	if err != nil {
		return FrameStatus{}, fmt.Errorf("encode frame: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodPushFrame, req, resp); err != nil {
		return FrameStatus{}, fmt.Errorf("push frame rpc: %w", err)
	}

	f := resp.GetFields()
	return FrameStatus{
		Text:            f["text"].GetStringValue(),
		Color:           f["color"].GetStringValue(),
		Level:           f["level"].GetStringValue(),
		BlinkCount:      int(f["blink_count"].GetNumberValue()),
		Numbness:        f["numbness"].GetBoolValue(),
		Sleep:           f["sleep"].GetBoolValue(),
		DroppedRequests: int(f["dropped_requests"].GetNumberValue()),
	}, nil
}

func setOptional(fields map[string]any, key string, v *float64) {
	if v != nil {
		fields[key] = *v
	}
}

// #endregion push-frame

// #region stats
// Stats fetches the session counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodStats, &emptypb.Empty{}, resp); err != nil {
		return Stats{}, fmt.Errorf("stats rpc: %w", err)
	}
	f := resp.GetFields()
	return Stats{
		SessionID:  f["session_id"].GetStringValue(),
		Frames:     int(f["frames"].GetNumberValue()),
		Seconds:    f["seconds"].GetNumberValue(),
		FPS:        f["fps"].GetNumberValue(),
		BlinkCount: int(f["blink_count"].GetNumberValue()),
		Status:     f["status"].GetStringValue(),
	}, nil
}

// #endregion stats

// #region end-session
// EndSession ends the monitor's session and returns its report.
func (c *Client) EndSession(ctx context.Context) (report.Payload, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodEndSession, &emptypb.Empty{}, resp); err != nil {
		return report.Payload{}, fmt.Errorf("end session rpc: %w", err)
	}
	b, err := resp.MarshalJSON()
	if err != nil {
		return report.Payload{}, fmt.Errorf("encode report: %w", err)
	}
	var p report.Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return report.Payload{}, fmt.Errorf("decode report: %w", err)
	}
	return p, nil
}

// #endregion end-session
