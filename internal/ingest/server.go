package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/log"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/report"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Server exposes one session over gRPC.
type Server struct {
	session *session.Session
	deliver report.Deliverer
	health  *health.Server

	mu     sync.Mutex
	report *report.Payload
	ended  chan struct{}
}

// NewServer wraps sess. deliver may be nil, in which case EndSession only returns the report.
func NewServer(sess *session.Session, deliver report.Deliverer) *Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Server{
		session: sess,
		deliver: deliver,
		health:  h,
		ended:   make(chan struct{}),
	}
}

// Register adds the monitor and health services to g.
func (s *Server) Register(g *grpc.Server) {
	RegisterMonitorServer(g, s)
	healthpb.RegisterHealthServer(g, s.health)
}

// Ended is closed once the session has been ended through EndSession or Finish.
func (s *Server) Ended() <-chan struct{} {
	return s.ended
}

// #endregion server

// #region push-frame
func (s *Server) PushFrame(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	frame, ts, err := frameFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var res session.Result
	if ts != nil {
		res, err = s.session.PushSample(estimator.Sample{
			Timestamp:    *ts,
			LeftEyeOpen:  frame.LeftEyeOpen,
			RightEyeOpen: frame.RightEyeOpen,
			FaceWidth:    frame.FaceWidth,
		})
	} else {
		res, err = s.session.Push(frame)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := structpb.NewStruct(statusFields(res))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion push-frame

// #region stats
func (s *Server) Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	st := s.session.Stats()
	out, err := structpb.NewStruct(map[string]any{
		"session_id":  st.SessionID,
		"frames":      st.Frames,
		"seconds":     st.Seconds,
		"fps":         st.FPS,
		"blink_count": st.BlinkCount,
		"status":      st.Status.Text,
		"color":       st.Status.Color,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion stats

// #region end-session
func (s *Server) EndSession(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	p, err := s.Finish(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := payloadStruct(p)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Finish ends the session, hands the report to the deliverer and marks the
// service NOT_SERVING. Later calls return the same report.
func (s *Server) Finish(ctx context.Context) (report.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report != nil {
		return *s.report, nil
	}

	p, err := s.session.End(ctx)
	if err != nil {
		return report.Payload{}, err
	}
	s.report = &p
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	close(s.ended)

	if s.deliver != nil {
		if err := s.deliver.Deliver(ctx, p); err != nil {
			log.Error(log.Fields{"session": p.SessionID, "error": err.Error()}, "report delivery failed")
			return p, fmt.Errorf("deliver report: %w", err)
		}
	}
	return p, nil
}

// #endregion end-session

// #region convert
func frameFromStruct(req *structpb.Struct) (session.Frame, *float64, error) {
	var f session.Frame
	fields := req.GetFields()
	var err error
	if f.LeftEyeOpen, err = optionalNumber(fields, "left_eye_open"); err != nil {
		return f, nil, err
	}
	if f.RightEyeOpen, err = optionalNumber(fields, "right_eye_open"); err != nil {
		return f, nil, err
	}
	if f.FaceWidth, err = optionalNumber(fields, "face_width"); err != nil {
		return f, nil, err
	}
	ts, err := optionalNumber(fields, "timestamp")
	if err != nil {
		return f, nil, err
	}
	return f, ts, nil
}

// optionalNumber treats a missing or null field as absent.
func optionalNumber(fields map[string]*structpb.Value, key string) (*float64, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		return &n, nil
	default:
		return nil, fmt.Errorf("%s: expected a number", key)
	}
}

func statusFields(res session.Result) map[string]any {
	st := res.Snapshot.State
	return map[string]any{
		"text":                 res.Snapshot.Status.Text,
		"color":                res.Snapshot.Status.Color,
		"level":                res.Snapshot.Status.Level.String(),
		"face_detected":        st.FaceDetected,
		"face_size":            string(st.FaceSize),
		"blink_count":          st.BlinkCount,
		"numbness":             st.NumbnessActive(),
		"sleep":                st.SleepActive,
		"short_blink_interval": st.ShortBlinkInterval,
		"long_blink_duration":  st.LongBlinkDuration,
		"dropped_requests":     len(res.Warnings),
	}
}

func payloadStruct(p report.Payload) (*structpb.Struct, error) {
	body, err := p.Body()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return structpb.NewStruct(m)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, estimator.ErrInvalidSample):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrEnded):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion convert
