package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/starforce/internal/starforce"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "starforce.v1.StarforceService"

// StarforceServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct so no generated stubs are needed.
type StarforceServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Percentile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Probability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Histogram(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Overview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Fit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc registers a StarforceServer on a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StarforceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Simulate", StarforceServer.Simulate),
		unary("Percentile", StarforceServer.Percentile),
		unary("Probability", StarforceServer.Probability),
		unary("Histogram", StarforceServer.Histogram),
		unary("Overview", StarforceServer.Overview),
		unary("Fit", StarforceServer.Fit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "starforce/v1/starforce.proto",
}

func unary(name string, call func(StarforceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StarforceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StarforceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterStarforceServer registers srv on s.
func RegisterStarforceServer(s grpc.ServiceRegistrar, srv StarforceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GRPCServer adapts a Service to StarforceServer.
type GRPCServer struct {
	svc *Service
}

func (g *GRPCServer) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := &fields{s: in}
	p := SimulateParams{
		Start:     f.getInt("start", -1),
		End:       f.getInt("end", -1),
		ItemLevel: f.getInt("item_level", -1),
		Trials:    f.getInt("trials", 0),
		Parallel:  f.getBool("parallel"),
		Ruleset:   f.getString("ruleset"),
		Seed:      f.getSeed("seed"),
		Save:      f.getBool("save"),
	}
	if err := f.err(); err != nil {
		return nil, g.status(err)
	}
	res, err := g.svc.Simulate(ctx, p)
	if err != nil {
		return nil, g.status(err)
	}
	view, err := summaryView(res)
	if err != nil {
		return nil, g.status(err)
	}
	return g.reply(view)
}

func (g *GRPCServer) Percentile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := &fields{s: in}
	id, p, metric := f.getString("id"), f.getFloat("p"), f.getString("metric")
	if err := f.err(); err != nil {
		return nil, g.status(err)
	}
	v, err := g.svc.Percentile(ctx, id, p, metric)
	if err != nil {
		return nil, g.status(err)
	}
	return g.reply(map[string]any{"value": v})
}

func (g *GRPCServer) Probability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := &fields{s: in}
	id, c, metric, dir := f.getString("id"), f.getFloat("comparand"), f.getString("metric"), f.getString("direction")
	if err := f.err(); err != nil {
		return nil, g.status(err)
	}
	v, err := g.svc.Probability(ctx, id, c, metric, dir)
	if err != nil {
		return nil, g.status(err)
	}
	return g.reply(map[string]any{"probability": v})
}

func (g *GRPCServer) Histogram(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := &fields{s: in}
	id, metric, bins := f.getString("id"), f.getString("metric"), f.getInt("bins", 10)
	if err := f.err(); err != nil {
		return nil, g.status(err)
	}
	h, err := g.svc.Histogram(ctx, id, metric, bins)
	if err != nil {
		return nil, g.status(err)
	}
	return g.reply(histogramView(h))
}

func (g *GRPCServer) Overview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := &fields{s: in}
	id := f.getString("id")
	if err := f.err(); err != nil {
		return nil, g.status(err)
	}
	text, err := g.svc.Overview(ctx, id)
	if err != nil {
		return nil, g.status(err)
	}
	return g.reply(map[string]any{"text": text})
}

func (g *GRPCServer) Fit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := &fields{s: in}
	id, metric, model := f.getString("id"), f.getString("metric"), f.getString("model")
	if err := f.err(); err != nil {
		return nil, g.status(err)
	}
	fit, err := g.svc.Fit(ctx, id, metric, model)
	if err != nil {
		return nil, g.status(err)
	}
	return g.reply(fitView(fit))
}

func (g *GRPCServer) reply(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, g.status(fmt.Errorf("encode reply: %w", err))
	}
	return out, nil
}

// status converts domain errors to gRPC status for client responses.
func (g *GRPCServer) status(err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		g.svc.log.Error("grpc request failed", "error", err)
		return status.Error(codes.Internal, "an unexpected error occurred")
	}
	return status.Error(code, err.Error())
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, starforce.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, starforce.ErrRuleset):
		return codes.FailedPrecondition
	case isNotFound(err):
		return codes.NotFound
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Internal
}

// fields reads typed values out of a Struct and remembers the first error.
type fields struct {
	s    *structpb.Struct
	fail string
}

func (f *fields) value(key string) (*structpb.Value, bool) {
	v, ok := f.s.GetFields()[key]
	return v, ok
}

func (f *fields) failf(format string, args ...any) {
	if f.fail == "" {
		f.fail = fmt.Sprintf(format, args...)
	}
}

func (f *fields) err() error {
	if f.fail == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", starforce.ErrInvalidArgument, f.fail)
}

func (f *fields) getInt(key string, def int) int {
	v, ok := f.value(key)
	if !ok {
		return def
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		f.failf("%s must be an integer", key)
		return def
	}
	return int(n.NumberValue)
}

func (f *fields) getFloat(key string) float64 {
	v, ok := f.value(key)
	if !ok {
		f.failf("%s is required", key)
		return 0
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		f.failf("%s must be a number", key)
		return 0
	}
	return n.NumberValue
}

func (f *fields) getString(key string) string {
	v, ok := f.value(key)
	if !ok {
		return ""
	}
	s, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		f.failf("%s must be a string", key)
		return ""
	}
	return s.StringValue
}

func (f *fields) getBool(key string) bool {
	v, ok := f.value(key)
	if !ok {
		return false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		f.failf("%s must be a bool", key)
		return false
	}
	return b.BoolValue
}

// getSeed accepts a decimal string, since a double cannot carry every uint64.
func (f *fields) getSeed(key string) uint64 {
	v, ok := f.value(key)
	if !ok {
		return 0
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		seed, err := strconv.ParseUint(k.StringValue, 10, 64)
		if err != nil {
			f.failf("%s must be an unsigned integer", key)
		}
		return seed
	case *structpb.Value_NumberValue:
		if k.NumberValue < 0 || k.NumberValue != math.Trunc(k.NumberValue) || k.NumberValue >= 1<<53 {
			f.failf("%s must be an unsigned integer below 2^53, or a string", key)
			return 0
		}
		return uint64(k.NumberValue)
	}
	f.failf("%s must be a string or number", key)
	return 0
}
