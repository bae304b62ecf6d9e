// Package service exposes query execution as a Connect RPC service. Messages
// are google.protobuf.Struct values so any schema document passes through
// unchanged.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"connectrpc.com/connect"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/query_forge/internal/compiler"
	"github.com/atlekbai/query_forge/internal/hostenv"
	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/schema"
)

const (
	ServiceName = "queryforge.v1.QueryService"

	ExecuteProcedure = "/" + ServiceName + "/Execute"
	CompileProcedure = "/" + ServiceName + "/Compile"
)

// Compiler is the part of *compiler.Compiler the service uses.
type Compiler interface {
	GetQuery(ctx context.Context, raw []byte, req compiler.Request) *result.Wrapper
	RecordSQL(raw []byte, req compiler.Request) (string, []any, error)
}

type QueryService struct {
	compiler   Compiler
	lookups    hostenv.Lookups
	taxonomies hostenv.Taxonomies
	log        *zap.Logger
}

func NewQueryService(c Compiler, lookups hostenv.Lookups, taxonomies hostenv.Taxonomies, log *zap.Logger) *QueryService {
	return &QueryService{compiler: c, lookups: lookups, taxonomies: taxonomies, log: logging.OrNop(log)}
}

func (s *QueryService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	opts := connect.WithInterceptors(interceptors...)
	mux := http.NewServeMux()
	mux.Handle(ExecuteProcedure, connect.NewUnaryHandler(ExecuteProcedure, s.Execute, opts))
	mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, s.Compile, opts))
	return "/" + ServiceName + "/", mux
}

// call is the decoded request message:
// {schema: object|string, page: number, params: {string: string}}.
type call struct {
	raw    []byte
	page   int
	params url.Values
}

func decodeCall(msg *structpb.Struct) (call, error) {
	var c call
	if msg == nil {
		return c, fmt.Errorf("empty request")
	}
	fields := msg.GetFields()

	switch v := fields["schema"].GetKind().(type) {
	case *structpb.Value_StringValue:
		c.raw = []byte(v.StringValue)
	case *structpb.Value_StructValue:
		raw, err := json.Marshal(v.StructValue.AsMap())
		if err != nil {
			return c, fmt.Errorf("encode schema: %w", err)
		}
		c.raw = raw
	default:
		return c, fmt.Errorf("schema must be an object or a string")
	}

	c.page = max(int(schema.Int(fields["page"].AsInterface())), 1)
	c.params = url.Values{}
	for k, v := range fields["params"].GetStructValue().GetFields() {
		c.params.Set(k, schema.String(v.AsInterface()))
	}
	return c, nil
}

func (s *QueryService) request(ctx context.Context, h http.Header, c call) compiler.Request {
	hreq := hostenv.RequestFromHeader(h, c.params)
	return compiler.Request{
		Page:           c.page,
		Preview:        hreq.Preview,
		CanReadPrivate: hreq.CanReadPrivate,
		Env:            hostenv.New(ctx, s.lookups, s.taxonomies, hreq, s.log),
	}
}

// Execute runs a schema document. Like the REST surface it never fails on
// schema problems; they produce an empty page.
func (s *QueryService) Execute(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	c, err := decodeCall(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	w := s.compiler.GetQuery(ctx, c.raw, s.request(ctx, req.Header(), c))

	items, err := itemsToValues(w.Items())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("marshal result: %w", err))
	}
	resp, err := structpb.NewStruct(map[string]any{
		"total":      w.Total(),
		"per_page":   w.PerPage(),
		"page_count": w.PageCount(),
		"page":       c.page,
		"has_more":   w.HasMore(c.page),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	resp.Fields["items"] = structpb.NewListValue(&structpb.ListValue{Values: items})
	return connect.NewResponse(resp), nil
}

// Compile returns the SQL and arguments a record document compiles to.
func (s *QueryService) Compile(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	c, err := decodeCall(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	sql, args, err := s.compiler.RecordSQL(c.raw, s.request(ctx, req.Header(), c))
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	argValues := make([]any, len(args))
	for i, a := range args {
		argValues[i] = fmt.Sprint(a)
	}
	resp, err := structpb.NewStruct(map[string]any{"sql": sql, "args": argValues})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(resp), nil
}

func itemsToValues(items []result.Item) ([]*structpb.Value, error) {
	out := make([]*structpb.Value, 0, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		st, err := rawJSONToStruct(data)
		if err != nil {
			return nil, err
		}
		out = append(out, structpb.NewStructValue(st))
	}
	return out, nil
}

func rawJSONToStruct(data json.RawMessage) (*structpb.Struct, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
