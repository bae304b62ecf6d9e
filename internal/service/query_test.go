package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/query_forge/internal/compiler"
	"github.com/atlekbai/query_forge/internal/hostenv"
	"github.com/atlekbai/query_forge/internal/result"
)

type fakeCompiler struct {
	raw string
	req compiler.Request
}

func (f *fakeCompiler) GetQuery(_ context.Context, raw []byte, req compiler.Request) *result.Wrapper {
	f.raw, f.req = string(raw), req
	return result.New([]result.Item{{ID: 4, Title: "Hello"}}, 3, 1)
}

func (f *fakeCompiler) RecordSQL(raw []byte, _ compiler.Request) (string, []any, error) {
	if string(raw) == "bad" {
		return "", nil, errors.New("undecodable")
	}
	return "SELECT 1 WHERE x = $1", []any{int64(7)}, nil
}

func newServer(t *testing.T, fc *fakeCompiler) *httptest.Server {
	t.Helper()
	path, h := NewQueryService(fc, nil, nil, nil).RegisterHandler()
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExecute(t *testing.T) {
	fc := &fakeCompiler{}
	srv := newServer(t, fc)
	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+ExecuteProcedure)

	msg, err := structpb.NewStruct(map[string]any{
		"schema": map[string]any{"source": map[string]any{"type": "record"}},
		"page":   2,
		"params": map[string]any{hostenv.RecordParam: "9"},
	})
	require.NoError(t, err)
	req := connect.NewRequest(msg)
	req.Header().Set(hostenv.ViewerHeader, "5")

	resp, err := client.CallUnary(context.Background(), req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"source":{"type":"record"}}`, fc.raw)
	assert.Equal(t, 2, fc.req.Page)
	assert.Equal(t, int64(5), fc.req.Env.ViewerID())
	assert.Equal(t, int64(9), fc.req.Env.RecordID())

	out := resp.Msg.AsMap()
	assert.Equal(t, 3.0, out["total"])
	assert.Equal(t, 3.0, out["page_count"])
	assert.Equal(t, true, out["has_more"])
	items := out["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Hello", items[0].(map[string]any)["title"])
}

func TestExecuteRejectsMissingSchema(t *testing.T) {
	srv := newServer(t, &fakeCompiler{})
	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+ExecuteProcedure)

	_, err := client.CallUnary(context.Background(), connect.NewRequest(&structpb.Struct{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestCompile(t *testing.T) {
	srv := newServer(t, &fakeCompiler{})
	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+CompileProcedure)

	msg, err := structpb.NewStruct(map[string]any{"schema": "{}"})
	require.NoError(t, err)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(msg))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 WHERE x = $1", resp.Msg.AsMap()["sql"])
	assert.Equal(t, []any{"7"}, resp.Msg.AsMap()["args"])

	msg, err = structpb.NewStruct(map[string]any{"schema": "bad"})
	require.NoError(t, err)
	_, err = client.CallUnary(context.Background(), connect.NewRequest(msg))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
