package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type echoService struct{}

const echoProcedure = "/test.v1.Echo/Echo"

func (echoService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	h := connect.NewUnaryHandler(echoProcedure,
		func(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			return connect.NewResponse(req.Msg), nil
		},
		connect.WithInterceptors(interceptors...))
	return "/test.v1.Echo/", h
}

func TestMount(t *testing.T) {
	r := mux.NewRouter()
	paths := Mount(r, []ConnectService{echoService{}})
	assert.Equal(t, []string{"/test.v1.Echo/"}, paths)

	srv := httptest.NewServer(r)
	defer srv.Close()

	msg, err := structpb.NewStruct(map[string]any{"page": 2})
	require.NoError(t, err)
	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+echoProcedure)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(msg))
	require.NoError(t, err)
	assert.Equal(t, float64(2), resp.Msg.GetFields()["page"].GetNumberValue())
}
