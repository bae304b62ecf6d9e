package server

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
)

// ConnectService is implemented by each service to register its connect handler.
type ConnectService interface {
	RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler)
}

// Mount registers every service under its path prefix on r. Connect
// procedures are POST only, other methods get 405 from connect itself.
func Mount(r *mux.Router, services []ConnectService, interceptors ...connect.Interceptor) []string {
	paths := make([]string, 0, len(services))
	for _, svc := range services {
		path, h := svc.RegisterHandler(interceptors...)
		r.PathPrefix(path).Handler(h)
		paths = append(paths, path)
	}
	return paths
}
