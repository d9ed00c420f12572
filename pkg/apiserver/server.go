// Package apiserver implements the cluster's single source of truth:
// a durable, watchable object store fronted by the REST surface in
// spec.md §4.2, grounded on the teacher's pkg/apiserver (go-restful
// route wiring) and pkg/registry (store access per object kind).
package apiserver

import (
	"net/http"

	"github.com/emicklei/go-restful"

	"github.com/cr8s-go/cr8s/pkg/cache"
	"github.com/cr8s-go/cr8s/pkg/events"
	"github.com/cr8s-go/cr8s/pkg/store"
)

// Server holds every piece of state the REST handlers close over: the
// store of record, the hot-index cache fronting it, and the per-kind
// watch broadcasters.
type Server struct {
	Store  store.Store
	Cache  *cache.Manager
	Events *events.Registry
}

// New wires a Server over an existing Store, starting from an empty
// cache. The cache is not loaded from the store, so objects already
// present in a non-empty store are missing from its indexes.
func New(s store.Store) *Server {
	return &Server{
		Store:  s,
		Cache:  cache.New(),
		Events: events.NewRegistry(),
	}
}

// WebService builds the go-restful WebService exposing every route in
// spec.md §4.2, the same InstallREST shape the teacher's
// APIGroupVersion uses, collapsed into one version since this spec has
// no API versioning concept.
func (s *Server) WebService() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path("").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.GET("/nodes").To(s.listOrWatchNodes))
	ws.Route(ws.POST("/nodes").To(s.createNode))

	ws.Route(ws.GET("/pods").To(s.listOrWatchPods))
	ws.Route(ws.POST("/pods").To(s.createPod))
	ws.Route(ws.PATCH("/pods/{name}").To(s.patchPod))
	ws.Route(ws.PATCH("/pods/{name}/status").To(s.patchPodStatus))
	ws.Route(ws.DELETE("/pods/{name}").To(s.deletePod))

	ws.Route(ws.GET("/replicasets").To(s.listOrWatchReplicaSets))
	ws.Route(ws.POST("/replicasets").To(s.createReplicaSet))

	return ws
}

// NewContainer builds a go-restful Container serving the Server's
// WebService, ready to hand to http.Serve.
func (s *Server) NewContainer() *restful.Container {
	container := restful.NewContainer()
	container.Add(s.WebService())
	return container
}

// peerHost extracts the host portion of req.RemoteAddr, used to derive
// a node's addr from "{peerHost}:{port}" at registration time.
func peerHost(req *http.Request) string {
	addr := req.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
