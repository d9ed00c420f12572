package apiserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/emicklei/go-restful"

	"github.com/cr8s-go/cr8s/pkg/events"
	"github.com/cr8s-go/cr8s/pkg/store"
	"github.com/cr8s-go/cr8s/pkg/types"
)

type createNodeRequest struct {
	Port int    `json:"port"`
	Name string `json:"name"`
}

// createNode handles POST /nodes: body {port, name}; addr is derived
// from the peer's IP plus the given port, per spec.md §4.2.
func (s *Server) createNode(req *restful.Request, resp *restful.Response) {
	var body createNodeRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, types.NewError(types.ErrWrongFormat, "invalid node registration body: %v", err))
		return
	}
	if body.Name == "" {
		writeError(resp, types.NewError(types.ErrWrongFormat, "name is required"))
		return
	}

	addr := fmt.Sprintf("%s:%d", peerHost(req.Request), body.Port)

	if s.Cache.NodeNameExists(body.Name) {
		writeError(resp, types.NewError(types.ErrConflict, "node %q already exists", body.Name))
		return
	}
	if s.Cache.NodeAddrExists(addr) {
		writeError(resp, types.NewError(types.ErrConflict, "node addr %q already registered", addr))
		return
	}

	now := time.Now().UTC()
	node := types.Node{
		Metadata:      types.NewMetadata(body.Name, nil, nil, now),
		Addr:          addr,
		Status:        types.NodeReady,
		StartedAt:     now,
		LastHeartbeat: now,
	}

	if err := s.Store.Put(req.Request.Context(), store.NodeKey(node.Metadata.Name), node); err != nil {
		writeError(resp, err)
		return
	}
	s.Cache.AddNode(node.Metadata.Name, node.Addr)
	s.Events.Nodes.Publish(events.Event{Type: events.Added, Kind: types.KindNode, Object: node})

	resp.WriteHeaderAndJson(http.StatusCreated, node, restful.MIME_JSON)
}

// listOrWatchNodes handles GET /nodes, list or watch per ?watch=true.
func (s *Server) listOrWatchNodes(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()
	var nodes []types.Node
	if err := s.Store.List(ctx, store.NodePrefix(), &nodes); err != nil {
		writeError(resp, err)
		return
	}

	if req.QueryParameter("watch") != "true" {
		resp.WriteHeaderAndJson(http.StatusOK, nodes, restful.MIME_JSON)
		return
	}

	backlog := make([]events.Event, 0, len(nodes))
	for _, n := range nodes {
		backlog = append(backlog, events.Event{Type: events.Added, Kind: types.KindNode, Object: n})
	}
	sub := s.Events.Nodes.Subscribe()
	streamEvents(resp, backlog, sub, nil)
}
