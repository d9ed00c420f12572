package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/emicklei/go-restful"

	"github.com/cr8s-go/cr8s/pkg/events"
	"github.com/cr8s-go/cr8s/pkg/store"
	"github.com/cr8s-go/cr8s/pkg/types"
)

type createReplicaSetRequest struct {
	Name     string               `json:"name"`
	Labels   map[string]string    `json:"labels,omitempty"`
	Replicas uint16               `json:"replicas"`
	Selector types.LabelSelector  `json:"selector"`
	Template types.PodManifest    `json:"template"`
}

// createReplicaSet handles POST /replicasets.
func (s *Server) createReplicaSet(req *restful.Request, resp *restful.Response) {
	var body createReplicaSetRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, types.NewError(types.ErrWrongFormat, "invalid replicaset body: %v", err))
		return
	}
	if body.Name == "" {
		writeError(resp, types.NewError(types.ErrWrongFormat, "name is required"))
		return
	}
	if body.Replicas < 1 {
		writeError(resp, types.NewError(types.ErrWrongFormat, "replicas must be at least 1"))
		return
	}
	if err := validateContainers(body.Template.Containers); err != nil {
		writeError(resp, err)
		return
	}
	if s.Cache.ReplicaSetNameExists(body.Name) {
		writeError(resp, types.NewError(types.ErrConflict, "replicaset %q already exists", body.Name))
		return
	}

	now := time.Now().UTC()
	rs := types.ReplicaSet{
		Metadata: types.NewMetadata(body.Name, body.Labels, nil, now),
		Spec: types.ReplicaSetSpec{
			Replicas: body.Replicas,
			Selector: body.Selector,
			Template: body.Template,
		},
		Status: types.ReplicaSetStatus{},
	}

	if err := s.Store.Put(req.Request.Context(), store.ReplicaSetKey(rs.Metadata.ID), rs); err != nil {
		writeError(resp, err)
		return
	}
	s.Cache.AddReplicaSet(rs.Metadata.Name, rs.Metadata.ID)
	s.Events.ReplicaSets.Publish(events.Event{Type: events.Added, Kind: types.KindReplicaSet, Object: rs})

	resp.WriteHeaderAndJson(http.StatusCreated, rs, restful.MIME_JSON)
}

// UpdateReplicaSetStatus applies a new status to the named replica
// set and publishes the resulting Modified event. There is no REST
// route for this: the replica-set controller runs in the same
// process as the API server, so it calls this directly rather than
// round-tripping over HTTP for a field §4.2's route table never
// defines an endpoint for.
func (s *Server) UpdateReplicaSetStatus(ctx context.Context, name string, status types.ReplicaSetStatus) error {
	id, ok := s.Cache.ReplicaSetID(name)
	if !ok {
		return types.NewError(types.ErrNotFound, "replicaset %q not found", name)
	}
	var rs types.ReplicaSet
	if err := s.Store.Get(ctx, store.ReplicaSetKey(id), &rs); err != nil {
		return err
	}
	rs.Status = status
	rs.Metadata.Touch(time.Now().UTC())
	if err := s.Store.Put(ctx, store.ReplicaSetKey(id), rs); err != nil {
		return err
	}
	s.Events.ReplicaSets.Publish(events.Event{Type: events.Modified, Kind: types.KindReplicaSet, Object: rs})
	return nil
}

// listOrWatchReplicaSets handles GET /replicasets.
func (s *Server) listOrWatchReplicaSets(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()
	var sets []types.ReplicaSet
	if err := s.Store.List(ctx, store.ReplicaSetPrefix(), &sets); err != nil {
		writeError(resp, err)
		return
	}

	if req.QueryParameter("watch") != "true" {
		resp.WriteHeaderAndJson(http.StatusOK, sets, restful.MIME_JSON)
		return
	}

	backlog := make([]events.Event, 0, len(sets))
	for _, rs := range sets {
		backlog = append(backlog, events.Event{Type: events.Added, Kind: types.KindReplicaSet, Object: rs})
	}
	sub := s.Events.ReplicaSets.Subscribe()
	streamEvents(resp, backlog, sub, nil)
}
