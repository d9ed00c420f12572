package apiserver

import (
	"net/http"
	"time"

	"github.com/emicklei/go-restful"

	"github.com/cr8s-go/cr8s/pkg/events"
	"github.com/cr8s-go/cr8s/pkg/labels"
	"github.com/cr8s-go/cr8s/pkg/store"
	"github.com/cr8s-go/cr8s/pkg/types"
)

type createPodRequest struct {
	Name           string                `json:"name"`
	Labels         map[string]string     `json:"labels,omitempty"`
	Containers     []types.ContainerSpec `json:"containers"`
	NodeName       string                `json:"nodeName,omitempty"`
	OwnerReference *types.OwnerReference `json:"ownerReference,omitempty"`
}

func validateContainers(containers []types.ContainerSpec) error {
	if len(containers) == 0 {
		return types.NewError(types.ErrWrongFormat, "a pod must declare at least one container")
	}
	seen := map[string]struct{}{}
	for _, c := range containers {
		if c.Name == "" {
			return types.NewError(types.ErrWrongFormat, "container name is required")
		}
		if _, ok := seen[c.Name]; ok {
			return types.NewError(types.ErrWrongFormat, "duplicate container name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// createPod handles POST /pods, gating controller-owned creates
// behind ?controller=true per invariant I7.
func (s *Server) createPod(req *restful.Request, resp *restful.Response) {
	var body createPodRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, types.NewError(types.ErrWrongFormat, "invalid pod body: %v", err))
		return
	}
	if body.Name == "" {
		writeError(resp, types.NewError(types.ErrWrongFormat, "name is required"))
		return
	}
	if err := validateContainers(body.Containers); err != nil {
		writeError(resp, err)
		return
	}

	controllerFlag := req.QueryParameter("controller") == "true"
	if body.OwnerReference != nil && body.OwnerReference.Controller && !controllerFlag {
		writeError(resp, types.NewError(types.ErrWrongFormat,
			"a controller-owned pod must be created with ?controller=true"))
		return
	}

	if s.Cache.PodNameExists(body.Name) {
		writeError(resp, types.NewError(types.ErrConflict, "pod %q already exists", body.Name))
		return
	}
	if body.NodeName != "" && !s.Cache.NodeNameExists(body.NodeName) {
		writeError(resp, types.NewError(types.ErrInvalidReference, "node %q does not exist", body.NodeName))
		return
	}

	now := time.Now().UTC()
	pod := types.Pod{
		Metadata: types.NewMetadata(body.Name, body.Labels, body.OwnerReference, now),
		Spec: types.PodSpec{
			NodeName:   body.NodeName,
			Containers: body.Containers,
		},
		Status: types.PodStatus{
			Phase:              types.PodPending,
			ObservedGeneration: 0,
		},
	}

	if err := s.Store.Put(req.Request.Context(), store.PodKey(pod.Metadata.ID), pod); err != nil {
		writeError(resp, err)
		return
	}
	s.Cache.AddPod(pod.Metadata.Name, pod.Metadata.ID, pod.Metadata.Labels)
	if pod.Spec.NodeName != "" {
		s.Cache.AssignPod(pod.Metadata.Name, pod.Metadata.ID, pod.Spec.NodeName)
	}
	s.Events.Pods.Publish(events.Event{Type: events.Added, Kind: types.KindPod, Object: pod})

	resp.WriteHeaderAndJson(http.StatusCreated, pod, restful.MIME_JSON)
}

func (s *Server) getPodByName(req *restful.Request, name string) (*types.Pod, error) {
	info, ok := s.Cache.PodInfo(name)
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "pod %q not found", name)
	}
	var pod types.Pod
	if err := s.Store.Get(req.Request.Context(), store.PodKey(info.ID), &pod); err != nil {
		return nil, err
	}
	return &pod, nil
}

// listOrWatchPods handles GET /pods, applying the nodeName and
// labelSelector filters to both the list response and (when
// ?watch=true) to the backlog and live tail alike.
func (s *Server) listOrWatchPods(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()
	var pods []types.Pod
	if err := s.Store.List(ctx, store.PodPrefix(), &pods); err != nil {
		writeError(resp, err)
		return
	}

	filterNode, hasNodeFilter := "", req.Request.URL.Query().Has("nodeName")
	if hasNodeFilter {
		filterNode = req.QueryParameter("nodeName")
	}
	selector, err := labels.ParseSelector(req.QueryParameter("labelSelector"))
	if err != nil {
		writeError(resp, types.NewError(types.ErrWrongFormat, "%v", err))
		return
	}

	matches := func(p types.Pod) bool {
		if hasNodeFilter && p.Spec.NodeName != filterNode {
			return false
		}
		return selector.Matches(p.Metadata.Labels)
	}

	filtered := make([]types.Pod, 0, len(pods))
	for _, p := range pods {
		if matches(p) {
			filtered = append(filtered, p)
		}
	}

	if req.QueryParameter("watch") != "true" {
		resp.WriteHeaderAndJson(http.StatusOK, filtered, restful.MIME_JSON)
		return
	}

	backlog := make([]events.Event, 0, len(filtered))
	for _, p := range filtered {
		backlog = append(backlog, events.Event{Type: events.Added, Kind: types.KindPod, Object: p})
	}
	sub := s.Events.Pods.Subscribe()
	streamEvents(resp, backlog, sub, func(ev events.Event) bool {
		p, ok := ev.Object.(types.Pod)
		return ok && matches(p)
	})
}

type patchPodRequest struct {
	PodField string      `json:"pod_field"`
	Value    interface{} `json:"value"`
}

// patchPod handles PATCH /pods/{name}: binding (pod_field=NodeName) is
// implemented; pod_field=Spec is explicitly not implemented per
// spec.md §4.2.
func (s *Server) patchPod(req *restful.Request, resp *restful.Response) {
	name := req.PathParameter("name")
	var body patchPodRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, types.NewError(types.ErrWrongFormat, "invalid patch body: %v", err))
		return
	}

	switch body.PodField {
	case "NodeName":
		s.bindPod(req, resp, name, body.Value)
	case "Spec":
		notImplemented(resp, "PATCH pod spec")
	default:
		writeError(resp, types.NewError(types.ErrWrongFormat, "unknown pod_field %q", body.PodField))
	}
}

func (s *Server) bindPod(req *restful.Request, resp *restful.Response, name string, value interface{}) {
	nodeName, ok := value.(string)
	if !ok {
		writeError(resp, types.NewError(types.ErrWrongFormat, "NodeName value must be a string"))
		return
	}

	pod, err := s.getPodByName(req, name)
	if err != nil {
		writeError(resp, err)
		return
	}
	if pod.Spec.NodeName != "" {
		writeError(resp, types.NewError(types.ErrConflict, "pod %q is already bound to %q", name, pod.Spec.NodeName))
		return
	}
	if !s.Cache.NodeNameExists(nodeName) {
		writeError(resp, types.NewError(types.ErrInvalidReference, "node %q does not exist", nodeName))
		return
	}

	pod.Spec.NodeName = nodeName
	pod.Metadata.Generation++
	pod.Metadata.Touch(time.Now().UTC())

	if err := s.Store.Put(req.Request.Context(), store.PodKey(pod.Metadata.ID), *pod); err != nil {
		writeError(resp, err)
		return
	}
	s.Cache.AssignPod(pod.Metadata.Name, pod.Metadata.ID, nodeName)
	s.Events.Pods.Publish(events.Event{Type: events.Modified, Kind: types.KindPod, Object: *pod})

	resp.WriteHeader(http.StatusNoContent)
}

type patchPodStatusRequest struct {
	NodeName string          `json:"node_name"`
	Status   types.PodStatus `json:"status"`
}

// patchPodStatus handles PATCH /pods/{name}/status: the single
// standardized status-update path per spec.md §9 (the teacher's
// ancestor and the original source disagree on this route; spec.md
// resolves the disagreement in favor of this one path).
func (s *Server) patchPodStatus(req *restful.Request, resp *restful.Response) {
	name := req.PathParameter("name")
	var body patchPodStatusRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, types.NewError(types.ErrWrongFormat, "invalid status body: %v", err))
		return
	}

	pod, err := s.getPodByName(req, name)
	if err != nil {
		writeError(resp, err)
		return
	}
	if body.NodeName != "" && pod.Spec.NodeName != body.NodeName {
		writeError(resp, types.NewError(types.ErrInvalidReference,
			"pod %q is not assigned to node %q", name, body.NodeName))
		return
	}

	now := time.Now().UTC()
	body.Status.LastUpdate = &now
	if body.Status.ObservedGeneration == 0 || body.Status.ObservedGeneration > pod.Metadata.Generation {
		// I6: observed_generation must never exceed the current generation.
		body.Status.ObservedGeneration = pod.Metadata.Generation
	}
	pod.Status = body.Status
	pod.Metadata.Touch(now)

	if err := s.Store.Put(req.Request.Context(), store.PodKey(pod.Metadata.ID), *pod); err != nil {
		writeError(resp, err)
		return
	}
	s.Events.Pods.Publish(events.Event{Type: events.Modified, Kind: types.KindPod, Object: *pod})

	resp.WriteHeaderAndJson(http.StatusOK, *pod, restful.MIME_JSON)
}

// deletePod handles DELETE /pods/{name}.
func (s *Server) deletePod(req *restful.Request, resp *restful.Response) {
	name := req.PathParameter("name")
	pod, err := s.getPodByName(req, name)
	if err != nil {
		writeError(resp, err)
		return
	}

	if err := s.Store.Delete(req.Request.Context(), store.PodKey(pod.Metadata.ID)); err != nil {
		writeError(resp, err)
		return
	}
	s.Cache.RemovePod(pod.Metadata.Name, pod.Metadata.ID, pod.Metadata.Labels)
	s.Events.Pods.Publish(events.Event{Type: events.Deleted, Kind: types.KindPod, Object: *pod})

	resp.WriteHeader(http.StatusNoContent)
}
