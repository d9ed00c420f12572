// Package agent implements the node agent's reconciliation core from
// spec.md §4.5: registration, a watch-driven reconcile loop, and a
// status-sync loop, generalized from the teacher's deleted
// pkg/kubelet (SyncPod / housekeeping loop shape) but driven entirely
// off the API server's watch stream rather than a local manifest
// source, since this spec has no file/etcd manifest watchers.
package agent

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/client"
	"github.com/cr8s-go/cr8s/pkg/config"
	"github.com/cr8s-go/cr8s/pkg/engine"
	"github.com/cr8s-go/cr8s/pkg/types"
)

// workQueueCapacity bounds the watcher→worker channel per spec.md
// §5's back-pressure rule.
const workQueueCapacity = 100

// WorkRequest is what the watcher task forwards to the worker task for
// one pod event.
type WorkRequest struct {
	ID        uuid.UUID
	EventType string
}

// Agent holds the four cooperating tasks' shared state: config, the
// container-engine client, and the pod/runtime maps.
type Agent struct {
	cfg    config.AgentConfig
	client *client.Client
	engine engine.Engine

	pods     *podMap
	runtimes *runtimeMap

	workCh chan WorkRequest
}

// New returns an Agent. eng is the container-engine adapter — a
// *engine.DockerEngine in production, an *engine.FakeEngine in tests.
func New(cfg config.AgentConfig, c *client.Client, eng engine.Engine) *Agent {
	return &Agent{
		cfg:      cfg,
		client:   c,
		engine:   eng,
		pods:     newPodMap(),
		runtimes: newRuntimeMap(),
		workCh:   make(chan WorkRequest, workQueueCapacity),
	}
}

// Register POSTs /nodes up to cfg.RegisterRetries times, 2 seconds
// apart, per spec.md §4.5. A non-nil error means the caller must abort
// the process with a non-zero exit.
func (a *Agent) Register(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.RegisterRetries; attempt++ {
		_, err := a.client.RegisterNode(ctx, client.CreateNodeRequest{
			Port: a.cfg.NodePort,
			Name: a.cfg.NodeName,
		})
		if err == nil {
			glog.Infof("agent: registered as node %q", a.cfg.NodeName)
			return nil
		}
		lastErr = err
		glog.Warningf("agent: registration attempt %d/%d failed: %v", attempt, a.cfg.RegisterRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("agent: registration failed after %d attempts: %w", a.cfg.RegisterRetries, lastErr)
}

// Run starts the watcher, worker, and sync tasks and blocks until ctx
// is cancelled.
func (a *Agent) Run(ctx context.Context) {
	go a.watch(ctx)
	go a.syncLoop(ctx)
	a.runWorker(ctx)
}

// watch is the watcher task: GET /pods?watch=true&nodeName=<self>.
func (a *Agent) watch(ctx context.Context) {
	q := url.Values{}
	q.Set("nodeName", a.cfg.NodeName)
	err := a.client.Watch(ctx, "/pods", q, func(env client.WatchEnvelope) error {
		if env.Pod == nil {
			return nil
		}
		switch env.EventType {
		case "Modified":
			a.pods.put(*env.Pod)
			a.enqueue(WorkRequest{ID: env.Pod.Metadata.ID, EventType: env.EventType})
		case "Deleted":
			a.pods.delete(env.Pod.Metadata.ID)
			a.enqueue(WorkRequest{ID: env.Pod.Metadata.ID, EventType: env.EventType})
		case "Added":
			// Ignored: the backlog's Added events duplicate the
			// Modified events that follow for any pod already
			// assigned here (spec.md §4.5, §9).
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("agent: pod watch ended: %v", err)
	}
}

func (a *Agent) enqueue(req WorkRequest) {
	select {
	case a.workCh <- req:
	default:
		glog.Warningf("agent: work queue full, dropping event for pod %s", req.ID)
	}
}

// runWorker is the worker task: drains the channel and spawns a
// detached goroutine per request.
func (a *Agent) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.workCh:
			go a.handle(ctx, req)
		}
	}
}

func (a *Agent) handle(ctx context.Context, req WorkRequest) {
	switch req.EventType {
	case "Deleted":
		if err := a.Delete(ctx, req.ID); err != nil {
			glog.Errorf("agent: delete pod %s: %v", req.ID, err)
		}
	default:
		if err := a.Reconcile(ctx, req.ID); err != nil {
			glog.Errorf("agent: reconcile pod %s: %v", req.ID, err)
		}
	}
}

// Reconcile implements spec.md §4.5's Reconcile(id): start the pod's
// containers exactly once. A pod that already has a PodRuntime is a
// no-op, making repeated reconciliation idempotent (spec.md §8
// scenario 6).
func (a *Agent) Reconcile(ctx context.Context, id uuid.UUID) error {
	pod, ok := a.pods.get(id)
	if !ok {
		return nil
	}
	if _, exists := a.runtimes.get(id); exists {
		return nil
	}

	runtime, err := a.engine.StartPod(ctx, pod)
	if err != nil {
		return fmt.Errorf("start pod %s: %w", pod.Metadata.Name, err)
	}
	if !a.runtimes.add(runtime) {
		// Lost a race with a concurrent reconcile of the same id;
		// leave the winner's runtime in place.
		return nil
	}
	return nil
}

// Delete implements spec.md §4.5's Delete(id): stop and remove every
// container the pod's runtime tracks.
func (a *Agent) Delete(ctx context.Context, id uuid.UUID) error {
	runtime, ok := a.runtimes.get(id)
	if !ok {
		return nil
	}
	ids := runtime.ContainerIDs()
	a.runtimes.remove(id)

	if err := a.engine.StopPod(ctx, ids); err != nil {
		return fmt.Errorf("stop pod %s: %w", runtime.Name, err)
	}
	return nil
}

// syncLoop is the sync task: on cfg.SyncLoopInterval, aggregate every
// tracked container's engine status into a PodPhase and PATCH it back.
func (a *Agent) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SyncLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.syncOnce(ctx)
		}
	}
}

func (a *Agent) syncOnce(ctx context.Context) {
	for _, runtime := range a.runtimes.all() {
		statuses := make([]types.ContainerStatus, 0, len(runtime.Containers))
		allRunning := true
		for name, c := range runtime.Containers {
			status, err := a.engine.GetContainerStatus(ctx, c.ID)
			if err != nil {
				glog.Warningf("agent: status for container %s of pod %s: %v", c.ID, runtime.Name, err)
				status = "Unknown"
			}
			a.runtimes.updateContainerStatus(runtime.ID, name, status)
			if status != "RUNNING" {
				allRunning = false
			}
			statuses = append(statuses, types.ContainerStatus{ContainerName: name, EngineStatus: status})
		}

		phase := types.PodSucceeded
		if allRunning {
			phase = types.PodRunning
		}

		pod, ok := a.pods.get(runtime.ID)
		observedGen := int64(0)
		if ok {
			observedGen = pod.Metadata.Generation
		}

		err := a.client.PutPodStatus(ctx, runtime.Name, a.cfg.NodeName, types.PodStatus{
			Phase:              phase,
			ContainerStatuses:  statuses,
			ObservedGeneration: observedGen,
		})
		if err != nil {
			glog.Errorf("agent: sync status for pod %s: %v", runtime.Name, err)
		}
	}
}
