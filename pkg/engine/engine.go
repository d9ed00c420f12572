// Package engine is the container-engine adapter the node agent's
// reconciler consumes (spec.md §4.5). The engine itself — the local
// container runtime — is an out-of-scope external collaborator; this
// package specifies only the interface, one production implementation
// over a local Docker engine, and one in-memory fake for tests.
package engine

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// ContainerRuntime is what the agent remembers about one running
// container: its spec name, the engine's own name/id for it, and the
// last status the engine reported.
type ContainerRuntime struct {
	ID         string
	SpecName   string
	EngineName string
	Status     string
}

// PodRuntime is the agent's local record of a started pod, keyed by
// container spec name so reconcile/delete can address individual
// containers without re-deriving engine names.
type PodRuntime struct {
	ID         uuid.UUID
	Name       string
	Containers map[string]ContainerRuntime
}

// ContainerIDs returns every engine container id in the runtime.
func (r *PodRuntime) ContainerIDs() []string {
	ids := make([]string, 0, len(r.Containers))
	for _, c := range r.Containers {
		ids = append(ids, c.ID)
	}
	return ids
}

// Engine is the container-engine adapter: ensure images, start a
// pod's containers, stop them, and retrieve logs.
type Engine interface {
	// GetContainerStatus returns the engine's current status string
	// for one container.
	GetContainerStatus(ctx context.Context, containerID string) (string, error)
	// StartPod ensures every image in pod.Spec.Containers is present,
	// creates and starts one container per ContainerSpec, and returns
	// the resulting PodRuntime.
	StartPod(ctx context.Context, pod types.Pod) (*PodRuntime, error)
	// StopPod stops and removes the given container ids.
	StopPod(ctx context.Context, containerIDs []string) error
	// GetLogs returns the full captured log text for one container.
	GetLogs(ctx context.Context, containerID string) (string, error)
	// StreamLogs returns a reader that yields new log output as the
	// container produces it. Callers must Close it.
	StreamLogs(ctx context.Context, containerID string) (io.ReadCloser, error)
}
