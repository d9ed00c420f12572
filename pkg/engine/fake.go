package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// FakeEngine is an in-memory Engine for tests, grounded on the
// original implementation's node/src/docker/test_docker.rs fake. It
// records every StartPod/StopPod call so tests can assert on call
// counts (spec.md §8 scenario 6).
type FakeEngine struct {
	mu sync.Mutex

	StartPodCalls int
	StopPodCalls  int

	containers map[string]string // container id -> status
	logs       map[string]string
	nextID     int
}

// NewFakeEngine returns an empty FakeEngine.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		containers: map[string]string{},
		logs:       map[string]string{},
	}
}

func (f *FakeEngine) StartPod(_ context.Context, pod types.Pod) (*PodRuntime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StartPodCalls++

	runtime := &PodRuntime{
		ID:         pod.Metadata.ID,
		Name:       pod.Metadata.Name,
		Containers: map[string]ContainerRuntime{},
	}
	for _, spec := range pod.Spec.Containers {
		f.nextID++
		id := fmt.Sprintf("fake-container-%d", f.nextID)
		f.containers[id] = "RUNNING"
		runtime.Containers[spec.Name] = ContainerRuntime{
			ID:         id,
			SpecName:   spec.Name,
			EngineName: fmt.Sprintf("fake_%s_%s", spec.Name, pod.Metadata.Name),
			Status:     "RUNNING",
		}
	}
	return runtime, nil
}

func (f *FakeEngine) StopPod(_ context.Context, containerIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StopPodCalls++
	for _, id := range containerIDs {
		delete(f.containers, id)
	}
	return nil
}

func (f *FakeEngine) GetContainerStatus(_ context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.containers[containerID]
	if !ok {
		return "", fmt.Errorf("fake engine: no such container %q", containerID)
	}
	return status, nil
}

// SetStatus lets a test move a container to a new reported status,
// e.g. to exercise the sync loop's phase aggregation.
func (f *FakeEngine) SetStatus(containerID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[containerID] = status
}

func (f *FakeEngine) GetLogs(_ context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs[containerID], nil
}

func (f *FakeEngine) StreamLogs(_ context.Context, containerID string) (io.ReadCloser, error) {
	f.mu.Lock()
	text := f.logs[containerID]
	f.mu.Unlock()
	return io.NopCloser(strings.NewReader(text)), nil
}
