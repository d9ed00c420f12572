package engine

import (
	"context"
	"fmt"
	"io"

	docker "github.com/fsouza/go-dockerclient"
	"github.com/golang/glog"

	"github.com/cr8s-go/cr8s/pkg/cache"
	"github.com/cr8s-go/cr8s/pkg/types"
)

// DockerEngine is the production Engine, grounded on the teacher's
// pkg/kubelet.DockerInterface/DockerPuller, adapted to the new
// start_pod/stop_pod contract and to this repo's container-naming
// scheme ("{prefix}_{container.name}_{pod.name}").
type DockerEngine struct {
	client *docker.Client
	pulled *cache.StringSet
	prefix string
}

// NewDockerEngine connects to the local Docker daemon via its default
// endpoint (respecting DOCKER_HOST if set, as go-dockerclient does).
func NewDockerEngine(prefix string) (*DockerEngine, error) {
	client, err := docker.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("engine: connect to docker: %w", err)
	}
	return &DockerEngine{client: client, pulled: cache.NewStringSet(), prefix: prefix}, nil
}

func (e *DockerEngine) ensureImage(image string) error {
	if e.pulled.Has(image) {
		return nil
	}
	if err := e.client.PullImage(docker.PullImageOptions{Repository: image}, docker.AuthConfiguration{}); err != nil {
		return fmt.Errorf("engine: pull %q: %w", image, err)
	}
	e.pulled.Add(image)
	return nil
}

func (e *DockerEngine) containerName(podName, containerName string) string {
	return fmt.Sprintf("%s_%s_%s", e.prefix, containerName, podName)
}

// StartPod implements Engine. Failures after partial success are not
// rolled back, matching spec.md §4.5 step 5.
func (e *DockerEngine) StartPod(ctx context.Context, pod types.Pod) (*PodRuntime, error) {
	runtime := &PodRuntime{
		ID:         pod.Metadata.ID,
		Name:       pod.Metadata.Name,
		Containers: map[string]ContainerRuntime{},
	}

	for _, spec := range pod.Spec.Containers {
		if err := e.ensureImage(spec.Image); err != nil {
			return runtime, err
		}

		env := make([]string, 0, len(spec.Env))
		for _, ev := range spec.Env {
			env = append(env, ev.Name+"="+ev.Value)
		}
		exposed := map[docker.Port]struct{}{}
		bindings := map[docker.Port][]docker.PortBinding{}
		for _, p := range spec.Ports {
			port := docker.Port(fmt.Sprintf("%d/tcp", p.ContainerPort))
			exposed[port] = struct{}{}
			bindings[port] = []docker.PortBinding{{HostPort: fmt.Sprintf("%d", p.ContainerPort)}}
		}

		name := e.containerName(pod.Metadata.Name, spec.Name)
		container, err := e.client.CreateContainer(docker.CreateContainerOptions{
			Name: name,
			Config: &docker.Config{
				Image:        spec.Image,
				Env:          env,
				ExposedPorts: exposed,
			},
			HostConfig: &docker.HostConfig{
				PortBindings: bindings,
			},
		})
		if err != nil {
			return runtime, fmt.Errorf("engine: create container %q: %w", name, err)
		}

		if err := e.client.StartContainer(container.ID, nil); err != nil {
			return runtime, fmt.Errorf("engine: start container %q: %w", name, err)
		}

		status, err := e.GetContainerStatus(ctx, container.ID)
		if err != nil {
			glog.Warningf("engine: inspect %q after start: %v", name, err)
			status = "UNKNOWN"
		}

		runtime.Containers[spec.Name] = ContainerRuntime{
			ID:         container.ID,
			SpecName:   spec.Name,
			EngineName: name,
			Status:     status,
		}
	}

	return runtime, nil
}

// GetContainerStatus implements Engine.
func (e *DockerEngine) GetContainerStatus(_ context.Context, containerID string) (string, error) {
	c, err := e.client.InspectContainer(containerID)
	if err != nil {
		return "", fmt.Errorf("engine: inspect %q: %w", containerID, err)
	}
	switch {
	case c.State.Running:
		return "RUNNING", nil
	case c.State.Dead:
		return "DEAD", nil
	case c.State.ExitCode == 0:
		return "EXITED", nil
	default:
		return "FAILED", nil
	}
}

// StopPod implements Engine: it stops then removes each container,
// logging but not aborting on a per-container failure so the rest of
// the pod is still torn down.
func (e *DockerEngine) StopPod(_ context.Context, containerIDs []string) error {
	var firstErr error
	for _, id := range containerIDs {
		if err := e.client.StopContainer(id, 10); err != nil {
			glog.Errorf("engine: stop %q: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := e.client.RemoveContainer(docker.RemoveContainerOptions{ID: id}); err != nil {
			glog.Errorf("engine: remove %q: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// GetLogs implements Engine.
func (e *DockerEngine) GetLogs(_ context.Context, containerID string) (string, error) {
	var buf writeBuffer
	err := e.client.Logs(docker.LogsOptions{
		Container:    containerID,
		OutputStream: &buf,
		ErrorStream:  &buf,
		Stdout:       true,
		Stderr:       true,
	})
	if err != nil {
		return "", fmt.Errorf("engine: logs %q: %w", containerID, err)
	}
	return buf.String(), nil
}

// StreamLogs implements Engine with a follow-mode Docker log stream.
func (e *DockerEngine) StreamLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		err := e.client.Logs(docker.LogsOptions{
			Container:    containerID,
			OutputStream: pw,
			ErrorStream:  pw,
			Stdout:       true,
			Stderr:       true,
			Follow:       true,
			Context:      ctx,
		})
		pw.CloseWithError(err)
	}()
	return pr, nil
}

type writeBuffer struct {
	b []byte
}

func (w *writeBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *writeBuffer) String() string { return string(w.b) }
