// Package types defines the cluster's object model: Node, Pod, and
// ReplicaSet, the common metadata they all carry, and the small set of
// validation invariants the API server enforces on them.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an object's type, used in OwnerReference and in watch
// event bodies.
type Kind string

const (
	KindPod        Kind = "Pod"
	KindNode       Kind = "Node"
	KindReplicaSet Kind = "ReplicaSet"
)

// OwnerReference points a dependent object back at the controller that
// manages it. Controller=true marks the owner as the one allowed to
// manage this object's lifecycle; a user-originated create carrying
// such a reference is rejected by the pod create handler with
// ErrWrongFormat.
type OwnerReference struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"kind"`
	Controller bool      `json:"controller"`
}

// Metadata is embedded in every top-level object.
type Metadata struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Labels     map[string]string `json:"labels,omitempty"`
	Owner      *OwnerReference   `json:"ownerReference,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	ModifiedAt time.Time         `json:"modifiedAt"`
	// Generation increases only when Spec changes; status updates leave
	// it untouched.
	Generation int64 `json:"generation"`
}

// Touch bumps ModifiedAt. Callers bump Generation themselves when the
// write changes Spec rather than Status.
func (m *Metadata) Touch(now time.Time) {
	m.ModifiedAt = now
}

// PodPhase is the coarse lifecycle state of a pod, mirrored from the
// container statuses the agent reports.
type PodPhase string

const (
	PodPending   PodPhase = "Pending"
	PodRunning   PodPhase = "Running"
	PodSucceeded PodPhase = "Succeeded"
	PodFailed    PodPhase = "Failed"
	PodUnknown   PodPhase = "Unknown"
)

// Port is a container's exposed port.
type Port struct {
	ContainerPort uint16 `json:"containerPort"`
}

// EnvVar is a single name/value pair injected into a container.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContainerSpec describes one container in a pod's template.
type ContainerSpec struct {
	Name  string   `json:"name"`
	Image string   `json:"image"`
	Ports []Port   `json:"ports,omitempty"`
	Env   []EnvVar `json:"env,omitempty"`
}

// PodSpec is the desired state of a pod.
type PodSpec struct {
	// NodeName is empty until the scheduler binds the pod.
	NodeName   string          `json:"nodeName"`
	Containers []ContainerSpec `json:"containers"`
}

// ContainerStatus reports the engine-observed state of one container,
// keyed by the container's spec name.
type ContainerStatus struct {
	ContainerName string `json:"containerName"`
	EngineStatus  string `json:"engineStatus"`
}

// PodStatus is the observed state of a pod, overwritten wholesale by
// the agent's status-sync PATCH.
type PodStatus struct {
	Phase              PodPhase          `json:"phase"`
	ContainerStatuses  []ContainerStatus `json:"containerStatuses,omitempty"`
	LastUpdate         *time.Time        `json:"lastUpdate,omitempty"`
	ObservedGeneration int64             `json:"observedGeneration"`
}

// Pod is a bundle of co-located containers scheduled as a unit.
type Pod struct {
	Metadata Metadata  `json:"metadata"`
	Spec     PodSpec   `json:"spec"`
	Status   PodStatus `json:"status"`
}

// Unbound reports whether the pod has not yet been assigned to a node.
func (p *Pod) Unbound() bool {
	return p.Spec.NodeName == ""
}

// NodeStatus is the node's coarse lifecycle state, as reported at
// registration and refreshed by its heartbeat.
type NodeStatus string

const (
	NodeReady   NodeStatus = "Ready"
	NodeRunning NodeStatus = "Running"
	NodeStopped NodeStatus = "Stopped"
)

// Node is a worker host running an agent.
type Node struct {
	Metadata      Metadata   `json:"metadata"`
	Addr          string     `json:"addr"`
	Status        NodeStatus `json:"status"`
	StartedAt     time.Time  `json:"startedAt"`
	LastHeartbeat time.Time  `json:"lastHeartbeat"`
}

// LabelSelector requires a pod's labels to match every key/value pair
// exactly. An empty selector matches everything.
type LabelSelector struct {
	MatchLabels map[string]string `json:"matchLabels,omitempty"`
}

// Matches reports whether labels satisfies the selector.
func (s LabelSelector) Matches(labels map[string]string) bool {
	for k, v := range s.MatchLabels {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// PodManifest is the template a ReplicaSet stamps out pods from.
type PodManifest struct {
	Labels     map[string]string `json:"labels,omitempty"`
	Containers []ContainerSpec   `json:"containers"`
}

// ReplicaSetSpec is the desired state of a ReplicaSet.
type ReplicaSetSpec struct {
	Replicas uint16        `json:"replicas"`
	Selector LabelSelector `json:"selector"`
	Template PodManifest   `json:"template"`
}

// ReplicaSetStatus is the observed state of a ReplicaSet.
type ReplicaSetStatus struct {
	ReadyReplicas      uint16 `json:"readyReplicas"`
	ObservedGeneration int64  `json:"observedGeneration"`
}

// ReplicaSet declares a desired count of identical pods.
type ReplicaSet struct {
	Metadata Metadata         `json:"metadata"`
	Spec     ReplicaSetSpec   `json:"spec"`
	Status   ReplicaSetStatus `json:"status"`
}

// NewMetadata fills in the server-assigned portion of an object's
// metadata: a fresh id, both timestamps, and generation 1.
func NewMetadata(name string, labels map[string]string, owner *OwnerReference, now time.Time) Metadata {
	return Metadata{
		ID:         uuid.New(),
		Name:       name,
		Labels:     labels,
		Owner:      owner,
		CreatedAt:  now,
		ModifiedAt: now,
		Generation: 1,
	}
}
