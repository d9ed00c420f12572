// Package client is the HTTP client every controller and the node
// agent use to talk to the API server, grounded on the teacher's
// pkg/client.Interface shape (one method per verb-plus-kind) but
// trimmed to the three kinds and watch-ndjson wire format this spec
// defines.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// Client talks to one API server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the server at baseURL (e.g.
// "http://localhost:7620").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return resp, fmt.Errorf("client: %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("client: decode response from %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}

// --- nodes ---

type CreateNodeRequest struct {
	Port int    `json:"port"`
	Name string `json:"name"`
}

func (c *Client) RegisterNode(ctx context.Context, req CreateNodeRequest) (*types.Node, error) {
	var node types.Node
	_, err := c.do(ctx, http.MethodPost, "/nodes", nil, req, &node)
	return &node, err
}

func (c *Client) ListNodes(ctx context.Context) ([]types.Node, error) {
	var nodes []types.Node
	_, err := c.do(ctx, http.MethodGet, "/nodes", nil, nil, &nodes)
	return nodes, err
}

// --- pods ---

type CreatePodRequest struct {
	Name           string                `json:"name"`
	Labels         map[string]string     `json:"labels,omitempty"`
	Containers     []types.ContainerSpec `json:"containers"`
	NodeName       string                `json:"nodeName,omitempty"`
	OwnerReference *types.OwnerReference `json:"ownerReference,omitempty"`
}

func (c *Client) CreatePod(ctx context.Context, req CreatePodRequest, asController bool) (*types.Pod, error) {
	q := url.Values{}
	if asController {
		q.Set("controller", "true")
	}
	var pod types.Pod
	_, err := c.do(ctx, http.MethodPost, "/pods", q, req, &pod)
	return &pod, err
}

// ListPodsOptions controls GET /pods filtering.
type ListPodsOptions struct {
	// NodeNameSet, when true, sends ?nodeName=NodeName (possibly "").
	NodeNameSet   bool
	NodeName      string
	LabelSelector string
}

func (c *Client) ListPods(ctx context.Context, opts ListPodsOptions) ([]types.Pod, error) {
	q := url.Values{}
	if opts.NodeNameSet {
		q.Set("nodeName", opts.NodeName)
	}
	if opts.LabelSelector != "" {
		q.Set("labelSelector", opts.LabelSelector)
	}
	var pods []types.Pod
	_, err := c.do(ctx, http.MethodGet, "/pods", q, nil, &pods)
	return pods, err
}

// BindPod PATCHes /pods/{name} to set spec.node_name.
func (c *Client) BindPod(ctx context.Context, name, nodeName string) error {
	body := map[string]interface{}{
		"pod_field": "NodeName",
		"value":     nodeName,
	}
	_, err := c.do(ctx, http.MethodPatch, "/pods/"+url.PathEscape(name), nil, body, nil)
	return err
}

// PutPodStatus PATCHes /pods/{name}/status.
func (c *Client) PutPodStatus(ctx context.Context, name, nodeName string, status types.PodStatus) error {
	body := map[string]interface{}{
		"node_name": nodeName,
		"status":    status,
	}
	_, err := c.do(ctx, http.MethodPatch, "/pods/"+url.PathEscape(name)+"/status", nil, body, nil)
	return err
}

func (c *Client) DeletePod(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/pods/"+url.PathEscape(name), nil, nil, nil)
	return err
}

// --- replicasets ---

type CreateReplicaSetRequest struct {
	Name     string              `json:"name"`
	Labels   map[string]string   `json:"labels,omitempty"`
	Replicas uint16              `json:"replicas"`
	Selector types.LabelSelector `json:"selector"`
	Template types.PodManifest   `json:"template"`
}

func (c *Client) CreateReplicaSet(ctx context.Context, req CreateReplicaSetRequest) (*types.ReplicaSet, error) {
	var rs types.ReplicaSet
	_, err := c.do(ctx, http.MethodPost, "/replicasets", nil, req, &rs)
	return &rs, err
}

func (c *Client) ListReplicaSets(ctx context.Context) ([]types.ReplicaSet, error) {
	var sets []types.ReplicaSet
	_, err := c.do(ctx, http.MethodGet, "/replicasets", nil, nil, &sets)
	return sets, err
}

// --- watch ---

// WatchEnvelope mirrors apiserver.watchEnvelope: the ndjson wire shape
// of a single watch event.
type WatchEnvelope struct {
	EventType  string          `json:"event_type"`
	Pod        *types.Pod      `json:"pod,omitempty"`
	Node       *types.Node     `json:"node,omitempty"`
	ReplicaSet *types.ReplicaSet `json:"replicaset,omitempty"`
}

// Watch opens a watch stream at path (e.g. "/pods") with the given
// query parameters (watch=true is added automatically) and calls fn
// for every event until ctx is cancelled or the server closes the
// connection, at which point it returns the error that ended the loop
// (nil on a clean server-initiated close).
func (c *Client) Watch(ctx context.Context, path string, query url.Values, fn func(WatchEnvelope) error) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("watch", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return fmt.Errorf("client: build watch request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: watch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client: watch %s: status %d: %s", path, resp.StatusCode, string(raw))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var env WatchEnvelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			return fmt.Errorf("client: decode watch event: %w", err)
		}
		if err := fn(env); err != nil {
			return err
		}
	}
	return scanner.Err()
}
