// Package replicaset implements the owner/dependent reconciler from
// spec.md §4.4, generalized from the teacher's deleted
// pkg/controller.ReplicationManager (watch loop + work queue +
// syncReplicationController) down to this spec's single reconcile
// rule: create pods until the observed count meets the desired one.
package replicaset

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/apiserver"
	"github.com/cr8s-go/cr8s/pkg/client"
	"github.com/cr8s-go/cr8s/pkg/types"
)

const queueCapacity = 100

// Controller watches ReplicaSets and pods, and creates pods to close
// the gap between desired and ready replicas.
//
// It talks to the API server two ways: over HTTP via client, the same
// surface any external watcher uses, for listing/creating pods and
// for the watch streams themselves; and through a direct in-process
// call on server for the one write spec.md's REST table has no route
// for — status.ready_replicas. Both paths are legitimate because the
// controller and the API server are the same process per spec.md §2.
type Controller struct {
	client *client.Client
	server *apiserver.Server
	state  *shadowState
	queue  chan uuid.UUID
}

// New returns a Controller. server is used only for the status-update
// shortcut described above; every other interaction goes through c.
func New(c *client.Client, server *apiserver.Server) *Controller {
	return &Controller{
		client: c,
		server: server,
		state:  newShadowState(),
		queue:  make(chan uuid.UUID, queueCapacity),
	}
}

// Run starts the watch loops and the reconcile worker, blocking until
// ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	go c.watchReplicaSets(ctx)
	go c.watchPods(ctx)
	c.drainQueue(ctx)
}

func (c *Controller) enqueue(id uuid.UUID) {
	select {
	case c.queue <- id:
	default:
		glog.Warningf("replicaset: reconcile queue full, dropping %s (will retry on next event)", id)
	}
}

func (c *Controller) watchReplicaSets(ctx context.Context) {
	err := c.client.Watch(ctx, "/replicasets", nil, func(env client.WatchEnvelope) error {
		if env.ReplicaSet == nil {
			return nil
		}
		switch env.EventType {
		case "Added", "Modified":
			c.state.put(*env.ReplicaSet)
			c.enqueue(env.ReplicaSet.Metadata.ID)
		case "Deleted":
			c.state.remove(env.ReplicaSet.Metadata.ID)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("replicaset: replicaset watch ended: %v", err)
	}
}

// watchPods enqueues the owning ReplicaSet's id whenever a dependent
// pod changes, per spec.md §4.4: the controller does not try to count
// precisely from the event stream, it just re-pulls the authoritative
// count in Reconcile.
func (c *Controller) watchPods(ctx context.Context) {
	err := c.client.Watch(ctx, "/pods", nil, func(env client.WatchEnvelope) error {
		if env.Pod == nil {
			return nil
		}
		if id, ok := c.state.find(env.Pod.Metadata.Owner); ok {
			c.enqueue(id)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("replicaset: pod watch ended: %v", err)
	}
}

func (c *Controller) drainQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-c.queue:
			c.reconcile(ctx, id)
		}
	}
}

// reconcile implements spec.md §4.4's Reconcile(rs_id): compute the
// deficit against the authoritative pod count and create pods to
// close it.
func (c *Controller) reconcile(ctx context.Context, id uuid.UUID) {
	rs, ok := c.state.get(id)
	if !ok {
		return
	}

	pods, err := c.client.ListPods(ctx, client.ListPodsOptions{
		LabelSelector: selectorQuery(rs.Spec.Selector),
	})
	if err != nil {
		glog.Errorf("replicaset: list pods for %s: %v", rs.Metadata.Name, err)
		return
	}
	ready := countOwned(pods, rs.Metadata.ID)

	deficit := int(rs.Spec.Replicas) - ready
	if deficit < 0 {
		deficit = 0
	}
	for i := 0; i < deficit; i++ {
		if err := c.createReplica(ctx, rs); err != nil {
			glog.Errorf("replicaset: create replica of %s: %v", rs.Metadata.Name, err)
			continue
		}
	}

	if err := c.server.UpdateReplicaSetStatus(ctx, rs.Metadata.Name, types.ReplicaSetStatus{
		ReadyReplicas:      uint16(ready + deficit),
		ObservedGeneration: rs.Metadata.Generation,
	}); err != nil {
		glog.Errorf("replicaset: update status of %s: %v", rs.Metadata.Name, err)
	}
}

func (c *Controller) createReplica(ctx context.Context, rs types.ReplicaSet) error {
	req := client.CreatePodRequest{
		Name:       fmt.Sprintf("%s-%s", rs.Metadata.Name, randomSuffix(4)),
		Labels:     rs.Spec.Template.Labels,
		Containers: rs.Spec.Template.Containers,
		OwnerReference: &types.OwnerReference{
			ID:         rs.Metadata.ID,
			Name:       rs.Metadata.Name,
			Kind:       types.KindReplicaSet,
			Controller: true,
		},
	}
	_, err := c.client.CreatePod(ctx, req, true)
	return err
}

func countOwned(pods []types.Pod, rsID uuid.UUID) int {
	n := 0
	for _, p := range pods {
		if p.Metadata.Owner != nil && p.Metadata.Owner.Kind == types.KindReplicaSet && p.Metadata.Owner.ID == rsID {
			n++
		}
	}
	return n
}

func selectorQuery(sel types.LabelSelector) string {
	q := ""
	for k, v := range sel.MatchLabels {
		if q != "" {
			q += ","
		}
		q += k + "=" + v
	}
	return q
}

const suffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixChars[rand.Intn(len(suffixChars))]
	}
	return string(b)
}
