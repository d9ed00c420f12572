// Package gc implements the orphan-pod garbage collector from
// spec.md §4.6: the entire policy is one rule, so unlike the
// scheduler and the replica-set controller this watcher needs no
// shadow state or reconcile queue, just a watch loop.
package gc

import (
	"context"

	"github.com/golang/glog"

	"github.com/cr8s-go/cr8s/pkg/client"
	"github.com/cr8s-go/cr8s/pkg/types"
)

// Collector deletes orphan pods that have reached a terminal phase.
type Collector struct {
	client *client.Client
}

// New returns a Collector talking to the API server at c.
func New(c *client.Client) *Collector {
	return &Collector{client: c}
}

// Run watches pods and deletes every one matching spec.md §4.6's
// rule, blocking until ctx is cancelled.
func (gc *Collector) Run(ctx context.Context) {
	err := gc.client.Watch(ctx, "/pods", nil, func(env client.WatchEnvelope) error {
		if env.Pod == nil || env.EventType == "Deleted" {
			return nil
		}
		if shouldCollect(*env.Pod) {
			if err := gc.client.DeletePod(ctx, env.Pod.Metadata.Name); err != nil {
				glog.Errorf("gc: delete orphan pod %s: %v", env.Pod.Metadata.Name, err)
			}
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("gc: pod watch ended: %v", err)
	}
}

func shouldCollect(p types.Pod) bool {
	if p.Metadata.Owner != nil {
		return false
	}
	return p.Status.Phase == types.PodFailed || p.Status.Phase == types.PodSucceeded
}
