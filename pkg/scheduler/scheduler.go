// Package scheduler implements the filter/score/bind controller from
// spec.md §4.3, generalized from the teacher's
// pkg/scheduler.genericScheduler (findNodesThatFit → prioritizeNodes →
// selectHost) down to this spec's single fit check
// (shadowState.candidateNodes) and single scoring function
// (pickWinner); neither is a list of pluggable predicates or
// priorities.
package scheduler

import (
	"context"
	"sort"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/client"
)

// queueCapacity bounds the bind queue per spec.md §5's back-pressure
// rule: try_send, drop and log on overflow.
const queueCapacity = 100

// Scheduler watches pods and nodes, maintains shadow state, and binds
// unbound pods onto eligible nodes.
type Scheduler struct {
	client *client.Client
	state  *shadowState
	queue  chan uuid.UUID
}

// New returns a Scheduler talking to the API server at c.
func New(c *client.Client) *Scheduler {
	return &Scheduler{
		client: c,
		state:  newShadowState(),
		queue:  make(chan uuid.UUID, queueCapacity),
	}
}

// Run starts the node watch, the pod watch, and the bind worker, and
// blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	go s.watchNodes(ctx)
	go s.watchPods(ctx)
	s.drainQueue(ctx)
}

func (s *Scheduler) enqueue(id uuid.UUID) {
	select {
	case s.queue <- id:
	default:
		glog.Warningf("scheduler: bind queue full, dropping pod %s (will retry on next event)", id)
	}
}

func (s *Scheduler) watchNodes(ctx context.Context) {
	err := s.client.Watch(ctx, "/nodes", nil, func(env client.WatchEnvelope) error {
		if env.Node == nil {
			return nil
		}
		if env.EventType == "Added" || env.EventType == "Modified" {
			for _, id := range s.state.addNode(*env.Node) {
				s.enqueue(id)
			}
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("scheduler: node watch ended: %v", err)
	}
}

func (s *Scheduler) watchPods(ctx context.Context) {
	err := s.client.Watch(ctx, "/pods", nil, func(env client.WatchEnvelope) error {
		if env.Pod == nil {
			return nil
		}
		switch env.EventType {
		case "Added", "Modified":
			if s.state.addOrUpdatePod(*env.Pod) {
				s.enqueue(env.Pod.Metadata.ID)
			}
		case "Deleted":
			s.state.removePod(env.Pod.Metadata.ID)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("scheduler: pod watch ended: %v", err)
	}
}

func (s *Scheduler) drainQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.scheduleOne(ctx, id)
		}
	}
}

// scheduleOne runs the filter/score/bind pipeline for one pod id. A
// pod already bound to the winning node (or to anything at all) is a
// no-op, making repeated scheduling of the same pod idempotent.
func (s *Scheduler) scheduleOne(ctx context.Context, id uuid.UUID) {
	pod, ok := s.state.pod(id)
	if !ok {
		return
	}
	if !pod.Unbound() {
		return
	}

	demand := s.state.podResources(id)
	candidates := s.state.candidateNodes(demand)
	if len(candidates) == 0 {
		glog.V(2).Infof("scheduler: no fit for pod %s, leaving unbound", pod.Metadata.Name)
		return
	}

	winner := s.pickWinner(candidates, demand)

	if err := s.client.BindPod(ctx, pod.Metadata.Name, winner); err != nil {
		glog.Errorf("scheduler: bind %s -> %s failed, will retry on next event: %v", pod.Metadata.Name, winner, err)
		return
	}
	s.state.bind(id, winner)
}

type scored struct {
	name  string
	score float64
}

// pickWinner scores every candidate with spec.md §4.3's formula and
// returns the highest-scoring name, ties broken by the candidates'
// (already sorted) order.
func (s *Scheduler) pickWinner(candidates []string, demand Resources) string {
	scores := make([]scored, 0, len(candidates))
	for _, name := range candidates {
		free := s.state.nodeResources(name).Sub(demand)
		score := -float64(s.state.podCount(name)) +
			0.5*(float64(free.MilliCPU)/4000) +
			0.5*(float64(free.MemBytes)/(8*gib))
		scores = append(scores, scored{name: name, score: score})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	return scores[0].name
}
