package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/emicklei/go-restful"
	"github.com/golang/glog"

	"github.com/cr8s-go/cr8s/pkg/events"
)

// watchEnvelope is the newline-delimited JSON wire shape spec.md §6
// defines: {event_type, <kind-lowercased>: <object>}.
type watchEnvelope struct {
	EventType string      `json:"event_type"`
	Pod       interface{} `json:"pod,omitempty"`
	Node      interface{} `json:"node,omitempty"`
	ReplicaSet interface{} `json:"replicaset,omitempty"`
}

func envelopeFor(ev events.Event) watchEnvelope {
	env := watchEnvelope{EventType: string(ev.Type)}
	switch ev.Kind {
	case "Pod":
		env.Pod = ev.Object
	case "Node":
		env.Node = ev.Object
	case "ReplicaSet":
		env.ReplicaSet = ev.Object
	}
	return env
}

// streamEvents first replays backlog (a synthetic Added event per
// existing matching object) then tails live, applying filter to both,
// per spec.md §4.2's watch semantics. It never returns until the
// client disconnects or the live subscription is dropped.
func streamEvents(resp *restful.Response, backlog []events.Event, live *events.Subscription, filter func(events.Event) bool) {
	defer live.Close()
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusOK)
	flusher, _ := resp.ResponseWriter.(http.Flusher)
	enc := json.NewEncoder(resp)

	write := func(ev events.Event) bool {
		if filter != nil && !filter(ev) {
			return true
		}
		if err := enc.Encode(envelopeFor(ev)); err != nil {
			glog.V(2).Infof("apiserver: watch client disconnected: %v", err)
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for _, ev := range backlog {
		if !write(ev) {
			return
		}
	}
	for ev := range live.Events() {
		if !write(ev) {
			return
		}
	}
}
