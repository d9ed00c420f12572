// Command agent runs one node agent: it registers with the API
// server, then drives a local container engine to match its assigned
// pod set. Grounded on the teacher's deleted cmd/kubelet, adapted to
// this spec's watch-driven reconciler instead of a local manifest
// source.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"

	"github.com/cr8s-go/cr8s/pkg/agent"
	"github.com/cr8s-go/cr8s/pkg/client"
	"github.com/cr8s-go/cr8s/pkg/config"
	"github.com/cr8s-go/cr8s/pkg/engine"
)

func main() {
	cfg, err := config.LoadAgentConfig()
	if err != nil {
		glog.Exitf("agent: %v", err)
	}

	serverURL := "http://" + cfg.ServerHost + ":" + strconv.Itoa(cfg.ServerPort)
	c := client.New(serverURL)

	eng, err := engine.NewDockerEngine(cfg.NodeName)
	if err != nil {
		glog.Exitf("agent: %v", err)
	}

	a := agent.New(cfg, c, eng)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Register(ctx); err != nil {
		glog.Exitf("agent: %v", err)
	}

	a.Run(ctx)
	glog.Info("agent: shut down")
}
