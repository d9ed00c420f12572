// Command server runs the API server together with the three
// in-process controllers: the scheduler, the replica-set controller,
// and the garbage collector. Grounded on the teacher's deleted
// cmd/apiserver and cmd/controller-manager, merged into one binary per
// spec.md §2's "controllers in-process with the API server" design.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/cr8s-go/cr8s/pkg/apiserver"
	"github.com/cr8s-go/cr8s/pkg/client"
	"github.com/cr8s-go/cr8s/pkg/config"
	"github.com/cr8s-go/cr8s/pkg/controller/gc"
	"github.com/cr8s-go/cr8s/pkg/controller/replicaset"
	"github.com/cr8s-go/cr8s/pkg/scheduler"
	"github.com/cr8s-go/cr8s/pkg/store"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		glog.Exitf("server: %v", err)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		glog.Exitf("server: %v", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	srv := apiserver.New(st)

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv.NewContainer()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		glog.Infof("server: listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("server: %v", err)
		}
	}()

	// Controllers talk to the API server over loopback HTTP, same as
	// any external watcher, except for the one status write spec.md's
	// REST table has no route for (see apiserver.Server.UpdateReplicaSetStatus).
	selfClient := client.New("http://" + addr)

	sched := scheduler.New(selfClient)
	go sched.Run(ctx)

	rsController := replicaset.New(selfClient, srv)
	go rsController.Run(ctx)

	collector := gc.New(selfClient)
	go collector.Run(ctx)

	<-ctx.Done()
	glog.Info("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("server: shutdown: %v", err)
	}
}

func openStore(cfg config.ServerConfig) (store.Store, func(), error) {
	if cfg.EtcdAddr == "" {
		return store.NewMemStore(), nil, nil
	}
	etcdStore, err := store.NewEtcdStore(splitAddrs(cfg.EtcdAddr), 5*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return etcdStore, func() { _ = etcdStore.Close() }, nil
}

func splitAddrs(addr string) []string {
	return strings.Split(addr, ",")
}

