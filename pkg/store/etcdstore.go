package store

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/golang/glog"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// EtcdStore is a Store backed by an etcd cluster, grounded on the
// teacher's pkg/registry/etcdregistry.go get/put/list-by-prefix shape.
type EtcdStore struct {
	client  *clientv3.Client
	timeout time.Duration
}

// NewEtcdStore dials the etcd cluster at endpoints (cmd/server builds
// this list by splitting the comma-separated ETCD_ADDR /
// CR8S_ETCD_ADDR value). timeout bounds each store operation; zero or
// less means no per-operation deadline.
func NewEtcdStore(endpoints []string, timeout time.Duration) (*EtcdStore, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, types.NewError(types.ErrBackend, "dial etcd: %v", err)
	}
	return &EtcdStore{client: cli, timeout: timeout}, nil
}

func (s *EtcdStore) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

func (s *EtcdStore) Get(ctx context.Context, key string, out interface{}) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		glog.Errorf("etcd get %q: %v", key, err)
		return types.NewError(types.ErrBackend, "get %q: %v", key, err)
	}
	if len(resp.Kvs) == 0 {
		return types.NewError(types.ErrNotFound, "no object at key %q", key)
	}
	if err := json.Unmarshal(resp.Kvs[0].Value, out); err != nil {
		return types.NewError(types.ErrUnexpected, "decode %q: %v", key, err)
	}
	return nil
}

func (s *EtcdStore) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return types.NewError(types.ErrUnexpected, "encode %q: %v", key, err)
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if _, err := s.client.Put(ctx, key, string(raw)); err != nil {
		glog.Errorf("etcd put %q: %v", key, err)
		return types.NewError(types.ErrBackend, "put %q: %v", key, err)
	}
	return nil
}

func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if _, err := s.client.Delete(ctx, key); err != nil {
		glog.Errorf("etcd delete %q: %v", key, err)
		return types.NewError(types.ErrBackend, "delete %q: %v", key, err)
	}
	return nil
}

func (s *EtcdStore) List(ctx context.Context, prefix string, out interface{}) error {
	outVal := reflect.ValueOf(out)
	if outVal.Kind() != reflect.Ptr || outVal.Elem().Kind() != reflect.Slice {
		return types.NewError(types.ErrUnexpected, "List: out must be a pointer to a slice")
	}
	sliceVal := outVal.Elem()
	elemType := sliceVal.Type().Elem()

	ctx, cancel := s.ctx(ctx)
	defer cancel()
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		glog.Errorf("etcd list %q: %v", prefix, err)
		return types.NewError(types.ErrBackend, "list %q: %v", prefix, err)
	}

	result := reflect.MakeSlice(sliceVal.Type(), 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		elemPtr := reflect.New(elemType)
		if err := json.Unmarshal(kv.Value, elemPtr.Interface()); err != nil {
			glog.Warningf("skipping undecodable entry at %q: %v", string(kv.Key), err)
			continue
		}
		result = reflect.Append(result, elemPtr.Elem())
	}
	sliceVal.Set(result)
	return nil
}

// Close releases the underlying etcd client connection.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}
