// Package config loads the environment-variable configuration spec.md
// §6 defines. Config loading is an out-of-scope external collaborator
// per spec.md §1 — the contract is the fixed set of env vars below, so
// this package only parses them; it is not a general configuration
// framework. Defaults are expressed as a zero-value-aware struct
// literal and applied with mergo.Merge, rather than a chain of
// if v == "" checks.
package config

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/imdario/mergo"
)

// ServerConfig configures the API server process.
type ServerConfig struct {
	Host     string
	Port     int
	EtcdAddr string
}

// defaultServerConfig mirrors CR8S_SERVER_HOST / CR8S_SERVER_PORT's
// documented defaults.
func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: "localhost",
		Port: 7620,
	}
}

// LoadServerConfig reads CR8S_SERVER_HOST, CR8S_SERVER_PORT, and
// ETCD_ADDR from the environment.
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Host:     os.Getenv("CR8S_SERVER_HOST"),
		EtcdAddr: firstNonEmpty(os.Getenv("ETCD_ADDR"), os.Getenv("CR8S_ETCD_ADDR")),
	}
	if p := os.Getenv("CR8S_SERVER_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return cfg, fmt.Errorf("config: CR8S_SERVER_PORT: %w", err)
		}
		cfg.Port = port
	}
	if err := mergo.Merge(&cfg, defaultServerConfig()); err != nil {
		return cfg, fmt.Errorf("config: merge defaults: %w", err)
	}
	return cfg, nil
}

// AgentConfig configures a node agent process.
type AgentConfig struct {
	ServerHost       string
	ServerPort       int
	NodePort         int
	NodeName         string
	RegisterRetries  int
	APIWorkers       int
	SyncLoopInterval time.Duration
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		ServerHost:       "localhost",
		ServerPort:       7620,
		RegisterRetries:  3,
		APIWorkers:       2,
		SyncLoopInterval: 15 * time.Second,
	}
}

// LoadAgentConfig reads the node agent's environment variables.
// NODE_PORT is required; NODE_NAME defaults to a generated name if
// unset.
func LoadAgentConfig() (AgentConfig, error) {
	cfg := AgentConfig{
		ServerHost: os.Getenv("CR8S_SERVER_HOST"),
		NodeName:   os.Getenv("NODE_NAME"),
	}

	portStr := os.Getenv("NODE_PORT")
	if portStr == "" {
		return cfg, fmt.Errorf("config: NODE_PORT is required")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cfg, fmt.Errorf("config: NODE_PORT: %w", err)
	}
	cfg.NodePort = port

	if p := os.Getenv("CR8S_SERVER_PORT"); p != "" {
		if cfg.ServerPort, err = strconv.Atoi(p); err != nil {
			return cfg, fmt.Errorf("config: CR8S_SERVER_PORT: %w", err)
		}
	}
	if r := os.Getenv("NODE_REGISTER_RETRIES"); r != "" {
		if cfg.RegisterRetries, err = strconv.Atoi(r); err != nil {
			return cfg, fmt.Errorf("config: NODE_REGISTER_RETRIES: %w", err)
		}
	}
	if w := os.Getenv("NODE_API_WORKERS"); w != "" {
		if cfg.APIWorkers, err = strconv.Atoi(w); err != nil {
			return cfg, fmt.Errorf("config: NODE_API_WORKERS: %w", err)
		}
	}
	if s := os.Getenv("SYNC_LOOP_INTERVAL"); s != "" {
		secs, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("config: SYNC_LOOP_INTERVAL: %w", err)
		}
		cfg.SyncLoopInterval = time.Duration(secs) * time.Second
	}

	if err := mergo.Merge(&cfg, defaultAgentConfig()); err != nil {
		return cfg, fmt.Errorf("config: merge defaults: %w", err)
	}
	if cfg.NodeName == "" {
		cfg.NodeName = generateNodeName()
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

const nameChars = "abcdefghijklmnopqrstuvwxyz0123456789"

func generateNodeName() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = nameChars[rand.Intn(len(nameChars))]
	}
	return "node-" + string(b)
}
