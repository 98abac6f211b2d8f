// Package discovery registers services with a Consul agent.
package discovery

import (
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes the service instance announced to Consul.
type Registration struct {
	ID   string
	Name string
	// Address and Port are where clients reach the HTTP API.
	Address string
	Port    int
	// HealthAddr is the host:port of the gRPC health server Consul probes.
	HealthAddr string
	Tags       []string
}

// ConsulRegistry registers and deregisters service instances with the local agent.
type ConsulRegistry struct {
	client *api.Client
	logger *zerolog.Logger
}

// NewConsulRegistry creates a registry talking to the agent at addr.
func NewConsulRegistry(addr string, logger *zerolog.Logger) (*ConsulRegistry, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulRegistry{client: client, logger: logger}, nil
}

// Register announces reg with a gRPC health check.
func (r *ConsulRegistry) Register(reg Registration) error {
	service := &api.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    reg.Tags,
	}

	if reg.HealthAddr != "" {
		service.Check = &api.AgentServiceCheck{
			GRPC:                           reg.HealthAddr,
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}

	if err := r.client.Agent().ServiceRegister(service); err != nil {
		return fmt.Errorf("register service %s: %w", reg.ID, err)
	}

	r.logger.Info().Str("service_id", reg.ID).Str("service_name", reg.Name).Msg("registered with consul")

	return nil
}

// Deregister removes the service instance with the given id.
func (r *ConsulRegistry) Deregister(id string) error {
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregister service %s: %w", id, err)
	}

	r.logger.Info().Str("service_id", id).Msg("deregistered from consul")

	return nil
}
