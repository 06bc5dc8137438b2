//go:build integration

package elasticsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const Port = "9200"

// startElasticSearchContainer returns host:port of a single node cluster with security off.
func startElasticSearchContainer(
	ctx context.Context,
	logger *zap.Logger,
) (
	address string,
	stopContainer func(),
	err error,
) {
	childCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	newNetwork, err := network.New(childCtx)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create network: %w", err)
	}
	logger.Info("Network Name", zap.String("networkName", newNetwork.Name))

	req := testcontainers.ContainerRequest{
		Image:        "docker.elastic.co/elasticsearch/elasticsearch:8.10.2",
		ExposedPorts: []string{Port + "/tcp"},
		Env: map[string]string{
			"discovery.type":         "single-node",
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
		},
		WaitingFor: wait.ForHTTP("/").WithPort(Port + "/tcp").WithStartupTimeout(3 * time.Minute),
		Networks:   []string{newNetwork.Name},
	}

	container, err := testcontainers.GenericContainer(childCtx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to start container: %w", err)
	}

	stopContainer = func() {
		if err := container.Terminate(context.Background()); err != nil {
			logger.Error("Failed to terminate container", zap.Error(err))
		}
		if err := newNetwork.Remove(context.Background()); err != nil {
			logger.Error("Failed to remove network", zap.Error(err))
		}
	}

	host, err := container.Host(childCtx)
	if err != nil {
		stopContainer()
		return "", func() {}, fmt.Errorf("failed to get container host: %w", err)
	}
	p, err := container.MappedPort(childCtx, Port+"/tcp")
	if err != nil {
		stopContainer()
		return "", func() {}, fmt.Errorf("failed to get container port: %w", err)
	}

	address = fmt.Sprintf("%s:%s", host, p.Port())
	logger.Info("Elasticsearch address", zap.String("address", address))
	return address, stopContainer, nil
}
