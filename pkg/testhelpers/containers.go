package testhelpers

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestRedis struct {
	Container testcontainers.Container
	Client    *redis.Client
	Addr      string
}

// NewTestRedis starts a Redis container. It is terminated when the test ends.
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %s", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(context.Background()); termErr != nil {
			t.Logf("failed to terminate redis container: %v", termErr)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get redis host: %s", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("failed to get redis port: %s", err)
	}
	addr := net.JoinHostPort(host, port.Port())

	client := redis.NewClient(&redis.Options{Addr: addr})
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		t.Fatalf("failed to ping redis: %s", pingErr)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &TestRedis{Container: container, Client: client, Addr: addr}
}

type TestRabbitMQ struct {
	Container *rabbitmq.RabbitMQContainer
	URL       string
}

// NewTestRabbitMQ starts a RabbitMQ container. It is terminated when the test ends.
func NewTestRabbitMQ(t *testing.T) *TestRabbitMQ {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
		rabbitmq.WithAdminPassword("password"),
		testcontainers.WithLogger(testcontainers.TestLogger(t)),
	)
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %s", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(context.Background()); termErr != nil {
			t.Logf("failed to terminate rabbitmq container: %v", termErr)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get amqp url: %s", err)
	}

	return &TestRabbitMQ{Container: container, URL: amqpURL}
}
