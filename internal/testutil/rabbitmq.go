package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const rabbitImage = "rabbitmq:3.13-alpine"

// StartRabbitMQ runs a throwaway broker and dials it with the same helper the
// service uses.
func StartRabbitMQ(t *testing.T) *amqp.Connection {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	broker, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        rabbitImage,
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Server startup complete"),
				wait.ForListeningPort("5672/tcp"),
			).WithStartupTimeoutDefault(90 * time.Second),
		},
	})
	require.NoError(t, err, "start %s", rabbitImage)
	t.Cleanup(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		_ = broker.Terminate(stopCtx)
	})

	url := amqpURL(ctx, t, broker)
	conn, err := events.Dial(url)
	require.NoError(t, err, "dial %s", url)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func amqpURL(ctx context.Context, t *testing.T, c testcontainers.Container) string {
	t.Helper()
	endpoint, err := c.PortEndpoint(ctx, "5672/tcp", "")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s/", endpoint)
}
