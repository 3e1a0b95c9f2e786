//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

// NewKafka starts a single-node broker for the test and returns its addresses.
func NewKafka(t *testing.T) []string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("saga-test-cluster"),
	)
	if err != nil {
		t.Skipf("skipping Kafka integration tests: %v", err)
	}
	t.Cleanup(func() {
		_ = kafkaC.Terminate(context.Background())
	})

	brokers, err := kafkaC.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka brokers: %v", err)
	}
	return brokers
}
