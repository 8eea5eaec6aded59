//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/audit/store/kafka"
	"lineacaptura/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	broker string
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *KafkaStoreSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "audit-it-" + time.Now().Format("150405.000")

	store, err := kafka.New(ctx, []string{s.broker}, topic, true)
	s.Require().NoError(err)
	defer store.Close()

	e := audit.NewEvent(audit.EventCaptureLineGenerated)
	e.SessionID = "sess-it"
	s.Require().NoError(store.Append(ctx, e))

	consumer, err := kgo.NewClient(kgo.SeedBrokers(s.broker), kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("sess-it", string(records[0].Key))

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(string(audit.EventCaptureLineGenerated), got.Action)
}

func (s *KafkaStoreSuite) TestEnsureTopicIsIdempotent() {
	ctx := context.Background()
	client, err := kgo.NewClient(kgo.SeedBrokers(s.broker))
	s.Require().NoError(err)
	defer client.Close()
	adm := kadm.NewClient(client)

	s.Require().NoError(kafka.EnsureTopic(ctx, adm, "audit-idempotent", 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, adm, "audit-idempotent", 1))
}
