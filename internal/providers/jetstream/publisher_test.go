package jetstream_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/messaging"
	"github.com/feral-file/bib-pipeline/internal/mocks"
	"github.com/feral-file/bib-pipeline/internal/providers/jetstream"
)

type testPublisherMocks struct {
	ctrl   *gomock.Controller
	natsJS *mocks.MockNatsJetStream
	conn   *mocks.MockNatsConn
	js     *mocks.MockJetStream
}

func setupTestPublisher(t *testing.T) *testPublisherMocks {
	err := logger.Initialize(logger.Config{Debug: true})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	return &testPublisherMocks{
		ctrl:   ctrl,
		natsJS: mocks.NewMockNatsJetStream(ctrl),
		conn:   mocks.NewMockNatsConn(ctrl),
		js:     mocks.NewMockJetStream(ctrl),
	}
}

var testConfig = jetstream.Config{
	URL:            "nats://localhost:4222",
	StreamName:     "PIPELINE_RUNS",
	SubjectPrefix:  "pipeline.runs",
	MaxReconnects:  3,
	ReconnectWait:  time.Second,
	ConnectionName: "test",
}

func testEvent() *messaging.RunCompletedEvent {
	return &messaging.RunCompletedEvent{
		RunID:         "01HV0000000000000000000000",
		PartitionDate: "2024-03-17",
		Environment:   domain.EnvironmentTest,
		CustomerID:    "allsports",
		State:         domain.RunStateCompleted,
		Summary:       domain.RunSummary{Ingested: 4, Processed: 2, SkippedByQuota: 2},
		FinishedAt:    time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC),
	}
}

func (m *testPublisherMocks) expectConnect() {
	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().
		EnsureStream(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cfg natsjs.StreamConfig) error {
			if cfg.Name != "PIPELINE_RUNS" || len(cfg.Subjects) != 1 || cfg.Subjects[0] != "pipeline.runs.>" {
				return errors.New("unexpected stream config")
			}
			return nil
		})
}

func TestPublishRunCompleted(t *testing.T) {
	m := setupTestPublisher(t)
	m.expectConnect()

	var payloads [][]byte
	m.js.EXPECT().
		Publish(gomock.Any(), "pipeline.runs.test.completed", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			assert.Len(t, opts, 1)
			payloads = append(payloads, data)
			return &natsjs.PubAck{Stream: "PIPELINE_RUNS", Sequence: uint64(len(payloads))}, nil
		}).
		Times(2)

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	require.NoError(t, pub.PublishRunCompleted(context.Background(), testEvent()))
	require.NoError(t, pub.PublishRunCompleted(context.Background(), testEvent()))

	require.Len(t, payloads, 2)
	assert.Equal(t, payloads[0], payloads[1])
	assert.Contains(t, string(payloads[0]), `"run_id":"01HV0000000000000000000000"`)
	assert.Contains(t, string(payloads[0]), `"skipped_by_quota":2`)

	m.conn.EXPECT().Close()
	pub.Close()
}

func TestPublishRunCompleted_PublishError(t *testing.T) {
	m := setupTestPublisher(t)
	m.expectConnect()

	m.js.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("no responders"))

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	err = pub.PublishRunCompleted(context.Background(), testEvent())
	assert.ErrorContains(t, err, "failed to publish event")
}

func TestNewPublisher_ConnectError(t *testing.T) {
	m := setupTestPublisher(t)
	m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("connection refused"))

	_, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewPublisher_StreamError(t *testing.T) {
	m := setupTestPublisher(t)
	m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().EnsureStream(gomock.Any(), gomock.Any()).Return(errors.New("insufficient resources"))
	m.conn.EXPECT().Close()

	_, err := jetstream.NewPublisher(context.Background(), testConfig, m.natsJS, adapter.NewJSON())
	assert.ErrorContains(t, err, "failed to ensure stream PIPELINE_RUNS")
}
