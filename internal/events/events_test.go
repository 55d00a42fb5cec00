package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/pet-products-scraper/internal/models"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1700000000000-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	return m.Called().Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetPending(ctx context.Context, limit int) ([]*Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStore) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	return m.Called(ctx, id, err).Error(0)
}

func attemptEvent(t *testing.T, id int64, status models.ScrapeStatus) *Event {
	t.Helper()
	e, err := NewScrapeAttemptEvent(ScrapeAttempt{
		URLID:       id,
		Shop:        "Zooplus",
		URL:         "https://www.zooplus.co.uk/shop/dogs/dry_dog_food",
		Status:      status,
		AttemptedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	e.ID = uuid.New()
	e.TargetStream = DefaultStream
	return e
}

func TestNewScrapeAttemptEvent(t *testing.T) {
	tests := []struct {
		name   string
		status models.ScrapeStatus
		want   string
	}{
		{"done", models.StatusDone, EventURLScraped},
		{"failed", models.StatusFailed, EventURLFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewScrapeAttemptEvent(ScrapeAttempt{URLID: 7, Shop: "Ocado", Status: tt.status, Rows: 3})
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.EventType)
			assert.Equal(t, AggregateURL, e.AggregateType)
			assert.Equal(t, "Ocado:7", e.AggregateID)

			var payload ScrapeAttempt
			require.NoError(t, json.Unmarshal(e.Payload, &payload))
			assert.Equal(t, tt.status, payload.Status)
			assert.Equal(t, 3, payload.Rows)
		})
	}
}

func TestNextRetryTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		retries int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, 300 * time.Second},
		{40, 300 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, now.Add(tt.want), nextRetryTime(now, tt.retries), "retries=%d", tt.retries)
	}
}

func TestRelay_Drain(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("publishes every pending event", func(t *testing.T) {
		rdb := new(MockRedisClient)
		store := new(MockStore)
		relay := NewRelay(store, rdb, logger, RelayConfig{BatchSize: 10})

		batch := []*Event{attemptEvent(t, 1, models.StatusDone), attemptEvent(t, 2, models.StatusFailed)}
		store.On("GetPending", ctx, 10).Return(batch, nil)
		for _, e := range batch {
			e := e
			rdb.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
				return args.Stream == DefaultStream &&
					args.Values.(map[string]any)["event_type"] == e.EventType &&
					args.Values.(map[string]any)["aggregate_id"] == e.AggregateID
			})).Return(nil)
			store.On("MarkProcessed", ctx, e.ID).Return(nil)
		}

		n, err := relay.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		rdb.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("marks event failed when redis rejects it", func(t *testing.T) {
		rdb := new(MockRedisClient)
		store := new(MockStore)
		relay := NewRelay(store, rdb, logger, RelayConfig{BatchSize: 10})

		e := attemptEvent(t, 1, models.StatusDone)
		store.On("GetPending", ctx, 10).Return([]*Event{e}, nil)
		rdb.On("XAdd", ctx, mock.Anything).Return(errors.New("connection refused"))
		store.On("MarkFailed", ctx, e.ID, mock.MatchedBy(func(err error) bool {
			return err.Error() == "failed to publish to redis: connection refused"
		})).Return(nil)

		n, err := relay.Drain(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("empty batch publishes nothing", func(t *testing.T) {
		rdb := new(MockRedisClient)
		store := new(MockStore)
		relay := NewRelay(store, rdb, logger, RelayConfig{BatchSize: 10})

		store.On("GetPending", ctx, 10).Return([]*Event{}, nil)

		n, err := relay.Drain(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		rdb.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
	})

	t.Run("outbox error surfaces", func(t *testing.T) {
		store := new(MockStore)
		relay := NewRelay(store, new(MockRedisClient), logger, RelayConfig{BatchSize: 5})

		store.On("GetPending", ctx, 5).Return(nil, errors.New("db down"))

		_, err := relay.Drain(ctx)
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("malformed payload is marked failed", func(t *testing.T) {
		rdb := new(MockRedisClient)
		store := new(MockStore)
		relay := NewRelay(store, rdb, logger, RelayConfig{BatchSize: 10})

		e := attemptEvent(t, 1, models.StatusDone)
		e.Payload = json.RawMessage(`{not json`)
		store.On("GetPending", ctx, 10).Return([]*Event{e}, nil)
		store.On("MarkFailed", ctx, e.ID, mock.Anything).Return(nil)

		_, err := relay.Drain(ctx)
		require.NoError(t, err)
		rdb.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})
}

func TestRelay_StreamFormat(t *testing.T) {
	ctx := context.Background()
	rdb := new(MockRedisClient)
	store := new(MockStore)
	relay := NewRelay(store, rdb, nil, RelayConfig{})

	e := attemptEvent(t, 42, models.StatusFailed)
	var captured *redis.XAddArgs
	rdb.On("XAdd", ctx, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*redis.XAddArgs)
	}).Return(nil)

	require.NoError(t, relay.publish(ctx, e))
	require.NotNil(t, captured)
	assert.Equal(t, e.ID.String(), captured.Values.(map[string]any)["original_id"])

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(captured.Values.(map[string]any)["data"].(string)), &data))
	assert.Equal(t, EventURLFailed, data["type"])
	payload := data["payload"].(map[string]any)
	assert.Equal(t, "Zooplus", payload["shop"])
	assert.Equal(t, float64(42), payload["url_id"])
}
