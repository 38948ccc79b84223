package badge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/storage"
	"github.com/sevigo/ci-warden/mocks"
)

var ids = []string{
	"cabe27e5c8b8cb7cdc4e152f1cf013a89adc7a71",
	"1c33a6e2ac7d7fc098105b21a702e104e09767cf",
	"hf4ac7d7fc0983748702e10738hw4382f347fu38", // never stored
	"7bdf62", // errored
	"9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f1a0b", // flaky status
}

func coverage(v float64) *float64 { return &v }

func newSynthesizer(t *testing.T, enqueuer core.Enqueuer) *Synthesizer {
	t.Helper()
	store := storage.NewMemoryStore(
		&core.TestRecord{Commit: ids[0], Status: core.StatusFailure, Description: "1 failed", Coverage: coverage(22.2)},
		&core.TestRecord{Commit: ids[1], Status: core.StatusSuccess, Description: "All passed", Coverage: coverage(75.77)},
		&core.TestRecord{Commit: ids[3], Status: core.StatusError, Description: "Failed to check out commit"},
	)
	return NewSynthesizer(store, enqueuer, 50, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetBadgeData_Validation(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantField string
		invalid   bool
	}{
		{name: "missing sha", req: Request{Context: ContextStatus}, wantField: "sha"},
		{name: "missing sha and context", req: Request{}, wantField: "sha"},
		{name: "missing context", req: Request{SHA: ids[0]}, wantField: "Context"},
		{name: "wrong context", req: Request{SHA: ids[0], Context: "yummy"}, wantField: "context", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			s := newSynthesizer(t, mocks.NewMockEnqueuer(ctrl))

			payload, err := s.GetBadgeData(context.Background(), tt.req)
			assert.Nil(t, payload)

			if tt.invalid {
				var invalid *core.InvalidFieldValueError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.wantField, invalid.Field)
				assert.Equal(t, Contexts, invalid.Expected)
				return
			}
			var missing *core.MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.wantField, missing.Field)
		})
	}
}

func TestGetBadgeData_StoredRecords(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want core.BadgePayload
	}{
		{
			name: "low coverage",
			req:  Request{SHA: ids[0], Context: ContextCoverage},
			want: core.BadgePayload{SchemaVersion: 1, Label: "coverage", Message: "22.2%", Color: "red"},
		},
		{
			name: "high coverage",
			req:  Request{SHA: ids[1], Context: ContextCoverage},
			want: core.BadgePayload{SchemaVersion: 1, Label: "coverage", Message: "75.77%", Color: "brightgreen"},
		},
		{
			name: "failing build",
			req:  Request{SHA: ids[0], Context: ContextStatus},
			want: core.BadgePayload{SchemaVersion: 1, Label: "build", Message: "failing", Color: "red"},
		},
		{
			name: "passing build",
			req:  Request{SHA: ids[1], Context: ContextStatus},
			want: core.BadgePayload{SchemaVersion: 1, Label: "build", Message: "passing", Color: "brightgreen"},
		},
		{
			name: "errored record coverage",
			req:  Request{SHA: ids[3], Context: ContextCoverage},
			want: core.BadgePayload{SchemaVersion: 1, Label: "coverage", Message: "unknown", Color: "orange"},
		},
		{
			name: "errored record status",
			req:  Request{SHA: ids[3], Context: ContextStatus},
			want: core.BadgePayload{SchemaVersion: 1, Label: "build", Message: "unknown", Color: "orange"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			enqueuer := mocks.NewMockEnqueuer(ctrl)
			enqueuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Times(0)

			payload, err := newSynthesizer(t, enqueuer).GetBadgeData(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *payload)
		})
	}
}

func TestGetBadgeData_UnrecognizedStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().LoadRecord(gomock.Any(), ids[4]).
		Return(&core.TestRecord{Commit: ids[4], Status: "flaky", Coverage: coverage(90)}, nil).
		Times(2)
	enqueuer := mocks.NewMockEnqueuer(ctrl)

	s := NewSynthesizer(store, enqueuer, 50, nil)
	for _, badgeContext := range Contexts {
		payload, err := s.GetBadgeData(context.Background(), Request{SHA: ids[4], Context: badgeContext})
		require.NoError(t, err)
		assert.Equal(t, "unknown", payload.Message)
		assert.Equal(t, "orange", payload.Color)
	}
}

func TestGetBadgeData_EnqueuesPending(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantLabel string
		wantForce bool
	}{
		{
			name:      "unknown commit",
			req:       Request{SHA: ids[2], Context: ContextCoverage, Owner: "sevigo", Repo: "ci-warden", Branch: "main"},
			wantLabel: "coverage",
		},
		{
			name:      "forced existing commit",
			req:       Request{SHA: ids[1], Context: ContextStatus, Force: true},
			wantLabel: "build",
			wantForce: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			enqueuer := mocks.NewMockEnqueuer(ctrl)
			enqueuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, data *core.JobData) (*core.Job, error) {
					assert.Equal(t, tt.req.SHA, data.SHA)
					assert.Equal(t, tt.req.Owner, data.Owner)
					assert.Equal(t, tt.req.Branch, data.Branch)
					assert.True(t, data.SkipPost)
					require.NotNil(t, data.Force)
					assert.Equal(t, tt.wantForce, *data.Force)
					return core.NewJob("job-1", data, nil), nil
				}).
				Times(1)

			payload, err := newSynthesizer(t, enqueuer).GetBadgeData(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, core.BadgePayload{SchemaVersion: 1, Label: tt.wantLabel, Message: "pending", Color: "orange"}, *payload)
		})
	}
}

func TestGetBadgeData_EnqueueFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	enqueuer := mocks.NewMockEnqueuer(ctrl)
	queueFull := errors.New("job queue is full")
	enqueuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil, queueFull)

	_, err := newSynthesizer(t, enqueuer).GetBadgeData(context.Background(), Request{SHA: ids[2], Context: ContextStatus})
	assert.ErrorIs(t, err, queueFull)
}

func TestGetBadgeData_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().LoadRecord(gomock.Any(), ids[0]).Return(nil, errors.New("connection reset"))
	enqueuer := mocks.NewMockEnqueuer(ctrl)

	_, err := NewSynthesizer(store, enqueuer, 50, nil).GetBadgeData(context.Background(), Request{SHA: ids[0], Context: ContextStatus})
	assert.ErrorContains(t, err, "connection reset")
}

func TestGetBadgeData_Threshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newSynthesizer(t, mocks.NewMockEnqueuer(ctrl))
	s.threshold = 80

	payload, err := s.GetBadgeData(context.Background(), Request{SHA: ids[1], Context: ContextCoverage})
	require.NoError(t, err)
	assert.Equal(t, "red", payload.Color)
}
