package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/log/logtest"
)

func TestFetchAllKeepsOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	var sources []Source
	for i := range 4 {
		src := NewMockSource(ctrl)
		label := fmt.Sprintf("db%d", i)
		src.EXPECT().Label().Return(label).AnyTimes()
		// later sources complete first
		delay := time.Duration(4-i) * 5 * time.Millisecond
		src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]types.RawRecord, error) {
			time.Sleep(delay)
			return []types.RawRecord{{"id": label}}, nil
		})
		sources = append(sources, src)
	}

	results, err := FetchAll(context.Background(), logtest.New(t), sources)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, res := range results {
		label := fmt.Sprintf("db%d", i)
		require.Equal(t, label, res.Label)
		require.Equal(t, []types.RawRecord{{"id": label}}, res.Records)
	}
}

func TestFetchAllCancelsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	errUnavailable := errors.New("unavailable")

	failing := NewMockSource(ctrl)
	failing.EXPECT().Label().Return("failing").AnyTimes()
	failing.EXPECT().Fetch(gomock.Any()).Return(nil, errUnavailable)

	blocked := NewMockSource(ctrl)
	blocked.EXPECT().Label().Return("blocked").AnyTimes()
	blocked.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]types.RawRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := FetchAll(context.Background(), logtest.New(t), []Source{blocked, failing})
	require.ErrorIs(t, err, errUnavailable)
	require.ErrorContains(t, err, "fetch failing")
}

func TestFetchAllEmpty(t *testing.T) {
	results, err := FetchAll(context.Background(), logtest.New(t), nil)
	require.NoError(t, err)
	require.Empty(t, results)
}
