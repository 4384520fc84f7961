package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/internal/insights"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

type fakeGetter struct {
	calls []insights.Request
	fail  map[string]error
}

func (f *fakeGetter) GetInsights(_ context.Context, req insights.Request) (*insights.Response, error) {
	f.calls = append(f.calls, req)
	if err := f.fail[req.CorpCode]; err != nil {
		return nil, err
	}
	return &insights.Response{CorpCode: req.CorpCode, Source: insights.SourceSync}, nil
}

func TestInsightsRefreshJob(t *testing.T) {
	getter := &fakeGetter{fail: map[string]error{"00164779": errors.New("store down")}}
	job := NewInsightsRefreshJob(getter, []string{"00126380", "00164779", "00401731"}, 5, "0 0 7 * * 1-5", logger.Nop())

	assert.Equal(t, "insights_refresh", job.Name())
	assert.Equal(t, "0 0 7 * * 1-5", job.Schedule())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "00164779")
	require.Len(t, getter.calls, 3, "a failing company does not stop the rest")
	assert.Equal(t, 5, getter.calls[0].YearCount)
}

func TestInsightsRefreshJob_NoCorps(t *testing.T) {
	getter := &fakeGetter{}
	job := NewInsightsRefreshJob(getter, nil, 5, "@daily", logger.Nop())
	assert.NoError(t, job.Run(context.Background()))
	assert.Empty(t, getter.calls)
}

type fakeReloader struct {
	n   int
	err error
}

func (f *fakeReloader) Reload(context.Context) (int, error) { return f.n, f.err }

func TestMappingReloadJob(t *testing.T) {
	job := NewMappingReloadJob(&fakeReloader{n: 18}, "0 30 6 * * *", logger.Nop())
	assert.Equal(t, "mapping_reload", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	failing := NewMappingReloadJob(&fakeReloader{err: errors.New("no rows")}, "0 30 6 * * *", logger.Nop())
	assert.Error(t, failing.Run(context.Background()))
}

type fakeCorpLister struct {
	corps []contracts.Corp
	err   error
}

func (f *fakeCorpLister) ListedCorps(context.Context) ([]contracts.Corp, error) {
	return f.corps, f.err
}

type fakeCorpReplacer struct {
	got []contracts.Corp
}

func (f *fakeCorpReplacer) ReplaceCorps(_ context.Context, corps []contracts.Corp) (int, int, error) {
	f.got = corps
	return len(corps), 1, nil
}

func TestCorpSyncJob(t *testing.T) {
	listed := []contracts.Corp{
		{CorpCode: "00164779", CorpName: "SK하이닉스", StockCode: "000660"},
		{CorpCode: "00126380", CorpName: "삼성전자", StockCode: "005930"},
	}

	t.Run("replaces registry", func(t *testing.T) {
		replacer := &fakeCorpReplacer{}
		job := NewCorpSyncJob(&fakeCorpLister{corps: listed}, replacer, "0 0 5 * * 1", logger.Nop())

		assert.Equal(t, "corp_sync", job.Name())
		assert.Equal(t, "0 0 5 * * 1", job.Schedule())
		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, listed, replacer.got)
	})

	t.Run("empty listing keeps registry", func(t *testing.T) {
		replacer := &fakeCorpReplacer{}
		job := NewCorpSyncJob(&fakeCorpLister{}, replacer, "@weekly", logger.Nop())

		assert.Error(t, job.Run(context.Background()))
		assert.Nil(t, replacer.got)
	})

	t.Run("download failure", func(t *testing.T) {
		replacer := &fakeCorpReplacer{}
		job := NewCorpSyncJob(&fakeCorpLister{err: errors.New("status 020")}, replacer, "@weekly", logger.Nop())

		assert.Error(t, job.Run(context.Background()))
		assert.Nil(t, replacer.got)
	})
}
