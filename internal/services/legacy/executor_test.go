package legacy

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/models"
	"github.com/aptihub/chatetl/internal/services/metrics"
)

type fakeLegacyStorage struct {
	rowsBySubstring map[string][]models.QueryRow
	errBySubstring  map[string]error
	transientLeft   int
	calls           int
}

func (f *fakeLegacyStorage) QueryRows(ctx context.Context, sqlText string, anpSeq int) ([]models.QueryRow, error) {
	f.calls++
	if f.transientLeft > 0 {
		f.transientLeft--
		return nil, fmt.Errorf("database is locked")
	}
	for sub, err := range f.errBySubstring {
		if strings.Contains(sqlText, sub) {
			return nil, err
		}
	}
	for sub, rows := range f.rowsBySubstring {
		if strings.Contains(sqlText, sub) {
			return rows, nil
		}
	}
	return []models.QueryRow{}, nil
}

func (f *fakeLegacyStorage) HasMinimumData(ctx context.Context, anpSeq int) (bool, error) {
	return true, nil
}

func TestLoadCatalogHasCoreQueries(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	coreCount := 0
	for _, q := range catalog {
		assert.NotEmpty(t, q.Name)
		assert.Contains(t, q.SQL, "anp_seq = ?")
		if q.Core {
			coreCount++
		}
	}
	assert.GreaterOrEqual(t, coreCount, 4)
}

func TestExecuteAllReturnsResultPerQuery(t *testing.T) {
	storage := &fakeLegacyStorage{
		rowsBySubstring: map[string][]models.QueryRow{
			"legacy_tendencies": {
				{"tendency_name": "창의형", "rank": 1, "score": 85.0},
			},
		},
	}
	executor, err := NewExecutor(storage, metrics.NewRegistry(), common.GetLogger())
	require.NoError(t, err)

	results, err := executor.ExecuteAll(context.Background(), 12345)
	require.NoError(t, err)
	assert.Len(t, results, len(executor.catalog))

	tendency := results["tendencyQuery"]
	require.NotNil(t, tendency)
	assert.True(t, tendency.Success)
	assert.Equal(t, 1, tendency.RowCount)
	assert.Equal(t, "창의형", tendency.Rows[0].String("tendency_name"))
}

func TestExecuteAllRecordsFailuresWithoutAborting(t *testing.T) {
	storage := &fakeLegacyStorage{
		errBySubstring: map[string]error{
			"legacy_preference_data": fmt.Errorf("no such column: response_rate"),
		},
	}
	executor, err := NewExecutor(storage, metrics.NewRegistry(), common.GetLogger())
	require.NoError(t, err)

	results, err := executor.ExecuteAll(context.Background(), 12345)
	require.NoError(t, err)

	pref := results["preferenceDataQuery"]
	require.NotNil(t, pref)
	assert.False(t, pref.Success)
	assert.Equal(t, models.ErrorKindValidation, pref.ErrorKind)

	// the remaining queries still ran
	assert.True(t, results["tendencyQuery"].Success)
}

func TestExecuteAllRetriesTransientErrors(t *testing.T) {
	storage := &fakeLegacyStorage{transientLeft: 1}
	executor, err := NewExecutor(storage, metrics.NewRegistry(), common.GetLogger())
	require.NoError(t, err)

	results, err := executor.ExecuteAll(context.Background(), 12345)
	require.NoError(t, err)
	assert.True(t, results["userProfileQuery"].Success)
	assert.Equal(t, len(executor.catalog)+1, storage.calls)
}

func TestCoreQueryNames(t *testing.T) {
	executor, err := NewExecutor(&fakeLegacyStorage{}, metrics.NewRegistry(), common.GetLogger())
	require.NoError(t, err)

	names := executor.CoreQueryNames()
	assert.Contains(t, names, "tendencyQuery")
	assert.Contains(t, names, "topTendencyQuery")
	assert.Contains(t, names, "thinkingSkillsQuery")
	assert.Contains(t, names, "careerRecommendationQuery")
	assert.NotContains(t, names, "preferenceDataQuery")
}

func TestPreferenceQueryMetricsRecorded(t *testing.T) {
	registry := metrics.NewRegistry()
	executor, err := NewExecutor(&fakeLegacyStorage{}, registry, common.GetLogger())
	require.NoError(t, err)

	_, err = executor.ExecuteAll(context.Background(), 12345)
	require.NoError(t, err)

	value := registry.CounterValue(metrics.MetricPreferenceQueryTotal,
		map[string]string{"query": "preferenceDataQuery", "success": "true"})
	assert.Equal(t, 1.0, value)
}
