package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCatalog struct {
	CatalogReader
	questionCalls int
}

func (c *countingCatalog) GetQuestionsInScope(ctx context.Context, testID uint, parts []int) ([]*models.Question, error) {
	c.questionCalls++
	return c.CatalogReader.GetQuestionsInScope(ctx, testID, parts)
}

func TestCachedCatalogReader_KeepsAnswerKey(t *testing.T) {
	store := newFakeStore()
	store.addTest(testID, true)
	store.addQuestions(testID, 1, 3)
	store.addQuestions(testID, 2, 2)

	inner := &countingCatalog{CatalogReader: NewCatalogReader(store)}
	reader := NewCachedCatalogReader(inner, cache.NewMemoryCache(), time.Minute, testServiceLogger())

	first, err := reader.GetQuestionsInScope(context.Background(), testID, []int{2, 1})
	require.NoError(t, err)
	second, err := reader.GetQuestionsInScope(context.Background(), testID, []int{1, 2})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.questionCalls)
	require.Len(t, second, 5)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, models.ChoiceA, second[i].CorrectAnswer)
	}

	_, err = reader.GetQuestionsInScope(context.Background(), testID, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.questionCalls)
}

func TestCatalogReader_GetTest(t *testing.T) {
	store := newFakeStore()
	store.addTest(testID, true)
	reader := NewCachedCatalogReader(NewCatalogReader(store), cache.NewMemoryCache(), time.Minute, testServiceLogger())

	test, err := reader.GetTest(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, testID, test.ID)

	_, err = reader.GetTest(context.Background(), 404)
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestQuestionsCacheKey(t *testing.T) {
	assert.Equal(t, "catalog:questions:3:1,4,7", questionsCacheKey(3, []int{7, 1, 4}))
}
