package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// CatalogReader is the read-only view of tests and their questions.
type CatalogReader interface {
	GetTest(ctx context.Context, testID uint) (*models.Test, error)
	// GetQuestionsInScope returns active questions of the given parts ordered by
	// global question number.
	GetQuestionsInScope(ctx context.Context, testID uint, parts []int) ([]*models.Question, error)
}

type catalogReader struct {
	repo repositories.Repository
}

func NewCatalogReader(repo repositories.Repository) CatalogReader {
	return &catalogReader{repo: repo}
}

func (c *catalogReader) GetTest(ctx context.Context, testID uint) (*models.Test, error) {
	test, err := c.repo.Catalog().GetTest(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: test %d", ErrTestNotFound, testID)
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (c *catalogReader) GetQuestionsInScope(ctx context.Context, testID uint, parts []int) ([]*models.Question, error) {
	questions, err := c.repo.Catalog().GetActiveQuestions(ctx, nil, repositories.QuestionScope{
		TestID: testID,
		Parts:  parts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// ===== CACHED READER =====

// cachedQuestion mirrors models.Question including the answer key, which the
// model hides from JSON.
type cachedQuestion struct {
	ID                   uint                `json:"id"`
	TestID               uint                `json:"test_id"`
	PartNumber           int                 `json:"part_number"`
	QuestionNumber       int                 `json:"question_number"`
	GlobalQuestionNumber int                 `json:"global_question_number"`
	QuestionText         string              `json:"question_text"`
	Choices              []string            `json:"choices"`
	CorrectAnswer        models.AnswerChoice `json:"correct_answer"`
}

type cachedCatalogReader struct {
	inner  CatalogReader
	cache  cache.CacheService
	ttl    time.Duration
	logger *ServiceLogger
}

// NewCachedCatalogReader serves question sets from cache. Cache failures fall
// through to inner; tests are not cached so deactivation takes effect immediately.
func NewCachedCatalogReader(inner CatalogReader, c cache.CacheService, ttl time.Duration, logger *ServiceLogger) CatalogReader {
	return &cachedCatalogReader{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func (c *cachedCatalogReader) GetTest(ctx context.Context, testID uint) (*models.Test, error) {
	return c.inner.GetTest(ctx, testID)
}

func (c *cachedCatalogReader) GetQuestionsInScope(ctx context.Context, testID uint, parts []int) ([]*models.Question, error) {
	key := questionsCacheKey(testID, parts)

	var cached []cachedQuestion
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return fromCachedQuestions(cached), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn(ctx, "catalog cache read failed", "key", key, "error", err)
	}

	questions, err := c.inner.GetQuestionsInScope(ctx, testID, parts)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, toCachedQuestions(questions), c.ttl); err != nil {
		c.logger.Warn(ctx, "catalog cache write failed", "key", key, "error", err)
	}
	return questions, nil
}

func questionsCacheKey(testID uint, parts []int) string {
	sorted := append([]int(nil), parts...)
	sort.Ints(sorted)
	strs := make([]string, len(sorted))
	for i, p := range sorted {
		strs[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("catalog:questions:%d:%s", testID, strings.Join(strs, ","))
}

func toCachedQuestions(questions []*models.Question) []cachedQuestion {
	out := make([]cachedQuestion, len(questions))
	for i, q := range questions {
		out[i] = cachedQuestion{
			ID:                   q.ID,
			TestID:               q.TestID,
			PartNumber:           q.PartNumber,
			QuestionNumber:       q.QuestionNumber,
			GlobalQuestionNumber: q.GlobalQuestionNumber,
			QuestionText:         q.QuestionText,
			Choices:              q.Choices,
			CorrectAnswer:        q.CorrectAnswer,
		}
	}
	return out
}

func fromCachedQuestions(cached []cachedQuestion) []*models.Question {
	out := make([]*models.Question, len(cached))
	for i, q := range cached {
		out[i] = &models.Question{
			ID:                   q.ID,
			TestID:               q.TestID,
			PartNumber:           q.PartNumber,
			QuestionNumber:       q.QuestionNumber,
			GlobalQuestionNumber: q.GlobalQuestionNumber,
			QuestionText:         q.QuestionText,
			Choices:              q.Choices,
			CorrectAnswer:        q.CorrectAnswer,
			IsActive:             true,
		}
	}
	return out
}
