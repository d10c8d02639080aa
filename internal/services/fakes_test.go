package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
	"gorm.io/gorm"
)

// fakeStore is an in-memory Repository. WithTransaction snapshots the maps and
// restores them when fn fails.
type fakeStore struct {
	sessions  map[uint]models.ExamSession
	ledgers   map[uint]models.AnswerLedger
	tests     map[uint]models.Test
	questions []*models.Question
	scores    []models.ScoreTableEntry
	stats     map[uint]models.UserStatistics
	nextID    uint

	statsSaveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uint]models.ExamSession),
		ledgers:  make(map[uint]models.AnswerLedger),
		tests:    make(map[uint]models.Test),
		stats:    make(map[uint]models.UserStatistics),
	}
}

func (f *fakeStore) Session() repositories.SessionRepository               { return fakeSessions{f} }
func (f *fakeStore) AnswerLedger() repositories.AnswerLedgerRepository     { return fakeLedgers{f} }
func (f *fakeStore) Catalog() repositories.CatalogRepository               { return fakeCatalog{f} }
func (f *fakeStore) ScoreTable() repositories.ScoreTableRepository         { return fakeScores{f} }
func (f *fakeStore) UserStatistics() repositories.UserStatisticsRepository { return fakeStats{f} }

func (f *fakeStore) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	sessions := make(map[uint]models.ExamSession, len(f.sessions))
	for k, v := range f.sessions {
		sessions[k] = v
	}
	ledgers := make(map[uint]models.AnswerLedger, len(f.ledgers))
	for k, v := range f.ledgers {
		ledgers[k] = copyLedger(v)
	}
	tests := make(map[uint]models.Test, len(f.tests))
	for k, v := range f.tests {
		tests[k] = v
	}
	stats := make(map[uint]models.UserStatistics, len(f.stats))
	for k, v := range f.stats {
		stats[k] = v
	}

	if err := fn(nil); err != nil {
		f.sessions, f.ledgers, f.tests, f.stats = sessions, ledgers, tests, stats
		return err
	}
	return nil
}

func copyLedger(l models.AnswerLedger) models.AnswerLedger {
	l.Answers = append([]models.AnswerRecord(nil), l.Answers...)
	return l
}

// ===== seeding helpers =====

func (f *fakeStore) addTest(id uint, active bool) {
	f.tests[id] = models.Test{ID: id, Title: "Test", IsActive: active}
}

// addQuestions adds count questions to part, all with correct answer A.
func (f *fakeStore) addQuestions(testID uint, part, count int) []*models.Question {
	added := make([]*models.Question, 0, count)
	global := 0
	for _, q := range f.questions {
		if q.TestID == testID && q.GlobalQuestionNumber > global {
			global = q.GlobalQuestionNumber
		}
	}
	for i := 1; i <= count; i++ {
		f.nextID++
		q := &models.Question{
			ID:                   f.nextID + 1000,
			TestID:               testID,
			PartNumber:           part,
			QuestionNumber:       i,
			GlobalQuestionNumber: global + i,
			Choices:              []string{"a", "b", "c", "d"},
			CorrectAnswer:        models.ChoiceA,
			IsActive:             true,
		}
		f.questions = append(f.questions, q)
		added = append(added, q)
	}
	return added
}

func (f *fakeStore) addScore(section models.ScoreSection, raw, scaled, version int) {
	f.scores = append(f.scores, models.ScoreTableEntry{
		Section:       section,
		RawCorrect:    raw,
		ScaledScore:   scaled,
		Version:       version,
		IsActive:      true,
		EffectiveFrom: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

// ===== sessions =====

type fakeSessions struct{ f *fakeStore }

func (r fakeSessions) Create(_ context.Context, _ *gorm.DB, s *models.ExamSession) error {
	for _, existing := range r.f.sessions {
		if existing.SessionCode == s.SessionCode {
			return repositories.ErrDuplicateKey
		}
		if existing.UserID == s.UserID && existing.TestID == s.TestID && existing.Status.IsLive() && s.Status.IsLive() {
			return repositories.ErrDuplicateKey
		}
	}
	r.f.nextID++
	s.ID = r.f.nextID
	s.CreatedAt = s.StartedAt
	r.f.sessions[s.ID] = *s
	return nil
}

func (r fakeSessions) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.ExamSession, error) {
	s, ok := r.f.sessions[id]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	return &s, nil
}

func (r fakeSessions) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	return r.GetByID(ctx, tx, id)
}

func (r fakeSessions) Update(_ context.Context, _ *gorm.DB, s *models.ExamSession) error {
	if _, ok := r.f.sessions[s.ID]; !ok {
		return repositories.ErrRecordNotFound
	}
	r.f.sessions[s.ID] = *s
	return nil
}

func (r fakeSessions) GetLiveSession(_ context.Context, _ *gorm.DB, userID, testID uint) (*models.ExamSession, error) {
	for _, s := range r.f.sessions {
		if s.UserID == userID && s.TestID == testID && s.Status.IsLive() {
			return &s, nil
		}
	}
	return nil, repositories.ErrRecordNotFound
}

func (r fakeSessions) HasLiveSession(ctx context.Context, tx *gorm.DB, userID, testID uint) (bool, error) {
	_, err := r.GetLiveSession(ctx, tx, userID, testID)
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

func (r fakeSessions) ListByUser(_ context.Context, _ *gorm.DB, userID uint, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	var matched []*models.ExamSession
	for _, s := range r.f.sessions {
		s := s
		if s.UserID != userID {
			continue
		}
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		if filters.TestID != nil && s.TestID != *filters.TestID {
			continue
		}
		if filters.SessionType != nil && s.Config.SessionType != *filters.SessionType {
			continue
		}
		matched = append(matched, &s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if filters.Offset >= len(matched) {
		return []*models.ExamSession{}, total, nil
	}
	end := filters.Offset + filters.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filters.Offset:end], total, nil
}

func (r fakeSessions) GetUserSessionStats(_ context.Context, _ *gorm.DB, userID uint) (*repositories.UserSessionStats, error) {
	stats := &repositories.UserSessionStats{StatusBreakdown: make(map[models.SessionStatus]int)}
	for _, s := range r.f.sessions {
		if s.UserID != userID {
			continue
		}
		stats.TotalSessions++
		stats.StatusBreakdown[s.Status]++
		if s.Status == models.SessionCompleted {
			stats.CompletedSessions++
		}
	}
	return stats, nil
}

// ===== ledgers =====

type fakeLedgers struct{ f *fakeStore }

func (r fakeLedgers) Create(_ context.Context, _ *gorm.DB, l *models.AnswerLedger) error {
	if _, ok := r.f.ledgers[l.SessionID]; ok {
		return repositories.ErrDuplicateKey
	}
	r.f.ledgers[l.SessionID] = copyLedger(*l)
	return nil
}

func (r fakeLedgers) GetBySession(_ context.Context, _ *gorm.DB, sessionID uint) (*models.AnswerLedger, error) {
	l, ok := r.f.ledgers[sessionID]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	l = copyLedger(l)
	return &l, nil
}

func (r fakeLedgers) Save(_ context.Context, _ *gorm.DB, l *models.AnswerLedger) error {
	r.f.ledgers[l.SessionID] = copyLedger(*l)
	return nil
}

// ===== catalog =====

type fakeCatalog struct{ f *fakeStore }

func (r fakeCatalog) GetTest(_ context.Context, _ *gorm.DB, testID uint) (*models.Test, error) {
	t, ok := r.f.tests[testID]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	return &t, nil
}

func (r fakeCatalog) GetActiveQuestions(_ context.Context, _ *gorm.DB, scope repositories.QuestionScope) ([]*models.Question, error) {
	parts := make(map[int]bool, len(scope.Parts))
	for _, p := range scope.Parts {
		parts[p] = true
	}
	var out []*models.Question
	for _, q := range r.f.questions {
		if q.TestID == scope.TestID && q.IsActive && parts[q.PartNumber] {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GlobalQuestionNumber < out[j].GlobalQuestionNumber })
	return out, nil
}

func (r fakeCatalog) IncrementAttemptCount(_ context.Context, _ *gorm.DB, testID uint) error {
	t := r.f.tests[testID]
	t.TotalAttempts++
	r.f.tests[testID] = t
	return nil
}

func (r fakeCatalog) IncrementCompletedCount(_ context.Context, _ *gorm.DB, testID uint) error {
	t := r.f.tests[testID]
	t.CompletedAttempts++
	r.f.tests[testID] = t
	return nil
}

// ===== score table =====

type fakeScores struct{ f *fakeStore }

func (r fakeScores) FindActive(_ context.Context, _ *gorm.DB, section models.ScoreSection, rawCorrect int, at time.Time) (*models.ScoreTableEntry, error) {
	var best *models.ScoreTableEntry
	for i := range r.f.scores {
		e := r.f.scores[i]
		if e.Section != section || e.RawCorrect != rawCorrect || !e.IsActive || at.Before(e.EffectiveFrom) || (e.EffectiveTo != nil && !at.Before(*e.EffectiveTo)) {
			continue
		}
		if best == nil || e.Version > best.Version {
			best = &e
		}
	}
	if best == nil {
		return nil, repositories.ErrRecordNotFound
	}
	return best, nil
}

func (r fakeScores) UpsertEntries(_ context.Context, _ *gorm.DB, entries []*models.ScoreTableEntry) error {
	for _, e := range entries {
		replaced := false
		for i := range r.f.scores {
			cur := r.f.scores[i]
			if cur.Section == e.Section && cur.RawCorrect == e.RawCorrect && cur.Version == e.Version {
				r.f.scores[i] = *e
				replaced = true
			}
		}
		if !replaced {
			r.f.scores = append(r.f.scores, *e)
		}
	}
	return nil
}

// ===== user statistics =====

type fakeStats struct{ f *fakeStore }

func (r fakeStats) GetByUser(_ context.Context, _ *gorm.DB, userID uint) (*models.UserStatistics, error) {
	s, ok := r.f.stats[userID]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	return &s, nil
}

func (r fakeStats) GetForUpdate(_ context.Context, _ *gorm.DB, userID uint) (*models.UserStatistics, error) {
	s, ok := r.f.stats[userID]
	if !ok {
		s = models.UserStatistics{UserID: userID}
	}
	return &s, nil
}

func (r fakeStats) Save(_ context.Context, _ *gorm.DB, s *models.UserStatistics) error {
	if r.f.statsSaveErr != nil {
		return r.f.statsSaveErr
	}
	r.f.stats[s.UserID] = *s
	return nil
}

// ===== clock & harness =====

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type sessionHarness struct {
	store     *fakeStore
	clock     *fakeClock
	publisher *events.MockEventPublisher
	service   SessionService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServiceLogger() *ServiceLogger {
	return NewServiceLogger(discardLogger(), LogConfig{Service: "exam-session-service", Component: "test"})
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	store := newFakeStore()
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	publisher := events.NewMockEventPublisher(discardLogger())
	logger := testServiceLogger()

	service := NewSessionService(
		store,
		NewCatalogReader(store),
		NewScoreEngine(NewScoreTable(store.ScoreTable()), logger),
		NewStatisticsUpdater(store),
		publisher,
		validator.New(),
		logger,
		SessionServiceConfig{Now: clock.Now},
	)
	return &sessionHarness{store: store, clock: clock, publisher: publisher, service: service}
}

var errStatsUnavailable = errors.New("statistics store unavailable")
