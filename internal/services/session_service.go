package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultHardExpiry = 7 * 24 * time.Hour
	sessionCodePrefix = "TS-"
	sessionCodeLength = 10
	resourceSession   = "exam_session"
)

type SessionService interface {
	Start(ctx context.Context, userID uint, req *StartSessionRequest) (*SessionView, error)
	GetSession(ctx context.Context, sessionID, userID uint) (*SessionDetailResponse, error)
	SubmitBulkAnswers(ctx context.Context, sessionID, userID uint, req *SubmitAnswersRequest) (*SubmitAnswersResponse, error)
	Pause(ctx context.Context, sessionID, userID uint) (*SessionView, error)
	Resume(ctx context.Context, sessionID, userID uint) (*SessionView, error)
	Submit(ctx context.Context, sessionID, userID uint) (*SessionView, error)
	GetResults(ctx context.Context, sessionID, userID uint) (*SessionResultsResponse, error)
	ListUserSessions(ctx context.Context, userID uint, req *ListSessionsRequest) (*SessionListResponse, error)
	GetUserStatistics(ctx context.Context, userID uint) (*UserStatisticsResponse, error)
}

type SessionServiceConfig struct {
	HardExpiry time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type sessionService struct {
	repo      repositories.Repository
	catalog   CatalogReader
	engine    *ScoreEngine
	stats     StatisticsUpdater
	events    *sessionEvents
	validator *validator.Validator
	logger    *ServiceLogger
	config    SessionServiceConfig
}

func NewSessionService(
	repo repositories.Repository,
	catalog CatalogReader,
	engine *ScoreEngine,
	stats StatisticsUpdater,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *ServiceLogger,
	config SessionServiceConfig,
) SessionService {
	if config.HardExpiry <= 0 {
		config.HardExpiry = DefaultHardExpiry
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &sessionService{
		repo:      repo,
		catalog:   catalog,
		engine:    engine,
		stats:     stats,
		events:    newSessionEvents(publisher, logger),
		validator: v,
		logger:    logger,
		config:    config,
	}
}

func (s *sessionService) now() time.Time {
	return s.config.Now().UTC()
}

// ===== START =====

func (s *sessionService) Start(ctx context.Context, userID uint, req *StartSessionRequest) (view *SessionView, err error) {
	op := s.logger.WithOperation(ctx, "start_session", userID)
	var sessionID uint
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.catalog.GetTest(ctx, req.TestID)
	if err != nil {
		return nil, err
	}
	if !test.IsActive {
		return nil, fmt.Errorf("%w: test %d is inactive", ErrTestNotFound, test.ID)
	}

	existing, err := s.repo.Session().GetLiveSession(ctx, nil, userID, req.TestID)
	if err == nil {
		return nil, fmt.Errorf("%w: session %d", ErrActiveSessionExists, existing.ID)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check live sessions: %w", err)
	}

	config := resolveTestConfig(req)
	questions, err := s.catalog.GetQuestionsInScope(ctx, req.TestID, partsOf(config))
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: test %d parts %v", ErrNoQuestionsInScope, req.TestID, partsOf(config))
	}

	now := s.now()
	var session *models.ExamSession
	// A unique violation is either a concurrent start for the same test or a session
	// code collision; only the latter is retried.
	for attempt := 0; attempt < 2; attempt++ {
		session, err = s.createSession(ctx, userID, req.TestID, config, len(questions), now)
		if err == nil || !repositories.IsUniqueViolation(err) {
			break
		}
		live, lerr := s.repo.Session().HasLiveSession(ctx, nil, userID, req.TestID)
		if lerr != nil {
			err = fmt.Errorf("failed to check live sessions: %w", lerr)
			break
		}
		if live {
			err = ErrActiveSessionExists
			break
		}
	}
	if err != nil {
		return nil, err
	}
	sessionID = session.ID

	s.events.started(ctx, session)
	return NewSessionView(session, now)
}

func (s *sessionService) createSession(ctx context.Context, userID, testID uint, config models.TestConfig, totalQuestions int, now time.Time) (*models.ExamSession, error) {
	session := &models.ExamSession{
		SessionCode: newSessionCode(),
		UserID:      userID,
		TestID:      testID,
		Config:      config,
		Status:      models.SessionStarted,
		StartedAt:   now,
		ExpiresAt:   now.Add(s.config.HardExpiry),
		Progress: models.SessionProgress{
			TotalQuestions: totalQuestions,
		},
	}

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		live, err := s.repo.Session().HasLiveSession(ctx, tx, userID, testID)
		if err != nil {
			return fmt.Errorf("failed to check live sessions: %w", err)
		}
		if live {
			return ErrActiveSessionExists
		}

		if err := s.repo.Session().Create(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		ledger := &models.AnswerLedger{
			SessionID: session.ID,
			UserID:    userID,
			Answers:   []models.AnswerRecord{},
		}
		if err := s.repo.AnswerLedger().Create(ctx, tx, ledger); err != nil {
			return fmt.Errorf("failed to create answer ledger: %w", err)
		}
		if err := s.repo.Catalog().IncrementAttemptCount(ctx, tx, testID); err != nil {
			return fmt.Errorf("failed to increment attempt count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ===== READ =====

func (s *sessionService) GetSession(ctx context.Context, sessionID, userID uint) (resp *SessionDetailResponse, err error) {
	op := s.logger.WithOperation(ctx, "get_session", userID)
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	session, err := s.loadOwned(ctx, nil, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !session.Status.IsLive() {
		return nil, fmt.Errorf("%w: session %d is %s", ErrSessionNotFound, sessionID, session.Status)
	}

	now := s.now()
	if HasExpired(*session, now) {
		return nil, s.expire(ctx, sessionID, userID, now)
	}

	ledger, err := s.loadLedger(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	questions, err := s.catalog.GetQuestionsInScope(ctx, session.TestID, session.PartsInScope())
	if err != nil {
		return nil, err
	}

	view, err := NewSessionView(session, now)
	if err != nil {
		return nil, fmt.Errorf("failed to map session: %w", err)
	}
	return &SessionDetailResponse{
		Session:   view,
		Questions: mergeQuestionViews(questions, ledger),
	}, nil
}

// expire forces a live session past its hard expiry into timeout.
func (s *sessionService) expire(ctx context.Context, sessionID, userID uint, now time.Time) error {
	var expired *models.ExamSession
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		session, err := s.loadOwnedForUpdate(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		if !session.Status.IsLive() || !HasExpired(*session, now) {
			return nil
		}
		next := forceTimeout(*session, now)
		if err := s.repo.Session().Update(ctx, tx, &next); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		expired = &next
		return nil
	})
	if err != nil {
		return err
	}
	if expired != nil {
		s.events.timedOut(ctx, expired, ErrSessionExpired, now)
	}
	return ErrSessionExpired
}

func (s *sessionService) GetResults(ctx context.Context, sessionID, userID uint) (resp *SessionResultsResponse, err error) {
	op := s.logger.WithOperation(ctx, "get_results", userID)
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	session, err := s.loadOwned(ctx, nil, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, fmt.Errorf("%w: session %d is %s", ErrResultsNotAvailable, sessionID, session.Status)
	}

	ledger, err := s.loadLedger(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}

	var answerKey map[uint]*models.Question
	if session.Config.AllowReview {
		questions, err := s.catalog.GetQuestionsInScope(ctx, session.TestID, session.PartsInScope())
		if err != nil {
			return nil, err
		}
		answerKey = questionIndex(questions)
	}

	view, err := NewSessionView(session, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to map session: %w", err)
	}

	answers := make([]*ResultAnswerView, 0, len(ledger.Answers))
	for _, r := range ledger.Answers {
		av := &ResultAnswerView{
			QuestionID:           r.QuestionID,
			PartNumber:           r.PartNumber,
			QuestionNumber:       r.QuestionNumber,
			GlobalQuestionNumber: r.GlobalQuestionNumber,
			SelectedAnswer:       r.SelectedAnswer,
			IsCorrect:            r.IsCorrect,
			IsSkipped:            r.IsSkipped,
			IsFlagged:            r.IsFlagged,
			TimeSpentSeconds:     r.TimeSpentSeconds,
		}
		if q, ok := answerKey[r.QuestionID]; ok {
			av.CorrectAnswer = q.CorrectAnswer
		}
		answers = append(answers, av)
	}

	return &SessionResultsResponse{Session: view, Answers: answers}, nil
}

func (s *sessionService) ListUserSessions(ctx context.Context, userID uint, req *ListSessionsRequest) (resp *SessionListResponse, err error) {
	op := s.logger.WithOperation(ctx, "list_sessions", userID)
	defer func() { op.LogResult(0, resourceSession, err) }()

	if req == nil {
		req = &ListSessionsRequest{}
	}
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	filters := repositories.SessionFilters{
		Status:      req.Status,
		TestID:      req.TestID,
		SessionType: req.SessionType,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		Limit:       req.Size,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	}
	filters.Normalize()
	page := req.Page
	if page < 1 {
		page = 1
	}
	filters.Offset = (page - 1) * filters.Limit

	sessions, total, err := s.repo.Session().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.now()
	views := make([]*SessionView, 0, len(sessions))
	for _, session := range sessions {
		view, err := NewSessionView(session, now)
		if err != nil {
			return nil, fmt.Errorf("failed to map session: %w", err)
		}
		views = append(views, view)
	}

	return &SessionListResponse{
		Sessions: views,
		Total:    total,
		Page:     page,
		Size:     filters.Limit,
	}, nil
}

func (s *sessionService) GetUserStatistics(ctx context.Context, userID uint) (resp *UserStatisticsResponse, err error) {
	op := s.logger.WithOperation(ctx, "get_user_statistics", userID)
	defer func() { op.LogResult(userID, "user_statistics", err) }()

	counts, err := s.repo.Session().GetUserSessionStats(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	stats, err := s.repo.UserStatistics().GetByUser(ctx, nil, userID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get user statistics: %w", err)
		}
		stats = &models.UserStatistics{UserID: userID}
	}

	return &UserStatisticsResponse{
		UserID:                userID,
		TotalSessions:         counts.TotalSessions,
		CompletedSessions:     counts.CompletedSessions,
		StatusBreakdown:       counts.StatusBreakdown,
		ScoredSessions:        stats.ScoredSessions,
		AverageScore:          stats.AverageScore,
		BestScore:             stats.BestScore,
		BestListeningScore:    stats.BestListeningScore,
		BestReadingScore:      stats.BestReadingScore,
		TotalTimeSpentSeconds: stats.TotalTimeSpentSeconds,
		LastSessionAt:         stats.LastSessionAt,
	}, nil
}

// ===== TRANSITIONS =====

func (s *sessionService) SubmitBulkAnswers(ctx context.Context, sessionID, userID uint, req *SubmitAnswersRequest) (resp *SubmitAnswersResponse, err error) {
	op := s.logger.WithOperation(ctx, "submit_answers", userID)
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		wasPaused bool
		dropped   []uint
		answered  int
	)
	session, err := s.transition(ctx, sessionID, userID, TimeAnswer, now, models.SessionStatus.IsLive,
		func(tx *gorm.DB, prev, next *models.ExamSession) error {
			wasPaused = prev.Status == models.SessionPaused

			questions, err := s.catalog.GetQuestionsInScope(ctx, next.TestID, next.PartsInScope())
			if err != nil {
				return err
			}
			ledger, err := s.loadLedger(ctx, tx, next.ID)
			if err != nil {
				return err
			}

			dropped = MergeAnswers(ledger, req.incoming(), questionIndex(questions), now)
			if err := s.repo.AnswerLedger().Save(ctx, tx, ledger); err != nil {
				return fmt.Errorf("failed to save answers: %w", err)
			}

			answered = ledger.AnsweredCount()
			ApplyProgress(next, answered)
			return nil
		})
	if err != nil {
		return nil, err
	}

	if len(dropped) > 0 {
		s.logger.Info(ctx, "dropped answers for unknown questions",
			"session_id", sessionID,
			"question_ids", dropped)
	}
	if wasPaused {
		s.events.resumed(ctx, session, now)
	}

	return &SubmitAnswersResponse{
		AcceptedCount:      acceptedQuestionCount(req.Answers, dropped),
		DroppedQuestionIDs: dropped,
		AnsweredCount:      answered,
		Status:             session.Status,
	}, nil
}

func (s *sessionService) Pause(ctx context.Context, sessionID, userID uint) (view *SessionView, err error) {
	op := s.logger.WithOperation(ctx, "pause_session", userID)
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	now := s.now()
	session, err := s.transition(ctx, sessionID, userID, TimePause, now, isActive, nil)
	if err != nil {
		return nil, err
	}
	s.events.paused(ctx, session, now)
	return NewSessionView(session, now)
}

func (s *sessionService) Resume(ctx context.Context, sessionID, userID uint) (view *SessionView, err error) {
	op := s.logger.WithOperation(ctx, "resume_session", userID)
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	now := s.now()
	session, err := s.transition(ctx, sessionID, userID, TimeResume, now, isPaused, nil)
	if err != nil {
		return nil, err
	}
	s.events.resumed(ctx, session, now)
	return NewSessionView(session, now)
}

func (s *sessionService) Submit(ctx context.Context, sessionID, userID uint) (view *SessionView, err error) {
	op := s.logger.WithOperation(ctx, "submit_session", userID)
	defer func() { op.LogResult(sessionID, resourceSession, err) }()

	now := s.now()
	var results models.SessionResults
	session, err := s.transition(ctx, sessionID, userID, TimeFinalize, now, models.SessionStatus.IsLive,
		func(tx *gorm.DB, _, next *models.ExamSession) error {
			questions, err := s.catalog.GetQuestionsInScope(ctx, next.TestID, next.PartsInScope())
			if err != nil {
				return err
			}
			ledger, err := s.loadLedger(ctx, tx, next.ID)
			if err != nil {
				return err
			}

			BackfillSkipped(ledger, questions)
			if err := s.repo.AnswerLedger().Save(ctx, tx, ledger); err != nil {
				return fmt.Errorf("failed to save answers: %w", err)
			}

			results, err = s.engine.Score(ctx, next.Config.SessionType, ledger.Answers, now)
			if err != nil {
				return fmt.Errorf("failed to score session: %w", err)
			}
			next.SetResults(results)
			ApplyProgress(next, results.AnsweredCount)

			if err := s.repo.Catalog().IncrementCompletedCount(ctx, tx, next.TestID); err != nil {
				return fmt.Errorf("failed to increment completed count: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	if results.TotalScore != 0 && s.stats != nil {
		if serr := s.stats.RecordResult(ctx, session, results); serr != nil {
			s.logger.Error(ctx, "failed to update user statistics",
				"session_id", sessionID,
				"user_id", userID,
				"error", serr)
		}
	}

	s.events.submitted(ctx, session, results, now)
	return NewSessionView(session, now)
}

// transition runs one clock event against a locked session inside a transaction.
// A session outside allowed is reported as not found. When the event forces a
// timeout, the timed-out session is committed and the timeout error returned with it.
func (s *sessionService) transition(
	ctx context.Context,
	sessionID, userID uint,
	event TimeEvent,
	now time.Time,
	allowed func(models.SessionStatus) bool,
	mutate func(tx *gorm.DB, prev, next *models.ExamSession) error,
) (*models.ExamSession, error) {
	var (
		updated    *models.ExamSession
		timeoutErr error
	)

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		session, err := s.loadOwnedForUpdate(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		if !allowed(session.Status) {
			return fmt.Errorf("%w: session %d is %s", ErrSessionNotFound, sessionID, session.Status)
		}

		next, err := AdvanceClock(event, *session, now)
		if err != nil && !ForcesTimeout(err) {
			return err
		}
		if err != nil {
			timeoutErr = err
		} else if mutate != nil {
			if err := mutate(tx, session, &next); err != nil {
				return err
			}
		}

		if err := s.repo.Session().Update(ctx, tx, &next); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if timeoutErr != nil {
		s.events.timedOut(ctx, updated, timeoutErr, now)
		return nil, timeoutErr
	}
	return updated, nil
}

// ===== HELPERS =====

func (s *sessionService) loadOwned(ctx context.Context, tx *gorm.DB, sessionID, userID uint) (*models.ExamSession, error) {
	session, err := s.repo.Session().GetByID(ctx, tx, sessionID)
	return checkOwner(session, err, sessionID, userID)
}

func (s *sessionService) loadOwnedForUpdate(ctx context.Context, tx *gorm.DB, sessionID, userID uint) (*models.ExamSession, error) {
	session, err := s.repo.Session().GetByIDForUpdate(ctx, tx, sessionID)
	return checkOwner(session, err, sessionID, userID)
}

func checkOwner(session *models.ExamSession, err error, sessionID, userID uint) (*models.ExamSession, error) {
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

func (s *sessionService) loadLedger(ctx context.Context, tx *gorm.DB, sessionID uint) (*models.AnswerLedger, error) {
	ledger, err := s.repo.AnswerLedger().GetBySession(ctx, tx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: answer ledger for session %d", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get answer ledger: %w", err)
	}
	return ledger, nil
}

func resolveTestConfig(req *StartSessionRequest) models.TestConfig {
	config := models.TestConfig{
		SessionType:      req.SessionType,
		TimeLimitMinutes: req.TimeLimitMinutes,
		AllowReview:      true,
	}
	if req.AllowReview != nil {
		config.AllowReview = *req.AllowReview
	}
	if req.SessionType == models.SessionFullTest {
		config.SelectedParts = models.AllParts()
	} else {
		config.SelectedParts = append([]int(nil), req.SelectedParts...)
	}
	return config
}

func partsOf(config models.TestConfig) []int {
	return []int(config.SelectedParts)
}

func isActive(status models.SessionStatus) bool {
	return status == models.SessionStarted || status == models.SessionInProgress
}

func isPaused(status models.SessionStatus) bool {
	return status == models.SessionPaused
}

func newSessionCode() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return sessionCodePrefix + hex[:sessionCodeLength]
}

func mergeQuestionViews(questions []*models.Question, ledger *models.AnswerLedger) []*QuestionView {
	answers := make(map[uint]models.AnswerRecord, len(ledger.Answers))
	for _, r := range ledger.Answers {
		answers[r.QuestionID] = r
	}

	views := make([]*QuestionView, 0, len(questions))
	for _, q := range questions {
		view := &QuestionView{
			ID:                   q.ID,
			PartNumber:           q.PartNumber,
			QuestionNumber:       q.QuestionNumber,
			GlobalQuestionNumber: q.GlobalQuestionNumber,
			QuestionText:         q.QuestionText,
			Choices:              q.Choices,
		}
		if r, ok := answers[q.ID]; ok {
			view.SelectedAnswer = r.SelectedAnswer
			view.IsFlagged = r.IsFlagged
			view.TimeSpentSeconds = r.TimeSpentSeconds
			view.Answered = !r.IsSkipped
		}
		views = append(views, view)
	}
	return views
}

// acceptedQuestionCount counts distinct questions that were merged into the ledger.
func acceptedQuestionCount(answers []AnswerInput, dropped []uint) int {
	skip := make(map[uint]struct{}, len(dropped))
	for _, id := range dropped {
		skip[id] = struct{}{}
	}
	seen := make(map[uint]struct{}, len(answers))
	for _, a := range answers {
		if _, ok := skip[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
	}
	return len(seen)
}
