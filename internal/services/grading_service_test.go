package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/export"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type publisherMock struct {
	mock.Mock
}

func (p *publisherMock) PublishGradingEvent(ctx context.Context, event *events.GradingEvent) error {
	return p.Called(ctx, event).Error(0)
}

func (p *publisherMock) Close() error {
	return p.Called().Error(0)
}

func newTestService(client *redis.Client, locker cache.Locker, publisher events.EventPublisher) *gradingService {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	return NewGradingService(testLogger(), validator.New(), locker,
		cache.NewCacheHelper(client, cache.ResultCacheConfig.Prefix), publisher,
		GradingConfig{Workers: 4, PassingScore: 60}).(*gradingService)
}

func quizQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Type: models.SingleChoice, Options: datatypes.JSON(`["a","b","c"]`), CorrectAnswer: datatypes.JSON(`1`), Points: 1},
		{
			ID:                "q2",
			Type:              models.Matching,
			Options:           datatypes.JSON(`[{"left":"France","right":"Paris"},{"left":"Japan","right":"Tokyo"},{"left":"Peru","right":"Lima"}]`),
			CorrectAnswerJSON: datatypes.JSON(`{"0":0,"1":1,"2":2}`),
			Points:            3,
		},
		{ID: "q3", Type: models.Ordering, Options: datatypes.JSON(`["A","B","C","D"]`), Points: 2},
		{ID: "q4", Type: models.Essay, Points: 2},
		// no key, left for an instructor
		{ID: "q5", Type: models.Matching, Options: datatypes.JSON(`[{"left":"x","right":"1"},{"left":"y","right":"2"}]`), Points: 5},
	}
}

// correctMatching answers a matching question correctly as it was displayed in the attempt.
func correctMatching(t *testing.T, s *gradingService, attemptID string, q *models.Question, pairs int) json.RawMessage {
	t.Helper()
	mapping, err := s.PresentQuestion(context.Background(), attemptID, q)
	require.NoError(t, err)

	invLeft, invRight := mapping.Matching.LeftMapping.Inverse(), mapping.Matching.RightMapping.Inverse()
	raw := make(map[string]int, pairs)
	for i := 0; i < pairs; i++ {
		raw[strconv.Itoa(invLeft[i])] = invRight[i]
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	return data
}

func quizAttempt(t *testing.T, s *gradingService, attemptID string, questions []models.Question) *models.Attempt {
	t.Helper()
	answers := map[string]json.RawMessage{
		"q1": json.RawMessage(`0`),
		"q2": correctMatching(t, s, attemptID, &questions[1], 3),
		"q3": json.RawMessage(`["A","B","C","D"]`),
		"q4": json.RawMessage(`"Because of the tides."`),
		"q5": json.RawMessage(`{"0":0}`),
	}
	data, err := json.Marshal(answers)
	require.NoError(t, err)
	return &models.Attempt{AttemptID: attemptID, QuizID: "quiz-1", StudentID: "student-1", Answers: data}
}

func TestGradingService_GradeAttempt(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	s := newTestService(nil, nil, publisher)
	questions := quizQuestions()

	result, err := s.GradeAttempt(context.Background(), questions, quizAttempt(t, s, "attempt-1", questions))
	require.NoError(t, err)

	statuses := make([]models.EvaluationStatus, len(result.Questions))
	for i, r := range result.Questions {
		assert.Equal(t, questions[i].ID, r.QuestionID)
		statuses[i] = r.Status
	}
	assert.Equal(t, []models.EvaluationStatus{
		models.StatusGraded, models.StatusGraded, models.StatusGraded, models.StatusGraded, models.StatusUngraded,
	}, statuses)

	// 0 + 3 + 2 + 2 of 8; q5 is left out of the denominator
	assert.Equal(t, 7.0, result.TotalScore)
	assert.Equal(t, 8, result.MaxScore)
	assert.Equal(t, 88, result.Percentage)
	assert.Equal(t, "B+", result.Grade)
	assert.True(t, result.IsPassing)
	assert.Equal(t, []string{"q5"}, result.Report.UngradedQuestionIDs)
	assert.Equal(t, []string{"q4", "q5"}, result.ManualReviewQuestionIDs)
	assert.True(t, result.RequiresManualReview())

	graded := publisher.EventsOfType(events.EventAttemptGraded)
	require.Len(t, graded, 1)
	data, ok := graded[0].Data.(events.AttemptGradedEvent)
	require.True(t, ok)
	assert.Equal(t, "attempt-1", data.AttemptID)
	assert.Equal(t, 7.0, data.Score)
	assert.True(t, data.HasUngraded)
	assert.Equal(t, []string{"q5"}, data.UngradedQuestionIDs)

	manual := publisher.EventsOfType(events.EventManualGradingRequired)
	require.Len(t, manual, 1)
	manualData, ok := manual[0].Data.(events.ManualGradingRequiredEvent)
	require.True(t, ok)
	assert.Equal(t, 2, manualData.QuestionCount)
}

func TestGradingService_GradeAttempt_NoAnswers(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	s := newTestService(nil, nil, publisher)

	questions := quizQuestions()[:3]
	result, err := s.GradeAttempt(context.Background(), questions, &models.Attempt{AttemptID: "attempt-1"})
	require.NoError(t, err)

	for _, r := range result.Questions {
		assert.Equal(t, models.StatusUnanswered, r.Status)
	}
	assert.Equal(t, 0.0, result.TotalScore)
	assert.Equal(t, 6, result.MaxScore)
	assert.False(t, result.IsPassing)
	assert.Equal(t, "F", result.Grade)
	assert.Empty(t, publisher.EventsOfType(events.EventManualGradingRequired))
}

func TestGradingService_GradeAttempt_FullyUngraded(t *testing.T) {
	s := newTestService(nil, nil, events.NewMockEventPublisher(testLogger()))
	questions := quizQuestions()[4:]

	attempt := &models.Attempt{AttemptID: "attempt-1", Answers: datatypes.JSON(`{"q5":{"0":1}}`)}
	result, err := s.GradeAttempt(context.Background(), questions, attempt)
	require.NoError(t, err)

	assert.True(t, result.Report.FullyUngraded)
	assert.Equal(t, 0, result.MaxScore)
	assert.False(t, result.IsPassing)
}

func TestGradingService_GradeAttempt_RejectedAnswerCounts(t *testing.T) {
	s := newTestService(nil, nil, events.NewMockEventPublisher(testLogger()))
	questions := quizQuestions()[1:2]

	// left display index 7 does not exist
	attempt := &models.Attempt{AttemptID: "attempt-1", Answers: datatypes.JSON(`{"q2":{"7":0}}`)}
	result, err := s.GradeAttempt(context.Background(), questions, attempt)
	require.NoError(t, err)

	require.Len(t, result.Questions, 1)
	assert.Equal(t, models.StatusRejected, result.Questions[0].Status)
	assert.NotEmpty(t, result.Questions[0].Error)
	assert.Equal(t, 3, result.MaxScore)
	assert.Equal(t, 0, result.Percentage)
}

func TestGradingService_GradeAttempt_InvalidInput(t *testing.T) {
	s := newTestService(nil, nil, events.NewMockEventPublisher(testLogger()))
	questions := quizQuestions()

	tests := []struct {
		name      string
		questions []models.Question
		attempt   *models.Attempt
	}{
		{name: "nil attempt", questions: questions},
		{name: "missing attempt id", questions: questions, attempt: &models.Attempt{Answers: datatypes.JSON(`{}`)}},
		{name: "answers not an object", questions: questions, attempt: &models.Attempt{AttemptID: "a", Answers: datatypes.JSON(`[0]`)}},
		{
			name:      "duplicate question ids",
			questions: []models.Question{questions[0], questions[0]},
			attempt:   &models.Attempt{AttemptID: "a"},
		},
		{
			name:      "question without id",
			questions: []models.Question{{Type: models.Essay}},
			attempt:   &models.Attempt{AttemptID: "a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.GradeAttempt(context.Background(), tt.questions, tt.attempt)
			assert.True(t, apperrors.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestGradingService_GradeAttempt_ReturnsCachedResult(t *testing.T) {
	mr, client := newTestRedis(t)
	publisher := events.NewMockEventPublisher(testLogger())
	s := newTestService(client, cache.NewRedisLocker(client, time.Minute), publisher)
	questions := quizQuestions()
	attempt := quizAttempt(t, s, "attempt-1", questions)
	ctx := context.Background()

	first, err := s.GradeAttempt(ctx, questions, attempt)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ResultCacheConfig.Prefix+"attempt-1"))
	assert.False(t, mr.Exists(cache.LockCacheConfig.Prefix+"attempt-1"))

	second, err := s.GradeAttempt(ctx, questions, attempt)
	require.NoError(t, err)

	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, first.Report, second.Report)
	assert.True(t, first.GradedAt.Equal(second.GradedAt))
	assert.Len(t, publisher.EventsOfType(events.EventAttemptGraded), 1)
}

func TestGradingService_GradeAttempt_PublishFailure(t *testing.T) {
	mr, client := newTestRedis(t)
	publisher := &publisherMock{}
	publisher.On("PublishGradingEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	publisher.On("PublishGradingEvent", mock.Anything, mock.Anything).Return(nil)

	s := newTestService(client, cache.NewRedisLocker(client, time.Minute), publisher)
	questions := quizQuestions()[:3]
	attempt := quizAttempt(t, s, "attempt-1", quizQuestions())
	ctx := context.Background()

	_, err := s.GradeAttempt(ctx, questions, attempt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.False(t, mr.Exists(cache.ResultCacheConfig.Prefix+"attempt-1"))

	// a redelivery grades again and is cached once published
	_, err = s.GradeAttempt(ctx, questions, attempt)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ResultCacheConfig.Prefix+"attempt-1"))
	publisher.AssertNumberOfCalls(t, "PublishGradingEvent", 2)
}

func TestGradingService_GradeAttempt_ManualReviewPublishFailure(t *testing.T) {
	mr, client := newTestRedis(t)
	isGraded := mock.MatchedBy(func(e *events.GradingEvent) bool { return e.Type == events.EventAttemptGraded })
	isManual := mock.MatchedBy(func(e *events.GradingEvent) bool { return e.Type == events.EventManualGradingRequired })
	publisher := &publisherMock{}
	publisher.On("PublishGradingEvent", mock.Anything, isGraded).Return(nil)
	publisher.On("PublishGradingEvent", mock.Anything, isManual).Return(errors.New("broker down")).Once()
	publisher.On("PublishGradingEvent", mock.Anything, isManual).Return(nil)

	s := newTestService(client, cache.NewRedisLocker(client, time.Minute), publisher)
	questions := quizQuestions()
	attempt := quizAttempt(t, s, "attempt-1", questions)
	ctx := context.Background()

	_, err := s.GradeAttempt(ctx, questions, attempt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.True(t, mr.Exists(cache.ResultCacheConfig.Prefix+"attempt-1"))

	// the redelivery only retries the manual grading request
	result, err := s.GradeAttempt(ctx, questions, attempt)
	require.NoError(t, err)
	assert.True(t, result.ManualReviewRequested)
	assert.Equal(t, []string{"q4", "q5"}, result.ManualReviewQuestionIDs)

	// once requested, further redeliveries publish nothing
	_, err = s.GradeAttempt(ctx, questions, attempt)
	require.NoError(t, err)

	publisher.AssertNumberOfCalls(t, "PublishGradingEvent", 3)
	graded := 0
	for _, call := range publisher.Calls {
		if call.Arguments.Get(1).(*events.GradingEvent).Type == events.EventAttemptGraded {
			graded++
		}
	}
	assert.Equal(t, 1, graded)
}

func TestGradingService_GradeAttempt_LockHeld(t *testing.T) {
	locker := cache.NewLocalLocker()
	s := newTestService(nil, locker, events.NewMockEventPublisher(testLogger()))

	unlock, err := locker.Lock(context.Background(), "attempt-1")
	require.NoError(t, err)
	defer func() { _ = unlock(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.GradeAttempt(ctx, quizQuestions()[:1], &models.Attempt{AttemptID: "attempt-1"})
	assert.ErrorIs(t, err, cache.ErrLockNotAcquired)
}

func TestGradingService_GradeAttempt_Concurrent(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	s := newTestService(nil, nil, publisher)
	questions := quizQuestions()
	attempt := quizAttempt(t, s, "attempt-1", questions)

	var wg sync.WaitGroup
	scores := make([]float64, 5)
	for i := range scores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.GradeAttempt(context.Background(), questions, attempt)
			if assert.NoError(t, err) {
				scores[i] = result.TotalScore
			}
		}()
	}
	wg.Wait()

	for _, score := range scores {
		assert.Equal(t, 7.0, score)
	}
	assert.Len(t, publisher.EventsOfType(events.EventAttemptGraded), len(scores))
}

func TestGradingService_GradeSubmission(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	s := newTestService(nil, nil, publisher)
	questions := quizQuestions()[:1]

	err := s.GradeSubmission(context.Background(), &events.AttemptSubmittedEvent{
		AttemptID:   "attempt-9",
		QuizID:      "quiz-1",
		StudentID:   "student-1",
		SubmittedAt: time.Now(),
		Questions:   questions,
		Answers:     json.RawMessage(`{"q1":1}`),
	})
	require.NoError(t, err)

	graded := publisher.EventsOfType(events.EventAttemptGraded)
	require.Len(t, graded, 1)
	data := graded[0].Data.(events.AttemptGradedEvent)
	assert.Equal(t, "attempt-9", data.AttemptID)
	assert.Equal(t, 100, data.Percentage)
	assert.True(t, data.Passed)

	err = s.GradeSubmission(context.Background(), &events.AttemptSubmittedEvent{Questions: questions})
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestGradingService_PresentQuestion(t *testing.T) {
	s := newTestService(nil, nil, nil)
	ctx := context.Background()
	q := &models.Question{ID: "q-order", Type: models.Ordering, Options: datatypes.JSON(`["a","b","c","d","e","f"]`)}

	first, err := s.PresentQuestion(ctx, "attempt-1", q)
	require.NoError(t, err)
	again, err := s.PresentQuestion(ctx, "attempt-1", q)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	differs := false
	for i := 2; i <= 6; i++ {
		other, err := s.PresentQuestion(ctx, "attempt-"+strconv.Itoa(i), q)
		require.NoError(t, err)
		if !assert.ObjectsAreEqual(first.Ordering.Permutation(), other.Ordering.Permutation()) {
			differs = true
		}
	}
	assert.True(t, differs, "every attempt saw the same order")

	_, err = s.PresentQuestion(ctx, "", q)
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = s.PresentQuestion(ctx, "attempt-1", &models.Question{Type: models.Ordering})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = s.PresentQuestion(ctx, "attempt-1", &models.Question{ID: "q", Type: models.Ordering, Options: datatypes.JSON(`{"a":1}`)})
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestGradingService_EvaluateAnswer(t *testing.T) {
	s := newTestService(nil, nil, nil)
	ctx := context.Background()

	t.Run("ordering by content", func(t *testing.T) {
		q := &quizQuestions()[2]
		result := s.EvaluateAnswer(ctx, "attempt-1", q, json.RawMessage(`["A","B","C","D"]`))
		assert.Equal(t, models.StatusGraded, result.Status)
		assert.True(t, result.IsCorrect)
		assert.Equal(t, 2.0, result.PointsAwarded)
	})

	t.Run("malformed options are ungraded", func(t *testing.T) {
		q := &models.Question{ID: "q", Type: models.Ordering, Options: datatypes.JSON(`{"a":1}`), Points: 4}
		result := s.EvaluateAnswer(ctx, "attempt-1", q, json.RawMessage(`["a"]`))
		assert.Equal(t, models.StatusUngraded, result.Status)
		assert.Equal(t, 4, result.PointsPossible)
		assert.NotEmpty(t, result.Error)
	})

	t.Run("unanswered", func(t *testing.T) {
		q := &quizQuestions()[0]
		result := s.EvaluateAnswer(ctx, "attempt-1", q, nil)
		assert.Equal(t, models.StatusUnanswered, result.Status)
		assert.Equal(t, 0.0, result.PointsAwarded)
	})
}

func TestGradingService_GradeAttempt_WritesGradebook(t *testing.T) {
	dir := t.TempDir()
	s := newTestService(nil, nil, events.NewMockEventPublisher(testLogger()))
	s.config.GradebookDir = dir
	questions := quizQuestions()

	_, err := s.GradeAttempt(context.Background(), questions, quizAttempt(t, s, "attempt-1", questions))
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, "attempt-1.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.QuestionsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, len(questions)+1)
}

func TestExportGradebook(t *testing.T) {
	s := newTestService(nil, nil, events.NewMockEventPublisher(testLogger()))
	questions := quizQuestions()

	var results []*AttemptGradingResult
	for _, id := range []string{"attempt-1", "attempt-2"} {
		result, err := s.GradeAttempt(context.Background(), questions, quizAttempt(t, s, id, questions))
		require.NoError(t, err)
		results = append(results, result)
	}

	data, err := ExportGradebook(results...)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(export.SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "attempt-2", summary[2][0])
	assert.Equal(t, "88", summary[2][6])
	assert.Equal(t, "Pass", summary[2][8])

	rows, err := f.GetRows(export.QuestionsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2*len(questions)+1)
}
