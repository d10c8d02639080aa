package services

import (
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// IncomingAnswer is one answer as reported by the client.
type IncomingAnswer struct {
	QuestionID       uint
	SelectedAnswer   models.AnswerChoice
	TimeSpentSeconds int
	IsFlagged        bool
}

// MergeAnswers upserts answers into the ledger keyed by question id.
//
// Correctness is fixed here from the catalog's answer key. An existing record keeps
// its position and accumulates TimeSpentSeconds; all other fields are replaced.
// Answers for questions missing from inScope are skipped and their ids returned.
func MergeAnswers(ledger *models.AnswerLedger, answers []IncomingAnswer, inScope map[uint]*models.Question, now time.Time) []uint {
	index := make(map[uint]int, len(ledger.Answers))
	for i, r := range ledger.Answers {
		index[r.QuestionID] = i
	}

	var dropped []uint
	for _, a := range answers {
		question, ok := inScope[a.QuestionID]
		if !ok {
			dropped = append(dropped, a.QuestionID)
			continue
		}

		record := models.AnswerRecord{
			QuestionID:           question.ID,
			PartNumber:           question.PartNumber,
			QuestionNumber:       question.QuestionNumber,
			GlobalQuestionNumber: question.GlobalQuestionNumber,
			SelectedAnswer:       a.SelectedAnswer,
			IsCorrect:            a.SelectedAnswer != models.ChoiceNone && a.SelectedAnswer == question.CorrectAnswer,
			IsSkipped:            a.SelectedAnswer == models.ChoiceNone,
			IsFlagged:            a.IsFlagged,
			TimeSpentSeconds:     a.TimeSpentSeconds,
			AnsweredAt:           timePtr(now),
		}

		if i, exists := index[a.QuestionID]; exists {
			record.TimeSpentSeconds += ledger.Answers[i].TimeSpentSeconds
			ledger.Answers[i] = record
			continue
		}
		index[a.QuestionID] = len(ledger.Answers)
		ledger.Answers = append(ledger.Answers, record)
	}
	return dropped
}

// BackfillSkipped adds a skipped record for every in-scope question without one
// and returns how many were added.
func BackfillSkipped(ledger *models.AnswerLedger, questions []*models.Question) int {
	present := make(map[uint]struct{}, len(ledger.Answers))
	for _, r := range ledger.Answers {
		present[r.QuestionID] = struct{}{}
	}

	added := 0
	for _, q := range questions {
		if _, ok := present[q.ID]; ok {
			continue
		}
		ledger.Answers = append(ledger.Answers, models.AnswerRecord{
			QuestionID:           q.ID,
			PartNumber:           q.PartNumber,
			QuestionNumber:       q.QuestionNumber,
			GlobalQuestionNumber: q.GlobalQuestionNumber,
			SelectedAnswer:       models.ChoiceNone,
			IsSkipped:            true,
		})
		present[q.ID] = struct{}{}
		added++
	}

	sort.SliceStable(ledger.Answers, func(i, j int) bool {
		return ledger.Answers[i].GlobalQuestionNumber < ledger.Answers[j].GlobalQuestionNumber
	})
	return added
}

func questionIndex(questions []*models.Question) map[uint]*models.Question {
	index := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}
	return index
}
