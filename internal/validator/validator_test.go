package validator

import (
	"testing"

	apperrors "github.com/SAP-F-2025/exam-session-service/internal/errors"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startRequest struct {
	SessionType   models.SessionType `json:"session_type" validate:"required,session_type"`
	SelectedParts []int              `json:"selected_parts" validate:"required_if=SessionType practice,omitempty,max=7,unique_parts,dive,part_number"`
}

type answer struct {
	Choice models.AnswerChoice `json:"selected_answer" validate:"answer_choice"`
}

type answerBatch struct {
	Answers []answer `json:"answers" validate:"required,dive"`
}

type scoreRow struct {
	Section models.ScoreSection  `json:"section" validate:"score_section"`
	Status  models.SessionStatus `json:"status" validate:"omitempty,session_status"`
}

func TestValidate_CustomTags(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(startRequest{SessionType: models.SessionPractice, SelectedParts: []int{1, 5}}))
	assert.NoError(t, v.Validate(startRequest{SessionType: models.SessionFullTest}))

	cases := map[string]interface{}{
		"unknown session type": startRequest{SessionType: "mock-exam"},
		"practice needs parts": startRequest{SessionType: models.SessionPractice},
		"part out of range":    startRequest{SessionType: models.SessionPractice, SelectedParts: []int{0}},
		"duplicate parts":      startRequest{SessionType: models.SessionPractice, SelectedParts: []int{2, 2}},
		"bad answer choice":    answerBatch{Answers: []answer{{Choice: "Z"}}},
		"bad score section":    scoreRow{Section: "speaking"},
		"bad status":           scoreRow{Section: models.SectionReading, Status: "archived"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			err := v.Validate(input)
			require.Error(t, err)
			var errs apperrors.ValidationErrors
			assert.ErrorAs(t, err, &errs)
			assert.NotEmpty(t, errs)
		})
	}
}

func TestValidate_UsesJSONFieldPaths(t *testing.T) {
	err := New().Validate(answerBatch{Answers: []answer{{Choice: models.ChoiceA}, {Choice: "Q"}}})

	var errs apperrors.ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "answers[1].selected_answer", errs[0].Field)
	assert.Equal(t, "answer_choice", errs[0].Rule)
	assert.True(t, errs.Has("answers[1].selected_answer"))
}

func TestValidate_EmptyChoiceIsAllowed(t *testing.T) {
	assert.NoError(t, New().Validate(answerBatch{Answers: []answer{{Choice: models.ChoiceNone}}}))
}
