package units_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/units"
)

func TestAnswerQuestionClassifies(t *testing.T) {
	h := newHarness(t)
	qa := units.NewQA(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	cases := []struct {
		question   string
		kind       string
		answerHas  string
		confidence string
	}{
		{
			question:   "Are you authorized to work in the United States?",
			kind:       "work_authorization",
			answerHas:  "authorized to work",
			confidence: "high",
		},
		{
			question:   "What are your salary expectations?",
			kind:       "salary_expectation",
			answerHas:  "$120,000 - $160,000",
			confidence: "high",
		},
		{
			question:   "How many years of experience do you have?",
			kind:       "experience_years",
			answerHas:  "4 years",
			confidence: "high",
		},
		{
			question:   "Why are you interested in this position?",
			kind:       "why_interested",
			answerHas:  "Software Engineer role at Acme",
			confidence: "medium",
		},
		{
			question:   "What are your greatest strengths?",
			kind:       "strengths",
			answerHas:  "python, go, sql",
			confidence: "high",
		},
		{
			question:   "Describe a favorite book you read recently.",
			kind:       "generic",
			answerHas:  "happy to discuss",
			confidence: "low",
		},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			result := perform(t, qa, agent.Task{
				"op":         "answer_question",
				"owner_id":   "owner-1",
				"posting_id": posting.ID,
				"question":   tc.question,
			})
			require.False(t, result.Failed(), result.ErrorMessage())
			assert.Equal(t, tc.kind, result.Data["question_type"])
			assert.Contains(t, result.Data["answer"], tc.answerHas)
			assert.Equal(t, tc.confidence, result.Data["confidence"])
		})
	}
}

func TestAnswerQuestionWithoutProfile(t *testing.T) {
	h := newHarness(t)
	qa := units.NewQA(h.deps)

	result := perform(t, qa, agent.Task{
		"op":       "answer_question",
		"question": "What is your expected salary?",
	})
	require.False(t, result.Failed())
	assert.Equal(t, "salary_expectation", result.Data["question_type"])
	assert.Contains(t, result.Data["answer"], "flexible")
	assert.Equal(t, "medium", result.Data["confidence"])
}

func TestAnswerBatch(t *testing.T) {
	h := newHarness(t)
	qa := units.NewQA(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, qa, agent.Task{
		"op":       "answer_batch",
		"owner_id": "owner-1",
		"questions": []string{
			"When can you start?",
			"Are you open to relocation?",
			"Do you prefer remote work?",
		},
	})
	require.False(t, result.Failed())
	assert.Equal(t, 3, result.Data["total_questions"])

	answers := result.Data["answers"].([]map[string]interface{})
	require.Len(t, answers, 3)
	assert.Equal(t, "start_date", answers[0]["question_type"])
	assert.Equal(t, "relocation", answers[1]["question_type"])
	assert.Equal(t, "remote_preference", answers[2]["question_type"])
	for _, answer := range answers {
		assert.NotEmpty(t, answer["answer"])
	}
}

func TestAnswerQuestionRequiresQuestion(t *testing.T) {
	h := newHarness(t)
	qa := units.NewQA(h.deps)

	result := perform(t, qa, agent.Task{"op": "answer_question"})
	assert.True(t, result.Failed())
}
