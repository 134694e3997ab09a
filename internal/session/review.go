package session

import (
	"strings"

	"assessment-session/internal/domain"
)

// Project resolves a scoring report against the loaded definition. Score,
// percentage and verdict are copied from the report as-is; only option ids are
// turned into display text. Ids missing from the definition get a synthetic
// "Option <id>" label.
func Project(a domain.Assessment, report domain.ScoreReport) domain.AssessmentResult {
	review := make([]domain.ReviewEntry, 0, len(report.QuestionResults))
	for _, qr := range report.QuestionResults {
		q, found := a.Question(qr.QuestionID)
		labels := optionLabels(q)

		text := qr.QuestionText
		if text == "" && found {
			text = q.Text
		}
		review = append(review, domain.ReviewEntry{
			QuestionID:         qr.QuestionID,
			QuestionText:       text,
			UserAnswerText:     joinLabels(labels, qr.UserAnswer),
			CorrectOptionsText: joinLabels(labels, qr.CorrectOptions),
			IsCorrect:          qr.IsCorrect,
		})
	}

	return domain.AssessmentResult{
		AssessmentID:   a.ID,
		Title:          a.Title,
		Score:          report.Score,
		TotalQuestions: report.TotalQuestions,
		Percentage:     report.Percentage,
		Passed:         report.Passed,
		Review:         review,
	}
}

// optionLabels indexes option text by id. Options without text are skipped.
func optionLabels(q domain.Question) map[domain.ID]string {
	labels := make(map[domain.ID]string, len(q.Options))
	for _, opt := range q.Options {
		if opt.Text == "" {
			continue
		}
		labels[opt.ID] = opt.Text
	}
	return labels
}

func joinLabels(labels map[domain.ID]string, ids []domain.ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if text, ok := labels[id]; ok {
			parts = append(parts, text)
			continue
		}
		parts = append(parts, "Option "+id.String())
	}
	return strings.Join(parts, ", ")
}
