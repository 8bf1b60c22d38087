// Package exports renders survey responses as CSV and publishes them to object storage.
package exports

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/surveychain/backend/internal/models"
)

// BuildCSV renders one row per response with a column per question, in question order.
// Answers to unknown questions are dropped.
func BuildCSV(s *models.Survey) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"response_id", "responder", "submitted_at"}
	for _, q := range s.Questions {
		header = append(header, q.Text)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range s.Responses {
		byQuestion := make(map[string]string, len(r.Answers))
		for _, a := range r.Answers {
			byQuestion[a.QuestionID] = a.Value.String()
		}
		row := []string{r.ID, r.Responder, r.Timestamp.UTC().Format(time.RFC3339)}
		for _, q := range s.Questions {
			row = append(row, byQuestion[q.ID])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
