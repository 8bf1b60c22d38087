package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/surveychain/backend/internal/models"
)

const (
	minTitleLen       = 3
	maxTitleLen       = 100
	minDescriptionLen = 10
	maxDescriptionLen = 500
	minChoiceOptions  = 2
)

// CreateSurveyInput carries the fields of a new survey.
type CreateSurveyInput struct {
	Title               string
	Description         string
	Questions           []models.Question
	Reward              decimal.Decimal
	Creator             string
	RespondentType      models.RespondentType
	NumberOfRespondents *int
	ScreeningInfo       *models.ScreeningInfo
}

// Validate checks the shape of the input.
func (in CreateSurveyInput) Validate() error {
	if normalize(in.Creator) == "" {
		return ErrMissingIdentity
	}
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if !in.Reward.IsPositive() {
		return invalid("reward must be a positive number")
	}
	switch in.RespondentType {
	case "", models.RespondentPublic, models.RespondentTargeted:
	default:
		return invalid(fmt.Sprintf("unknown respondent type %q", in.RespondentType))
	}
	if in.NumberOfRespondents != nil && *in.NumberOfRespondents < 1 {
		return invalid("number of respondents must be at least 1")
	}
	return validateQuestions(in.Questions)
}

// SurveyUpdate is a partial metadata update; nil fields are left unchanged.
type SurveyUpdate struct {
	Title         *string
	Description   *string
	Questions     []models.Question
	ScreeningInfo *models.ScreeningInfo
}

// Validate checks the fields that are set.
func (u SurveyUpdate) Validate() error {
	if u.Title != nil {
		if err := validateTitle(*u.Title); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := validateDescription(*u.Description); err != nil {
			return err
		}
	}
	if u.Questions != nil {
		return validateQuestions(u.Questions)
	}
	return nil
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < minTitleLen {
		return invalid(fmt.Sprintf("title must be at least %d characters", minTitleLen))
	}
	if n > maxTitleLen {
		return invalid(fmt.Sprintf("title must be less than %d characters", maxTitleLen))
	}
	return nil
}

func validateDescription(desc string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(desc))
	if n < minDescriptionLen {
		return invalid(fmt.Sprintf("description must be at least %d characters", minDescriptionLen))
	}
	if n > maxDescriptionLen {
		return invalid(fmt.Sprintf("description must be less than %d characters", maxDescriptionLen))
	}
	return nil
}

func validateQuestions(questions []models.Question) error {
	if len(questions) == 0 {
		return invalid("at least one question is required")
	}
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return invalid(fmt.Sprintf("question %d: text is required", i+1))
		}
		if !q.Type.Valid() {
			return invalid(fmt.Sprintf("question %d: unknown type %q", i+1, q.Type))
		}
		if q.Type.HasOptions() {
			if len(q.Options) < minChoiceOptions {
				return invalid(fmt.Sprintf("question %d: multiple choice and checkbox questions must have at least %d options", i+1, minChoiceOptions))
			}
			for _, opt := range q.Options {
				if strings.TrimSpace(opt) == "" {
					return invalid(fmt.Sprintf("question %d: all options must have text", i+1))
				}
			}
		}
		if q.ID != "" {
			if _, dup := seen[q.ID]; dup {
				return invalid(fmt.Sprintf("question %d: duplicate id %q", i+1, q.ID))
			}
			seen[q.ID] = struct{}{}
		}
	}
	return nil
}
