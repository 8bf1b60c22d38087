package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RespondentType controls whether a survey requires screening.
type RespondentType string

const (
	RespondentPublic   RespondentType = "public"
	RespondentTargeted RespondentType = "targeted"
)

// QuestionType is the kind of input a question expects.
type QuestionType string

const (
	QuestionShortAnswer    QuestionType = "short-answer"
	QuestionLongAnswer     QuestionType = "long-answer"
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionRating         QuestionType = "rating"
	QuestionDate           QuestionType = "date"
	QuestionTime           QuestionType = "time"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionShortAnswer, QuestionLongAnswer, QuestionMultipleChoice, QuestionCheckbox,
		QuestionRating, QuestionDate, QuestionTime:
		return true
	}
	return false
}

// HasOptions reports whether answers are picked from a fixed option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionMultipleChoice || t == QuestionCheckbox
}

// ApplicantStatus is the screening state of an applicant.
type ApplicantStatus string

const (
	ApplicantPending  ApplicantStatus = "pending"
	ApplicantAccepted ApplicantStatus = "accepted"
	ApplicantRejected ApplicantStatus = "rejected"
)

// Question is one item of a survey.
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Required bool         `json:"required"`
}

// ScreeningInfo describes the screening step of a targeted survey.
type ScreeningInfo struct {
	Description        string `json:"description"`
	Requirements       string `json:"requirements"`
	DateTime           string `json:"date_time,omitempty"`
	MeetingLink        string `json:"meeting_link,omitempty"`
	Location           string `json:"location,omitempty"`
	FlexibleScheduling bool   `json:"flexible_scheduling"`
	Deadline           string `json:"deadline,omitempty"`
}

// Applicant is a screening application from one address.
type Applicant struct {
	Address      string          `json:"address"`
	Status       ApplicantStatus `json:"status"`
	AppliedAt    time.Time       `json:"applied_at"`
	Message      string          `json:"message,omitempty"`
	SelectedSlot string          `json:"selected_slot,omitempty"`
}

// Answer is the value given to one question.
type Answer struct {
	QuestionID string      `json:"question_id"`
	Value      AnswerValue `json:"value"`
}

// Response is one responder's submission.
type Response struct {
	ID        string    `json:"id"`
	SurveyID  string    `json:"survey_id"`
	Responder string    `json:"responder"`
	Answers   []Answer  `json:"answers"`
	Timestamp time.Time `json:"timestamp"`
}

// Survey is the aggregate root tracked by the ledger.
type Survey struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Creator             string          `json:"creator"`
	Reward              decimal.Decimal `json:"reward"`
	RespondentType      RespondentType  `json:"respondent_type"`
	Questions           []Question      `json:"questions"`
	Responses           []Response      `json:"responses"`
	Finalized           bool            `json:"finalized"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	NumberOfRespondents *int            `json:"number_of_respondents,omitempty"`
	ScreeningInfo       *ScreeningInfo  `json:"screening_info,omitempty"`
	Applicants          []Applicant     `json:"applicants"`
	AcceptedRespondents []string        `json:"accepted_respondents"`
	OpenedEarly         bool            `json:"opened_early"`
	Version             int64           `json:"version"`
}

// RequiresScreening reports whether responders must be accepted first.
func (s *Survey) RequiresScreening() bool {
	return s.RespondentType == RespondentTargeted
}

// Applicant returns the applicant record for a canonical address.
func (s *Survey) Applicant(address string) *Applicant {
	for i := range s.Applicants {
		if s.Applicants[i].Address == address {
			return &s.Applicants[i]
		}
	}
	return nil
}

// HasResponded reports whether a canonical address already submitted a response.
func (s *Survey) HasResponded(address string) bool {
	for _, r := range s.Responses {
		if r.Responder == address {
			return true
		}
	}
	return false
}

// IsAccepted reports whether a canonical address is an accepted respondent.
func (s *Survey) IsAccepted(address string) bool {
	for _, a := range s.AcceptedRespondents {
		if a == address {
			return true
		}
	}
	return false
}

// TargetReached reports whether a respondent target is set and met by accepted respondents.
func (s *Survey) TargetReached() bool {
	return s.NumberOfRespondents != nil && *s.NumberOfRespondents > 0 &&
		len(s.AcceptedRespondents) >= *s.NumberOfRespondents
}

// IsOpen reports whether accepted respondents may answer a targeted survey.
func (s *Survey) IsOpen() bool {
	return s.OpenedEarly || s.TargetReached()
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (s *Survey) Clone() *Survey {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		cp.Questions[i] = q
	}
	cp.Responses = make([]Response, len(s.Responses))
	for i, r := range s.Responses {
		r.Answers = cloneAnswers(r.Answers)
		cp.Responses[i] = r
	}
	cp.Applicants = append(make([]Applicant, 0, len(s.Applicants)), s.Applicants...)
	cp.AcceptedRespondents = append(make([]string, 0, len(s.AcceptedRespondents)), s.AcceptedRespondents...)
	if s.NumberOfRespondents != nil {
		n := *s.NumberOfRespondents
		cp.NumberOfRespondents = &n
	}
	if s.ScreeningInfo != nil {
		info := *s.ScreeningInfo
		cp.ScreeningInfo = &info
	}
	return &cp
}

func cloneAnswers(in []Answer) []Answer {
	out := make([]Answer, len(in))
	for i, a := range in {
		a.Value = a.Value.clone()
		out[i] = a
	}
	return out
}
