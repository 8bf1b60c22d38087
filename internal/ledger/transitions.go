package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/surveychain/backend/internal/models"
)

// The functions below are the survey state machine. Each one checks its preconditions before
// touching s and returns the notifications the transition emits. Addresses are canonical.

func applyForScreening(s *models.Survey, applicant, message, slot string, now time.Time) ([]models.NotificationEvent, error) {
	if s.Finalized {
		return nil, ErrAlreadyFinalized
	}
	if !s.RequiresScreening() {
		return nil, ErrScreeningNotRequired
	}
	if s.Applicant(applicant) != nil {
		return nil, ErrAlreadyApplied
	}

	s.Applicants = append(s.Applicants, models.Applicant{
		Address:      applicant,
		Status:       models.ApplicantPending,
		AppliedAt:    now,
		Message:      message,
		SelectedSlot: slot,
	})
	return []models.NotificationEvent{{
		Recipient: s.Creator,
		SurveyID:  s.ID,
		Type:      models.NotificationApplicationStatus,
		Title:     "New Screening Application",
		Message:   fmt.Sprintf("Someone applied for screening on %q", s.Title),
	}}, nil
}

func acceptApplicant(s *models.Survey, applicant, caller string) ([]models.NotificationEvent, error) {
	if s.Creator != caller {
		return nil, ErrNotCreator
	}
	if s.Finalized {
		return nil, ErrAlreadyFinalized
	}
	a := s.Applicant(applicant)
	if a == nil {
		return nil, ErrApplicantNotFound
	}
	if a.Status == models.ApplicantAccepted {
		return nil, ErrAlreadyAccepted
	}

	a.Status = models.ApplicantAccepted
	if !s.IsAccepted(applicant) {
		s.AcceptedRespondents = append(s.AcceptedRespondents, applicant)
	}

	events := []models.NotificationEvent{{
		Recipient: applicant,
		SurveyID:  s.ID,
		Type:      models.NotificationApplicationStatus,
		Title:     "Application Accepted!",
		Message:   fmt.Sprintf("Your application for %q has been accepted", s.Title),
	}}
	if s.TargetReached() {
		events = append(events, models.NotificationEvent{
			Recipient: s.Creator,
			SurveyID:  s.ID,
			Type:      models.NotificationSurveyOpened,
			Title:     "Target Reached",
			Message:   fmt.Sprintf("%q has reached the target number of respondents", s.Title),
		})
	}
	return events, nil
}

func rejectApplicant(s *models.Survey, applicant, caller string) ([]models.NotificationEvent, error) {
	if s.Creator != caller {
		return nil, ErrNotCreator
	}
	if s.Finalized {
		return nil, ErrAlreadyFinalized
	}
	a := s.Applicant(applicant)
	if a == nil {
		return nil, ErrApplicantNotFound
	}
	// acceptedRespondents never shrinks, so an accepted applicant stays accepted.
	if a.Status == models.ApplicantAccepted {
		return nil, ErrAlreadyAccepted
	}

	a.Status = models.ApplicantRejected
	return []models.NotificationEvent{{
		Recipient: applicant,
		SurveyID:  s.ID,
		Type:      models.NotificationApplicationStatus,
		Title:     "Application Update",
		Message:   fmt.Sprintf("Your application for %q was not selected this time", s.Title),
	}}, nil
}

func openSurveyEarly(s *models.Survey, caller string) ([]models.NotificationEvent, error) {
	if s.Creator != caller {
		return nil, ErrNotCreator
	}
	if s.Finalized {
		return nil, ErrAlreadyFinalized
	}

	s.OpenedEarly = true
	events := make([]models.NotificationEvent, 0, len(s.AcceptedRespondents))
	for _, addr := range s.AcceptedRespondents {
		events = append(events, models.NotificationEvent{
			Recipient: addr,
			SurveyID:  s.ID,
			Type:      models.NotificationSurveyOpened,
			Title:     "Survey Now Open!",
			Message:   fmt.Sprintf("%q is now open for responses", s.Title),
		})
	}
	return events, nil
}

func submitResponse(s *models.Survey, resp models.Response) ([]models.NotificationEvent, error) {
	if s.Finalized {
		return nil, ErrAlreadyFinalized
	}
	if s.RequiresScreening() && !CanAccessSurvey(s, resp.Responder) {
		return nil, ErrNoAccess
	}
	if s.HasResponded(resp.Responder) {
		return nil, ErrAlreadyResponded
	}

	s.Responses = append(s.Responses, resp)
	return []models.NotificationEvent{{
		Recipient: s.Creator,
		SurveyID:  s.ID,
		Type:      models.NotificationApplicationStatus,
		Title:     "New Response",
		Message:   fmt.Sprintf("Someone responded to %q", s.Title),
	}}, nil
}

func finalizeSurvey(s *models.Survey, caller string) ([]models.NotificationEvent, error) {
	if s.Creator != caller {
		return nil, ErrNotCreator
	}
	if s.Finalized {
		return nil, ErrAlreadyFinalized
	}
	if len(s.Responses) == 0 {
		return nil, ErrNoResponses
	}

	s.Finalized = true
	events := make([]models.NotificationEvent, 0, len(s.Responses))
	for _, r := range s.Responses {
		events = append(events, models.NotificationEvent{
			Recipient: r.Responder,
			SurveyID:  s.ID,
			Type:      models.NotificationSurveyClosed,
			Title:     "Rewards Distributed!",
			Message:   fmt.Sprintf("%q has been finalized and your reward has been distributed", s.Title),
		})
	}
	return events, nil
}

func updateMetadata(s *models.Survey, caller string, u SurveyUpdate) error {
	if s.Creator != caller {
		return ErrNotCreator
	}
	if s.Finalized {
		return ErrAlreadyFinalized
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Title != nil {
		s.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		s.Description = strings.TrimSpace(*u.Description)
	}
	if u.Questions != nil {
		s.Questions = append([]models.Question(nil), u.Questions...)
	}
	if u.ScreeningInfo != nil {
		info := *u.ScreeningInfo
		s.ScreeningInfo = &info
	}
	return nil
}

// CanAccessSurvey reports whether user may answer the survey. It never mutates s.
func CanAccessSurvey(s *models.Survey, user string) bool {
	user = normalize(user)
	if s == nil || user == "" {
		return false
	}
	if !s.RequiresScreening() {
		return true
	}
	if s.Creator == user {
		return true
	}
	return s.IsAccepted(user) && s.IsOpen()
}
