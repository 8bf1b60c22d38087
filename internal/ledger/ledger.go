// Package ledger tracks surveys through screening, response collection and finalization.
//
// Every mutation is a read-modify-write through Store.Update, so preconditions are checked and
// state is changed atomically per survey. Notification events are handed to the Dispatcher only
// after the change is committed, and dispatch failures never fail the operation.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/identity"
	"github.com/surveychain/backend/internal/models"
)

// Change actions published to subscribers.
const (
	ActionCreated           = "created"
	ActionUpdated           = "updated"
	ActionApplied           = "applied"
	ActionApplicantAccepted = "applicant_accepted"
	ActionApplicantRejected = "applicant_rejected"
	ActionOpened            = "opened"
	ActionResponded         = "responded"
	ActionFinalized         = "finalized"
)

// Ledger is the survey lifecycle and reward settlement engine.
type Ledger struct {
	store      Store
	dispatcher Dispatcher
	publisher  ChangePublisher
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewLedger creates a ledger over store. dispatcher may be nil to drop notifications.
func NewLedger(store Store, dispatcher Dispatcher, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// SetPublisher sets the receiver of committed survey changes (e.g. the realtime hub).
func (l *Ledger) SetPublisher(p ChangePublisher) {
	l.publisher = p
}

func normalize(addr string) string {
	return identity.Normalize(addr)
}

// CreateSurvey validates the input and stores a new survey owned by in.Creator.
func (l *Ledger) CreateSurvey(ctx context.Context, in CreateSurveyInput) (*models.Survey, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := l.now()
	respondentType := in.RespondentType
	if respondentType == "" {
		respondentType = models.RespondentPublic
	}

	questions := l.prepareQuestions(in.Questions)

	s := &models.Survey{
		ID:                  l.newID(),
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		Creator:             normalize(in.Creator),
		Reward:              in.Reward,
		RespondentType:      respondentType,
		Questions:           questions,
		Responses:           []models.Response{},
		CreatedAt:           now,
		UpdatedAt:           now,
		NumberOfRespondents: in.NumberOfRespondents,
		ScreeningInfo:       in.ScreeningInfo,
		Applicants:          []models.Applicant{},
		AcceptedRespondents: []string{},
		Version:             1,
	}
	if err := l.store.Insert(ctx, s); err != nil {
		return nil, err
	}
	l.logger.Info("survey created",
		zap.String("survey_id", s.ID),
		zap.String("creator", s.Creator),
		zap.String("reward", s.Reward.String()),
		zap.String("respondent_type", string(s.RespondentType)),
	)
	l.publish(s, ActionCreated)
	return s.Clone(), nil
}

// ApplyForScreening records a pending application and notifies the creator.
func (l *Ledger) ApplyForScreening(ctx context.Context, surveyID, applicant, message, selectedSlot string) error {
	applicant = normalize(applicant)
	if applicant == "" {
		return ErrMissingIdentity
	}
	now := l.now()
	_, err := l.mutate(ctx, surveyID, ActionApplied, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return applyForScreening(s, applicant, message, selectedSlot, now)
	})
	return err
}

// AcceptApplicant accepts an applicant on behalf of the creator.
func (l *Ledger) AcceptApplicant(ctx context.Context, surveyID, applicant, caller string) error {
	applicant, caller = normalize(applicant), normalize(caller)
	_, err := l.mutate(ctx, surveyID, ActionApplicantAccepted, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return acceptApplicant(s, applicant, caller)
	})
	return err
}

// RejectApplicant rejects a pending or previously rejected applicant on behalf of the creator.
// An accepted applicant cannot be rejected and yields ErrAlreadyAccepted.
func (l *Ledger) RejectApplicant(ctx context.Context, surveyID, applicant, caller string) error {
	applicant, caller = normalize(applicant), normalize(caller)
	_, err := l.mutate(ctx, surveyID, ActionApplicantRejected, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return rejectApplicant(s, applicant, caller)
	})
	return err
}

// OpenSurveyEarly opens a targeted survey to its accepted respondents before the target is reached.
func (l *Ledger) OpenSurveyEarly(ctx context.Context, surveyID, caller string) error {
	caller = normalize(caller)
	_, err := l.mutate(ctx, surveyID, ActionOpened, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return openSurveyEarly(s, caller)
	})
	return err
}

// SubmitResponse appends the responder's answers. The number of answers is not checked here.
func (l *Ledger) SubmitResponse(ctx context.Context, surveyID, responder string, answers []models.Answer) (*models.Response, error) {
	responder = normalize(responder)
	if responder == "" {
		return nil, ErrMissingIdentity
	}
	resp := models.Response{
		ID:        l.newID(),
		SurveyID:  surveyID,
		Responder: responder,
		Answers:   append([]models.Answer{}, answers...),
		Timestamp: l.now(),
	}
	if _, err := l.mutate(ctx, surveyID, ActionResponded, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return submitResponse(s, resp)
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FinalizeSurvey closes the survey and notifies every responder that rewards were distributed.
// Value transfer itself happens outside the ledger.
func (l *Ledger) FinalizeSurvey(ctx context.Context, surveyID, caller string) (bool, error) {
	caller = normalize(caller)
	s, err := l.mutate(ctx, surveyID, ActionFinalized, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return finalizeSurvey(s, caller)
	})
	if err != nil {
		return false, err
	}
	l.logger.Info("survey finalized",
		zap.String("survey_id", s.ID),
		zap.Int("respondents", len(s.Responses)),
		zap.String("reward_per_response", RewardPerResponse(s).String()),
	)
	return true, nil
}

// UpdateSurveyMetadata applies a partial update of title, description, questions or screening info.
// Replacement questions are prepared the same way as on create.
func (l *Ledger) UpdateSurveyMetadata(ctx context.Context, surveyID, caller string, u SurveyUpdate) (*models.Survey, error) {
	caller = normalize(caller)
	if u.Questions != nil {
		u.Questions = l.prepareQuestions(u.Questions)
	}
	return l.mutate(ctx, surveyID, ActionUpdated, func(s *models.Survey) ([]models.NotificationEvent, error) {
		return nil, updateMetadata(s, caller, u)
	})
}

// GetAllSurveys returns every survey.
func (l *Ledger) GetAllSurveys(ctx context.Context) ([]*models.Survey, error) {
	return l.store.List(ctx)
}

// GetSurveyByID returns a survey or an error matching ErrNotFound.
func (l *Ledger) GetSurveyByID(ctx context.Context, id string) (*models.Survey, error) {
	return l.store.Get(ctx, id)
}

// GetSurveysByCreator returns the surveys created by addr.
func (l *Ledger) GetSurveysByCreator(ctx context.Context, addr string) ([]*models.Survey, error) {
	return l.store.ListByCreator(ctx, normalize(addr))
}

// GetSurveysByResponder returns the surveys addr has responded to.
func (l *Ledger) GetSurveysByResponder(ctx context.Context, addr string) ([]*models.Survey, error) {
	return l.store.ListByResponder(ctx, normalize(addr))
}

// GetSurveysByApplicant returns the surveys addr applied to.
func (l *Ledger) GetSurveysByApplicant(ctx context.Context, addr string) ([]*models.Survey, error) {
	return l.store.ListByApplicant(ctx, normalize(addr))
}

// prepareQuestions copies questions with trimmed text and options and an id for every question
// that has none.
func (l *Ledger) prepareQuestions(in []models.Question) []models.Question {
	out := make([]models.Question, len(in))
	for i, q := range in {
		if q.ID == "" {
			q.ID = l.newID()
		}
		q.Text = strings.TrimSpace(q.Text)
		if q.Options != nil {
			opts := make([]string, len(q.Options))
			for j, o := range q.Options {
				opts[j] = strings.TrimSpace(o)
			}
			q.Options = opts
		}
		out[i] = q
	}
	return out
}

type transition func(s *models.Survey) ([]models.NotificationEvent, error)

// mutate commits a transition and then dispatches its events and publishes the change.
func (l *Ledger) mutate(ctx context.Context, surveyID, action string, t transition) (*models.Survey, error) {
	var events []models.NotificationEvent
	s, err := l.store.Update(ctx, surveyID, func(s *models.Survey) error {
		evs, err := t(s)
		if err != nil {
			return err
		}
		events = evs
		return nil
	})
	if err != nil {
		if KindOf(err) == 0 {
			l.logger.Error("survey update failed", zap.String("survey_id", surveyID), zap.String("action", action), zap.Error(err))
		}
		return nil, err
	}
	l.logger.Debug("survey changed",
		zap.String("survey_id", s.ID),
		zap.String("action", action),
		zap.Int64("version", s.Version),
		zap.Int("events", len(events)),
	)
	l.dispatch(ctx, events)
	l.publish(s, action)
	return s, nil
}

func (l *Ledger) dispatch(ctx context.Context, events []models.NotificationEvent) {
	if l.dispatcher == nil || len(events) == 0 {
		return
	}
	if err := l.dispatcher.Dispatch(ctx, events); err != nil {
		l.logger.Warn("notification dispatch failed", zap.Int("events", len(events)), zap.Error(err))
	}
}

func (l *Ledger) publish(s *models.Survey, action string) {
	if l.publisher == nil {
		return
	}
	l.publisher.PublishSurveyChange(s.ID, s.Version, action)
}
