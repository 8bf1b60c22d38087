package ledger

import (
	"context"

	"github.com/surveychain/backend/internal/models"
)

// UpdateFunc mutates a private copy of a survey. Returning an error discards the copy.
type UpdateFunc func(s *models.Survey) error

// Store persists surveys. Implementations must make Update atomic per survey id: concurrent
// Update calls for the same id are serialized, and a failing fn leaves the stored survey untouched.
// Update bumps Version and UpdatedAt on commit.
type Store interface {
	Insert(ctx context.Context, s *models.Survey) error
	Get(ctx context.Context, id string) (*models.Survey, error)
	List(ctx context.Context) ([]*models.Survey, error)
	ListByCreator(ctx context.Context, creator string) ([]*models.Survey, error)
	ListByResponder(ctx context.Context, responder string) ([]*models.Survey, error)
	ListByApplicant(ctx context.Context, applicant string) ([]*models.Survey, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*models.Survey, error)
}

// Dispatcher delivers notification events emitted by committed transitions.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []models.NotificationEvent) error
}

// ChangePublisher is told about every committed survey change.
type ChangePublisher interface {
	PublishSurveyChange(surveyID string, version int64, action string)
}
