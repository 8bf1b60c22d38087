package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/surveychain/backend/internal/models"
)

// RewardPerResponse is the survey reward split evenly across responses, or the full reward
// when nobody has responded yet. It is never stored.
func RewardPerResponse(s *models.Survey) decimal.Decimal {
	n := len(s.Responses)
	if n == 0 {
		return s.Reward
	}
	return s.Reward.Div(decimal.NewFromInt(int64(n)))
}

// CompletionRate is responses as a percentage of the respondent target; 0 without a target.
func CompletionRate(s *models.Survey) float64 {
	if s.NumberOfRespondents == nil || *s.NumberOfRespondents <= 0 {
		return 0
	}
	return float64(len(s.Responses)) / float64(*s.NumberOfRespondents) * 100
}

// Payout is the share owed to one responder.
type Payout struct {
	Responder string          `json:"responder"`
	Amount    decimal.Decimal `json:"amount"`
}

// Payouts lists what each responder receives when the survey is settled.
func Payouts(s *models.Survey) []Payout {
	share := RewardPerResponse(s)
	out := make([]Payout, 0, len(s.Responses))
	for _, r := range s.Responses {
		out = append(out, Payout{Responder: r.Responder, Amount: share})
	}
	return out
}

// Summary is the creator's view of a single survey.
type Summary struct {
	SurveyID            string          `json:"survey_id"`
	Responses           int             `json:"responses"`
	NumberOfRespondents *int            `json:"number_of_respondents,omitempty"`
	CompletionRate      float64         `json:"completion_rate"`
	Reward              decimal.Decimal `json:"reward"`
	RewardPerResponse   decimal.Decimal `json:"reward_per_response"`
	Applicants          int             `json:"applicants"`
	Pending             int             `json:"pending"`
	Accepted            int             `json:"accepted"`
	Rejected            int             `json:"rejected"`
	Open                bool            `json:"open"`
	Finalized           bool            `json:"finalized"`
}

// Summarize computes the per-survey summary.
func Summarize(s *models.Survey) Summary {
	sum := Summary{
		SurveyID:            s.ID,
		Responses:           len(s.Responses),
		NumberOfRespondents: s.NumberOfRespondents,
		CompletionRate:      CompletionRate(s),
		Reward:              s.Reward,
		RewardPerResponse:   RewardPerResponse(s),
		Applicants:          len(s.Applicants),
		Open:                !s.RequiresScreening() || s.IsOpen(),
		Finalized:           s.Finalized,
	}
	for _, a := range s.Applicants {
		switch a.Status {
		case models.ApplicantPending:
			sum.Pending++
		case models.ApplicantAccepted:
			sum.Accepted++
		case models.ApplicantRejected:
			sum.Rejected++
		}
	}
	return sum
}

// Dashboard aggregates an address's activity across surveys.
type Dashboard struct {
	SurveysCreated   int             `json:"surveys_created"`
	ActiveSurveys    int             `json:"active_surveys"`
	FinalizedSurveys int             `json:"finalized_surveys"`
	TotalResponses   int             `json:"total_responses"`
	RewardsDeposited decimal.Decimal `json:"rewards_deposited"`
	SurveysAnswered  int             `json:"surveys_answered"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
	SurveysApplied   int             `json:"surveys_applied"`
}

// BuildDashboard computes dashboard totals from the address's created, answered and applied surveys.
func BuildDashboard(created, answered, applied []*models.Survey) Dashboard {
	d := Dashboard{
		SurveysCreated:   len(created),
		RewardsDeposited: decimal.Zero,
		SurveysAnswered:  len(answered),
		TotalEarned:      decimal.Zero,
		SurveysApplied:   len(applied),
	}
	for _, s := range created {
		d.TotalResponses += len(s.Responses)
		d.RewardsDeposited = d.RewardsDeposited.Add(s.Reward)
		if s.Finalized {
			d.FinalizedSurveys++
		} else {
			d.ActiveSurveys++
		}
	}
	for _, s := range answered {
		if s.Finalized {
			d.TotalEarned = d.TotalEarned.Add(RewardPerResponse(s))
		}
	}
	return d
}

// Dashboard loads and aggregates the dashboard for addr.
func (l *Ledger) Dashboard(ctx context.Context, addr string) (Dashboard, error) {
	created, err := l.GetSurveysByCreator(ctx, addr)
	if err != nil {
		return Dashboard{}, err
	}
	answered, err := l.GetSurveysByResponder(ctx, addr)
	if err != nil {
		return Dashboard{}, err
	}
	applied, err := l.GetSurveysByApplicant(ctx, addr)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(created, answered, applied), nil
}
