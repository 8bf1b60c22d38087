package ledger

import "errors"

// Kind classifies ledger failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindConflict
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindDomain:
		return "domain"
	}
	return "unknown"
}

// Error is a ledger failure with a kind and a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches any *Error of the same kind with an empty message (the kind sentinels),
// or an identical error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// Kind sentinels, for errors.Is checks by category.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrDomain       = &Error{Kind: KindDomain}
)

var (
	ErrSurveyNotFound    = &Error{Kind: KindNotFound, Msg: "survey not found"}
	ErrApplicantNotFound = &Error{Kind: KindNotFound, Msg: "applicant not found"}

	ErrNotCreator = &Error{Kind: KindUnauthorized, Msg: "only the creator can perform this action"}
	ErrNoAccess   = &Error{Kind: KindUnauthorized, Msg: "you do not have access to this survey"}

	ErrAlreadyApplied   = &Error{Kind: KindConflict, Msg: "you have already applied for this survey"}
	ErrAlreadyAccepted  = &Error{Kind: KindConflict, Msg: "applicant already accepted"}
	ErrAlreadyResponded = &Error{Kind: KindConflict, Msg: "you have already responded to this survey"}
	ErrAlreadyFinalized = &Error{Kind: KindConflict, Msg: "survey is already finalized"}

	ErrNoResponses          = &Error{Kind: KindDomain, Msg: "cannot finalize survey with no responses"}
	ErrScreeningNotRequired = &Error{Kind: KindDomain, Msg: "this survey does not require screening"}
	ErrMissingIdentity      = &Error{Kind: KindDomain, Msg: "address is required"}
)

func invalid(msg string) error {
	return &Error{Kind: KindDomain, Msg: msg}
}

// KindOf returns the ledger kind of err, or 0 when err is not a ledger error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
