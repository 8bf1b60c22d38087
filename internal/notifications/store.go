// Package notifications stores per-address notifications and delivers the events emitted by the ledger.
package notifications

import (
	"context"
	"errors"
	"sort"

	"github.com/surveychain/backend/internal/models"
)

// ErrNotFound is returned when a notification does not exist for the user.
var ErrNotFound = errors.New("notification not found")

// Store persists notifications keyed by recipient address.
type Store interface {
	Add(ctx context.Context, n models.Notification) error
	// ListByUser returns the user's notifications, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	ClearForUser(ctx context.Context, userID string) error
}

func sortNewestFirst(list []models.Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].ID > list[j].ID
		}
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}

// UnreadCount counts unread notifications in list.
func UnreadCount(list []models.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
