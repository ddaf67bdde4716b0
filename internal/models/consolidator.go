package models

import (
	"github.com/spf13/cast"
)

// ConsolidationKey returns the display grouping key of n. Follows are grouped
// together unless the list is already filtered to follows, reactions are
// grouped per target post, everything else stands alone.
func ConsolidationKey(n Notification, selected NotificationType) string {
	switch n.Type {
	case NotificationFollow:
		if selected != NotificationFollow {
			return string(NotificationFollow)
		}
	case NotificationReblog, NotificationFavourite:
		return string(n.Type) + "-" + n.StatusID
	}
	return n.ID
}

func IsConsolidable(n Notification, selected NotificationType) bool {
	return ConsolidationKey(n, selected) != n.ID
}

// ConsolidatedNotification is a display group built from raw notifications.
// Notifications keep the newest-first order of the input.
type ConsolidatedNotification struct {
	Key           string           `json:"key"`
	Type          NotificationType `json:"type"`
	StatusID      string           `json:"status_id,omitempty"`
	Notifications []Notification   `json:"notifications"`
	Accounts      []string         `json:"accounts"`
}

// DisplayCount is the number of distinct accounts involved, or 1.
func (c ConsolidatedNotification) DisplayCount() int {
	if len(c.Accounts) == 0 {
		return 1
	}
	return len(c.Accounts)
}

func (c ConsolidatedNotification) MostRecent() Notification {
	if len(c.Notifications) == 0 {
		return Notification{}
	}
	best := c.Notifications[0]
	for _, n := range c.Notifications[1:] {
		if n.CreatedAt.After(best.CreatedAt) {
			best = n
		}
	}
	return best
}

// Group converts the display group into an aggregate. A server-issued group
// key on the most recent notification wins over the local key.
func (c ConsolidatedNotification) Group() NotificationGroup {
	recent := c.MostRecent()
	key := c.Key
	if recent.GroupKey != "" {
		key = recent.GroupKey
	}
	return NotificationGroup{
		GroupKey:        key,
		Type:            c.Type,
		Count:           c.DisplayCount(),
		MostRecentID:    cast.ToInt64(recent.ID),
		MostRecentAt:    recent.CreatedAt,
		RelatedStatusID: c.StatusID,
	}
}

// Consolidate groups notifications by ConsolidationKey in order of first
// appearance.
func Consolidate(notifications []Notification, selected NotificationType) []ConsolidatedNotification {
	var out []ConsolidatedNotification
	index := make(map[string]int)
	accounts := make(map[string]map[string]struct{})
	for _, n := range notifications {
		if selected != "" && n.Type != selected {
			continue
		}
		key := ConsolidationKey(n, selected)
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, ConsolidatedNotification{Key: key, Type: n.Type, StatusID: n.StatusID})
			accounts[key] = make(map[string]struct{})
		}
		group := &out[pos]
		group.Notifications = append(group.Notifications, n)
		if n.AccountID == "" {
			continue
		}
		if _, seen := accounts[key][n.AccountID]; !seen {
			accounts[key][n.AccountID] = struct{}{}
			group.Accounts = append(group.Accounts, n.AccountID)
		}
	}
	return out
}

// Groups consolidates and converts in one pass.
func Groups(notifications []Notification, selected NotificationType) []NotificationGroup {
	consolidated := Consolidate(notifications, selected)
	out := make([]NotificationGroup, 0, len(consolidated))
	for _, c := range consolidated {
		out = append(out, c.Group())
	}
	return out
}
