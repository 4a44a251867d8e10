package models

import (
	"time"

	"gorm.io/gorm"
)

// RequestStatus defines the state of a friend request entry.
type RequestStatus string

const (
	// RequestPending means the request has been sent but not yet answered.
	RequestPending RequestStatus = "pending"

	// RequestAccepted means the request was accepted and the users are friends.
	// Rejected and cancelled requests are removed outright rather than kept
	// under a status; removal is what allows a later resend.
	RequestAccepted RequestStatus = "accepted"
)

// FriendRequestEntry is one half of a mirrored friend request. The sender
// keeps an entry in SentRequests and the recipient keeps the mirror in
// ReceivedRequests; both halves share the same ID. UserID is always the
// counterpart: the target on the sent side, the source on the received side.
type FriendRequestEntry struct {
	ID        string        `json:"id"`
	UserID    uint          `json:"user_id"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// User represents a user in the system. Relationship state (the friends set
// and the two request lists) is embedded in the user's own row as JSON
// columns, so a single Save commits one user's entire view of their
// relationships atomically. Cross-user consistency is the friendship
// service's job.
type User struct {
	gorm.Model
	Nickname     string   `gorm:"size:255;unique;not null"`
	Email        string   `gorm:"size:255;unique;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Bio          string   `gorm:"type:text"`
	Skills       []string `gorm:"serializer:json"`

	Friends          []uint               `gorm:"serializer:json"`
	SentRequests     []FriendRequestEntry `gorm:"serializer:json"`
	ReceivedRequests []FriendRequestEntry `gorm:"serializer:json"`
}

// IsFriend reports whether the given user is in the friends set.
func (u *User) IsFriend(id uint) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// AddFriend adds the given user to the friends set if not already present.
func (u *User) AddFriend(id uint) {
	if !u.IsFriend(id) {
		u.Friends = append(u.Friends, id)
	}
}

// RemoveFriend removes the given user from the friends set.
func (u *User) RemoveFriend(id uint) {
	for i, f := range u.Friends {
		if f == id {
			u.Friends = append(u.Friends[:i], u.Friends[i+1:]...)
			return
		}
	}
}

// PendingSentTo returns the index of the pending sent request targeting the
// given user, or -1.
func (u *User) PendingSentTo(id uint) int {
	return pendingIndex(u.SentRequests, id)
}

// PendingReceivedFrom returns the index of the pending received request from
// the given user, or -1.
func (u *User) PendingReceivedFrom(id uint) int {
	return pendingIndex(u.ReceivedRequests, id)
}

func pendingIndex(entries []FriendRequestEntry, userID uint) int {
	for i, e := range entries {
		if e.UserID == userID && e.Status == RequestPending {
			return i
		}
	}
	return -1
}

// PurgeRequestsWith removes every request entry, sent or received, pending or
// not, that involves the given user. Reports whether anything was removed.
func (u *User) PurgeRequestsWith(id uint) bool {
	var changed bool
	u.SentRequests, changed = removeByUser(u.SentRequests, id, changed)
	u.ReceivedRequests, changed = removeByUser(u.ReceivedRequests, id, changed)
	return changed
}

func removeByUser(entries []FriendRequestEntry, userID uint, changed bool) ([]FriendRequestEntry, bool) {
	out := entries[:0]
	for _, e := range entries {
		if e.UserID == userID {
			changed = true
			continue
		}
		out = append(out, e)
	}
	return out, changed
}
