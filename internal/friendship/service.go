// Package friendship implements the friend relationship lifecycle: sending,
// answering, withdrawing and dissolving friend requests across two
// owner-scoped user records.
//
// Each user's record embeds their own view of the relationship (friends set
// plus mirrored sent/received request lists) and the store only offers
// atomic single-record writes, so every operation here touches two records
// without a transaction. Three disciplines keep the pair consistent:
//
//   - all operations on an unordered user pair are serialized through a
//     keyed mutex, so concurrent calls cannot interleave their reads and
//     writes;
//   - dual writes always commit the non-initiating party's record first, so
//     a crash between the writes leaves the counterpart's view ahead of the
//     initiator's, never behind;
//   - Respond and Cancel re-derive intent from whichever side survived, so
//     retrying after a partial failure completes the operation instead of
//     corrupting it.
package friendship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/im7mortal/kmutex"

	"skillswap/backend/internal/apperr"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/store"
)

// Notifier pushes in-app notifications. Satisfied by notify.Notifier.
type Notifier interface {
	Push(ctx context.Context, recipientID, fromUserID uint, typ models.NotificationType, message string)
}

// Action is the answer to a received friend request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Outcome reports how Send resolved.
type Outcome string

const (
	// OutcomePending means a new request is now waiting for the target.
	OutcomePending Outcome = "pending"

	// OutcomeConnected means the target had already requested the sender,
	// so the call was folded into an acceptance and the two are now friends.
	OutcomeConnected Outcome = "connected"
)

// SendResult is the result of a Send call.
type SendResult struct {
	Outcome   Outcome
	RequestID string
}

// Service orchestrates friend relationship transitions.
type Service struct {
	users store.UserStore
	notif Notifier
	locks *kmutex.Kmutex
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a friendship service over the given user store.
func NewService(users store.UserStore, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users: users,
		notif: notifier,
		locks: kmutex.New(),
		log:   logger,
		now:   time.Now,
	}
}

// pairKey returns the lock key for an unordered user pair.
func pairKey(a, b uint) [2]uint {
	if a > b {
		a, b = b, a
	}
	return [2]uint{a, b}
}

func (s *Service) lockPair(a, b uint) func() {
	key := pairKey(a, b)
	s.locks.Lock(key)
	return func() { s.locks.Unlock(key) }
}

func (s *Service) loadUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Newf(apperr.NotFound, "user %d not found", id)
		}
		return nil, apperr.Wrap(apperr.Internal, "load user", err)
	}
	return user, nil
}

// Send creates a pending friend request from requester to target, or, when
// the target has already requested the requester, folds the call into an
// acceptance so a simultaneous mutual request resolves to friendship no
// matter which call lands second.
func (s *Service) Send(ctx context.Context, requesterID, targetID uint) (SendResult, error) {
	if requesterID == targetID {
		return SendResult{}, apperr.New(apperr.InvalidArgument, "cannot send a friend request to yourself")
	}

	unlock := s.lockPair(requesterID, targetID)
	defer unlock()

	requester, err := s.loadUser(ctx, requesterID)
	if err != nil {
		return SendResult{}, err
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return SendResult{}, err
	}

	if requester.IsFriend(targetID) {
		return SendResult{}, apperr.New(apperr.Conflict, "already friends")
	}
	if requester.PendingSentTo(targetID) >= 0 {
		return SendResult{}, apperr.New(apperr.Conflict, "friend request already sent")
	}

	// Mutual request: the target requested us first, so this call is an
	// acceptance, not a second pending request.
	if i := requester.PendingReceivedFrom(targetID); i >= 0 {
		now := s.now()
		requester.ReceivedRequests[i].Status = models.RequestAccepted
		requester.ReceivedRequests[i].UpdatedAt = now
		if j := target.PendingSentTo(requesterID); j >= 0 {
			target.SentRequests[j].Status = models.RequestAccepted
			target.SentRequests[j].UpdatedAt = now
		}
		requester.AddFriend(targetID)
		target.AddFriend(requesterID)

		if err := s.saveBoth(ctx, target, requester); err != nil {
			return SendResult{}, err
		}

		s.notif.Push(ctx, targetID, requesterID, models.NotificationFriendAccepted,
			fmt.Sprintf("You are now connected with %s", requester.Nickname))
		s.notif.Push(ctx, requesterID, targetID, models.NotificationFriendAccepted,
			fmt.Sprintf("You are now connected with %s", target.Nickname))
		return SendResult{Outcome: OutcomeConnected, RequestID: requester.ReceivedRequests[i].ID}, nil
	}

	now := s.now()
	entry := models.FriendRequestEntry{
		ID:        uuid.NewString(),
		Status:    models.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sent := entry
	sent.UserID = targetID
	received := entry
	received.UserID = requesterID

	requester.SentRequests = append(requester.SentRequests, sent)
	target.ReceivedRequests = append(target.ReceivedRequests, received)

	if err := s.saveBoth(ctx, target, requester); err != nil {
		return SendResult{}, err
	}

	s.notif.Push(ctx, targetID, requesterID, models.NotificationFriendRequest,
		fmt.Sprintf("%s sent you a friend request", requester.Nickname))
	return SendResult{Outcome: OutcomePending, RequestID: entry.ID}, nil
}

// Respond answers a pending received request. Accepting marks both mirrored
// entries accepted and makes the pair friends; rejecting removes both
// entries outright, which is what permits a later resend. A missing mirror
// on the sender's record means an earlier partial write already cleaned it
// up, so the operation proceeds one-sided instead of failing. A sender whose
// account no longer exists resolves the entry as removed regardless of the
// action.
func (s *Service) Respond(ctx context.Context, responderID uint, requestID string, action Action) error {
	if action != ActionAccept && action != ActionReject {
		return apperr.Newf(apperr.InvalidArgument, "unknown action %q", action)
	}

	// A first unlocked read discovers the sender so the pair can be locked;
	// both records are re-read under the lock before anything is decided.
	responder, err := s.loadUser(ctx, responderID)
	if err != nil {
		return err
	}
	senderID, ok := findPendingByID(responder.ReceivedRequests, requestID)
	if !ok {
		return apperr.New(apperr.NotFound, "pending friend request not found")
	}

	unlock := s.lockPair(responderID, senderID)
	defer unlock()

	responder, err = s.loadUser(ctx, responderID)
	if err != nil {
		return err
	}
	if _, ok := findPendingByID(responder.ReceivedRequests, requestID); !ok {
		return apperr.New(apperr.NotFound, "pending friend request not found")
	}
	i := responder.PendingReceivedFrom(senderID)
	if i < 0 {
		return apperr.New(apperr.NotFound, "pending friend request not found")
	}

	sender, err := s.loadUser(ctx, senderID)
	if err != nil {
		if apperr.KindOf(err) != apperr.NotFound {
			return err
		}
		// The sender's account is gone, so there is no one to become
		// friends with; whatever the action was, the entry resolves as
		// removed.
		s.log.Info("friend request sender no longer exists, removing entry",
			"responder", responderID, "sender", senderID, "request", requestID)
		responder.ReceivedRequests = removeAt(responder.ReceivedRequests, i)
		return s.saveUser(ctx, responder)
	}

	// The mirror is looked up by counterpart, not entry ID: after a
	// partial failure the surviving side is authoritative.
	j := sender.PendingSentTo(responderID)
	if j < 0 {
		s.log.Info("friend request mirror missing, resolving one-sided",
			"responder", responderID, "sender", senderID, "request", requestID)
	}

	now := s.now()
	switch action {
	case ActionAccept:
		responder.ReceivedRequests[i].Status = models.RequestAccepted
		responder.ReceivedRequests[i].UpdatedAt = now
		responder.AddFriend(senderID)
		if j >= 0 {
			sender.SentRequests[j].Status = models.RequestAccepted
			sender.SentRequests[j].UpdatedAt = now
		}
		sender.AddFriend(responderID)
	case ActionReject:
		responder.ReceivedRequests = removeAt(responder.ReceivedRequests, i)
		if j >= 0 {
			sender.SentRequests = removeAt(sender.SentRequests, j)
		}
	}

	// The sender is the non-initiating party here; their record commits
	// first.
	if err := s.saveUser(ctx, sender); err != nil {
		return err
	}
	if err := s.saveUser(ctx, responder); err != nil {
		return err
	}

	if action == ActionAccept {
		s.notif.Push(ctx, senderID, responderID, models.NotificationFriendAccepted,
			fmt.Sprintf("%s accepted your friend request", responder.Nickname))
	} else {
		s.notif.Push(ctx, senderID, responderID, models.NotificationFriendDeclined,
			fmt.Sprintf("%s declined your friend request", responder.Nickname))
	}
	return nil
}

// Cancel withdraws a still-pending sent request. The target's side is
// consulted even when the requester's own entry is gone: the fixed write
// order means a partial Send failure can leave the target holding an entry
// the requester never recorded, and Cancel is the recovery path that clears
// it. Removal again commits the target's record first.
func (s *Service) Cancel(ctx context.Context, requesterID, targetID uint) error {
	if requesterID == targetID {
		return apperr.New(apperr.InvalidArgument, "cannot cancel a friend request to yourself")
	}

	unlock := s.lockPair(requesterID, targetID)
	defer unlock()

	requester, err := s.loadUser(ctx, requesterID)
	if err != nil {
		return err
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}

	i := requester.PendingSentTo(targetID)
	j := target.PendingReceivedFrom(requesterID)
	if i < 0 && j < 0 {
		// Fully completed or never existed; "nothing to cancel" is the
		// correct observable outcome either way.
		return apperr.New(apperr.NotFound, "no pending friend request to cancel")
	}
	if i < 0 {
		s.log.Info("recovering one-sided friend request during cancel",
			"requester", requesterID, "target", targetID)
	}

	if j >= 0 {
		target.ReceivedRequests = removeAt(target.ReceivedRequests, j)
		if err := s.saveUser(ctx, target); err != nil {
			return err
		}
	}
	if i >= 0 {
		requester.SentRequests = removeAt(requester.SentRequests, i)
		if err := s.saveUser(ctx, requester); err != nil {
			return err
		}
	}

	s.notif.Push(ctx, targetID, requesterID, models.NotificationRequestCanceled,
		fmt.Sprintf("%s cancelled their friend request", requester.Nickname))
	return nil
}

// Unfriend removes a friendship in both directions and purges any stale
// request entries left between the pair.
func (s *Service) Unfriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return apperr.New(apperr.InvalidArgument, "cannot unfriend yourself")
	}

	unlock := s.lockPair(userID, friendID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsFriend(friendID) {
		return apperr.New(apperr.InvalidState, "not friends with this user")
	}
	friend, err := s.loadUser(ctx, friendID)
	if err != nil {
		return err
	}

	user.RemoveFriend(friendID)
	friend.RemoveFriend(userID)
	user.PurgeRequestsWith(friendID)
	friend.PurgeRequestsWith(userID)

	if err := s.saveBoth(ctx, friend, user); err != nil {
		return err
	}

	s.notif.Push(ctx, friendID, userID, models.NotificationFriendRemoved,
		fmt.Sprintf("%s removed you from their friends", user.Nickname))
	return nil
}

// saveBoth commits the non-initiating party's record before the
// initiator's. The order is the recovery contract: a crash in between
// leaves the counterpart's view ahead, which Respond and Cancel know how to
// reconcile.
func (s *Service) saveBoth(ctx context.Context, counterpart, initiator *models.User) error {
	if err := s.saveUser(ctx, counterpart); err != nil {
		return err
	}
	return s.saveUser(ctx, initiator)
}

func (s *Service) saveUser(ctx context.Context, user *models.User) error {
	if err := s.users.Save(ctx, user); err != nil {
		return apperr.Wrap(apperr.Internal, "save user", err)
	}
	return nil
}

func findPendingByID(entries []models.FriendRequestEntry, id string) (uint, bool) {
	for _, e := range entries {
		if e.ID == id && e.Status == models.RequestPending {
			return e.UserID, true
		}
	}
	return 0, false
}

func removeAt(entries []models.FriendRequestEntry, i int) []models.FriendRequestEntry {
	return append(entries[:i], entries[i+1:]...)
}
