// Package booking implements the teaching session lifecycle: a request
// moves pending → accepted|rejected, an accepted session terminates in
// completed or cancelled, and nothing leaves a terminal state. Each booking
// is a single record, so unlike friendship there is no dual-write problem;
// the invariants here are the transition graph, the per-triple pending
// uniqueness, and who is allowed to drive which transition.
//
// The store only offers single-record reads and writes, so both the
// duplicate-pending guard (a check before a save) and the transitions (a
// read-modify-write) need serialization to hold under concurrency. Every
// mutation takes a keyed mutex: Create on the (from, to, skill) triple,
// transitions on the booking ID.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/im7mortal/kmutex"

	"skillswap/backend/internal/apperr"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/store"
)

// Notifier pushes in-app notifications and dispatches best-effort email.
// Satisfied by notify.Notifier.
type Notifier interface {
	Push(ctx context.Context, recipientID, fromUserID uint, typ models.NotificationType, message string)
	Email(ctx context.Context, to, subject, html string)
}

// Service orchestrates booking transitions.
type Service struct {
	bookings store.BookingStore
	users    store.UserStore
	notif    Notifier
	locks    *kmutex.Kmutex
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a booking service over the given stores.
func NewService(bookings store.BookingStore, users store.UserStore, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		bookings: bookings,
		users:    users,
		notif:    notifier,
		locks:    kmutex.New(),
		log:      logger,
		now:      time.Now,
	}
}

// pendingKey is the lock key for the duplicate-pending guard.
type pendingKey struct {
	from, to uint
	skill    string
}

func (s *Service) lockTriple(fromUserID, toUserID uint, skill string) func() {
	key := pendingKey{from: fromUserID, to: toUserID, skill: skill}
	s.locks.Lock(key)
	return func() { s.locks.Unlock(key) }
}

func (s *Service) lockBooking(id uint) func() {
	s.locks.Lock(id)
	return func() { s.locks.Unlock(id) }
}

// Create opens a pending session request from one user to another for a
// skill. At most one pending request may exist per (from, to, skill) triple.
func (s *Service) Create(ctx context.Context, fromUserID, toUserID uint, skill, message string, preferredDate *time.Time) (*models.Booking, error) {
	if fromUserID == toUserID {
		return nil, apperr.New(apperr.InvalidArgument, "cannot book a session with yourself")
	}
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil, apperr.New(apperr.Validation, "skill is required")
	}
	if preferredDate != nil && preferredDate.Before(s.now()) {
		return nil, apperr.New(apperr.Validation, "preferred date cannot be in the past")
	}

	from, err := s.loadUser(ctx, fromUserID)
	if err != nil {
		return nil, err
	}
	to, err := s.loadUser(ctx, toUserID)
	if err != nil {
		return nil, err
	}

	// The guard and the save must be one atomic step, or two concurrent
	// creates for the same triple both pass the check.
	unlock := s.lockTriple(fromUserID, toUserID, skill)
	defer unlock()

	if _, err := s.bookings.FindPending(ctx, fromUserID, toUserID, skill); err == nil {
		return nil, apperr.Newf(apperr.Conflict, "a pending request for %q already exists", skill)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "check pending booking", err)
	}

	booking := &models.Booking{
		FromUserID:    fromUserID,
		ToUserID:      toUserID,
		Skill:         skill,
		Message:       message,
		PreferredDate: preferredDate,
		Status:        models.BookingPending,
	}
	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save booking", err)
	}

	text := fmt.Sprintf("%s requested a %s session", from.Nickname, skill)
	s.notif.Push(ctx, toUserID, fromUserID, models.NotificationBookingRequest, text)
	s.notif.Email(ctx, to.Email, "New session request",
		fmt.Sprintf("<p>%s</p><p>%s</p>", text, booking.Message))
	return booking, nil
}

// UpdateStatus drives a booking along the transition graph. Accept and
// reject are reserved for the recipient; either participant may mark an
// accepted session completed. Cancellation goes through Cancel.
func (s *Service) UpdateStatus(ctx context.Context, actorID, bookingID uint, next models.BookingStatus) (*models.Booking, error) {
	switch next {
	case models.BookingAccepted, models.BookingRejected, models.BookingCompleted:
	default:
		return nil, apperr.Newf(apperr.InvalidArgument, "cannot set a booking to %q", next)
	}

	unlock := s.lockBooking(bookingID)
	defer unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParticipant(actorID) {
		return nil, apperr.New(apperr.Unauthorized, "not a participant of this booking")
	}
	if (next == models.BookingAccepted || next == models.BookingRejected) && actorID != booking.ToUserID {
		return nil, apperr.New(apperr.Unauthorized, "only the recipient can accept or reject a request")
	}
	if !booking.Status.CanTransition(next) {
		return nil, apperr.Newf(apperr.InvalidState, "cannot move a %s booking to %s", booking.Status, next)
	}

	booking.Status = next
	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save booking", err)
	}

	s.notifyCounterpart(ctx, booking, actorID, transitionText(next, booking.Skill))
	return booking, nil
}

// Reschedule moves an accepted session to a new future date. Either
// participant may reschedule.
func (s *Service) Reschedule(ctx context.Context, actorID, bookingID uint, newDate time.Time) (*models.Booking, error) {
	unlock := s.lockBooking(bookingID)
	defer unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParticipant(actorID) {
		return nil, apperr.New(apperr.Unauthorized, "not a participant of this booking")
	}
	if booking.Status != models.BookingAccepted {
		return nil, apperr.Newf(apperr.InvalidState, "cannot reschedule a %s booking", booking.Status)
	}
	if !newDate.After(s.now()) {
		return nil, apperr.New(apperr.Validation, "new date must be in the future")
	}

	oldDate := booking.PreferredDate
	booking.PreferredDate = &newDate
	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save booking", err)
	}

	text := fmt.Sprintf("your %s session was moved to %s", booking.Skill, newDate.Format(time.RFC1123))
	if oldDate != nil {
		text = fmt.Sprintf("your %s session was moved from %s to %s",
			booking.Skill, oldDate.Format(time.RFC1123), newDate.Format(time.RFC1123))
	}
	s.notifyCounterpart(ctx, booking, actorID, text)
	return booking, nil
}

// Cancel calls off a pending or accepted session. Either participant may
// cancel. The record is retained with status cancelled rather than deleted,
// so the history stays auditable; only pending records count against the
// duplicate guard, so a cancelled triple can be re-requested.
func (s *Service) Cancel(ctx context.Context, actorID, bookingID uint) error {
	unlock := s.lockBooking(bookingID)
	defer unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.HasParticipant(actorID) {
		return apperr.New(apperr.Unauthorized, "not a participant of this booking")
	}
	if !booking.Status.CanTransition(models.BookingCancelled) {
		return apperr.Newf(apperr.InvalidState, "cannot cancel a %s booking", booking.Status)
	}

	booking.Status = models.BookingCancelled
	if err := s.bookings.Save(ctx, booking); err != nil {
		return apperr.Wrap(apperr.Internal, "save booking", err)
	}

	s.notifyCounterpart(ctx, booking, actorID,
		fmt.Sprintf("your %s session was cancelled", booking.Skill))
	return nil
}

// ListForUser returns a page of the user's bookings and the total count.
func (s *Service) ListForUser(ctx context.Context, userID uint, role string, page, limit int) ([]models.Booking, int64, error) {
	switch role {
	case "", store.RoleSent, store.RoleReceived:
	default:
		return nil, 0, apperr.Newf(apperr.InvalidArgument, "unknown role %q", role)
	}
	bookings, total, err := s.bookings.ListForUser(ctx, userID, role, page, limit)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "list bookings", err)
	}
	return bookings, total, nil
}

// Get returns a booking visible to one of its participants.
func (s *Service) Get(ctx context.Context, actorID, bookingID uint) (*models.Booking, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasParticipant(actorID) {
		return nil, apperr.New(apperr.Unauthorized, "not a participant of this booking")
	}
	return booking, nil
}

// notifyCounterpart pushes an in-app notification and fires best-effort
// email at the participant who did not act. The actor's nickname prefixes
// the message when their record is still loadable.
func (s *Service) notifyCounterpart(ctx context.Context, booking *models.Booking, actorID uint, text string) {
	otherID := booking.CounterpartOf(actorID)

	if actor, err := s.users.FindByID(ctx, actorID); err == nil {
		text = fmt.Sprintf("%s: %s", actor.Nickname, text)
	}
	s.notif.Push(ctx, otherID, actorID, models.NotificationBookingUpdate, text)

	other, err := s.users.FindByID(ctx, otherID)
	if err != nil {
		s.log.Warn("booking counterpart not loadable for email",
			"booking", booking.ID, "user", otherID, "error", err)
		return
	}
	s.notif.Email(ctx, other.Email, "Session update", fmt.Sprintf("<p>%s</p>", text))
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

func (s *Service) loadBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "booking not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "load booking", err)
	}
	return booking, nil
}

func transitionText(next models.BookingStatus, skill string) string {
	switch next {
	case models.BookingAccepted:
		return fmt.Sprintf("your %s session request was accepted", skill)
	case models.BookingRejected:
		return fmt.Sprintf("your %s session request was declined", skill)
	default:
		return fmt.Sprintf("your %s session was marked as completed", skill)
	}
}
