package booking

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"skillswap/backend/internal/apperr"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/store"
)

type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   uint
	bookings map[uint]*models.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{nextID: 1, bookings: make(map[uint]*models.Booking)}
}

func (s *fakeBookingStore) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *fakeBookingStore) FindPending(ctx context.Context, fromUserID, toUserID uint, skill string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.FromUserID == fromUserID && b.ToUserID == toUserID &&
			b.Skill == skill && b.Status == models.BookingPending {
			clone := *b
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeBookingStore) ListForUser(ctx context.Context, userID uint, role string, page, limit int) ([]models.Booking, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		switch role {
		case store.RoleSent:
			if b.FromUserID != userID {
				continue
			}
		case store.RoleReceived:
			if b.ToUserID != userID {
				continue
			}
		default:
			if !b.HasParticipant(userID) {
				continue
			}
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (s *fakeBookingStore) Save(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if booking.ID == 0 {
		booking.ID = s.nextID
		s.nextID++
	}
	clone := *booking
	s.bookings[booking.ID] = &clone
	return nil
}

func (s *fakeBookingStore) get(t *testing.T, id uint) *models.Booking {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		t.Fatalf("booking %d not in store", id)
	}
	clone := *b
	return &clone
}

type fakeUserStore struct {
	users map[uint]*models.User
}

func (s *fakeUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (s *fakeUserStore) Create(ctx context.Context, user *models.User) error { return nil }
func (s *fakeUserStore) Save(ctx context.Context, user *models.User) error   { return nil }

type pushRecord struct {
	recipient uint
	from      uint
	typ       models.NotificationType
	message   string
}

type emailRecord struct {
	to      string
	subject string
}

type recordNotifier struct {
	mu     sync.Mutex
	pushes []pushRecord
	emails []emailRecord
}

func (r *recordNotifier) Push(ctx context.Context, recipientID, fromUserID uint, typ models.NotificationType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushRecord{recipient: recipientID, from: fromUserID, typ: typ, message: message})
}

func (r *recordNotifier) Email(ctx context.Context, to, subject, html string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, emailRecord{to: to, subject: subject})
}

func (r *recordNotifier) lastPush(t *testing.T) pushRecord {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pushes) == 0 {
		t.Fatal("no notifications pushed")
	}
	return r.pushes[len(r.pushes)-1]
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakeBookingStore, *recordNotifier) {
	teacher := &models.User{Nickname: "teach", Email: "teach@example.com"}
	teacher.ID = 2
	student := &models.User{Nickname: "stud", Email: "stud@example.com"}
	student.ID = 1
	users := &fakeUserStore{users: map[uint]*models.User{1: student, 2: teacher}}

	bookings := newFakeBookingStore()
	notif := &recordNotifier{}
	svc := NewService(bookings, users, notif, slog.New(slog.NewTextHandler(discard{}, nil)))
	svc.now = func() time.Time { return testNow }
	return svc, bookings, notif
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func futureDate() *time.Time {
	d := testNow.Add(48 * time.Hour)
	return &d
}

func TestCreateBooking(t *testing.T) {
	svc, bookings, notif := newTestService()

	b, err := svc.Create(context.Background(), 1, 2, "guitar", "please", futureDate())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == 0 || b.Status != models.BookingPending {
		t.Fatalf("unexpected booking: %+v", b)
	}

	stored := bookings.get(t, b.ID)
	if stored.Skill != "guitar" || stored.FromUserID != 1 || stored.ToUserID != 2 {
		t.Fatalf("unexpected stored booking: %+v", stored)
	}

	push := notif.lastPush(t)
	if push.recipient != 2 || push.typ != models.NotificationBookingRequest {
		t.Fatalf("unexpected notification: %+v", push)
	}
	if len(notif.emails) != 1 || notif.emails[0].to != "teach@example.com" {
		t.Fatalf("expected one email to the recipient, got %+v", notif.emails)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, 1, "guitar", "", nil); !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("self booking: expected InvalidArgument, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, 99, "guitar", "", nil); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing recipient: expected NotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, 2, "  ", "", nil); !apperr.Is(err, apperr.Validation) {
		t.Fatalf("blank skill: expected Validation, got %v", err)
	}

	past := testNow.Add(-time.Hour)
	if _, err := svc.Create(ctx, 1, 2, "guitar", "", &past); !apperr.Is(err, apperr.Validation) {
		t.Fatalf("past date: expected Validation, got %v", err)
	}
}

func TestCreateDuplicatePending(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, 2, "guitar", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, 1, 2, "guitar", "", nil); !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("duplicate: expected Conflict, got %v", err)
	}
	// A different skill is a different triple.
	if _, err := svc.Create(ctx, 1, 2, "piano", "", nil); err != nil {
		t.Fatalf("different skill: %v", err)
	}
}

func TestConcurrentCreatesKeepOnePending(t *testing.T) {
	svc, bookings, _ := newTestService()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), 1, 2, "guitar", "", nil)
		}(i)
	}
	wg.Wait()

	// The triple lock serializes the guard and the save: exactly one call
	// creates the record, the rest observe it and conflict.
	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case apperr.Is(err, apperr.Conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 create and %d conflicts, got %d and %d", attempts-1, created, conflicts)
	}

	_, total, err := bookings.ListForUser(context.Background(), 1, store.RoleSent, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one stored booking, got %d", total)
	}
}

func TestConcurrentTransitionsResolveOnce(t *testing.T) {
	svc, bookings, _ := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, next := range []models.BookingStatus{models.BookingAccepted, models.BookingRejected} {
		wg.Add(1)
		go func(i int, next models.BookingStatus) {
			defer wg.Done()
			_, errs[i] = svc.UpdateStatus(ctx, 2, b.ID, next)
		}(i, next)
	}
	wg.Wait()

	// The booking lock serializes the two read-modify-writes: whichever
	// lands second sees the request already resolved.
	final := bookings.get(t, b.ID).Status
	switch {
	case errs[0] == nil && apperr.Is(errs[1], apperr.InvalidState):
		if final != models.BookingAccepted {
			t.Fatalf("accept won but status is %s", final)
		}
	case errs[1] == nil && apperr.Is(errs[0], apperr.InvalidState):
		if final != models.BookingRejected {
			t.Fatalf("reject won but status is %s", final)
		}
	default:
		t.Fatalf("expected one success and one InvalidState, got %v / %v", errs[0], errs[1])
	}
}

func TestRejectedBookingCanBeRecreated(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// The rejected record no longer counts as pending.
	if _, err := svc.Create(ctx, 1, 2, "guitar", "", nil); err != nil {
		t.Fatalf("recreate after reject: %v", err)
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The requester cannot accept their own request.
	if _, err := svc.UpdateStatus(ctx, 1, b.ID, models.BookingAccepted); !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("accept by requester: expected Unauthorized, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 99, b.ID, models.BookingAccepted); !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("accept by stranger: expected Unauthorized, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingAccepted); err != nil {
		t.Fatalf("accept by recipient: %v", err)
	}

	// Either participant may complete an accepted session.
	if _, err := svc.UpdateStatus(ctx, 1, b.ID, models.BookingCompleted); err != nil {
		t.Fatalf("complete by requester: %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Completing a pending request skips a state.
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingCompleted); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("complete pending: expected InvalidState, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingCancelled); !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("cancel via status: expected InvalidArgument, got %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	// Rejected is terminal.
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingAccepted); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("accept rejected: expected InvalidState, got %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingPending); !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("set pending: expected InvalidArgument, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, 99, models.BookingAccepted); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing booking: expected NotFound, got %v", err)
	}
}

func TestUpdateStatusNotifiesCounterpart(t *testing.T) {
	svc, _, notif := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	push := notif.lastPush(t)
	if push.recipient != 1 || push.typ != models.NotificationBookingUpdate {
		t.Fatalf("unexpected notification: %+v", push)
	}
	if !strings.Contains(push.message, "accepted") {
		t.Fatalf("unexpected message: %q", push.message)
	}
}

func TestReschedule(t *testing.T) {
	svc, bookings, notif := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", futureDate())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newDate := testNow.Add(96 * time.Hour)
	// Pending sessions cannot be rescheduled.
	if _, err := svc.Reschedule(ctx, 1, b.ID, newDate); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("reschedule pending: expected InvalidState, got %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// A past date leaves the record unchanged.
	if _, err := svc.Reschedule(ctx, 1, b.ID, testNow.Add(-time.Hour)); !apperr.Is(err, apperr.Validation) {
		t.Fatalf("past date: expected Validation, got %v", err)
	}
	if got := bookings.get(t, b.ID).PreferredDate; !got.Equal(*futureDate()) {
		t.Fatalf("date must be unchanged after a rejected reschedule, got %v", got)
	}

	if _, err := svc.Reschedule(ctx, 1, b.ID, newDate); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := bookings.get(t, b.ID).PreferredDate; !got.Equal(newDate) {
		t.Fatalf("expected new date %v, got %v", newDate, got)
	}

	push := notif.lastPush(t)
	if push.recipient != 2 || !strings.Contains(push.message, "moved") {
		t.Fatalf("unexpected notification: %+v", push)
	}
}

func TestCancel(t *testing.T) {
	svc, bookings, notif := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Cancel(ctx, 99, b.ID); !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("cancel by stranger: expected Unauthorized, got %v", err)
	}
	if err := svc.Cancel(ctx, 1, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The record is retained with a cancelled status, not deleted.
	if got := bookings.get(t, b.ID).Status; got != models.BookingCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
	push := notif.lastPush(t)
	if push.recipient != 2 || !strings.Contains(push.message, "cancelled") {
		t.Fatalf("unexpected notification: %+v", push)
	}

	// Cancelled is terminal.
	if err := svc.Cancel(ctx, 1, b.ID); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("second cancel: expected InvalidState, got %v", err)
	}
}

func TestCancelCompleted(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 2, "guitar", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 2, b.ID, models.BookingCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.Cancel(ctx, 1, b.ID); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("cancel completed: expected InvalidState, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, 2, "guitar", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, 2, 1, "piano", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	sent, total, err := svc.ListForUser(ctx, 1, store.RoleSent, 1, 10)
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if total != 1 || len(sent) != 1 || sent[0].Skill != "guitar" {
		t.Fatalf("unexpected sent listing: %+v", sent)
	}

	all, total, err := svc.ListForUser(ctx, 1, "", 1, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("unexpected full listing: %+v", all)
	}

	if _, _, err := svc.ListForUser(ctx, 1, "owner", 1, 10); !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("bad role: expected InvalidArgument, got %v", err)
	}
}
