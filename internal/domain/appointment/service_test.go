package appointment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carebook/carebook/internal/domain/facility"
	"github.com/carebook/carebook/internal/platform/apperrors"
	"github.com/carebook/carebook/internal/platform/events"
	"github.com/carebook/carebook/internal/platform/notification"
	"github.com/carebook/carebook/pkg/timeslot"
)

type mockRepo struct {
	appts     map[uuid.UUID]*Appointment
	createErr error
	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = uuid.New()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByIDForUser(_ context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || a.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByIDForFacility(_ context.Context, id, facilityID uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || a.FacilityID != facilityID {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func active(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

func (m *mockRepo) CountActiveByUser(_ context.Context, userID string) (int, error) {
	count := 0
	for _, a := range m.appts {
		if a.UserID == userID && active(a.Status) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) SlotTaken(_ context.Context, facilityID uuid.UUID, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.FacilityID == facilityID && a.Date.Equal(date) && a.Slot == slot && active(a.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) UserSlotTaken(_ context.Context, userID string, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.UserID == userID && a.Date.Equal(date) && a.Slot == slot && active(a.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if a.UserID != userID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByFacility(_ context.Context, facilityID uuid.UUID, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if a.FacilityID != facilityID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Date != nil && !a.Date.Equal(*filter.Date) {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) StatsByFacility(_ context.Context, facilityID uuid.UUID) (map[string]int, error) {
	stats := make(map[string]int)
	for _, a := range m.appts {
		if a.FacilityID == facilityID {
			stats[a.Status]++
		}
	}
	return stats, nil
}

type mockCatalog struct {
	facilities map[uuid.UUID]*facility.Facility
	services   map[uuid.UUID]*facility.CareService
}

func (m *mockCatalog) Facility(_ context.Context, id uuid.UUID) (*facility.Facility, bool, error) {
	f, ok := m.facilities[id]
	return f, ok, nil
}

func (m *mockCatalog) Service(_ context.Context, id uuid.UUID) (*facility.CareService, bool, error) {
	cs, ok := m.services[id]
	return cs, ok, nil
}

type capturePublisher struct {
	published []events.AppointmentEvent
}

func (p *capturePublisher) Publish(_ context.Context, evt events.AppointmentEvent) {
	p.published = append(p.published, evt)
}

func (p *capturePublisher) Close() error { return nil }

type fixture struct {
	svc        *Service
	repo       *mockRepo
	sender     *notification.MockEmailSender
	dispatcher *notification.Dispatcher
	publisher  *capturePublisher
	facilityID uuid.UUID
	serviceID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	facilityID := uuid.New()
	serviceID := uuid.New()
	catalog := &mockCatalog{
		facilities: map[uuid.UUID]*facility.Facility{
			facilityID: {ID: facilityID, Name: "City Hospital", Type: facility.TypeHospital, Active: true},
		},
		services: map[uuid.UUID]*facility.CareService{
			serviceID: {ID: serviceID, FacilityID: facilityID, Name: "General Checkup", StockStatus: facility.StockInStock, Active: true},
		},
	}

	repo := newMockRepo()
	sender := &notification.MockEmailSender{}
	dispatcher := notification.NewDispatcher(sender, zerolog.Nop())
	publisher := &capturePublisher{}

	svc := NewService(repo, catalog, dispatcher, publisher)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

	return &fixture{
		svc:        svc,
		repo:       repo,
		sender:     sender,
		dispatcher: dispatcher,
		publisher:  publisher,
		facilityID: facilityID,
		serviceID:  serviceID,
	}
}

func (f *fixture) bookInput() BookInput {
	return BookInput{
		FacilityID: f.facilityID,
		ServiceID:  f.serviceID,
		Date:       time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Slot:       timeslot.Slot{Start: "09:00", End: "10:00"},
		Reason:     "Annual physical examination",
		UserEmail:  "user@example.com",
	}
}

func wantError(t *testing.T, err error, status int, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", message)
	}
	if got := apperrors.HTTPStatus(err); got != status {
		t.Fatalf("expected status %d, got %d (%v)", status, got, err)
	}
	var e *apperrors.E
	if !errors.As(err, &e) {
		t.Fatalf("expected *apperrors.E, got %T", err)
	}
	if e.Message != message {
		t.Fatalf("expected message %q, got %q", message, e.Message)
	}
}

func TestBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("expected status pending, got %s", a.Status)
	}
	if a.ID == uuid.Nil {
		t.Error("expected an id to be assigned")
	}
	if a.FacilityName != "City Hospital" || a.ServiceName != "General Checkup" {
		t.Errorf("expected joined names, got %q / %q", a.FacilityName, a.ServiceName)
	}

	f.dispatcher.Wait()
	calls := f.sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "user@example.com" {
		t.Errorf("unexpected recipient %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "City Hospital") {
		t.Errorf("expected facility name in email body")
	}

	if len(f.publisher.published) != 1 || f.publisher.published[0].Type != events.TypeBooked {
		t.Errorf("expected a booked event, got %+v", f.publisher.published)
	}
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.bookInput()
	in.Slot = timeslot.Slot{Start: "10:00", End: "09:00"}
	_, err := f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "Invalid time slot: end time must be after start time")

	in = f.bookInput()
	in.Reason = "hi"
	_, err = f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "Reason must be between 5 and 500 characters")

	// Length counts characters, not bytes: three kanji are nine bytes.
	in = f.bookInput()
	in.Reason = "健康診断"
	_, err = f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "Reason must be between 5 and 500 characters")

	in = f.bookInput()
	in.Reason = strings.Repeat("健", 501)
	_, err = f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "Reason must be between 5 and 500 characters")

	in = f.bookInput()
	in.Reason = strings.Repeat("健", 500)
	if _, err := f.svc.Book(ctx, "user-1", in); err != nil {
		t.Fatalf("500-character reason: %v", err)
	}

	in = f.bookInput()
	in.Date = time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "Appointment date must be in the future")
}

func TestBookActiveCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		in := f.bookInput()
		in.Date = time.Date(2025, 6, 10+i, 0, 0, 0, 0, time.UTC)
		if _, err := f.svc.Book(ctx, "user-1", in); err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
	}

	in := f.bookInput()
	in.Date = time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "You have too many pending appointments. Please complete or cancel existing ones.")
}

func TestBookCatalogChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.bookInput()
	in.FacilityID = uuid.New()
	in.ServiceID = uuid.New()
	_, err := f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusNotFound, "Facility not found or inactive")

	f.svc.catalog.(*mockCatalog).facilities[f.facilityID].Active = false
	_, err = f.svc.Book(ctx, "user-1", f.bookInput())
	wantError(t, err, http.StatusBadRequest, "Facility not found or inactive")
	f.svc.catalog.(*mockCatalog).facilities[f.facilityID].Active = true

	otherFacility := uuid.New()
	f.svc.catalog.(*mockCatalog).services[f.serviceID].FacilityID = otherFacility
	_, err = f.svc.Book(ctx, "user-1", f.bookInput())
	wantError(t, err, http.StatusNotFound, "Service not found or does not belong to this facility")
	f.svc.catalog.(*mockCatalog).services[f.serviceID].FacilityID = f.facilityID

	f.svc.catalog.(*mockCatalog).services[f.serviceID].StockStatus = facility.StockOutOfStock
	_, err = f.svc.Book(ctx, "user-1", f.bookInput())
	wantError(t, err, http.StatusBadRequest, "Service is currently out of stock")
}

func TestBookConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, "user-1", f.bookInput()); err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err := f.svc.Book(ctx, "user-2", f.bookInput())
	wantError(t, err, http.StatusBadRequest, "Time slot is already booked")

	in := f.bookInput()
	in.Slot = timeslot.Slot{Start: "11:00", End: "12:00"}
	if _, err := f.svc.Book(ctx, "user-2", in); err != nil {
		t.Fatalf("book different slot: %v", err)
	}

	// Same user, same slot at another facility.
	otherFacility := uuid.New()
	otherService := uuid.New()
	cat := f.svc.catalog.(*mockCatalog)
	cat.facilities[otherFacility] = &facility.Facility{ID: otherFacility, Name: "Corner Pharmacy", Type: facility.TypePharmacy, Active: true}
	cat.services[otherService] = &facility.CareService{ID: otherService, FacilityID: otherFacility, Name: "Vaccination", StockStatus: facility.StockInStock, Active: true}

	in = f.bookInput()
	in.FacilityID = otherFacility
	in.ServiceID = otherService
	_, err = f.svc.Book(ctx, "user-1", in)
	wantError(t, err, http.StatusBadRequest, "You already have an appointment at this time")
}

func TestBookStoreConflictSentinels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.createErr = ErrFacilitySlotTaken
	_, err := f.svc.Book(ctx, "user-1", f.bookInput())
	wantError(t, err, http.StatusBadRequest, "Time slot is already booked")

	f.repo.createErr = ErrUserSlotTaken
	_, err = f.svc.Book(ctx, "user-1", f.bookInput())
	wantError(t, err, http.StatusBadRequest, "You already have an appointment at this time")

	f.repo.createErr = errors.New("connection reset")
	_, err = f.svc.Book(ctx, "user-1", f.bookInput())
	wantError(t, err, http.StatusInternalServerError, "Error booking appointment")
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// Confirm it first so the pending reset is observable.
	f.repo.appts[a.ID].Status = StatusConfirmed

	in := RescheduleInput{
		Date: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Slot: timeslot.Slot{Start: "14:00", End: "15:00"},
	}
	updated, err := f.svc.Reschedule(ctx, "user-1", a.ID, in)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if updated.Status != StatusPending {
		t.Errorf("expected status reset to pending, got %s", updated.Status)
	}
	if !updated.Date.Equal(in.Date) || updated.Slot != in.Slot {
		t.Errorf("expected new date and slot, got %v %v", updated.Date, updated.Slot)
	}
}

func TestRescheduleToOwnSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// Keeping the same date and slot must not conflict with itself.
	in := RescheduleInput{Date: a.Date, Slot: a.Slot}
	if _, err := f.svc.Reschedule(ctx, "user-1", a.ID, in); err != nil {
		t.Fatalf("reschedule to own slot: %v", err)
	}
}

func TestRescheduleGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := RescheduleInput{
		Date: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Slot: timeslot.Slot{Start: "14:00", End: "15:00"},
	}

	_, err := f.svc.Reschedule(ctx, "user-1", uuid.New(), in)
	wantError(t, err, http.StatusNotFound, "Appointment not found")

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = f.svc.Reschedule(ctx, "user-2", a.ID, in)
	wantError(t, err, http.StatusNotFound, "Appointment not found")

	f.repo.appts[a.ID].Status = StatusCompleted
	_, err = f.svc.Reschedule(ctx, "user-1", a.ID, in)
	wantError(t, err, http.StatusBadRequest, "Cannot reschedule completed or cancelled appointment")

	f.repo.appts[a.ID].Status = StatusPending
	b, err := f.svc.Book(ctx, "user-2", func() BookInput {
		i := f.bookInput()
		i.Date = in.Date
		i.Slot = in.Slot
		return i
	}())
	if err != nil {
		t.Fatalf("book second: %v", err)
	}
	_ = b

	_, err = f.svc.Reschedule(ctx, "user-1", a.ID, in)
	wantError(t, err, http.StatusBadRequest, "New time slot is already booked")
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, "user-1", a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}

	// The record survives cancellation.
	if _, ok := f.repo.appts[a.ID]; !ok {
		t.Error("expected cancelled appointment to remain stored")
	}

	_, err = f.svc.Cancel(ctx, "user-1", a.ID)
	wantError(t, err, http.StatusBadRequest, "Cannot cancel completed or already cancelled appointment")

	_, err = f.svc.Cancel(ctx, "user-1", uuid.New())
	wantError(t, err, http.StatusNotFound, "Appointment not found")
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, "user-1", a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := f.svc.Book(ctx, "user-2", f.bookInput()); err != nil {
		t.Fatalf("expected slot to be free after cancel: %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	updated, err := f.svc.UpdateStatus(ctx, f.facilityID, a.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", updated.Status)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.facilityID, a.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = f.svc.UpdateStatus(ctx, f.facilityID, a.ID, StatusPending)
	wantError(t, err, http.StatusBadRequest, "Cannot change appointment status from completed to pending")

	_, err = f.svc.UpdateStatus(ctx, f.facilityID, a.ID, "archived")
	wantError(t, err, http.StatusBadRequest, "Invalid status. Must be one of: pending, confirmed, completed, cancelled")

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), a.ID, StatusConfirmed)
	wantError(t, err, http.StatusNotFound, "Appointment not found")
}

func TestUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		in := f.bookInput()
		in.Date = time.Date(2025, 6, 10+i, 0, 0, 0, 0, time.UTC)
		if _, err := f.svc.Book(ctx, "user-1", in); err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
	}

	items, total, err := f.svc.ListForUser(ctx, "user-1", "", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Errorf("expected 3 appointments, got %d (total %d)", len(items), total)
	}

	items, _, err = f.svc.ListForUser(ctx, "user-1", StatusCompleted, 10, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no completed appointments, got %d", len(items))
	}

	_, _, err = f.svc.ListForUser(ctx, "user-1", "bogus", 10, 0)
	wantError(t, err, http.StatusBadRequest, "Invalid status. Must be one of: pending, confirmed, completed, cancelled")
}

func TestListForFacility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	in := f.bookInput()
	in.Slot = timeslot.Slot{Start: "11:00", End: "12:00"}
	if _, err := f.svc.Book(ctx, "user-2", in); err != nil {
		t.Fatalf("book second: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.facilityID, a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	listing, err := f.svc.ListForFacility(ctx, f.facilityID, "", nil, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.Total != 2 {
		t.Errorf("expected total 2, got %d", listing.Total)
	}
	if listing.Stats[StatusPending] != 1 || listing.Stats[StatusConfirmed] != 1 {
		t.Errorf("unexpected stats: %+v", listing.Stats)
	}

	listing, err = f.svc.ListForFacility(ctx, f.facilityID, StatusPending, nil, 10, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(listing.Appointments) != 1 {
		t.Errorf("expected 1 pending appointment, got %d", len(listing.Appointments))
	}
}

func TestStatusChangeNotifiesStoredEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, "user-1", f.bookInput())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.facilityID, a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	f.dispatcher.Wait()
	calls := f.sender.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(calls))
	}
	if calls[1].To != "user@example.com" {
		t.Errorf("status email went to %q, want stored booking email", calls[1].To)
	}
}
