package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/persistence"
)

func completeBookingForm() booking.Form {
	return booking.Form{
		FirstName:         "Jane",
		LastName:          "Doe",
		Email:             "jane@example.com",
		Phone:             "07700 900123",
		Address:           "4 Station Road",
		City:              "Leeds",
		Postcode:          "ls1 4dy",
		ServiceType:       "deep",
		PropertyType:      "flat",
		Bedrooms:          2,
		Bathrooms:         1,
		PreferredDate:     "2026-03-20",
		TimeSlot:          "morning",
		ServiceProviderID: "emp-a",
		EstimatedPrice:    1,
	}
}

func TestBookingService_SubmitBooking(t *testing.T) {
	t.Parallel()

	renderer, err := email.NewRenderer(time.UTC)
	if err != nil {
		t.Fatalf("failed to build renderer: %v", err)
	}
	repo := &bookingRepoStub{}
	mailer := &mailerStub{}
	svc := NewBookingServiceWithLogger(repo, booking.DefaultPrices(), renderer, mailer, nil,
		func() string { return "3f2a9c1e-0000-4000-8000-000000000000" }, fixedNow(refNow), nil)

	record, err := svc.SubmitBooking(context.Background(), completeBookingForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EstimatedPrice != 150+2*15+10 {
		t.Fatalf("expected server side estimate, got %d", record.EstimatedPrice)
	}
	if record.Reference != "BK-3F2A9C1E" {
		t.Fatalf("unexpected reference %q", record.Reference)
	}
	if len(repo.stored) != 1 || repo.stored[0].Postcode != "LS1 4DY" || repo.stored[0].EstimatedPrice != 190 {
		t.Fatalf("unexpected stored booking %+v", repo.stored)
	}
	if repo.stored[0].AlternativeDate != nil {
		t.Fatalf("expected blank alternative date to be stored as null")
	}
	if len(mailer.sent) != 1 || !strings.Contains(mailer.sent[0].Text, "BK-3F2A9C1E") {
		t.Fatalf("expected acknowledgement with reference, got %+v", mailer.sent)
	}
}

func TestBookingService_SubmitBooking_Incomplete(t *testing.T) {
	t.Parallel()

	repo := &bookingRepoStub{}
	svc := NewBookingService(repo, nil, sequentialIDs("booking"), fixedNow(refNow))

	form := completeBookingForm()
	form.Postcode = ""
	form.ServiceProviderID = ""
	_, err := svc.SubmitBooking(context.Background(), form)

	incomplete, ok := booking.AsIncomplete(err)
	if !ok {
		t.Fatalf("expected IncompleteError, got %v", err)
	}
	for _, field := range []string{"postcode", "serviceProviderId"} {
		if _, ok := incomplete.Fields[field]; !ok {
			t.Fatalf("expected %s to be reported, got %v", field, incomplete.Fields)
		}
	}
	if len(repo.stored) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestBookingService_SubmitBooking_StorageFailure(t *testing.T) {
	t.Parallel()

	repo := &bookingRepoStub{err: persistence.ErrDuplicate}
	mailer := &mailerStub{}
	renderer, _ := email.NewRenderer(time.UTC)
	svc := NewBookingServiceWithLogger(repo, nil, renderer, mailer, nil, sequentialIDs("booking"), fixedNow(refNow), nil)

	if _, err := svc.SubmitBooking(context.Background(), completeBookingForm()); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no acknowledgement for a failed booking")
	}
}

func TestBookingService_SatisfiesWizardSubmitter(t *testing.T) {
	t.Parallel()

	svc := NewBookingService(&bookingRepoStub{}, nil, sequentialIDs("booking"), fixedNow(refNow))
	wizard := booking.NewWizard(svc.Prices())
	form := completeBookingForm()
	if err := wizard.Update(func(f *booking.Form) { *f = form }); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	for wizard.Step() != booking.StepReview {
		if err := wizard.Next(); err != nil {
			t.Fatalf("next failed on %s: %v", wizard.Step(), err)
		}
	}
	record, err := wizard.Submit(context.Background(), svc)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if record.ID != "booking-1" || wizard.Step() != booking.StepSubmitted {
		t.Fatalf("unexpected record %+v on step %s", record, wizard.Step())
	}
}
