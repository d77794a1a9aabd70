package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

type fakeRevoker struct {
	revoked []string
}

func (f *fakeRevoker) RevokeAllForStaff(_ context.Context, staffID string) error {
	f.revoked = append(f.revoked, staffID)
	return nil
}

type fakeSeatBilling struct {
	synced []int
}

func (f *fakeSeatBilling) SyncSeatQuantity(_ context.Context, agency *domain.Agency) error {
	f.synced = append(f.synced, agency.SeatsUsed)
	return nil
}

type agencyFixture struct {
	svc        *AgencyService
	agencies   *memAgencyRepo
	staff      *memStaffRepo
	sessions   *fakeRevoker
	billing    *fakeSeatBilling
	dispatcher *recordingDispatcher
}

func newAgencyFixture() *agencyFixture {
	f := &agencyFixture{
		agencies:   newMemAgencyRepo(),
		staff:      newMemStaffRepo(),
		sessions:   &fakeRevoker{},
		billing:    &fakeSeatBilling{},
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewAgencyService(AgencyDependencies{
		Pool:           &fakeDB{},
		AgencyRepo:     f.agencies,
		StaffRepo:      f.staff,
		SessionManager: f.sessions,
		Billing:        f.billing,
		Dispatcher:     f.dispatcher,
		BcryptCost:     bcrypt.MinCost,
	})
	return f
}

func (f *agencyFixture) seedAgency(t *testing.T, seatLimit int) *domain.Agency {
	t.Helper()
	agency := &domain.Agency{
		Name:       "Summit Insurance",
		OwnerEmail: "owner@summit.test",
		Plan:       domain.PlanTrial,
		SeatLimit:  seatLimit,
	}
	require.NoError(t, f.agencies.Create(context.Background(), agency))
	return agency
}

func inviteInput(email string) StaffInviteInput {
	return StaffInviteInput{
		Name:     "Jamie Rivera",
		Email:    email,
		Password: "s3cret-pass",
		Role:     domain.StaffRoleProducer,
	}
}

func TestInviteStaffClaimsSeat(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 3)

	staff, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("jamie@summit.test"))
	require.NoError(t, err)
	assert.True(t, staff.Active)
	assert.NotEqual(t, "s3cret-pass", staff.PasswordHash)

	stored, _ := f.agencies.GetByID(context.Background(), agency.ID)
	assert.Equal(t, 1, stored.SeatsUsed)
	assert.Equal(t, []int{1}, f.billing.synced)

	invited := f.dispatcher.byType(events.EventStaffInvited)
	require.Len(t, invited, 1)
	payload := invited[0].Payload.(events.StaffInvitedPayload)
	assert.Equal(t, staff.ID, payload.StaffID)
	assert.Equal(t, 1, payload.SeatsUsed)
}

func TestInviteStaffSeatLimitReached(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 1)

	_, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("first@summit.test"))
	require.NoError(t, err)

	_, err = f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("second@summit.test"))
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)

	_, err = f.staff.GetByEmail(context.Background(), "second@summit.test")
	require.Error(t, err)
}

func TestInviteStaffDuplicateEmail(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 5)

	_, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("jamie@summit.test"))
	require.NoError(t, err)

	_, err = f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("jamie@summit.test"))
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestInviteStaffRejectsUnknownRole(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 5)

	input := inviteInput("jamie@summit.test")
	input.Role = "INTERN"
	_, err := f.svc.InviteStaff(context.Background(), agency.ID, input)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestDeactivateStaffReleasesSeatAndRevokesSessions(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 3)

	staff, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("jamie@summit.test"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeactivateStaff(context.Background(), agency.ID, staff.ID))

	stored, _ := f.staff.GetByID(context.Background(), staff.ID)
	assert.False(t, stored.Active)
	assert.Equal(t, []string{staff.ID}, f.sessions.revoked)

	current, _ := f.agencies.GetByID(context.Background(), agency.ID)
	assert.Zero(t, current.SeatsUsed)

	err = f.svc.DeactivateStaff(context.Background(), agency.ID, staff.ID)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestDeactivateStaffSeatFailureLeavesStaffActive(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 3)

	staff, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("jamie@summit.test"))
	require.NoError(t, err)

	f.agencies.adjustErr = errors.New("seat counter unavailable")
	err = f.svc.DeactivateStaff(context.Background(), agency.ID, staff.ID)
	require.Error(t, err)

	stored, _ := f.staff.GetByID(context.Background(), staff.ID)
	assert.True(t, stored.Active, "failed seat release must roll back the staff row")
	assert.Empty(t, f.sessions.revoked)

	f.agencies.adjustErr = nil
	require.NoError(t, f.svc.DeactivateStaff(context.Background(), agency.ID, staff.ID))

	stored, _ = f.staff.GetByID(context.Background(), staff.ID)
	assert.False(t, stored.Active)
	current, _ := f.agencies.GetByID(context.Background(), agency.ID)
	assert.Zero(t, current.SeatsUsed)
}

func TestChangeStaffRole(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 3)

	staff, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("jamie@summit.test"))
	require.NoError(t, err)

	updated, err := f.svc.ChangeStaffRole(context.Background(), agency.ID, staff.ID, domain.StaffRoleManager)
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleManager, updated.Role)
}

func TestGetStaffScopedToAgency(t *testing.T) {
	f := newAgencyFixture()
	f.seedAgency(t, 3)
	outsider := f.staff.add(domain.StaffUser{AgencyID: "agency-other", Role: domain.StaffRoleProducer, Active: true})

	_, err := f.svc.GetStaff(context.Background(), "agency-1", outsider.ID)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestUpdateAgencyProfile(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 3)

	name := "Summit Insurance Group"
	notify := false
	updated, err := f.svc.Update(context.Background(), agency.ID, AgencyUpdateInput{
		Name:               &name,
		NotifyOnCallScored: &notify,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.NotifyOnCallScored)

	empty := "   "
	_, err = f.svc.Update(context.Background(), agency.ID, AgencyUpdateInput{Name: &empty})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestListStaffFiltersRole(t *testing.T) {
	f := newAgencyFixture()
	agency := f.seedAgency(t, 5)

	_, err := f.svc.InviteStaff(context.Background(), agency.ID, inviteInput("one@summit.test"))
	require.NoError(t, err)
	manager := inviteInput("two@summit.test")
	manager.Role = domain.StaffRoleManager
	_, err = f.svc.InviteStaff(context.Background(), agency.ID, manager)
	require.NoError(t, err)

	role := domain.StaffRoleManager
	listed, err := f.svc.ListStaff(context.Background(), repository.StaffFilter{
		AgencyID: agency.ID,
		Role:     &role,
	})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.StaffRoleManager, listed[0].Role)
}
