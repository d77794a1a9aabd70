package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

func newSalesFixture() (*SalesService, *memSaleRepo, *memStaffRepo, *recordingDispatcher) {
	sales := newMemSaleRepo()
	staff := newMemStaffRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewSalesService(SalesDependencies{
		SaleRepo:   sales,
		StaffRepo:  staff,
		Dispatcher: dispatcher,
	})
	return svc, sales, staff, dispatcher
}

func validSaleInput(staffID string) SaleInput {
	return SaleInput{
		StaffID:       staffID,
		ClientName:    "Dana Fields",
		ProductLine:   domain.ProductLineAuto,
		PolicyCount:   2,
		Premium:       "$1,250.00",
		CommissionPct: "12.5%",
		SaleDate:      time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		Source:        "referral",
	}
}

func TestRecordSaleParsesMoney(t *testing.T) {
	svc, _, staffRepo, dispatcher := newSalesFixture()
	producer := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Name: "Pat", Role: domain.StaffRoleProducer, Active: true})

	sale, err := svc.Record(context.Background(), staffPrincipal(producer), validSaleInput(producer.ID))
	require.NoError(t, err)

	assert.True(t, sale.Premium.Equal(decimal.RequireFromString("1250.00")), sale.Premium.String())
	assert.True(t, sale.CommissionPct.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, producer.ID, sale.StaffID)

	recorded := dispatcher.byType(events.EventSaleRecorded)
	require.Len(t, recorded, 1)
	payload := recorded[0].Payload.(events.SaleRecordedPayload)
	assert.Equal(t, sale.ID, payload.SaleID)
}

func TestRecordSaleRejectsBadPremium(t *testing.T) {
	svc, _, staffRepo, _ := newSalesFixture()
	producer := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})

	input := validSaleInput(producer.ID)
	input.Premium = "twelve dollars"
	_, err := svc.Record(context.Background(), staffPrincipal(producer), input)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestRecordSaleForOtherStaffForbidden(t *testing.T) {
	svc, _, staffRepo, _ := newSalesFixture()
	producer := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})
	other := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})

	_, err := svc.Record(context.Background(), staffPrincipal(producer), validSaleInput(other.ID))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestManagerRecordsForOtherStaff(t *testing.T) {
	svc, _, staffRepo, _ := newSalesFixture()
	manager := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleManager, Active: true})
	producer := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})

	sale, err := svc.Record(context.Background(), staffPrincipal(manager), validSaleInput(producer.ID))
	require.NoError(t, err)
	assert.Equal(t, producer.ID, sale.StaffID)
}

func TestRecordSaleCrossAgencyStaffHidden(t *testing.T) {
	svc, _, staffRepo, _ := newSalesFixture()
	outsider := staffRepo.add(domain.StaffUser{AgencyID: "agency-2", Role: domain.StaffRoleProducer, Active: true})

	_, err := svc.Record(context.Background(), ownerPrincipal("agency-1"), validSaleInput(outsider.ID))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestListPinsNonManagerStaffToOwnSales(t *testing.T) {
	svc, _, staffRepo, _ := newSalesFixture()
	producer := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})
	other := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})

	_, err := svc.Record(context.Background(), staffPrincipal(producer), validSaleInput(producer.ID))
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), staffPrincipal(other), validSaleInput(other.ID))
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), staffPrincipal(producer), repository.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, producer.ID, mine[0].StaffID)

	all, err := svc.List(context.Background(), ownerPrincipal("agency-1"), repository.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAndDeleteSale(t *testing.T) {
	svc, _, staffRepo, _ := newSalesFixture()
	producer := staffRepo.add(domain.StaffUser{AgencyID: "agency-1", Role: domain.StaffRoleProducer, Active: true})

	sale, err := svc.Record(context.Background(), staffPrincipal(producer), validSaleInput(producer.ID))
	require.NoError(t, err)

	input := validSaleInput(producer.ID)
	input.Premium = "2000"
	updated, err := svc.Update(context.Background(), staffPrincipal(producer), sale.ID, input)
	require.NoError(t, err)
	assert.True(t, updated.Premium.Equal(decimal.NewFromInt(2000)))

	require.NoError(t, svc.Delete(context.Background(), staffPrincipal(producer), sale.ID))

	_, err = svc.Get(context.Background(), staffPrincipal(producer), sale.ID)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
