package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
)

// fakeTx satisfies TxBeginner. The in-memory repos apply writes immediately
// so the transaction sees its own changes, and register an undo that rollback
// replays in reverse. Commit discards the undos.
type fakeTx struct {
	pgx.Tx
	committed bool
	undo      []func()
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

// onRollback registers an undo with the transaction, if it is a fakeTx.
func onRollback(tx pgx.Tx, undo func()) {
	if ftx, ok := tx.(*fakeTx); ok {
		ftx.undo = append(ftx.undo, undo)
	}
}

type fakeDB struct {
	lastTx *fakeTx
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	db.lastTx = &fakeTx{}
	return db.lastTx, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memAgencyRepo struct {
	repository.AgencyRepository
	mu        sync.Mutex
	agencies  map[string]*domain.Agency
	seq       int
	adjustErr error
	updateErr error
}

func newMemAgencyRepo() *memAgencyRepo {
	return &memAgencyRepo{agencies: make(map[string]*domain.Agency)}
}

func (r *memAgencyRepo) Create(_ context.Context, agency *domain.Agency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	agency.ID = fmt.Sprintf("agency-%d", r.seq)
	agency.Active = true
	agency.CreatedAt = time.Now()
	agency.UpdatedAt = agency.CreatedAt
	clone := *agency
	r.agencies[agency.ID] = &clone
	return nil
}

func (r *memAgencyRepo) Update(_ context.Context, agency *domain.Agency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.agencies[agency.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *agency
	r.agencies[agency.ID] = &clone
	return nil
}

func (r *memAgencyRepo) GetByID(_ context.Context, id string) (*domain.Agency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agency, ok := r.agencies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *agency
	return &clone, nil
}

func (r *memAgencyRepo) GetByOwnerEmail(_ context.Context, email string) (*domain.Agency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agency := range r.agencies {
		if agency.OwnerEmail == email {
			clone := *agency
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAgencyRepo) GetByStripeCustomer(_ context.Context, customerID string) (*domain.Agency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agency := range r.agencies {
		if agency.StripeCustomerID != nil && *agency.StripeCustomerID == customerID {
			clone := *agency
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAgencyRepo) AdjustSeatsUsed(_ context.Context, tx pgx.Tx, agencyID string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adjustErr != nil {
		return 0, r.adjustErr
	}
	agency, ok := r.agencies[agencyID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	agency.SeatsUsed += delta
	onRollback(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		agency.SeatsUsed -= delta
	})
	return agency.SeatsUsed, nil
}

type memStaffRepo struct {
	repository.StaffRepository
	mu    sync.Mutex
	staff map[string]*domain.StaffUser
	seq   int
}

func newMemStaffRepo() *memStaffRepo {
	return &memStaffRepo{staff: make(map[string]*domain.StaffUser)}
}

func (r *memStaffRepo) add(staff domain.StaffUser) *domain.StaffUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if staff.ID == "" {
		staff.ID = fmt.Sprintf("staff-%d", r.seq)
	}
	r.staff[staff.ID] = &staff
	clone := staff
	return &clone
}

func (r *memStaffRepo) Create(_ context.Context, tx pgx.Tx, staff *domain.StaffUser) error {
	staff.Active = true
	created := r.add(*staff)
	staff.ID = created.ID
	onRollback(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.staff, created.ID)
	})
	return nil
}

func (r *memStaffRepo) Update(_ context.Context, tx pgx.Tx, staff *domain.StaffUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.staff[staff.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	clone := *staff
	r.staff[staff.ID] = &clone
	onRollback(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.staff[staff.ID] = prev
	})
	return nil
}

func (r *memStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *staff
	return &clone, nil
}

func (r *memStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, staff := range r.staff {
		if staff.Email == email {
			clone := *staff
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffUser
	for _, staff := range r.staff {
		if staff.AgencyID != filter.AgencyID {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		out = append(out, *staff)
	}
	return out, nil
}

type memSaleRepo struct {
	repository.SaleRepository
	mu    sync.Mutex
	sales map[string]*domain.Sale
	seq   int
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[string]*domain.Sale)}
}

func (r *memSaleRepo) Create(_ context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	sale.ID = fmt.Sprintf("sale-%d", r.seq)
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = sale.CreatedAt
	clone := *sale
	r.sales[sale.ID] = &clone
	return nil
}

func (r *memSaleRepo) Update(_ context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[sale.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *sale
	r.sales[sale.ID] = &clone
	return nil
}

func (r *memSaleRepo) Delete(_ context.Context, agencyID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok || sale.AgencyID != agencyID {
		return pgx.ErrNoRows
	}
	delete(r.sales, id)
	return nil
}

func (r *memSaleRepo) GetByID(_ context.Context, agencyID, id string) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok || sale.AgencyID != agencyID {
		return nil, pgx.ErrNoRows
	}
	clone := *sale
	return &clone, nil
}

func (r *memSaleRepo) List(_ context.Context, filter repository.SaleFilter) ([]domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Sale
	for _, sale := range r.sales {
		if sale.AgencyID != filter.AgencyID {
			continue
		}
		if filter.StaffID != nil && sale.StaffID != *filter.StaffID {
			continue
		}
		out = append(out, *sale)
	}
	return out, nil
}

func (r *memSaleRepo) ListForPeriod(_ context.Context, agencyID string, staffID *string, from, to time.Time) ([]domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Sale
	for _, sale := range r.sales {
		if sale.AgencyID != agencyID {
			continue
		}
		if staffID != nil && sale.StaffID != *staffID {
			continue
		}
		if sale.SaleDate.Before(from) || sale.SaleDate.After(to) {
			continue
		}
		out = append(out, *sale)
	}
	return out, nil
}

type memCallRepo struct {
	repository.CallRepository
	mu     sync.Mutex
	calls  map[string]*domain.CallRecording
	scores map[string]*domain.CallScore
	seq    int
}

func newMemCallRepo() *memCallRepo {
	return &memCallRepo{
		calls:  make(map[string]*domain.CallRecording),
		scores: make(map[string]*domain.CallScore),
	}
}

func (r *memCallRepo) Create(_ context.Context, call *domain.CallRecording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	call.ID = fmt.Sprintf("call-%d", r.seq)
	clone := *call
	r.calls[call.ID] = &clone
	return nil
}

func (r *memCallRepo) Update(_ context.Context, call *domain.CallRecording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[call.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *call
	r.calls[call.ID] = &clone
	return nil
}

func (r *memCallRepo) Delete(_ context.Context, agencyID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[id]
	if !ok || call.AgencyID != agencyID {
		return pgx.ErrNoRows
	}
	delete(r.calls, id)
	return nil
}

func (r *memCallRepo) GetByID(_ context.Context, agencyID, id string) (*domain.CallRecording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[id]
	if !ok || call.AgencyID != agencyID {
		return nil, pgx.ErrNoRows
	}
	clone := *call
	return &clone, nil
}

func (r *memCallRepo) List(_ context.Context, filter repository.CallFilter) ([]domain.CallRecording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CallRecording
	for _, call := range r.calls {
		if call.AgencyID != filter.AgencyID {
			continue
		}
		if filter.StaffID != nil && call.StaffID != *filter.StaffID {
			continue
		}
		if filter.Status != nil && call.Status != *filter.Status {
			continue
		}
		if filter.From != nil && call.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && call.CreatedAt.After(*filter.To) {
			continue
		}
		if filter.MinScore != nil || filter.MaxScore != nil {
			score, ok := r.scores[call.ID]
			if !ok {
				continue
			}
			if filter.MinScore != nil && score.Overall < *filter.MinScore {
				continue
			}
			if filter.MaxScore != nil && score.Overall > *filter.MaxScore {
				continue
			}
		}
		out = append(out, *call)
	}
	return out, nil
}

func (r *memCallRepo) SaveScore(_ context.Context, score *domain.CallScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	score.ID = "score-" + score.CallID
	clone := *score
	r.scores[score.CallID] = &clone
	return nil
}

func (r *memCallRepo) GetScore(_ context.Context, callID string) (*domain.CallScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.scores[callID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *score
	return &clone, nil
}

func ownerPrincipal(agencyID string) *auth.Principal {
	return &auth.Principal{SubjectType: domain.SubjectTypeOwner, AgencyID: agencyID}
}

func staffPrincipal(staff *domain.StaffUser) *auth.Principal {
	return &auth.Principal{
		SubjectType: domain.SubjectTypeStaff,
		AgencyID:    staff.AgencyID,
		Staff:       staff,
	}
}
