package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finengine/models"
)

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

type userRepository struct{ uow *unitOfWork }

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := r.uow.data().users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByIDForUpdate needs no extra locking; the unit of work already holds
// the store exclusively
func (r *userRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	d := r.uow.data()
	for _, existing := range d.users {
		if existing.Username == user.Username {
			return fmt.Errorf("%w: username %q already exists", models.ErrValidation, user.Username)
		}
	}
	now := r.uow.store.now()
	user.ID = d.newID()
	user.Balance = 0
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	d.users[user.ID] = *user
	return nil
}

func (r *userRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	d := r.uow.data()
	u, ok := d.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	if newBalance < 0 {
		return fmt.Errorf("%w: balance cannot go below zero", models.ErrInsufficientBalance)
	}
	u.Balance = newBalance
	u.Version++
	u.UpdatedAt = r.uow.store.now()
	d.users[id] = u
	return nil
}

type productRepository struct{ uow *unitOfWork }

func (r *productRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := r.uow.data().products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepository) Upsert(ctx context.Context, product *models.Product) error {
	d := r.uow.data()
	now := r.uow.store.now()
	if product.ID == 0 {
		product.ID = d.newID()
		product.CreatedAt = now
	} else if existing, ok := d.products[product.ID]; ok {
		product.CreatedAt = existing.CreatedAt
	} else {
		return fmt.Errorf("%w: product %d", models.ErrNotFound, product.ID)
	}
	product.UpdatedAt = now
	d.products[product.ID] = *product
	return nil
}

func (r *productRepository) GetAll(ctx context.Context) ([]*models.Product, error) {
	d := r.uow.data()
	out := make([]*models.Product, 0, len(d.products))
	for _, p := range d.products {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type investmentRepository struct{ uow *unitOfWork }

func (r *investmentRepository) Create(ctx context.Context, investment *models.Investment) error {
	d := r.uow.data()
	now := r.uow.store.now()
	investment.ID = d.newID()
	investment.Version = 1
	if investment.CreatedAt.IsZero() {
		investment.CreatedAt = now
	}
	investment.UpdatedAt = now
	d.investments[investment.ID] = *investment
	return nil
}

func (r *investmentRepository) GetByID(ctx context.Context, id int64) (*models.Investment, error) {
	inv, ok := r.uow.data().investments[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *investmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Investment, error) {
	return r.GetByID(ctx, id)
}

func (r *investmentRepository) Update(ctx context.Context, investment *models.Investment, expectedVersion int64) error {
	d := r.uow.data()
	stored, ok := d.investments[investment.ID]
	if !ok {
		return fmt.Errorf("%w: investment %d", models.ErrNotFound, investment.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: investment %d", models.ErrConcurrentModification, investment.ID)
	}
	investment.Version = expectedVersion + 1
	investment.UpdatedAt = r.uow.store.now()
	d.investments[investment.ID] = *investment
	return nil
}

func (r *investmentRepository) List(ctx context.Context, status *models.InvestmentStatus, limit int) ([]*models.Investment, error) {
	d := r.uow.data()
	out := make([]*models.Investment, 0)
	for _, inv := range d.investments {
		if status != nil && inv.Status != *status {
			continue
		}
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type withdrawalRepository struct{ uow *unitOfWork }

func (r *withdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.FinalAmount != withdrawal.Amount-withdrawal.Charge {
		return fmt.Errorf("%w: final amount must equal amount minus charge", models.ErrValidation)
	}
	d := r.uow.data()
	now := r.uow.store.now()
	withdrawal.ID = d.newID()
	withdrawal.Version = 1
	if withdrawal.CreatedAt.IsZero() {
		withdrawal.CreatedAt = now
	}
	withdrawal.UpdatedAt = now
	d.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	w, ok := r.uow.data().withdrawals[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *withdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *withdrawalRepository) Update(ctx context.Context, withdrawal *models.Withdrawal, expectedVersion int64) error {
	d := r.uow.data()
	stored, ok := d.withdrawals[withdrawal.ID]
	if !ok {
		return fmt.Errorf("%w: withdrawal %d", models.ErrNotFound, withdrawal.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: withdrawal %d", models.ErrConcurrentModification, withdrawal.ID)
	}
	if withdrawal.Status == models.WithdrawalStatusRejected && withdrawal.RejectionReason == nil {
		return fmt.Errorf("%w: rejected withdrawal needs a reason", models.ErrValidation)
	}
	withdrawal.Version = expectedVersion + 1
	withdrawal.UpdatedAt = r.uow.store.now()
	d.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

func (r *withdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	d := r.uow.data()
	out := make([]*models.Withdrawal, 0)
	for _, w := range d.withdrawals {
		if status != nil && w.Status != *status {
			continue
		}
		out = append(out, &w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *withdrawalRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Withdrawal, error) {
	d := r.uow.data()
	out := make([]*models.Withdrawal, 0)
	for _, w := range d.withdrawals {
		if inRange(w.CreatedAt, from, to) {
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type spinPrizeRepository struct{ uow *unitOfWork }

// LockPrizeSet is a no-op; the unit of work already holds the store
func (r *spinPrizeRepository) LockPrizeSet(ctx context.Context) error {
	r.uow.data()
	return nil
}

func (r *spinPrizeRepository) GetAll(ctx context.Context) ([]*models.SpinPrize, error) {
	d := r.uow.data()
	out := make([]*models.SpinPrize, 0, len(d.spinPrizes))
	for _, p := range d.spinPrizes {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *spinPrizeRepository) GetByID(ctx context.Context, id int64) (*models.SpinPrize, error) {
	p, ok := r.uow.data().spinPrizes[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *spinPrizeRepository) Upsert(ctx context.Context, prize *models.SpinPrize) error {
	d := r.uow.data()
	now := r.uow.store.now()
	if prize.ID == 0 {
		prize.ID = d.newID()
		prize.CreatedAt = now
	} else if existing, ok := d.spinPrizes[prize.ID]; ok {
		prize.CreatedAt = existing.CreatedAt
	} else {
		return fmt.Errorf("%w: prize %d", models.ErrNotFound, prize.ID)
	}
	prize.UpdatedAt = now
	d.spinPrizes[prize.ID] = *prize
	return nil
}

func (r *spinPrizeRepository) Delete(ctx context.Context, id int64) error {
	d := r.uow.data()
	if _, ok := d.spinPrizes[id]; !ok {
		return fmt.Errorf("%w: prize %d", models.ErrNotFound, id)
	}
	delete(d.spinPrizes, id)
	return nil
}

func (r *spinPrizeRepository) SaveChances(ctx context.Context, prizes []*models.SpinPrize) error {
	d := r.uow.data()
	for _, p := range prizes {
		stored, ok := d.spinPrizes[p.ID]
		if !ok {
			return fmt.Errorf("%w: prize %d", models.ErrNotFound, p.ID)
		}
		stored.ChancePercentage = p.ChancePercentage
		d.spinPrizes[p.ID] = stored
	}
	return nil
}

type spinResultRepository struct{ uow *unitOfWork }

func (r *spinResultRepository) Create(ctx context.Context, result *models.SpinResult) error {
	d := r.uow.data()
	now := r.uow.store.now()
	result.ID = d.newID()
	result.Version = 1
	if result.SpinDate.IsZero() {
		result.SpinDate = now
	}
	result.CreatedAt = now
	result.UpdatedAt = now
	d.spinResults[result.ID] = *result
	return nil
}

func (r *spinResultRepository) GetByID(ctx context.Context, id int64) (*models.SpinResult, error) {
	sr, ok := r.uow.data().spinResults[id]
	if !ok {
		return nil, nil
	}
	return &sr, nil
}

func (r *spinResultRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.SpinResult, error) {
	return r.GetByID(ctx, id)
}

func (r *spinResultRepository) Update(ctx context.Context, result *models.SpinResult, expectedVersion int64) error {
	d := r.uow.data()
	stored, ok := d.spinResults[result.ID]
	if !ok {
		return fmt.Errorf("%w: spin result %d", models.ErrNotFound, result.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: spin result %d", models.ErrConcurrentModification, result.ID)
	}
	result.Version = expectedVersion + 1
	result.UpdatedAt = r.uow.store.now()
	d.spinResults[result.ID] = *result
	return nil
}

func (r *spinResultRepository) CountByUserSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	count := 0
	for _, sr := range r.uow.data().spinResults {
		if sr.UserID == userID && !sr.SpinDate.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *spinResultRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.SpinResult, error) {
	out := make([]*models.SpinResult, 0)
	for _, sr := range r.uow.data().spinResults {
		if sr.UserID == userID {
			out = append(out, &sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type transactionRepository struct{ uow *unitOfWork }

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	d := r.uow.data()
	for _, existing := range d.transactions {
		if existing.Reference == tx.Reference {
			return fmt.Errorf("transaction reference %q already exists", tx.Reference)
		}
	}
	tx.ID = d.newID()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.uow.store.now()
	}
	d.transactions[tx.ID] = *tx
	return nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	for _, tx := range r.uow.data().transactions {
		if tx.Reference == reference {
			return &tx, nil
		}
	}
	return nil, nil
}

func (r *transactionRepository) GetByRelatedEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.Transaction, error) {
	out := make([]*models.Transaction, 0)
	for _, tx := range r.uow.data().transactions {
		if tx.RelatedEntityType == entityType && tx.RelatedEntityID == entityID {
			out = append(out, &tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *transactionRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	out := make([]*models.Transaction, 0)
	for _, tx := range r.uow.data().transactions {
		if inRange(tx.CreatedAt, from, to) {
			out = append(out, &tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type balanceMutationRepository struct{ uow *unitOfWork }

func (r *balanceMutationRepository) GetByKey(ctx context.Context, key string) (*models.BalanceMutation, error) {
	for _, m := range r.uow.data().balanceMutations {
		if m.IdempotencyKey == key {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *balanceMutationRepository) Record(ctx context.Context, mutation *models.BalanceMutation) error {
	d := r.uow.data()
	for _, existing := range d.balanceMutations {
		if existing.IdempotencyKey == mutation.IdempotencyKey {
			return fmt.Errorf("%w: idempotency key %q already recorded", models.ErrConcurrentModification, mutation.IdempotencyKey)
		}
	}
	mutation.ID = d.newID()
	mutation.CreatedAt = r.uow.store.now()
	d.balanceMutations[mutation.ID] = *mutation
	return nil
}

func (r *balanceMutationRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceMutation, error) {
	out := make([]*models.BalanceMutation, 0)
	for _, m := range r.uow.data().balanceMutations {
		if m.UserID == userID {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
