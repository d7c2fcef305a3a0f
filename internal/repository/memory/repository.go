package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"invoicepilot/internal/model"
)

type InMemoryUserRepository struct {
	users map[string]*model.User
	mutex sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*model.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (r *InMemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.GoogleID == googleID {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *InMemoryUserRepository) FindAllWithRefreshToken(ctx context.Context) ([]*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var users []*model.User
	for _, user := range r.users {
		if user.RefreshToken != "" {
			users = append(users, user)
		}
	}
	// Stable ordering so the fleet run is deterministic
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.users[user.ID]
	if !exists {
		return errors.New("user not found")
	}
	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) UpdateLastInvoiceSync(ctx context.Context, id string, t time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return errors.New("user not found")
	}
	user.LastInvoiceSync = &t
	user.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryUserRepository) UpdateSheetID(ctx context.Context, id, sheetID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return errors.New("user not found")
	}
	user.SheetID = sheetID
	user.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.users, id)
	return nil
}

// Invoice repository implementation
type InMemoryInvoiceRepository struct {
	invoices map[string]*model.Invoice
	mutex    sync.RWMutex
}

func NewInMemoryInvoiceRepository() *InMemoryInvoiceRepository {
	return &InMemoryInvoiceRepository{
		invoices: make(map[string]*model.Invoice),
	}
}

func (r *InMemoryInvoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.invoices {
		if existing.UserID == invoice.UserID &&
			existing.Metadata.Number == invoice.Metadata.Number &&
			existing.Parties.Supplier.Name == invoice.Parties.Supplier.Name {
			return errors.New("duplicate invoice")
		}
	}
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *InMemoryInvoiceRepository) ExistsByNumberAndSupplier(ctx context.Context, userID, number, supplierName string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, invoice := range r.invoices {
		if invoice.UserID == userID &&
			invoice.Metadata.Number == number &&
			invoice.Parties.Supplier.Name == supplierName {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryInvoiceRepository) FindByID(ctx context.Context, userID, id string) (*model.Invoice, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	invoice, exists := r.invoices[id]
	if !exists || invoice.UserID != userID {
		return nil, errors.New("invoice not found")
	}
	return invoice, nil
}

func (r *InMemoryInvoiceRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Invoice, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var invoices []*model.Invoice
	for _, invoice := range r.invoices {
		if invoice.UserID == userID {
			invoices = append(invoices, invoice)
		}
	}
	// Newest invoice date first, matching the postgres ordering
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].Metadata.Date != invoices[j].Metadata.Date {
			return invoices[i].Metadata.Date > invoices[j].Metadata.Date
		}
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	return invoices, nil
}

func (r *InMemoryInvoiceRepository) Delete(ctx context.Context, userID, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	invoice, exists := r.invoices[id]
	if exists && invoice.UserID == userID {
		delete(r.invoices, id)
	}
	return nil
}
