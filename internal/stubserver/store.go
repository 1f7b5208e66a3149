package stubserver

import (
	"sync"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusmess/messmate/internal/model"
)

// account couples a user profile with its password hash. The stub keeps
// plaintext nowhere; hashes are bcrypt like the real backend.
type account struct {
	user    model.User
	pwdHash []byte
}

// memStore is the stub's in-memory state. All access goes through the
// mutex; nothing is persisted.
type memStore struct {
	mu sync.Mutex

	nextID   int64
	accounts map[int64]*account // keyed by user id

	messes        map[int64]*model.Mess
	slots         map[int64]*model.MealSlot
	bookings      map[int64]*model.Booking
	coupons       map[string]*model.Coupon
	notifications []model.Notification
	audit         []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1,
		accounts: make(map[int64]*account),
		messes:   make(map[int64]*model.Mess),
		slots:    make(map[int64]*model.MealSlot),
		bookings: make(map[int64]*model.Booking),
		coupons:  make(map[string]*model.Coupon),
	}
}

func (m *memStore) id() int64 {
	v := m.nextID
	m.nextID++
	return v
}

func (m *memStore) addAccount(u model.User, password string) *account {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u.UserID = m.id()
	acc := &account{user: u, pwdHash: hash}
	m.accounts[u.UserID] = acc
	return acc
}

func (m *memStore) findByPhone(phone string) *account {
	for _, acc := range m.accounts {
		if acc.user.Phone == phone {
			return acc
		}
	}
	return nil
}

func (m *memStore) newCouponID() string {
	v, _ := uuid.NewV4()
	return v.String()
}

func (m *memStore) logAction(actor, action, target string) {
	m.audit = append(m.audit, model.AuditLog{
		ID:        int64(len(m.audit) + 1),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Timestamp: nowRFC3339(),
	})
}

// seed loads the demo dataset: one admin, one staff member, two students,
// two messes with breakfast/lunch/dinner slots.
func (m *memStore) seed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addAccount(model.User{
		Name: "Site Admin", Email: "admin@campus.test", Phone: "9000000001",
		IsSuperuser: true, IsStaff: true, IsActive: true,
		UserPermissions: []string{"manage_mess", "manage_users", "view_reports", "view_audit_logs"},
	}, "admin123")

	m.addAccount(model.User{
		Name: "Mess Staff", Email: "staff@campus.test", Phone: "9000000002",
		IsStaff: true, IsActive: true,
		UserPermissions: []string{"manage_mess", "validate_coupons"},
	}, "staff123")

	m.addAccount(model.User{
		Name: "Asha Rao", Email: "asha@campus.test", Phone: "9999999999",
		RollNo: "B21CS042", RoomNo: "H4-211", IsActive: true,
	}, "correct")

	m.addAccount(model.User{
		Name: "Vikram Shah", Email: "vikram@campus.test", Phone: "9999999998",
		RollNo: "B22EE017", RoomNo: "H2-105", IsActive: true,
	}, "student123")

	north := &model.Mess{MessID: m.id(), Name: "North Mess", Location: "Hostel Circle", Availability: true, Stock: 400}
	south := &model.Mess{MessID: m.id(), Name: "South Mess", Location: "Academic Block", Availability: true, Stock: 250}
	m.messes[north.MessID] = north
	m.messes[south.MessID] = south

	for _, mess := range []*model.Mess{north, south} {
		for i, typ := range []string{"breakfast", "lunch", "dinner"} {
			slot := &model.MealSlot{
				ID: m.id(), Mess: mess.MessID, MessName: mess.Name,
				MessLocation: mess.Location, Type: typ, Available: true,
				SessionTime: int64(8 + i*5),
			}
			m.slots[slot.ID] = slot
		}
	}
}
