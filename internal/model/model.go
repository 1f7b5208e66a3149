// Package model defines domain entities shared by the API client, session
// controller, and route guard.
package model

// User is the authenticated account as returned by the backend's token-info
// endpoint. Role is never stored; it is derived from the capability flags.
type User struct {
	UserID          int64    `json:"user_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone,omitempty"`
	RollNo          string   `json:"roll_no,omitempty"`
	RoomNo          string   `json:"room_no,omitempty"`
	IsSuperuser     bool     `json:"is_superuser"`
	IsStaff         bool     `json:"is_staff"`
	IsActive        bool     `json:"is_active"`
	DateJoined      string   `json:"date_joined,omitempty"`
	Groups          []string `json:"groups,omitempty"`
	UserPermissions []string `json:"user_permissions,omitempty"`
}

// UserPatch is a partial profile update merged locally by the session
// controller. Nil fields are left untouched.
type UserPatch struct {
	Name   *string
	Email  *string
	Phone  *string
	RollNo *string
	RoomNo *string
}

// Apply merges the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.RollNo != nil {
		u.RollNo = *p.RollNo
	}
	if p.RoomNo != nil {
		u.RoomNo = *p.RoomNo
	}
}

// Mess is a dining hall managed by staff.
type Mess struct {
	MessID        int64  `json:"mess_id"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Availability  bool   `json:"availability"`
	Stock         int64  `json:"stock,omitempty"`
	Admin         string `json:"admin,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	Bookings      int64  `json:"bookings,omitempty"`
	Menu          string `json:"menu,omitempty"`
}

// MealSlot is a bookable serving window within a mess.
type MealSlot struct {
	ID           int64  `json:"id"`
	Mess         int64  `json:"mess"`
	MessName     string `json:"mess_name,omitempty"`
	MessLocation string `json:"mess_location,omitempty"`
	Type         string `json:"type"`
	Available    bool   `json:"available"`
	SessionTime  int64  `json:"session_time"`
	Delayed      bool   `json:"delayed"`
	DelayMinutes int64  `json:"delay_minutes,omitempty"`
	ReserveMeal  bool   `json:"reserve_meal"`
	BookingCount int64  `json:"booking_count,omitempty"`
}

// Booking ties a user to a meal slot.
type Booking struct {
	BookingID int64  `json:"booking_id"`
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	MealSlot  int64  `json:"meal_slot"`
	Date      string `json:"date"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Coupon is a one-time meal voucher issued by staff.
type Coupon struct {
	CouponID  string `json:"coupon_id"`
	UserID    int64  `json:"user_id"`
	MealSlot  int64  `json:"meal_slot,omitempty"`
	Redeemed  bool   `json:"redeemed"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Notification is a broadcast message shown to users.
type Notification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at,omitempty"`
}

// MessUsageRow is one line of the mess-usage report.
type MessUsageRow struct {
	MessID   int64  `json:"mess_id"`
	MessName string `json:"mess_name"`
	Date     string `json:"date"`
	Bookings int64  `json:"bookings"`
	Served   int64  `json:"served"`
}

// AuditLog records an administrative action.
type AuditLog struct {
	ID        int64  `json:"id"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Timestamp string `json:"timestamp"`
}
