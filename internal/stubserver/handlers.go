package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusmess/messmate/internal/model"
)

// Resource handlers. Staff-only mutations check capability flags the way
// the real backend's permission classes do.

func pathID(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return v, err == nil
}

func (s *Server) requireStaff(w http.ResponseWriter, r *http.Request) *account {
	acc := s.accountFrom(r.Context())
	if acc == nil || (!acc.user.IsStaff && !acc.user.IsSuperuser) {
		writeError(w, http.StatusForbidden, "staff access required")
		return nil
	}
	return acc
}

// --- users ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	s.store.mu.Lock()
	users := make([]model.User, 0, len(s.store.accounts))
	for _, acc := range s.store.accounts {
		users = append(users, acc.user)
	}
	s.store.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	s.store.mu.Lock()
	acc := s.store.accounts[id]
	s.store.mu.Unlock()
	if acc == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.accounts[id] == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	delete(s.store.accounts, id)
	s.store.logAction(actor.user.Name, "delete_user", strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- messes ---

func (s *Server) handleListMesses(w http.ResponseWriter, _ *http.Request) {
	s.store.mu.Lock()
	out := make([]model.Mess, 0, len(s.store.messes))
	for _, m := range s.store.messes {
		out = append(out, *m)
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].MessID < out[j].MessID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "messID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad mess id")
		return
	}
	s.store.mu.Lock()
	m := s.store.messes[id]
	s.store.mu.Unlock()
	if m == nil {
		writeError(w, http.StatusNotFound, "mess not found")
		return
	}
	writeJSON(w, http.StatusOK, *m)
}

func (s *Server) handleCreateMess(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	var m model.Mess
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil || m.Name == "" {
		writeError(w, http.StatusBadRequest, "mess name is required")
		return
	}
	s.store.mu.Lock()
	m.MessID = s.store.id()
	s.store.messes[m.MessID] = &m
	s.store.logAction(actor.user.Name, "create_mess", m.Name)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateMess(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r, "messID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad mess id")
		return
	}
	var m model.Mess
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "bad mess payload")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.messes[id] == nil {
		writeError(w, http.StatusNotFound, "mess not found")
		return
	}
	m.MessID = id
	s.store.messes[id] = &m
	s.store.logAction(actor.user.Name, "update_mess", m.Name)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMess(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r, "messID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad mess id")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.messes[id] == nil {
		writeError(w, http.StatusNotFound, "mess not found")
		return
	}
	delete(s.store.messes, id)
	s.store.logAction(actor.user.Name, "delete_mess", strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- meal slots ---

func (s *Server) handleListSlots(w http.ResponseWriter, _ *http.Request) {
	s.store.mu.Lock()
	out := make([]model.MealSlot, 0, len(s.store.slots))
	for _, sl := range s.store.slots {
		out = append(out, *sl)
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	var sl model.MealSlot
	if err := json.NewDecoder(r.Body).Decode(&sl); err != nil || sl.Type == "" {
		writeError(w, http.StatusBadRequest, "slot type is required")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if mess := s.store.messes[sl.Mess]; mess != nil {
		sl.MessName, sl.MessLocation = mess.Name, mess.Location
	}
	sl.ID = s.store.id()
	s.store.slots[sl.ID] = &sl
	writeJSON(w, http.StatusCreated, sl)
}

func (s *Server) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	id, ok := pathID(r, "slotID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad slot id")
		return
	}
	var sl model.MealSlot
	if err := json.NewDecoder(r.Body).Decode(&sl); err != nil {
		writeError(w, http.StatusBadRequest, "bad slot payload")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.slots[id] == nil {
		writeError(w, http.StatusNotFound, "slot not found")
		return
	}
	sl.ID = id
	s.store.slots[id] = &sl
	writeJSON(w, http.StatusOK, sl)
}

func (s *Server) handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	id, ok := pathID(r, "slotID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad slot id")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.slots[id] == nil {
		writeError(w, http.StatusNotFound, "slot not found")
		return
	}
	delete(s.store.slots, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- bookings ---

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	acc := s.accountFrom(r.Context())
	s.store.mu.Lock()
	out := make([]model.Booking, 0, len(s.store.bookings))
	for _, b := range s.store.bookings {
		// Students only see their own bookings; staff see everything.
		if acc.user.IsStaff || acc.user.IsSuperuser || b.UserID == acc.user.UserID {
			out = append(out, *b)
		}
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	acc := s.accountFrom(r.Context())
	var req struct {
		MealSlot int64  `json:"meal_slot"`
		Date     string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MealSlot == 0 || req.Date == "" {
		writeError(w, http.StatusBadRequest, "meal_slot and date are required")
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	slot := s.store.slots[req.MealSlot]
	if slot == nil {
		writeError(w, http.StatusNotFound, "meal slot not found")
		return
	}
	if !slot.Available {
		writeError(w, http.StatusBadRequest, "meal slot is not available")
		return
	}
	for _, b := range s.store.bookings {
		if b.UserID == acc.user.UserID && b.MealSlot == req.MealSlot && b.Date == req.Date {
			writeError(w, http.StatusConflict, "already booked for this slot")
			return
		}
	}

	b := &model.Booking{
		BookingID: s.store.id(),
		UserID:    acc.user.UserID,
		UserName:  acc.user.Name,
		MealSlot:  req.MealSlot,
		Date:      req.Date,
		Status:    "confirmed",
		CreatedAt: nowRFC3339(),
	}
	s.store.bookings[b.BookingID] = b
	slot.BookingCount++
	s.store.logAction(acc.user.Name, "create_booking", fmt.Sprintf("slot %d on %s", req.MealSlot, req.Date))
	writeJSON(w, http.StatusCreated, *b)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	acc := s.accountFrom(r.Context())
	id, ok := pathID(r, "bookingID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad booking id")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	b := s.store.bookings[id]
	if b == nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if b.UserID != acc.user.UserID && !acc.user.IsStaff && !acc.user.IsSuperuser {
		writeError(w, http.StatusForbidden, "not your booking")
		return
	}
	delete(s.store.bookings, id)
	if slot := s.store.slots[b.MealSlot]; slot != nil && slot.BookingCount > 0 {
		slot.BookingCount--
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBookingHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	s.store.mu.Lock()
	out := []model.Booking{}
	for _, b := range s.store.bookings {
		if b.UserID == id {
			out = append(out, *b)
		}
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	writeJSON(w, http.StatusOK, out)
}

// --- coupons ---

func (s *Server) handleMyCoupons(w http.ResponseWriter, r *http.Request) {
	acc := s.accountFrom(r.Context())
	s.store.mu.Lock()
	out := []model.Coupon{}
	for _, c := range s.store.coupons {
		if c.UserID == acc.user.UserID || acc.user.IsStaff || acc.user.IsSuperuser {
			out = append(out, *c)
		}
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CouponID < out[j].CouponID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerateCoupon(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	var req struct {
		UserID   int64 `json:"user_id"`
		MealSlot int64 `json:"meal_slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.accounts[req.UserID] == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	c := &model.Coupon{
		CouponID: s.store.newCouponID(),
		UserID:   req.UserID,
		MealSlot: req.MealSlot,
		IssuedAt: nowRFC3339(),
	}
	s.store.coupons[c.CouponID] = c
	s.store.logAction(actor.user.Name, "generate_coupon", c.CouponID)
	writeJSON(w, http.StatusCreated, *c)
}

func (s *Server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	var req struct {
		CouponID string `json:"couponId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CouponID == "" {
		writeError(w, http.StatusBadRequest, "couponId is required")
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	c := s.store.coupons[req.CouponID]
	if c == nil {
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	}
	if c.Redeemed {
		writeError(w, http.StatusConflict, "coupon already redeemed")
		return
	}
	c.Redeemed = true
	s.store.logAction(actor.user.Name, "validate_coupon", c.CouponID)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// --- notifications, reports, audit ---

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	s.store.mu.Lock()
	out := append([]model.Notification{}, s.store.notifications...)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	actor := s.requireStaff(w, r)
	if actor == nil {
		return
	}
	var n model.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil || n.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	s.store.mu.Lock()
	n.ID = int64(len(s.store.notifications) + 1)
	n.CreatedAt = nowRFC3339()
	s.store.notifications = append(s.store.notifications, n)
	s.store.logAction(actor.user.Name, "create_notification", n.Title)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) messUsage() []model.MessUsageRow {
	byMess := map[int64]*model.MessUsageRow{}
	for _, b := range s.store.bookings {
		slot := s.store.slots[b.MealSlot]
		if slot == nil {
			continue
		}
		row := byMess[slot.Mess]
		if row == nil {
			name := ""
			if m := s.store.messes[slot.Mess]; m != nil {
				name = m.Name
			}
			row = &model.MessUsageRow{MessID: slot.Mess, MessName: name, Date: b.Date}
			byMess[slot.Mess] = row
		}
		row.Bookings++
		if b.Status == "confirmed" {
			row.Served++
		}
	}
	out := make([]model.MessUsageRow, 0, len(byMess))
	for _, row := range byMess {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessID < out[j].MessID })
	return out
}

func (s *Server) handleMessUsage(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	s.store.mu.Lock()
	out := s.messUsage()
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	s.store.mu.Lock()
	rows := s.messUsage()
	s.store.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("mess_id,mess_name,date,bookings,served\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "%d,%s,%s,%d,%d\n", row.MessID, row.MessName, row.Date, row.Bookings, row.Served)
	}
	writeJSON(w, http.StatusOK, map[string]string{"csv": sb.String()})
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.requireStaff(w, r) == nil {
		return
	}
	s.store.mu.Lock()
	out := append([]model.AuditLog{}, s.store.audit...)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}
