package api

import (
	"context"
	"fmt"

	"github.com/campusmess/messmate/internal/model"
)

// Typed wrappers over the backend's resource endpoints. These add no logic;
// they exist so pages never hand-build paths or attach tokens themselves.

// --- users ---

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := c.Get(ctx, "/users/", &out)
	return out, err
}

func (c *Client) User(ctx context.Context, userID int64) (*model.User, error) {
	var out model.User
	if err := c.Get(ctx, fmt.Sprintf("/user/%d/", userID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.Delete(ctx, fmt.Sprintf("/user/%d/", userID))
}

// --- messes ---

func (c *Client) Messes(ctx context.Context) ([]model.Mess, error) {
	var out []model.Mess
	err := c.Get(ctx, "/mess/", &out)
	return out, err
}

func (c *Client) Mess(ctx context.Context, messID int64) (*model.Mess, error) {
	var out model.Mess
	if err := c.Get(ctx, fmt.Sprintf("/mess/%d/", messID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateMess(ctx context.Context, m model.Mess) (*model.Mess, error) {
	var out model.Mess
	if err := c.Post(ctx, "/mess/", m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMess(ctx context.Context, messID int64, m model.Mess) (*model.Mess, error) {
	var out model.Mess
	if err := c.Put(ctx, fmt.Sprintf("/mess/%d/", messID), m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMess(ctx context.Context, messID int64) error {
	return c.Delete(ctx, fmt.Sprintf("/mess/%d/", messID))
}

// --- meal slots ---

func (c *Client) MealSlots(ctx context.Context) ([]model.MealSlot, error) {
	var out []model.MealSlot
	err := c.Get(ctx, "/meal-slot", &out)
	return out, err
}

func (c *Client) CreateMealSlot(ctx context.Context, s model.MealSlot) (*model.MealSlot, error) {
	var out model.MealSlot
	if err := c.Post(ctx, "/meal-slot", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMealSlot(ctx context.Context, slotID int64, s model.MealSlot) (*model.MealSlot, error) {
	var out model.MealSlot
	if err := c.Put(ctx, fmt.Sprintf("/meal-slot/%d", slotID), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMealSlot(ctx context.Context, slotID int64) error {
	return c.Delete(ctx, fmt.Sprintf("/meal-slot/%d", slotID))
}

// --- bookings ---

func (c *Client) Bookings(ctx context.Context) ([]model.Booking, error) {
	var out []model.Booking
	err := c.Get(ctx, "/booking", &out)
	return out, err
}

func (c *Client) CreateBooking(ctx context.Context, mealSlot int64, date string) (*model.Booking, error) {
	var out model.Booking
	body := map[string]any{"meal_slot": mealSlot, "date": date}
	if err := c.Post(ctx, "/booking", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBooking(ctx context.Context, bookingID int64) error {
	return c.Delete(ctx, fmt.Sprintf("/booking/%d", bookingID))
}

func (c *Client) BookingHistory(ctx context.Context, userID int64) ([]model.Booking, error) {
	var out []model.Booking
	err := c.Get(ctx, fmt.Sprintf("/history/%d", userID), &out)
	return out, err
}

// --- coupons ---

func (c *Client) MyCoupons(ctx context.Context) ([]model.Coupon, error) {
	var out []model.Coupon
	err := c.Get(ctx, "/coupons/my", &out)
	return out, err
}

func (c *Client) GenerateCoupon(ctx context.Context, userID, mealSlot int64) (*model.Coupon, error) {
	var out model.Coupon
	body := map[string]any{"user_id": userID, "meal_slot": mealSlot}
	if err := c.Post(ctx, "/coupon", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ValidateCoupon(ctx context.Context, couponID string) error {
	return c.Post(ctx, "/coupon/validate", map[string]string{"couponId": couponID}, nil)
}

// --- notifications ---

func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := c.Get(ctx, "/notifications/", &out)
	return out, err
}

func (c *Client) CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error) {
	var out model.Notification
	if err := c.Post(ctx, "/notifications/", n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- reports and audit ---

func (c *Client) MessUsageReport(ctx context.Context) ([]model.MessUsageRow, error) {
	var out []model.MessUsageRow
	err := c.Get(ctx, "/report/mess-usage", &out)
	return out, err
}

// ExportReport returns the raw CSV export body.
func (c *Client) ExportReport(ctx context.Context) ([]byte, error) {
	var out struct {
		CSV string `json:"csv"`
	}
	if err := c.Get(ctx, "/report/export", &out); err != nil {
		return nil, err
	}
	return []byte(out.CSV), nil
}

func (c *Client) AuditLogs(ctx context.Context) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := c.Get(ctx, "/audit-logs", &out)
	return out, err
}
