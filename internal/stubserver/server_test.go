package stubserver

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusmess/messmate/internal/api"
	"github.com/campusmess/messmate/internal/errs"
	"github.com/campusmess/messmate/internal/guard"
	"github.com/campusmess/messmate/internal/model"
	"github.com/campusmess/messmate/internal/session"
	"github.com/campusmess/messmate/internal/tokenstore"
)

// The stub is exercised end to end through the real client stack: the same
// code path the CLI uses.
func newStack(t *testing.T) (*api.Client, *session.Controller, *tokenstore.Store) {
	t.Helper()
	srv := httptest.NewServer(New([]byte("test-key"), zap.NewNop()).Router())
	t.Cleanup(srv.Close)

	store := tokenstore.New(filepath.Join(t.TempDir(), "tokens.json"))
	client := api.New(srv.URL+"/api", store, zap.NewNop())
	ctrl := session.New(client, store, zap.NewNop())
	return client, ctrl, store
}

func loginStudent(t *testing.T, ctrl *session.Controller) {
	t.Helper()
	require.NoError(t, ctrl.Login(context.Background(), api.Credentials{Phone: "9999999999", Password: "correct"}, "student"))
}

func TestStudentFlow_LoginBookCancel(t *testing.T) {
	client, ctrl, store := newStack(t)
	ctx := context.Background()

	loginStudent(t, ctrl)
	st := ctrl.Snapshot()
	assert.Equal(t, model.RoleStudent, model.DeriveRole(st.User))
	_, ok := store.Get()
	require.True(t, ok)

	slots, err := client.MealSlots(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	b, err := client.CreateBooking(ctx, slots[0].ID, "2026-09-02")
	require.NoError(t, err)
	assert.Equal(t, st.User.UserID, b.UserID)
	assert.Equal(t, "confirmed", b.Status)

	// Double-booking the same slot and date is rejected.
	_, err = client.CreateBooking(ctx, slots[0].ID, "2026-09-02")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	mine, err := client.Bookings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, client.DeleteBooking(ctx, b.BookingID))
	mine, err = client.Bookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestAdminEndpointRejectsStudents(t *testing.T) {
	_, ctrl, _ := newStack(t)

	err := ctrl.Login(context.Background(), api.Credentials{Phone: "9999999999", Password: "correct"}, "admin")
	require.Error(t, err)
	var le *session.LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, session.ReasonInvalidCredentials, le.Reason)
}

func TestRefreshEndpoint_IssuesNewAccessToken(t *testing.T) {
	client, ctrl, store := newStack(t)
	ctx := context.Background()

	loginStudent(t, ctrl)
	pair, ok := store.Get()
	require.True(t, ok)

	// Corrupt only the access token; the next call 401s, the client
	// refreshes once and the request succeeds transparently.
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "garbage", Refresh: pair.Refresh}))
	slots, err := client.MealSlots(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, slots)

	got, ok := store.Get()
	require.True(t, ok)
	assert.NotEqual(t, "garbage", got.Access)
	assert.Equal(t, pair.Refresh, got.Refresh, "refresh token unchanged")
}

func TestAdminFlow_GuardAndResources(t *testing.T) {
	client, ctrl, _ := newStack(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx, api.Credentials{Phone: "9000000001", Password: "admin123"}, "admin"))
	st := ctrl.Snapshot()
	assert.Equal(t, model.RoleSuperuser, model.DeriveRole(st.User))

	// The seeded admin passes the audit-log gate the CLI enforces.
	dec := guard.Evaluate(st, guard.Requirement{Roles: []string{"admin"}, Permissions: []string{"view_audit_logs"}})
	assert.Equal(t, guard.Allow, dec)

	m, err := client.CreateMess(ctx, model.Mess{Name: "East Mess", Location: "Sports Complex", Availability: true})
	require.NoError(t, err)
	require.NotZero(t, m.MessID)

	users, err := client.Users(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, users)

	c, err := client.GenerateCoupon(ctx, users[0].UserID, 0)
	require.NoError(t, err)
	require.NoError(t, client.ValidateCoupon(ctx, c.CouponID))
	// A coupon redeems exactly once.
	err = client.ValidateCoupon(ctx, c.CouponID)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	logs, err := client.AuditLogs(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)

	csv, err := client.ExportReport(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "mess_id,"))
}

func TestStaffGateOnReports(t *testing.T) {
	client, ctrl, _ := newStack(t)
	ctx := context.Background()

	loginStudent(t, ctrl)
	_, err := client.MessUsageReport(ctx)
	require.Error(t, err)
	// 403 from the backend is an authorization failure, but not a 401:
	// no refresh cycle, the error passes straight through.
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 403, se.Code)
}
