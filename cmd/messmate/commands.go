package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusmess/messmate/internal/api"
	"github.com/campusmess/messmate/internal/model"
)

// commands holds every guard-protected subcommand. Auth commands (login,
// register, logout) live in main.go because they run unauthenticated.
var commands = map[string]func(*app, context.Context, []string){
	"whoami":        (*app).cmdWhoami,
	"slots":         (*app).cmdSlots,
	"messes":        (*app).cmdMesses,
	"book":          (*app).cmdBook,
	"bookings":      (*app).cmdBookings,
	"cancel":        (*app).cmdCancel,
	"history":       (*app).cmdHistory,
	"coupons":       (*app).cmdCoupons,
	"notifications": (*app).cmdNotifications,
	"mess-add":      (*app).cmdMessAdd,
	"mess-rm":       (*app).cmdMessRm,
	"slot-add":      (*app).cmdSlotAdd,
	"slot-rm":       (*app).cmdSlotRm,
	"coupon-gen":    (*app).cmdCouponGen,
	"coupon-use":    (*app).cmdCouponUse,
	"notify":        (*app).cmdNotify,
	"users":         (*app).cmdUsers,
	"user-rm":       (*app).cmdUserRm,
	"report":        (*app).cmdReport,
	"report-csv":    (*app).cmdReportCSV,
	"audit":         (*app).cmdAudit,
}

// ---- auth ----

func (a *app) cmdLogin(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number")
	pwd := fs.String("p", "", "password")
	role := fs.String("role", "student", "student|admin")
	_ = fs.Parse(args)
	if *phone == "" || *pwd == "" {
		fmt.Fprintln(os.Stderr, "need -phone and -p")
		os.Exit(1)
	}

	err := a.ctrl.Login(ctx, api.Credentials{Phone: *phone, Password: *pwd}, *role)
	if err != nil {
		fail(err)
	}

	st := a.ctrl.Snapshot()
	fmt.Printf("ok: logged in as %s (%s)\n", st.User.Name, model.DeriveRole(st.User))
}

func (a *app) cmdRegister(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number (used as username)")
	pwd := fs.String("p", "", "password")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	roll := fs.String("roll", "", "roll number")
	room := fs.String("room", "", "room number")
	role := fs.String("role", "student", "student|admin")
	_ = fs.Parse(args)
	if *phone == "" || *pwd == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "need -phone, -p and -name")
		os.Exit(1)
	}

	res := a.ctrl.Register(ctx, api.RegisterData{
		Username: *phone, Password: *pwd, Name: *name,
		Email: *email, RollNo: *roll, RoomNo: *room,
	}, *role)
	if !res.OK {
		fmt.Fprintf(os.Stderr, "registration failed: %s\n", res.Message)
		os.Exit(1)
	}
	fmt.Println("ok: registered, now run 'messmate login'")
}

func (a *app) cmdWhoami(_ context.Context, _ []string) {
	st := a.ctrl.Snapshot()
	out := map[string]any{
		"user": st.User,
		"role": model.DeriveRole(st.User),
	}
	// Peek at the access token expiry for diagnostics; unverified parse,
	// the server remains the authority.
	if pair, ok := a.store.Get(); ok {
		var claims jwt.RegisteredClaims
		_, _ = jwt.ParseWithClaims(pair.Access, &claims, func(*jwt.Token) (any, error) { return nil, nil },
			jwt.WithoutClaimsValidation(),
		)
		if claims.ExpiresAt != nil {
			out["token_expires_at"] = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
		}
	}
	printJSON(out)
}

// ---- student ----

func (a *app) cmdSlots(ctx context.Context, _ []string) {
	slots, err := a.client.MealSlots(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(slots)
}

func (a *app) cmdMesses(ctx context.Context, _ []string) {
	messes, err := a.client.Messes(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(messes)
}

func (a *app) cmdBook(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	slot := fs.Int64("slot", 0, "meal slot id")
	date := fs.String("date", "", "booking date (yyyy-mm-dd)")
	_ = fs.Parse(args)
	if *slot == 0 || *date == "" {
		fmt.Fprintln(os.Stderr, "need -slot and -date")
		os.Exit(1)
	}
	b, err := a.client.CreateBooking(ctx, *slot, *date)
	if err != nil {
		fail(err)
	}
	printJSON(b)
}

func (a *app) cmdBookings(ctx context.Context, _ []string) {
	bs, err := a.client.Bookings(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(bs)
}

func (a *app) cmdCancel(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.Int64("id", 0, "booking id")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.client.DeleteBooking(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdHistory(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	user := fs.Int64("user", 0, "user id (defaults to me)")
	_ = fs.Parse(args)
	if *user == 0 {
		if st := a.ctrl.Snapshot(); st.User != nil {
			*user = st.User.UserID
		}
	}
	bs, err := a.client.BookingHistory(ctx, *user)
	if err != nil {
		fail(err)
	}
	printJSON(bs)
}

func (a *app) cmdCoupons(ctx context.Context, _ []string) {
	cs, err := a.client.MyCoupons(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(cs)
}

func (a *app) cmdNotifications(ctx context.Context, _ []string) {
	ns, err := a.client.Notifications(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(ns)
}

// ---- staff/admin ----

func (a *app) cmdMessAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("mess-add", flag.ExitOnError)
	name := fs.String("name", "", "mess name")
	loc := fs.String("location", "", "location")
	stock := fs.Int64("stock", 0, "stock")
	_ = fs.Parse(args)
	if *name == "" {
		fmt.Fprintln(os.Stderr, "need -name")
		os.Exit(1)
	}
	m, err := a.client.CreateMess(ctx, model.Mess{Name: *name, Location: *loc, Stock: *stock, Availability: true})
	if err != nil {
		fail(err)
	}
	printJSON(m)
}

func (a *app) cmdMessRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("mess-rm", flag.ExitOnError)
	id := fs.Int64("id", 0, "mess id")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.client.DeleteMess(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdSlotAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("slot-add", flag.ExitOnError)
	mess := fs.Int64("mess", 0, "mess id")
	typ := fs.String("type", "lunch", "breakfast|lunch|dinner")
	hour := fs.Int64("time", 13, "session hour")
	_ = fs.Parse(args)
	if *mess == 0 {
		fmt.Fprintln(os.Stderr, "need -mess")
		os.Exit(1)
	}
	s, err := a.client.CreateMealSlot(ctx, model.MealSlot{Mess: *mess, Type: *typ, SessionTime: *hour, Available: true})
	if err != nil {
		fail(err)
	}
	printJSON(s)
}

func (a *app) cmdSlotRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("slot-rm", flag.ExitOnError)
	id := fs.Int64("id", 0, "slot id")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.client.DeleteMealSlot(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdCouponGen(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("coupon-gen", flag.ExitOnError)
	user := fs.Int64("user", 0, "user id")
	slot := fs.Int64("slot", 0, "meal slot id")
	_ = fs.Parse(args)
	if *user == 0 {
		fmt.Fprintln(os.Stderr, "need -user")
		os.Exit(1)
	}
	c, err := a.client.GenerateCoupon(ctx, *user, *slot)
	if err != nil {
		fail(err)
	}
	printJSON(c)
}

func (a *app) cmdCouponUse(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("coupon-use", flag.ExitOnError)
	id := fs.String("id", "", "coupon id")
	_ = fs.Parse(args)
	if *id == "" {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.client.ValidateCoupon(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok: coupon redeemed")
}

func (a *app) cmdNotify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("notify", flag.ExitOnError)
	title := fs.String("title", "", "title")
	msg := fs.String("message", "", "message body")
	_ = fs.Parse(args)
	if *msg == "" {
		fmt.Fprintln(os.Stderr, "need -message")
		os.Exit(1)
	}
	n, err := a.client.CreateNotification(ctx, model.Notification{Title: *title, Message: *msg})
	if err != nil {
		fail(err)
	}
	printJSON(n)
}

func (a *app) cmdUsers(ctx context.Context, _ []string) {
	us, err := a.client.Users(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(us)
}

func (a *app) cmdUserRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("user-rm", flag.ExitOnError)
	id := fs.Int64("id", 0, "user id")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.client.DeleteUser(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdReport(ctx context.Context, _ []string) {
	rows, err := a.client.MessUsageReport(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(rows)
}

func (a *app) cmdReportCSV(ctx context.Context, _ []string) {
	csv, err := a.client.ExportReport(ctx)
	if err != nil {
		fail(err)
	}
	os.Stdout.Write(csv)
}

func (a *app) cmdAudit(ctx context.Context, _ []string) {
	logs, err := a.client.AuditLogs(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(logs)
}
