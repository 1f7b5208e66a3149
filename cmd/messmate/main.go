// Command messmate is a CLI client for the campus mess-management API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campusmess/messmate/internal/api"
	"github.com/campusmess/messmate/internal/guard"
	"github.com/campusmess/messmate/internal/session"
	"github.com/campusmess/messmate/internal/tokenstore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app bundles the long-lived pieces every command needs. One instance per
// process; the session controller and API client are shared, never rebuilt.
type app struct {
	client *api.Client
	ctrl   *session.Controller
	store  *tokenstore.Store
}

func usage() {
	fmt.Fprintf(os.Stderr, `messmate CLI
Usage:
  messmate [-addr URL] [-v] <cmd> [args]

Auth:
  login      -phone <phone> -p <password> [-role student|admin]
  register   -phone <phone> -p <password> -name <name> [-email ..] [-roll ..] [-room ..] [-role admin]
  logout
  whoami

Student:
  slots                                  list meal slots
  messes                                 list messes
  book       -slot <id> -date <yyyy-mm-dd>
  bookings                               list my bookings
  cancel     -id <bookingID>
  history    -user <id>
  coupons                                list my coupons
  notifications

Staff/admin:
  mess-add    -name <name> -location <loc>
  mess-rm     -id <messID>
  slot-add    -mess <id> -type <breakfast|lunch|dinner> -time <hour>
  slot-rm     -id <slotID>
  coupon-gen  -user <id> [-slot <id>]
  coupon-use  -id <couponID>
  notify      -title <t> -message <m>
  users
  user-rm     -id <userID>
  report
  report-csv
  audit
  version
`)
	os.Exit(2)
}

// requirements maps protected commands to what the route guard demands.
// Commands absent from this map only need an authenticated session.
var requirements = map[string]guard.Requirement{
	"mess-add":   {Roles: []string{"staff", "admin"}},
	"mess-rm":    {Roles: []string{"staff", "admin"}},
	"slot-add":   {Roles: []string{"staff", "admin"}},
	"slot-rm":    {Roles: []string{"staff", "admin"}},
	"coupon-gen": {Roles: []string{"staff", "admin"}},
	"coupon-use": {Roles: []string{"staff", "admin"}},
	"notify":     {Roles: []string{"staff", "admin"}},
	"users":      {Roles: []string{"admin"}},
	"user-rm":    {Roles: []string{"admin"}},
	"report":     {Roles: []string{"staff", "admin"}, Permissions: []string{"view_reports"}},
	"report-csv": {Roles: []string{"staff", "admin"}, Permissions: []string{"view_reports"}},
	"audit":      {Roles: []string{"admin"}, Permissions: []string{"view_audit_logs"}},
}

func main() {
	addr := flag.String("addr", defaultAddr(), "API base URL")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	defer func() { _ = log.Sync() }()

	store := tokenstore.New(tokenstore.DefaultPath())
	client := api.New(*addr, store, log, api.WithSessionExpiredHook(func() {
		fmt.Fprintln(os.Stderr, "session expired; run 'messmate login'")
	}))
	ctrl := session.New(client, store, log, session.WithReloadHook(func() {
		fmt.Println("logged out")
	}))
	a := &app{client: client, ctrl: ctrl, store: store}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "version":
		fmt.Printf("messmate %s (%s)\n", version, buildDate)
	case "login":
		a.cmdLogin(ctx, args)
	case "register":
		a.cmdRegister(ctx, args)
	case "logout":
		a.ctrl.Logout()
	default:
		fn, ok := commands[cmd]
		if !ok {
			usage()
		}
		a.runProtected(ctx, cmd, args, fn)
	}
}

func defaultAddr() string {
	if v := os.Getenv("MESSMATE_ADDR"); v != "" {
		return v
	}
	return api.DefaultBaseURL
}

// runProtected performs the startup check once, asks the route guard for a
// decision, and renders pending/redirect/denied/content accordingly.
func (a *app) runProtected(ctx context.Context, cmd string, args []string, fn func(*app, context.Context, []string)) {
	a.ctrl.Bootstrap(ctx)

	switch guard.Evaluate(a.ctrl.Snapshot(), requirements[cmd]) {
	case guard.Pending:
		fmt.Println("loading...")
	case guard.RedirectLogin:
		fmt.Fprintln(os.Stderr, "not logged in; run 'messmate login'")
		os.Exit(1)
	case guard.Denied:
		fmt.Fprintln(os.Stderr, "access denied: you don't have the required role or permissions for this section")
		os.Exit(1)
	case guard.Allow:
		fn(a, ctx, args)
	}
}

// ---- helpers ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	var le *session.LoginError
	if errors.As(err, &le) {
		fmt.Fprintf(os.Stderr, "login error (%s): %s\n", le.Reason, le.Message)
		os.Exit(1)
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		fmt.Fprintf(os.Stderr, "api error: %s\n", se.Error())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
