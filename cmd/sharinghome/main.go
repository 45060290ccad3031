// Command sharinghome manages shared-living rooms, members and
// invoices from the terminal. Results print as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sharinghome/internal/backend"
	"sharinghome/internal/config"
	"sharinghome/internal/core"
	"sharinghome/internal/directory"
	"sharinghome/internal/events"
	"sharinghome/internal/kv"
	"sharinghome/internal/ledger"
	"sharinghome/internal/log"
	"sharinghome/internal/rooms"
	"sharinghome/internal/services"
)

type app struct {
	store   kv.Store
	dir     *directory.Directory
	rooms   *rooms.Manager
	ledger  *ledger.Ledger
	service *services.InvoiceService
}

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentApp})
	log.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration: %v", err)
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fatal("%v", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(backendCfg)
	if err != nil {
		fatal("create backend: %v", err)
	}
	defer result.Cleanup()

	bus := events.NewBus()
	dir := directory.New(result.Store, logger)
	mgr := rooms.NewManager(result.Store, dir, bus, logger)
	led := ledger.New(result.Store, mgr, bus, logger)
	a := &app{
		store:   result.Store,
		dir:     dir,
		rooms:   mgr,
		ledger:  led,
		service: services.NewInvoiceService(led, mgr, nil, result.AMQP),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fatal("%v", err)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "rooms":
		return a.listRooms(ctx)
	case "create-room":
		return a.createRoom(ctx, args)
	case "delete-room":
		return a.deleteRoom(ctx, args)
	case "members":
		return a.listMembers(ctx, args)
	case "add-member":
		return a.addMember(ctx, args)
	case "edit-member":
		return a.editMember(ctx, args)
	case "delete-member":
		return a.deleteMember(ctx, args)
	case "assign-master":
		return a.assignMaster(ctx, args)
	case "search-member":
		return a.searchMember(ctx, args)
	case "resolve":
		return a.resolve(ctx, args)
	case "set-session":
		return a.setSession(ctx, args)
	case "set-profile":
		return a.setProfile(ctx, args)
	case "invoices":
		return a.listInvoices(ctx, args)
	case "current-invoice":
		return a.currentInvoice(ctx, args)
	case "create-invoice":
		return a.createInvoice(ctx, args)
	case "edit-invoice":
		return a.editInvoice(ctx, args)
	case "override-share":
		return a.overrideShare(ctx, args)
	case "delete-invoice":
		return a.deleteInvoice(ctx, args)
	case "append-expense":
		return a.appendExpense(ctx, args)
	case "remove-expense":
		return a.removeExpense(ctx, args)
	case "status":
		return a.invoiceStatus(ctx, args)
	case "mark-sent":
		return a.markSent(ctx, args)
	case "mark-complete":
		return a.markComplete(ctx, args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) listRooms(ctx context.Context) error {
	list, err := a.rooms.Rooms(ctx)
	if err != nil {
		return err
	}
	return printJSON(list)
}

func (a *app) createRoom(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-room", flag.ExitOnError)
	name := fs.String("name", "", "room name")
	home := fs.String("home", "", "home name")
	fs.Parse(args)

	room, err := a.rooms.CreateRoom(ctx, *name, *home)
	if err != nil {
		return err
	}
	return printJSON(room)
}

func (a *app) deleteRoom(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-room", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	fs.Parse(args)

	return a.rooms.DeleteRoom(ctx, *roomID)
}

func (a *app) listMembers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("members", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	fs.Parse(args)

	members, err := a.rooms.Members(ctx, *roomID)
	if err != nil {
		return err
	}
	return printJSON(members)
}

func (a *app) addMember(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-member", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	name := fs.String("name", "", "member name (defaults to phone)")
	phone := fs.String("phone", "", "phone number")
	role := fs.String("role", "", "ROOM_MEMBER or ROOM_MASTER")
	avatar := fs.String("avatar", "", "avatar URL")
	fs.Parse(args)

	member, err := a.rooms.AddMember(ctx, *roomID, core.Member{
		Name:        *name,
		PhoneNumber: *phone,
		Role:        core.Role(*role),
		Avatar:      *avatar,
	})
	if err != nil {
		return err
	}
	return printJSON(member)
}

func (a *app) editMember(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit-member", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	memberID := fs.Int64("member", 0, "member id")
	name := fs.String("name", "", "member name")
	phone := fs.String("phone", "", "phone number")
	role := fs.String("role", "", "role")
	avatar := fs.String("avatar", "", "avatar URL")
	fs.Parse(args)

	return a.rooms.EditMember(ctx, *roomID, core.Member{
		ID:          *memberID,
		Name:        *name,
		PhoneNumber: *phone,
		Role:        core.Role(*role),
		Avatar:      *avatar,
	})
}

func (a *app) deleteMember(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-member", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	memberID := fs.Int64("member", 0, "member id")
	fs.Parse(args)

	return a.rooms.DeleteMember(ctx, *roomID, *memberID)
}

func (a *app) assignMaster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assign-master", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	memberID := fs.Int64("member", 0, "member id")
	fs.Parse(args)

	return a.rooms.AssignRoomMaster(ctx, *roomID, *memberID)
}

func (a *app) searchMember(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search-member", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	phone := fs.String("phone", "", "phone to search for")
	fs.Parse(args)

	members, err := a.rooms.Members(ctx, *roomID)
	if err != nil {
		return err
	}
	member, found := directory.SearchMember(*phone, members)
	if !found {
		return fmt.Errorf("no member matching %q: %w", *phone, core.ErrMemberNotFound)
	}
	return printJSON(member)
}

func (a *app) resolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id (optional)")
	phone := fs.String("phone", "", "phone number")
	fs.Parse(args)

	var members []core.Member
	if *roomID != 0 {
		var err error
		if members, err = a.rooms.Members(ctx, *roomID); err != nil {
			return err
		}
	}
	ident, err := a.dir.ResolveIdentity(ctx, *phone, members)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"name":   ident.Name,
		"avatar": ident.Avatar,
		"role":   string(ident.Role),
	})
}

func (a *app) setSession(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-session", flag.ExitOnError)
	phone := fs.String("phone", "", "session phone")
	role := fs.String("role", "", "session role (optional)")
	fs.Parse(args)

	if *phone != "" {
		if err := a.dir.SetSessionPhone(ctx, *phone); err != nil {
			return err
		}
	}
	if *role != "" {
		if err := a.dir.SetSessionRole(ctx, core.Role(*role)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) setProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-profile", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	photo := fs.String("photo", "", "photo URL")
	fs.Parse(args)

	phone, err := a.dir.SessionPhone(ctx)
	if err != nil {
		return err
	}
	if phone == "" {
		return fmt.Errorf("no session phone set, run set-session first")
	}
	if *name != "" {
		if err := a.dir.SaveProfileName(ctx, phone, *name); err != nil {
			return err
		}
	}
	if *photo != "" {
		if err := a.dir.SaveProfilePhoto(ctx, phone, *photo); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) listInvoices(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("invoices", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	fs.Parse(args)

	invoices, err := a.ledger.Invoices(ctx, *roomID)
	if err != nil {
		return err
	}
	return printJSON(invoices)
}

func (a *app) currentInvoice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("current-invoice", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	fs.Parse(args)

	invoice, found, err := a.ledger.Current(ctx, *roomID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("room %d has no current invoice: %w", *roomID, core.ErrInvoiceNotFound)
	}
	return printJSON(invoice)
}

func (a *app) createInvoice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-invoice", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	date := fs.String("date", "", "invoice date (defaults to now)")
	expensesJSON := fs.String("expenses", "[]", `expenses as JSON, e.g. [{"name":"Room","price":"5000000","quantity":1}]`)
	fs.Parse(args)

	expenses, err := parseExpenses(*expensesJSON)
	if err != nil {
		return err
	}
	invoice, err := a.service.CreateInvoice(ctx, *roomID, *date, expenses, nil)
	if err != nil {
		return err
	}
	return printJSON(invoice)
}

func (a *app) editInvoice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit-invoice", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	expensesJSON := fs.String("expenses", "[]", "replacement expenses as JSON")
	fs.Parse(args)

	expenses, err := parseExpenses(*expensesJSON)
	if err != nil {
		return err
	}
	invoice, err := a.service.EditInvoice(ctx, *roomID, *invoiceID, expenses)
	if err != nil {
		return err
	}
	return printJSON(invoice)
}

func (a *app) overrideShare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("override-share", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	amount := fs.String("amount", "", "per-member amount in minor units")
	clear := fs.Bool("clear", false, "remove the override")
	fs.Parse(args)

	var override *core.Amount
	if !*clear {
		if *amount == "" {
			return fmt.Errorf("either -amount or -clear is required")
		}
		v := core.ParseAmount(*amount)
		override = &v
	}
	invoice, err := a.service.OverrideMemberShare(ctx, *roomID, *invoiceID, override)
	if err != nil {
		return err
	}
	return printJSON(invoice)
}

func (a *app) deleteInvoice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-invoice", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	fs.Parse(args)

	return a.service.DeleteInvoice(ctx, *roomID, *invoiceID)
}

func (a *app) appendExpense(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("append-expense", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	name := fs.String("name", "", "expense name")
	price := fs.String("price", "0", "price in minor units")
	quantity := fs.Int("quantity", 1, "quantity")
	fs.Parse(args)

	invoice, err := a.service.AppendExpense(ctx, *roomID, core.Expense{
		Name:     *name,
		Price:    core.ParseAmount(*price),
		Quantity: *quantity,
	})
	if err != nil {
		return err
	}
	return printJSON(invoice)
}

func (a *app) removeExpense(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove-expense", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	index := fs.Int("index", 0, "expense position in the latest invoice")
	fs.Parse(args)

	invoice, err := a.service.RemoveExpenseAt(ctx, *roomID, *index)
	if err != nil {
		return err
	}
	return printJSON(invoice)
}

func (a *app) invoiceStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	fs.Parse(args)

	status, err := a.ledger.InvoiceStatus(ctx, *roomID, *invoiceID)
	if err != nil {
		return err
	}

	phone, err := a.dir.SessionPhone(ctx)
	if err != nil {
		return err
	}
	isMaster := false
	if phone != "" {
		master, found, err := a.rooms.RoomMaster(ctx, *roomID)
		if err != nil {
			return err
		}
		isMaster = found && directory.NormalizePhone(master.PhoneNumber) == phone
	}

	return printJSON(map[string]any{
		"status":  status,
		"actions": core.ActionsFor(status, isMaster),
	})
}

func (a *app) markSent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mark-sent", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	fs.Parse(args)

	return a.service.MarkPaymentSent(ctx, *roomID, *invoiceID)
}

func (a *app) markComplete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mark-complete", flag.ExitOnError)
	roomID := fs.Int64("room", 0, "room id")
	invoiceID := fs.Int64("invoice", 0, "invoice id")
	fs.Parse(args)

	return a.service.MarkComplete(ctx, *roomID, *invoiceID)
}

func parseExpenses(raw string) ([]core.Expense, error) {
	var expenses []core.Expense
	if err := json.Unmarshal([]byte(raw), &expenses); err != nil {
		return nil, fmt.Errorf("parse expenses: %w", err)
	}
	return expenses, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sharinghome: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: sharinghome <command> [flags]

Rooms:
  rooms                                 list rooms
  create-room -name NAME [-home NAME]   create a room
  delete-room -room ID                  delete a room and its data

Members:
  members -room ID                      list members
  add-member -room ID -phone P [...]    add a member
  edit-member -room ID -member ID [...] edit a member
  delete-member -room ID -member ID     remove a member
  assign-master -room ID -member ID     make a member the room master
  search-member -room ID -phone P       find a member by phone

Identity:
  resolve -phone P [-room ID]           resolve a display identity
  set-session -phone P [-role R]        set the session user
  set-profile [-name N] [-photo URL]    edit the session profile

Invoices:
  invoices -room ID                     list invoices
  current-invoice -room ID              show the current invoice
  create-invoice -room ID -expenses J   create an invoice
  edit-invoice -room ID -invoice ID -expenses J
  override-share -room ID -invoice ID -amount A | -clear
  delete-invoice -room ID -invoice ID
  append-expense -room ID -name N -price P [-quantity Q]
  remove-expense -room ID -index I
  status -room ID -invoice ID           effective status and actions
  mark-sent -room ID -invoice ID        member: payment sent
  mark-complete -room ID -invoice ID    master: confirm payment
`)
}
