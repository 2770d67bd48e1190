// Package terminal is a line-oriented front-end over the application model.
// Each loop renders the current page, then prompts for the fields it needs.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"finpocket/internal/app"
	"finpocket/internal/core"
	"finpocket/internal/log"
)

// Commands accepted at any prompt.
const (
	CmdBack = ":back"
	CmdQuit = ":quit"
)

var (
	errBack = errors.New("back")
	errQuit = errors.New("quit")
)

// PasswordReader reads a password, typically without echo.
type PasswordReader func() (string, error)

type UI struct {
	app          *app.App
	in           *bufio.Reader
	out          io.Writer
	readPassword PasswordReader
	logger       *log.Logger
}

type Option func(*UI)

// WithPasswordReader replaces the default, which reads a visible line.
func WithPasswordReader(r PasswordReader) Option {
	return func(u *UI) {
		if r != nil {
			u.readPassword = r
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(u *UI) {
		if l != nil {
			u.logger = l.WithComponent(log.ComponentTerminal)
		}
	}
}

func New(a *app.App, in io.Reader, out io.Writer, opts ...Option) *UI {
	u := &UI{
		app:    a,
		in:     bufio.NewReader(in),
		out:    out,
		logger: log.Discard(),
	}
	u.readPassword = u.readVisiblePassword
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// StdinPassword reads from the terminal without echo when stdin is one and
// returns nil otherwise, so piped input keeps working.
func StdinPassword(out io.Writer) PasswordReader {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func() (string, error) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
}

// Run drives the model until input ends, the user quits or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		u.render()

		err := u.step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errBack):
			_ = u.app.Back()
		case errors.Is(err, errQuit), errors.Is(err, io.EOF):
			fmt.Fprintln(u.out, "Goodbye.")
			return nil
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Failures already surface as notices on the next render.
			u.logger.DebugContext(ctx, "Action failed",
				log.FieldPage, u.app.Page().String(),
				log.FieldError, err.Error())
		}
	}
}

func (u *UI) step(ctx context.Context) error {
	switch u.app.Page() {
	case app.PageLogin:
		return u.login(ctx)
	case app.PageDashboard:
		return u.dashboard(ctx)
	case app.PageAddAccount:
		return u.addAccount(ctx)
	case app.PageAddExpense:
		return u.addExpense(ctx)
	case app.PageAdjustBalance:
		return u.adjustBalance(ctx)
	case app.PagePockets:
		return u.pockets(ctx)
	default:
		return fmt.Errorf("%w: %q", app.ErrUnknownPage, u.app.Page())
	}
}

func (u *UI) render() {
	v := u.app.View()
	u.app.ClearNotices()

	fmt.Fprintf(u.out, "\n== %s ==\n", v.Title)
	for _, n := range v.Notices {
		prefix := "OK"
		if n.IsError() {
			prefix = "!!"
		}
		fmt.Fprintf(u.out, "[%s] %s\n", prefix, n.Text)
	}

	if v.Page != app.PageDashboard {
		if v.Page != app.PageLogin {
			fmt.Fprintf(u.out, "(%s returns to the dashboard, %s exits)\n", CmdBack, CmdQuit)
		}
		return
	}
	fmt.Fprintf(u.out, "Welcome, %s\n", v.User.Username)
	fmt.Fprintf(u.out, "Total Balance: ₹%s\n", v.TotalBalance)
	if len(v.Accounts) == 0 {
		fmt.Fprintln(u.out, "No accounts found.")
	}
	for _, a := range v.Accounts {
		fmt.Fprintf(u.out, "- %s (%s): ₹%s\n", a.Name, a.Type, a.Balance.String())
	}
}

func (u *UI) login(ctx context.Context) error {
	username, err := u.prompt("Username")
	if err != nil {
		return err
	}
	fmt.Fprint(u.out, "Password: ")
	password, err := u.readPassword()
	if err != nil {
		return err
	}
	return u.app.SubmitLogin(ctx, app.LoginForm{Username: username, Password: password})
}

var dashboardMenu = []struct {
	label string
	page  app.Page
}{
	{"Add Account", app.PageAddAccount},
	{"Add Expense", app.PageAddExpense},
	{"Adjust Balance", app.PageAdjustBalance},
	{"Pockets", app.PagePockets},
}

func (u *UI) dashboard(ctx context.Context) error {
	for i, item := range dashboardMenu {
		fmt.Fprintf(u.out, "%d) %s\n", i+1, item.label)
	}
	fmt.Fprintln(u.out, "l) Logout")
	fmt.Fprintln(u.out, "q) Quit")

	choice, err := u.prompt("Choose")
	if err != nil {
		return err
	}
	switch choice = strings.ToLower(strings.TrimSpace(choice)); choice {
	case "l", "logout":
		u.app.Logout(ctx)
		return nil
	case "q", "quit":
		return errQuit
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(dashboardMenu) {
		fmt.Fprintf(u.out, "Unknown choice %q\n", choice)
		return nil
	}
	return u.app.Navigate(dashboardMenu[n-1].page)
}

func (u *UI) addAccount(ctx context.Context) error {
	d := u.app.Drafts().Account
	name, err := u.promptDefault("Account Name", d.Name)
	if err != nil {
		return err
	}
	typ, err := u.choose("Account Type", stringsOf(u.app.View().AccountTypes), d.Type.String())
	if err != nil {
		return err
	}
	balance, err := u.promptDefault("Initial Balance", d.Balance)
	if err != nil {
		return err
	}
	return u.app.SubmitAccount(ctx, app.AccountForm{Name: name, Type: core.AccountType(typ), Balance: balance})
}

func (u *UI) addExpense(ctx context.Context) error {
	v := u.app.View()
	d := v.Drafts.Expense
	category, err := u.choose("Category", v.Categories, d.Category)
	if err != nil {
		return err
	}
	amount, err := u.promptDefault("Amount", d.Amount)
	if err != nil {
		return err
	}
	account, err := u.choose("Account", v.AccountNames, d.AccountName)
	if err != nil {
		return err
	}
	note, err := u.promptDefault("Note", d.Note)
	if err != nil {
		return err
	}
	return u.app.SubmitExpense(ctx, app.ExpenseForm{Category: category, Amount: amount, AccountName: account, Note: note})
}

func (u *UI) adjustBalance(ctx context.Context) error {
	v := u.app.View()
	d := v.Drafts.Balance
	account, err := u.choose("Account", v.AccountNames, d.AccountName)
	if err != nil {
		return err
	}
	balance, err := u.promptDefault("New Balance", d.NewBalance)
	if err != nil {
		return err
	}
	return u.app.SubmitBalance(ctx, app.BalanceForm{AccountName: account, NewBalance: balance})
}

func (u *UI) pockets(ctx context.Context) error {
	v := u.app.View()
	d := v.Drafts.Pocket
	person, err := u.promptDefault("Person Name", d.PersonName)
	if err != nil {
		return err
	}
	typ, err := u.choose("Type", stringsOf(v.PocketTypes), d.Type)
	if err != nil {
		return err
	}
	amount, err := u.promptDefault("Amount", d.Amount)
	if err != nil {
		return err
	}
	date, err := u.promptDefault("Date (YYYY-MM-DD)", d.Date)
	if err != nil {
		return err
	}
	purpose, err := u.promptDefault("Purpose", d.Purpose)
	if err != nil {
		return err
	}
	return u.app.SubmitPocket(ctx, app.PocketForm{PersonName: person, Type: typ, Amount: amount, Date: date, Purpose: purpose})
}

// prompt reads one line. The two commands are recognised before the value
// is returned; the value itself is passed through untrimmed.
func (u *UI) prompt(label string) (string, error) {
	fmt.Fprintf(u.out, "%s: ", label)
	line, err := u.readLine()
	if err != nil {
		return "", err
	}
	switch strings.TrimSpace(line) {
	case CmdBack:
		return "", errBack
	case CmdQuit:
		return "", errQuit
	}
	return line, nil
}

// promptDefault shows the draft value; an empty answer keeps it.
func (u *UI) promptDefault(label, current string) (string, error) {
	if current != "" {
		label = fmt.Sprintf("%s [%s]", label, current)
	}
	v, err := u.prompt(label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

// choose lists options by number. An answer is either a number or the text
// of the value; an empty answer keeps current.
func (u *UI) choose(label string, options []string, current string) (string, error) {
	for i, o := range options {
		fmt.Fprintf(u.out, "  %d) %s\n", i+1, o)
	}
	v, err := u.promptDefault(label, current)
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(strings.TrimSpace(v)); convErr == nil && n >= 1 && n <= len(options) {
		return options[n-1], nil
	}
	return v, nil
}

func (u *UI) readLine() (string, error) {
	line, err := u.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (u *UI) readVisiblePassword() (string, error) {
	return u.readLine()
}

func stringsOf[T fmt.Stringer](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.String())
	}
	return out
}
