package app

import (
	"errors"
	"fmt"
)

// Page is a screen of the application.
type Page string

const (
	PageLogin         Page = "login"
	PageDashboard     Page = "dashboard"
	PageAddAccount    Page = "addAccount"
	PageAddExpense    Page = "addExpense"
	PageAdjustBalance Page = "adjustBalance"
	PagePockets       Page = "pockets"
)

// Pages lists every page in menu order.
var Pages = []Page{PageLogin, PageDashboard, PageAddAccount, PageAddExpense, PageAdjustBalance, PagePockets}

var ErrUnknownPage = errors.New("unknown page")

func (p Page) String() string { return string(p) }

// Title is the heading shown for the page.
func (p Page) Title() string {
	switch p {
	case PageLogin:
		return "FinPocket Login"
	case PageDashboard:
		return "Dashboard"
	case PageAddAccount:
		return "Add Account"
	case PageAddExpense:
		return "Add Expense"
	case PageAdjustBalance:
		return "Adjust Balance"
	case PagePockets:
		return "Pockets"
	default:
		return string(p)
	}
}

func (p Page) IsValid() bool {
	for _, known := range Pages {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePage returns the page named s.
func ParsePage(s string) (Page, error) {
	p := Page(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPage, s)
	}
	return p, nil
}

// Router tracks the current page. It keeps no history: going back always
// lands on the dashboard.
type Router struct {
	current Page
}

// NewRouter starts on the login page.
func NewRouter() *Router {
	return &Router{current: PageLogin}
}

func (r *Router) Current() Page { return r.current }

// Go moves to p. Unknown pages are rejected and the current page is kept.
func (r *Router) Go(p Page) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownPage, string(p))
	}
	r.current = p
	return nil
}

// Back returns to the dashboard.
func (r *Router) Back() {
	r.current = PageDashboard
}

// Reset returns to the login page.
func (r *Router) Reset() {
	r.current = PageLogin
}
