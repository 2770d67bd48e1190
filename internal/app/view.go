package app

import "finpocket/internal/core"

// View is a read-only snapshot of everything a front-end renders.
type View struct {
	Page          Page
	Title         string
	Authenticated bool
	User          core.User
	Accounts      []core.Account
	AccountNames  []string
	TotalBalance  string
	Drafts        Drafts
	Notices       []Notice

	Categories   []string
	AccountTypes []core.AccountType
	PocketTypes  []core.PocketType
}

// View snapshots the model. Notices are included but not consumed.
func (a *App) View() View {
	user, ok := a.session.User()
	return View{
		Page:          a.router.Current(),
		Title:         a.router.Current().Title(),
		Authenticated: ok,
		User:          user,
		Accounts:      a.session.Accounts(),
		AccountNames:  a.session.AccountNames(),
		TotalBalance:  core.FormatAmount(a.session.TotalBalance()),
		Drafts:        a.drafts,
		Notices:       a.Notices(),
		Categories:    append([]string(nil), core.ExpenseCategories...),
		AccountTypes:  append([]core.AccountType(nil), core.AccountTypes...),
		PocketTypes:   append([]core.PocketType(nil), core.PocketTypes...),
	}
}
