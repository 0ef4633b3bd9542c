package tui

import (
	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/todo"
)

type view int

const (
	viewBoot view = iota
	viewAuth
	viewTasks
)

type focusArea int

const (
	focusText focusArea = iota
	focusDeadline
	focusList
)

// Messages produced by async commands. gen ties a result to the signed-in session it
// was started for, so results arriving after a sign-out are dropped.

type authCheckedMsg struct {
	user *model.User
	err  error
}

type signedInMsg struct {
	user *model.User
	res  todo.Result
}

type fetchDoneMsg struct {
	gen   int
	tasks []model.Task
	err   error
}

type subscribedMsg struct {
	gen int
	sub backend.Subscription
	err error
}

type changeMsg struct {
	gen int
	ev  model.ChangeEvent
}

type subClosedMsg struct{ gen int }

type createDoneMsg struct {
	gen int
	res todo.Result
}

type rowDoneMsg struct {
	gen int
	id  string
	res todo.Result
}

type logoutDoneMsg struct{ res todo.Result }

type toastExpiredMsg struct{ seq int }
