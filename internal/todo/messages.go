package todo

// User-facing text shared by the terminal and browser front ends.
const (
	AppTitle        = "Get It Done"
	TextPlaceholder = "What needs to be done?"
	LoadingText     = "Loading your todos..."
	EmptyTitle      = "You're all caught up! 🎉"
	EmptyHint       = "Add a new task to get started"

	MsgEnterTask       = "Please enter a task"
	MsgTaskTooLong     = "Task must be 500 characters or fewer"
	MsgInvalidDeadline = "Invalid deadline"
	MsgLoginRequired   = "You must be logged in to add todos"
	MsgAddFailed       = "Failed to add todo"
	MsgAdded           = "Todo added!"
	MsgUpdateFailed    = "Failed to update todo"
	MsgDeleteFailed    = "Failed to delete todo"
	MsgDeleted         = "Todo deleted"
	MsgLoadFailed      = "Failed to load todos"
	MsgSignInFailed    = "Failed to sign in"
	MsgEnterName       = "Please enter your name"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient message shown to the user (a toast).
type Notice struct {
	Kind NoticeKind
	Text string
}

func success(text string) *Notice { return &Notice{Kind: NoticeSuccess, Text: text} }
func failure(text string) *Notice { return &Notice{Kind: NoticeError, Text: text} }
