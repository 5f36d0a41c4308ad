package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a recording stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	RequestOTP(ctx context.Context) error
	Refresh(ctx context.Context, code string) error
	Cancel(ctx context.Context) error
	History(ctx context.Context, sub string) error
	Token(ctx context.Context, reveal bool) error
	Journal(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, help, exit"
	helpLoggedIn  = "Available commands: status, otp, refresh [code], cancel, history [reload|close], token [reveal], journal, logout, help, exit"
)

// runREPL reads one command per line from reader and dispatches it to a.
// The prompt shows statusFn's summary. The loop ends on EOF, "exit" or
// "quit", or when ctx is cancelled between commands.
//
// Handlers report their own failures; errors returned here are only logged
// by the handler and never stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("tk> %s > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help", "?":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "s", "status":
			_ = a.Status(ctx)

		case "otp", "resend":
			_ = a.RequestOTP(ctx)

		case "refresh":
			_ = a.Refresh(ctx, strings.Join(args, ""))

		case "cancel":
			_ = a.Cancel(ctx)

		case "history":
			sub := ""
			if len(args) > 0 {
				sub = args[0]
			}
			_ = a.History(ctx, sub)

		case "token":
			_ = a.Token(ctx, len(args) > 0 && args[0] == "reveal")

		case "journal":
			_ = a.Journal(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
