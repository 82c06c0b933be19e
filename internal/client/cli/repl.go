package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	touch()
	Login(ctx context.Context) error
	OAuth(ctx context.Context) error
	Me(ctx context.Context) error
	Status(ctx context.Context) error
	Notifications(ctx context.Context) error
	Read(ctx context.Context, args []string) error
	ReadAll(ctx context.Context) error
	Stats(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the tripmate CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Every line counts as user activity for the
// idle timer, including blank and unknown ones. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help             show available commands
//	  - login            authenticate with email and password
//	  - oauth            authenticate through the OAuth2 provider
//	  - status           show session state
//	  - stats            show client counters
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - me               fetch the profile from the server
//	  - (n)otifications  list notifications
//	  - read <id>        mark one notification as read
//	  - readall          mark all notifications as read
//	  - logout           end the session
//
// Any errors returned by command handlers are ignored here; handlers
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tm %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			return
		}
		a.touch()

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, status, (n)otifications, read <id>, readall, stats, logout, exit")
			} else {
				printlnFn("Available commands: login, oauth, status, stats, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "oauth":
			_ = a.OAuth(ctx)

		case "me":
			_ = a.Me(ctx)

		case "status":
			_ = a.Status(ctx)

		case "n", "notifications":
			_ = a.Notifications(ctx)

		case "read":
			_ = a.Read(ctx, args)

		case "readall":
			_ = a.ReadAll(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "logout":
			_ = a.Logout(ctx)

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
