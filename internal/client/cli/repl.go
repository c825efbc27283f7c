package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Token(ctx context.Context) error
	Me(ctx context.Context) error
	List(ctx context.Context) error
	Post(ctx context.Context, text string) error
	Delete(ctx context.Context, arg string) error
}

// runREPL reads commands line by line and dispatches them to a. It returns on
// EOF or when the user types "exit" or "quit". Handlers report their own
// errors, so the loop ignores them.
//
//	help             show available commands
//	token            paste an ID token (read without echo)
//	me               show the signed-in user
//	list | l         list messages, newest first
//	post [text]      create a message; prompts when text is omitted
//	delete <id>      delete one of your messages
//	exit | quit      leave the program
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, w io.Writer) {
	for {
		status := "anonymous"
		if a.isLoggedIn() {
			status = "signed in"
		}
		fmt.Fprintf(w, "workout (%s)> ", status)

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}

		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "":
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: me, (l)ist, post [text], delete <id>, token, exit")
			} else {
				fmt.Fprintln(w, "Available commands: token, exit")
			}
		case "token":
			_ = a.Token(ctx)
		case "me":
			_ = a.Me(ctx)
		case "l", "list":
			_ = a.List(ctx)
		case "post":
			_ = a.Post(ctx, rest)
		case "delete":
			if rest == "" {
				fmt.Fprintln(w, "Usage: delete <id>")
				continue
			}
			_ = a.Delete(ctx, rest)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
