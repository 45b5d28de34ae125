package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
	Courses(ctx context.Context) error
	NewCourse(ctx context.Context) error
	Sections(ctx context.Context, args string) error
	Reorder(ctx context.Context, args string) error
	Quiz(ctx context.Context, args string) error
	Live(ctx context.Context, sessionID string) error
	Say(ctx context.Context, text string) error
	Leave(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the LearnHub CLI.
//
// It reads a line from reader, parses the first token as the
// command, and dispatches to methods on 'a'. Errors returned by handlers are
// printed and the loop continues. The loop exits on EOF, when ctx is
// cancelled, or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help, register, login, exit
//
//	Logged in:
//	  - help, me, courses, logout, exit
//	  - avatar <file>      upload a profile picture
//	  - newcourse          create a course
//	  - sections <courseId>
//	  - reorder <courseId> <from> <to>
//	  - quiz <assessmentId> [minutes]
//	  - live <sessionId>   join a live session chat
//	  - say <text>         send a chat message
//	  - leave              leave the live session
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "learnhub %s> ", statusFn())
		line, readErr := readLine(ctx, reader)
		if ctx.Err() != nil || (readErr != nil && line == "") {
			fmt.Fprintln(w)
			return
		}
		line = strings.TrimSpace(line)
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if cmd == "" {
			continue
		}

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: me, avatar <file>, courses, newcourse, sections <courseId>, reorder <courseId> <from> <to>, quiz <assessmentId> [minutes], live <sessionId>, say <text>, leave, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		case "me", "avatar", "courses", "newcourse", "sections", "reorder", "quiz", "live", "say", "leave", "logout":
			if !a.isLoggedIn() {
				fmt.Fprintln(w, "Please login first")
				continue
			}
			err = runAuthenticated(ctx, a, cmd, rest, w)

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}
}

func runAuthenticated(ctx context.Context, a execIface, cmd, rest string, w io.Writer) error {
	switch cmd {
	case "me":
		return a.Me(ctx)
	case "avatar":
		if rest == "" {
			fmt.Fprintln(w, "Usage: avatar <file>")
			return nil
		}
		return a.Avatar(ctx, rest)
	case "courses":
		return a.Courses(ctx)
	case "newcourse":
		return a.NewCourse(ctx)
	case "sections":
		return a.Sections(ctx, rest)
	case "reorder":
		return a.Reorder(ctx, rest)
	case "quiz":
		return a.Quiz(ctx, rest)
	case "live":
		if rest == "" {
			fmt.Fprintln(w, "Usage: live <sessionId>")
			return nil
		}
		return a.Live(ctx, rest)
	case "say":
		if rest == "" {
			fmt.Fprintln(w, "Usage: say <text>")
			return nil
		}
		return a.Say(ctx, rest)
	case "leave":
		return a.Leave(ctx)
	case "logout":
		return a.Logout(ctx)
	}
	return nil
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line unless ctx is cancelled first. The read is started
// only on demand so that command handlers can keep prompting from the same
// reader.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		l, err := reader.ReadString('\n')
		ch <- lineResult{line: l, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}
