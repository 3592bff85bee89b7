package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	SubmitOTP(ctx context.Context) error
	ResendOTP(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Refresh(ctx context.Context) error
	Status(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit".
//
//	Not logged in:
//	  login, otp, resend, change, reset, status, exit
//
//	Logged in:
//	  status, refresh, logout, exit
//
// Errors returned by handlers are ignored; handlers report them to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("srp %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, refresh, logout, exit")
			} else {
				printlnFn("Available commands: login, otp, resend, change, reset, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "otp":
			_ = a.SubmitOTP(ctx)

		case "resend":
			_ = a.ResendOTP(ctx)

		case "change":
			_ = a.ChangePassword(ctx)

		case "reset":
			_ = a.ResetPassword(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "status":
			_ = a.Status(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
