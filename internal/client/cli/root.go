package cli

import (
	"bufio"
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := a.email
	if a.isLoggedIn() {
		if s != "" {
			s += " "
		}
		s += "authorized"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root runs the session watcher, asks for credentials once and then serves
// the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to srpgate (type 'help' for commands)")
	go a.watchSession(ctx)

	_ = a.Login(ctx)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
