package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"golang.org/x/term"

	"devblog/internal/flow"
)

// terminalUI presents flow output on the terminal.
type terminalUI struct {
	in       *bufio.Reader
	route    string
	notified bool
	autoYes  bool
}

func newTerminalUI(in io.Reader) *terminalUI {
	return &terminalUI{in: bufio.NewReader(in)}
}

func (u *terminalUI) Notify(kind flow.NoticeKind, message string) {
	switch kind {
	case flow.NoticeError:
		u.notified = true
		Err.Printf("error: %s", message)
	default:
		Out.Println(message)
	}
}

func (u *terminalUI) Navigate(route string) {
	glog.V(1).Infof("navigate %s", route)
	u.route = route
}

func (u *terminalUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	if u.autoYes {
		return true, nil
	}
	fmt.Printf("%s [y/N] ", prompt)

	answer := make(chan string, 1)
	go func() {
		line, _ := u.in.ReadString('\n')
		answer <- line
	}()

	select {
	case line := <-answer:
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes", nil
	case <-ctx.Done():
		fmt.Println()
		return false, ctx.Err()
	}
}

// hint tells the user what the last navigation meant on a terminal.
func (u *terminalUI) hint() {
	if u.route == flow.RouteLogin {
		Err.Println("Sign in first: devblog login --email=<email>")
	}
}

// readPassword prompts on the terminal without echo.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Printf("\n")
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
