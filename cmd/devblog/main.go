package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"devblog/internal/app"
	"devblog/internal/config"
)

const DevblogVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", 0)
}

func main() {
	usage := `Dev blog client.

Settings come from the environment (DEVBLOG_API_URL, SESSION_BACKEND, ...)
or a .env file; the options below override them.

Usage:
    devblog posts [options] [--json]
    devblog show [options] <id>
    devblog create [options]
        --title=<title>
        --excerpt=<excerpt>
        --content=<content>
        --author=<author>
        [--tags=<tags>]
    devblog edit [options] <id>
        [--title=<title>]
        [--excerpt=<excerpt>]
        [--content=<content>]
        [--author=<author>]
        [--tags=<tags>]
    devblog delete [options] <id> [--yes]
    devblog login [options] --email=<email> [--password=<password>]
    devblog register [options] --name=<name> --email=<email>
    devblog logout [options]
    devblog whoami [options]
    devblog -h | --help
    devblog --version

Options:
    -h --help                Show this screen.
    --version                Show version.
    --api_url=<api_url>      Blog API root.
    --profile=<profile>      Session profile.
    --backend=<backend>      Session backend: memory, redis or mysql.
    -v --verbose=<level>     Log verbosity [default: 0].
    --json                   Print JSON.
    --yes                    Do not ask for confirmation.
    --title=<title>
    --excerpt=<excerpt>      At most 150 characters.
    --content=<content>
    --author=<author>        Name shown on the post.
    --tags=<tags>            Comma separated.
    --email=<email>
    --password=<password>    Prompted for when omitted.
    --name=<name>            Full name.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], DevblogVersion)
	if err != nil {
		panic(err)
	}

	verbose, _ := opts.String("--verbose")
	flag.Set("logtostderr", "true")
	flag.Set("v", verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if apiURL, _ := opts.String("--api_url"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if profile, _ := opts.String("--profile"); profile != "" {
		cfg.SessionProfile = profile
	}
	if backend, _ := opts.String("--backend"); backend != "" {
		cfg.SessionBackend = backend
	}

	ui := newTerminalUI(os.Stdin)
	client, err := app.New(ctx, cfg, ui)
	if err != nil {
		Err.Printf("devblog: %v", err)
		os.Exit(1)
	}
	defer client.Close()

	var run func(context.Context, *app.App, *terminalUI, docopt.Opts) error
	switch {
	case isCommand(opts, "posts"):
		run = listPosts
	case isCommand(opts, "show"):
		run = showPost
	case isCommand(opts, "create"):
		run = createPost
	case isCommand(opts, "edit"):
		run = editPost
	case isCommand(opts, "delete"):
		run = deletePost
	case isCommand(opts, "login"):
		run = login
	case isCommand(opts, "register"):
		run = register
	case isCommand(opts, "logout"):
		run = logout
	case isCommand(opts, "whoami"):
		run = whoami
	}

	err = run(ctx, client, ui, opts)
	glog.Flush()
	if err != nil {
		if !ui.notified {
			Err.Printf("devblog: %v", err)
		}
		ui.hint()
		client.Close()
		os.Exit(exitCode(err))
	}
}

func isCommand(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
