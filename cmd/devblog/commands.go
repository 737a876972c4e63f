package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/docopt/docopt-go"

	"devblog/internal/app"
	"devblog/internal/flow"
	"devblog/internal/model"
	"devblog/internal/permission"
)

func listPosts(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	posts, err := client.Posts.ListPosts(ctx)
	if err != nil {
		return err
	}
	if asJSON, _ := opts.Bool("--json"); asJSON {
		return printJSON(posts)
	}
	if len(posts) == 0 {
		Out.Println("No posts yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTITLE\tAUTHOR\tTAGS")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, formatDate(p.CreatedAt), p.Title, p.AuthorName, model.JoinTags(p.Tags))
	}
	return w.Flush()
}

func showPost(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	id, _ := opts.String("<id>")
	post, err := client.Posts.GetPost(ctx, id)
	if err != nil {
		return err
	}

	Out.Println(post.Title)
	Out.Println(strings.Repeat("=", len(post.Title)))
	Out.Printf("by %s on %s", post.AuthorName, formatDate(post.CreatedAt))
	if len(post.Tags) > 0 {
		Out.Printf("tags: %s", model.JoinTags(post.Tags))
	}
	Out.Println()
	Out.Println(post.Excerpt)
	Out.Println()
	Out.Println(post.Content)

	user, err := client.Auth.CurrentUser(ctx)
	if err == nil && permission.CanEdit(user, post) {
		Out.Println()
		Out.Printf("You wrote this. devblog edit %s | devblog delete %s", post.ID, post.ID)
	}
	return nil
}

func createPost(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	if _, err := client.Posts.EnterCreate(ctx); err != nil {
		return err
	}

	var form model.PostForm
	form.Title, _ = opts.String("--title")
	form.Excerpt, _ = opts.String("--excerpt")
	form.Content, _ = opts.String("--content")
	form.AuthorName, _ = opts.String("--author")
	form.Tags, _ = opts.String("--tags")

	post, err := client.Posts.Create(ctx, form)
	if err != nil {
		return err
	}
	Out.Printf("%s", post.ID)
	return nil
}

func editPost(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	id, _ := opts.String("<id>")
	form, err := client.Posts.EnterEdit(ctx, id)
	if err != nil {
		return err
	}

	for flag, field := range map[string]*string{
		"--title":   &form.Title,
		"--excerpt": &form.Excerpt,
		"--content": &form.Content,
		"--author":  &form.AuthorName,
		"--tags":    &form.Tags,
	} {
		if v, ok := opts[flag].(string); ok {
			*field = v
		}
	}

	_, err = client.Posts.Update(ctx, id, form)
	return err
}

func deletePost(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	id, _ := opts.String("<id>")
	ui.autoYes, _ = opts.Bool("--yes")

	err := client.Posts.Delete(ctx, id)
	if errors.Is(err, flow.ErrCancelled) {
		Out.Println("Nothing deleted.")
		return nil
	}
	return err
}

func login(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	var in model.LoginInput
	in.Email, _ = opts.String("--email")

	if password, ok := opts["--password"].(string); ok {
		in.Password = password
	} else {
		password, err := promptPassword(ui, "Password: ")
		if err != nil {
			return err
		}
		in.Password = password
	}

	user, err := client.Auth.Login(ctx, in)
	if err != nil {
		return err
	}
	Out.Printf("Signed in as %s", permission.DisplayName(user))
	return nil
}

func register(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	var in model.RegisterInput
	in.FullName, _ = opts.String("--name")
	in.Email, _ = opts.String("--email")

	var err error
	if in.Password, err = promptPassword(ui, "Password: "); err != nil {
		return err
	}
	if in.ConfirmPassword, err = promptPassword(ui, "Confirm password: "); err != nil {
		return err
	}

	_, err = client.Auth.Register(ctx, in)
	return err
}

func logout(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	// local state is gone either way; the notice already said how the server took it
	client.Auth.Logout(ctx)
	return nil
}

func whoami(ctx context.Context, client *app.App, ui *terminalUI, opts docopt.Opts) error {
	user, err := client.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		Out.Println(permission.DisplayName(nil))
		return nil
	}

	Out.Printf("%s <%s>", permission.DisplayName(user), user.Email)
	if claims, err := client.Session.Claims(ctx); err == nil && !claims.ExpiresAt.IsZero() {
		if claims.Expired(time.Now()) {
			Out.Printf("session expired %s", claims.ExpiresAt.Local().Format(time.RFC1123))
		} else {
			Out.Printf("session valid until %s", claims.ExpiresAt.Local().Format(time.RFC1123))
		}
	}
	return nil
}

func promptPassword(ui *terminalUI, prompt string) (string, error) {
	if isTerminal() {
		return readPassword(prompt)
	}
	line, err := ui.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2, 2006")
}
