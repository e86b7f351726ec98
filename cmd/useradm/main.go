// Command useradm edits the admin frontend's user store from the shell.
//
//	useradm add -file data/user/user.json -user alice -admin
//	useradm passwd -user alice
//	useradm list
//	useradm hash
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"mucajeyadmin/auth"
	"mucajeyadmin/models"
	"mucajeyadmin/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errUsage = errors.New("usage: useradm <add|passwd|delete|list|hash> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type storeFlags struct {
	driver string
	file   string
	db     string
	secret string
}

func (f *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.driver, "store", envOr("ADMIN_FRONTEND_USER_STORE", "json"), "user store driver (json or sqlite)")
	fs.StringVar(&f.file, "file", envOr("ADMIN_FRONTEND_USER_FILE", "data/user/user.json"), "JSON user file")
	fs.StringVar(&f.db, "db", envOr("ADMIN_FRONTEND_USER_DB", "data/user/users.db"), "SQLite database")
	f.secret = os.Getenv("ADMIN_FRONTEND_APIKEY_SECRET")
}

func (f *storeFlags) open() (store.Store, func() error, error) {
	return store.Open(store.Options{Driver: f.driver, File: f.file, DB: f.db, APIKeySecret: f.secret})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	var sf storeFlags
	fs := flag.NewFlagSet("useradm "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	cost := fs.Int("cost", auth.DefaultCost, "bcrypt cost")

	switch args[0] {
	case "add":
		sf.register(fs)
		user := fs.String("user", "", "username")
		admin := fs.Bool("admin", false, "grant the admin role")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return withGateway(sf, *cost, func(g *auth.Gateway) error {
			password, err := promptPassword(stderr)
			if err != nil {
				return err
			}
			role := models.RoleUser
			if *admin {
				role = models.RoleAdmin
			}
			p, err := g.CreateUser(ctx, *user, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "created %s (%s)\n", p.Username, p.Role)
			return nil
		})

	case "passwd":
		sf.register(fs)
		user := fs.String("user", "", "username")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return withGateway(sf, *cost, func(g *auth.Gateway) error {
			password, err := promptPassword(stderr)
			if err != nil {
				return err
			}
			p, err := g.ResetPassword(ctx, *user, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "password updated for %s\n", p.Username)
			return nil
		})

	case "delete":
		sf.register(fs)
		user := fs.String("user", "", "username")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *user == "" {
			return errors.New("-user is required")
		}
		return withGateway(sf, *cost, func(g *auth.Gateway) error {
			if err := g.DeleteUser(ctx, models.Profile{}, *user); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "deleted %s\n", *user)
			return nil
		})

	case "list":
		sf.register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return withGateway(sf, *cost, func(g *auth.Gateway) error {
			users, err := g.ListUsers(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tTYPE\tAPI KEY")
			for _, u := range users {
				key := "-"
				if u.APIKey != "" {
					key = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Role, key)
			}
			return tw.Flush()
		})

	case "hash":
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		password, err := promptPassword(stderr)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password, *cost)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, hash)
		return nil
	}
	return errUsage
}

func withGateway(sf storeFlags, cost int, fn func(*auth.Gateway) error) error {
	st, closeStore, err := sf.open()
	if err != nil {
		return err
	}
	defer closeStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := auth.NewGateway(st, nil, cost, logger)
	if err != nil {
		return err
	}
	return fn(g)
}

// promptPassword asks twice and insists both entries match.
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
