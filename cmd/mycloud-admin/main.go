// Command mycloud-admin manages user roles in the mycloud SQLite directory.
//
// A running mycloudd picks up changes within users.cache_ttl, or immediately
// after it receives SIGHUP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"mycloud/pkg/config"
	"mycloud/pkg/log"
	"mycloud/pkg/models"
	"mycloud/pkg/users"
)

var errUsage = errors.New("one of -list, -set-role, -delete or -import is required")

type options struct {
	dbPath  string
	list    bool
	setRole string
	remove  string
	seed    string
}

func main() {
	_ = log.Logger

	var opts options
	flag.StringVar(&opts.dbPath, "db", config.DefaultDBPath, "User database path")
	flag.BoolVar(&opts.list, "list", false, "List users and roles")
	flag.StringVar(&opts.setRole, "set-role", "", "Assign a role, e.g. alice=admin")
	flag.StringVar(&opts.remove, "delete", "", "Delete a user")
	flag.StringVar(&opts.seed, "import", "", "Import roles from a users.json file")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func run(ctx context.Context, opts options) error {
	if !opts.list && opts.setRole == "" && opts.remove == "" && opts.seed == "" {
		return errUsage
	}

	store, err := users.NewStore(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.seed != "" {
		count, err := store.Import(ctx, opts.seed)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d users from %s\n", count, opts.seed)
	}

	if opts.setRole != "" {
		userID, role, err := parseAssignment(opts.setRole)
		if err != nil {
			return err
		}
		record, err := store.SetRole(ctx, userID, role)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", record.ID, record.Role)
	}

	if opts.remove != "" {
		if err := store.Delete(ctx, opts.remove); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", opts.remove)
	}

	if opts.list {
		return printUsers(ctx, store)
	}

	return nil
}

// parseAssignment splits "alice=admin" into a user ID and a role.
func parseAssignment(value string) (string, models.Role, error) {
	userID, role, ok := strings.Cut(value, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid role assignment %q, expected user=role", value)
	}
	return strings.TrimSpace(userID), models.Role(strings.ToLower(strings.TrimSpace(role))), nil
}

func printUsers(ctx context.Context, store *users.Store) error {
	records, err := store.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tROLE\tUPDATED")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", record.ID, record.Role, record.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
