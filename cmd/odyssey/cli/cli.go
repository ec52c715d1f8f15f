// Package cli implements the administrative subcommands of the console
// binary: schema migration, account provisioning and job control.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"github.com/odyssey-erp/odyssey-console/internal/users"
)

// ErrUsage is returned for unknown or malformed subcommands.
var ErrUsage = errors.New("usage: odyssey [serve | migrate | users create --email --name --password [--role] | users role --id [--role] | jobs trigger <name> | jobs stats | jobs scheduled]")

// UserAdmin provisions accounts. users.Service satisfies it.
type UserAdmin interface {
	Create(ctx context.Context, in users.CreateInput) (users.User, error)
	AssignRole(ctx context.Context, userID int64, role string) error
}

// JobControl is the subset of JobsCLI used by Run.
type JobControl interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
}

// Env carries the dependencies of the subcommands. Fields a command does
// not use may be nil.
type Env struct {
	Out     io.Writer
	Migrate func(ctx context.Context) error
	Users   UserAdmin
	Jobs    JobControl
}

// IsCommand reports whether args name an administrative subcommand rather
// than the HTTP server.
func IsCommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate", "users", "jobs":
		return true
	}
	return false
}

// Run executes one subcommand.
func Run(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "migrate":
		if env.Migrate == nil {
			return errors.New("cli: migrations not configured")
		}
		if err := env.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(env.Out, "migrations applied")
		return nil
	case "users":
		return runUsers(ctx, env, args[1:])
	case "jobs":
		return runJobs(ctx, env, args[1:])
	}
	return ErrUsage
}

func runUsers(ctx context.Context, env Env, args []string) error {
	if env.Users == nil {
		return errors.New("cli: user admin not configured")
	}
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "create":
		fs := pflag.NewFlagSet("users create", pflag.ContinueOnError)
		fs.SetOutput(env.Out)
		var in users.CreateInput
		fs.StringVarP(&in.Email, "email", "e", "", "account email")
		fs.StringVarP(&in.Name, "name", "n", "", "display name")
		fs.StringVarP(&in.Password, "password", "p", "", "initial password")
		fs.StringVarP(&in.Role, "role", "r", "", "role name, empty for none")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		u, err := env.Users.Create(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "created user %d <%s> role=%q\n", u.ID, u.Email, u.Role)
		return nil
	case "role":
		fs := pflag.NewFlagSet("users role", pflag.ContinueOnError)
		fs.SetOutput(env.Out)
		id := fs.Int64("id", 0, "user id")
		role := fs.StringP("role", "r", "", "role name, empty to revoke")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if !fs.Changed("id") {
			return fmt.Errorf("cli: users role: --id is required: %w", ErrUsage)
		}
		if err := env.Users.AssignRole(ctx, *id, *role); err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "user %d role=%q\n", *id, *role)
		return nil
	}
	return ErrUsage
}

func runJobs(ctx context.Context, env Env, args []string) error {
	if env.Jobs == nil {
		return errors.New("cli: job queue not configured")
	}
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			return ErrUsage
		}
		info, err := env.Jobs.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := env.Jobs.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	case "scheduled":
		tasks, err := env.Jobs.ListScheduled(ctx, 20)
		if err != nil {
			return err
		}
		for _, info := range tasks {
			fmt.Fprintf(env.Out, "%s %s next=%s\n", info.ID, info.Type, info.NextProcessAt.Format(time.RFC3339))
		}
		if len(tasks) == 0 {
			fmt.Fprintln(env.Out, "no scheduled tasks")
		}
		return nil
	}
	return ErrUsage
}
