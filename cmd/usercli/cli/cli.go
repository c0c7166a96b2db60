// Package cli implements the usercli subcommands over the user use cases.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
)

// ErrUsage is returned for unknown commands and bad arguments.
var ErrUsage = errors.New("usage error")

const usage = `usage: usercli [--base-url URL] [--timeout SECONDS] <command> [flags]

commands:
  list                         list all users
  get <id>                     show one user
  create --name N --email E [--city C] [--birth-date YYYY-MM-DD]
  update <id> [--name N] [--email E] [--city C] [--birth-date YYYY-MM-DD]
  delete <id>                  delete a user
  seed                         create the sample users
`

// CLI runs one command per call.
type CLI struct {
	uc  user.UserUsecase
	out io.Writer
	log *zap.Logger
	now func() time.Time
}

// New creates a CLI writing results to out.
func New(uc user.UserUsecase, out io.Writer, log *zap.Logger) *CLI {
	return &CLI{uc: uc, out: out, log: log, now: time.Now}
}

// Usage returns the help text.
func Usage() string { return usage }

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return c.list(ctx)
	case "get":
		id, err := singleID(cmd, rest)
		if err != nil {
			return err
		}
		u, err := c.uc.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		return c.print(c.view(u))
	case "create":
		return c.create(ctx, rest)
	case "update":
		return c.update(ctx, rest)
	case "delete":
		id, err := singleID(cmd, rest)
		if err != nil {
			return err
		}
		if err := c.uc.DeleteUser(ctx, id); err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.out, "deleted %s\n", id)
		return err
	case "seed":
		return c.seed(ctx)
	case "help", "-h", "--help":
		_, err := io.WriteString(c.out, usage)
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (c *CLI) list(ctx context.Context) error {
	users, err := c.uc.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = c.view(u)
	}
	return c.print(views)
}

type userFlags struct {
	fs        *pflag.FlagSet
	name      string
	email     string
	city      string
	birthDate string
}

func newUserFlags(cmd string) *userFlags {
	f := &userFlags{fs: pflag.NewFlagSet(cmd, pflag.ContinueOnError)}
	f.fs.SetOutput(io.Discard)
	f.fs.StringVar(&f.name, "name", "", "user name")
	f.fs.StringVar(&f.email, "email", "", "email address")
	f.fs.StringVar(&f.city, "city", "", "city")
	f.fs.StringVar(&f.birthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	return f
}

func (f *userFlags) parse(args []string) error {
	if err := f.fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// changed returns a pointer to value when the flag was given.
func (f *userFlags) changed(flag, value string) *string {
	if !f.fs.Changed(flag) {
		return nil
	}
	return &value
}

func (f *userFlags) date() (*time.Time, error) {
	if !f.fs.Changed("birth-date") || f.birthDate == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, f.birthDate)
	if err != nil {
		return nil, apperrors.NewValidationError("birthDate", fmt.Sprintf("%q is not a YYYY-MM-DD date", f.birthDate))
	}
	return &t, nil
}

func (c *CLI) create(ctx context.Context, args []string) error {
	f := newUserFlags("create")
	if err := f.parse(args); err != nil {
		return err
	}
	if f.fs.NArg() > 0 {
		return fmt.Errorf("%w: create takes no positional arguments", ErrUsage)
	}
	birth, err := f.date()
	if err != nil {
		return err
	}

	u, err := c.uc.CreateUser(ctx, user.CreateUserRequest{
		Name:      f.name,
		Email:     f.email,
		City:      f.changed("city", f.city),
		BirthDate: birth,
	})
	if err != nil {
		return err
	}
	return c.print(c.view(u))
}

func (c *CLI) update(ctx context.Context, args []string) error {
	f := newUserFlags("update")
	if err := f.parse(args); err != nil {
		return err
	}
	if f.fs.NArg() != 1 {
		return fmt.Errorf("%w: update takes exactly one id", ErrUsage)
	}
	birth, err := f.date()
	if err != nil {
		return err
	}

	u, err := c.uc.UpdateUser(ctx, user.UpdateUserRequest{
		ID:        f.fs.Arg(0),
		Name:      f.changed("name", f.name),
		Email:     f.changed("email", f.email),
		City:      f.changed("city", f.city),
		BirthDate: birth,
	})
	if err != nil {
		return err
	}
	return c.print(c.view(u))
}

// seedUsers are created by the seed command.
var seedUsers = []struct {
	name, email, city, birthDate string
}{
	{"John Doe", "john.doe@example.com", "New York", "1990-05-15"},
	{"Jane Smith", "jane.smith@example.com", "Los Angeles", "1985-08-22"},
}

// seed creates the sample users, skipping any whose email is already taken.
func (c *CLI) seed(ctx context.Context) error {
	for _, s := range seedUsers {
		city := s.city
		birth, _ := time.Parse(time.DateOnly, s.birthDate)

		u, err := c.uc.CreateUser(ctx, user.CreateUserRequest{
			Name:      s.name,
			Email:     s.email,
			City:      &city,
			BirthDate: &birth,
		})
		var exists *apperrors.AlreadyExistsError
		switch {
		case errors.As(err, &exists):
			c.log.Info("seed user already exists", zap.String("email", s.email))
			if _, err := fmt.Fprintf(c.out, "skipped %s (already exists)\n", s.email); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("seed %s: %w", s.email, err)
		default:
			if _, err := fmt.Fprintf(c.out, "created %s %s\n", u.ID(), u.Email()); err != nil {
				return err
			}
		}
	}
	return nil
}

// userView is the printed form of a user.
type userView struct {
	domain.Snapshot
	Age *int `json:"age,omitempty"`
}

func (c *CLI) view(u *domain.User) userView {
	v := userView{Snapshot: u.Snapshot()}
	if age, ok := u.Age(c.now()); ok {
		v.Age = &age
	}
	return v
}

func (c *CLI) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func singleID(cmd string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: %s takes exactly one id", ErrUsage, cmd)
	}
	return args[0], nil
}
