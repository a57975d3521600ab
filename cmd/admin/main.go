// Command admin runs maintenance tasks against the seating database:
//
//	admin migrate
//	admin adduser -login kim -name "Kim Minji" -role STUDENT [-grade 2]
//
// adduser prompts for the password on a terminal and reads one line from
// stdin otherwise.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/iliyamo/studyroom-seating/internal/config"
	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/model"
	"github.com/iliyamo/studyroom-seating/internal/repository"
)

// readPasswordFunc reads a password without echo; tests replace it.
var readPasswordFunc = term.ReadPassword

// isTerminalFunc reports whether fd is a terminal; tests replace it.
var isTerminalFunc = term.IsTerminal

const usage = "usage: admin migrate | admin adduser -login L -name N -role ADMIN|TEACHER|STUDENT [-grade G]"

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], config.LoadDatabase(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg config.Config, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	db, dialect, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "migrate":
		if err := database.Migrate(ctx, db, dialect); err != nil {
			return err
		}
		fmt.Fprintf(out, "schema up to date (%s)\n", dialect)
		return nil
	case "adduser":
		return addUser(ctx, db, cfg.BcryptCost, args[1:], in, out)
	}
	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

func addUser(ctx context.Context, db *sql.DB, cost int, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(out)
	login := fs.String("login", "", "unique login")
	name := fs.String("name", "", "display name, matched by spreadsheet imports")
	role := fs.String("role", model.RoleStudent, "ADMIN, TEACHER or STUDENT")
	grade := fs.Int("grade", 0, "student grade (0 for none)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u := model.User{
		Login: strings.TrimSpace(*login),
		Name:  strings.TrimSpace(*name),
		Role:  strings.ToUpper(strings.TrimSpace(*role)),
	}
	if u.Login == "" || u.Name == "" {
		return errors.New("-login and -name are required")
	}
	switch u.Role {
	case model.RoleAdmin, model.RoleTeacher, model.RoleStudent:
	default:
		return fmt.Errorf("invalid role %q", *role)
	}
	if *grade > 0 {
		g := *grade
		u.Grade = &g
	}

	password, err := readPassword(in, out)
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if err := repository.NewUserRepo(db).Create(ctx, &u, password, cost); err != nil {
		if errors.Is(err, repository.ErrLoginExists) {
			return fmt.Errorf("login %q is taken", u.Login)
		}
		return err
	}
	fmt.Fprintf(out, "created %s %s (id %d)\n", u.Role, u.Login, u.ID)
	return nil
}

func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && isTerminalFunc(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		b, err := readPasswordFunc(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
