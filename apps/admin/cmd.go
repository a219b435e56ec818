package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	echoapi "github.com/trezcool/trainings/apps/api/echo"
	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db   *sql.DB
	conf *core.Config
	svc  *session.Service
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix)")
	fmt.Fprintln(cli.out, "  issuetoken -subject ID -role admin:|trainer: [-name NAME] [-email EMAIL] - print a signed API token")
	fmt.Fprintln(cli.out, "  session -id ID -action schedule|open|complete|cancel - change the status of a training session")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	issueTokenCmd := flag.NewFlagSet("issuetoken", flag.ExitOnError)
	issueTokenSubject := issueTokenCmd.String("subject", "", "The ID of the user. For trainers, their trainer ID.")
	issueTokenRole := issueTokenCmd.String("role", "", "The role granted by the token: admin: or trainer:")
	issueTokenName := issueTokenCmd.String("name", "", "The display name of the user.")
	issueTokenEmail := issueTokenCmd.String("email", "", "The email address of the user.")

	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	sessionID := sessionCmd.String("id", "", "The ID of the training session.")
	sessionAction := sessionCmd.String("action", "", "One of schedule, open, complete, cancel.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "issuetoken":
		if err := issueTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *issueTokenSubject == "" || (*issueTokenRole != echoapi.RoleAdmin && *issueTokenRole != echoapi.RoleTrainer) {
			issueTokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(*issueTokenSubject, *issueTokenRole, *issueTokenName, *issueTokenEmail)
	case "session":
		if err := sessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *sessionID == "" || *sessionAction == "" {
			sessionCmd.Usage()
			return errHelp
		}
		return cli.changeSessionStatus(*sessionID, strings.ToLower(*sessionAction))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) issueToken(subject, role, name, email string) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, subject, name, email, role))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) changeSessionStatus(id, action string) error {
	var fn func(ctx context.Context, id string) (session.StatusChanged, error)
	switch action {
	case "schedule":
		fn = cli.svc.Schedule
	case "open":
		fn = cli.svc.Open
	case "complete":
		fn = cli.svc.Complete
	case "cancel":
		fn = cli.svc.Cancel
	default:
		return fmt.Errorf("%q: no such action", action)
	}

	res, err := fn(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %s: %s -> %s\n", res.SessionID, res.From, res.To)
	if res.Warning != "" {
		fmt.Fprintf(cli.out, "warning: %s\n", res.Warning)
	}
	return nil
}
