package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"syscall"

	"golang.org/x/term"

	"github.com/darasahq/darasa/core/audit"
	"github.com/darasahq/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	sink    audit.Sink
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] - create a user; the password will be prompted")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  tailaudit [-n N] - print the N most recent audit trail entries (default 10)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The new user's username.")
	addUserEmail := addUserCmd.String("email", "", "The new user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all admin roles.")

	tailAuditCmd := flag.NewFlagSet("tailaudit", flag.ExitOnError)
	tailAuditN := tailAuditCmd.String("n", "10", "How many entries to print.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, string(pwd), *addUserAdmin)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "tailaudit":
		if err := tailAuditCmd.Parse(args[2:]); err != nil {
			return err
		}
		n, err := strconv.Atoi(*tailAuditN)
		if err != nil || n <= 0 {
			tailAuditCmd.Usage()
			return errHelp
		}
		return cli.tailAudit(n)
	default:
		cli.printUsage()
		return errHelp
	}
}
