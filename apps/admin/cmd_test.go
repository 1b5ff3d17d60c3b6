package main

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"strconv"
	"testing"

	"github.com/darasahq/darasa/core/audit"
	"github.com/darasahq/darasa/core/user"
	auditsvc "github.com/darasahq/darasa/services/audit"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	db := dummydb.NewDB()
	return &commandLine{
		usrRepo: dummydb.NewUserRepository(db),
		sink:    auditsvc.NewConsoleSink(log.New(io.Discard, "", 0)),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no email", args: []string{"adduser", "-username", "jo"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "jo", "-email", "jo@test.cd"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-username", "jo", "-email", "jo@test.cd"}, extra: extra{pwd: "s3cret"}, wantErrStr: "password must contain at least 8 characters"},
		{name: "creates user", args: []string{"adduser", "-username", "jo", "-email", "jo@test.cd"}, extra: extra{pwd: "D00rs*open"}},
		{name: "creates admin", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd", "-admin"}, extra: extra{pwd: "D00rs*open"}},
		{name: "duplicate username", args: []string{"adduser", "-username", "jo", "-email", "jo2@test.cd"}, extra: extra{pwd: "D00rs*open"}, wantErr: user.ErrUsernameExists},
	}
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Fatalf("cli.run() expected error %v%s; got nil", tt.wantErr, tt.wantErrStr)
			}

			usr, err := cli.usrRepo.GetUserByUsernameOrEmail(tt.args[2])
			if err != nil {
				t.Fatalf("GetUserByUsernameOrEmail() failed: %v", err)
			}
			if err := usr.CheckPassword("D00rs*open"); err != nil {
				t.Error("password was not set")
			}
			if tt.name == "creates admin" && !usr.IsAdmin() {
				t.Error("expected an admin user")
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "enrollment", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_tailAudit(t *testing.T) {
	cli := setup(t)

	for i := 0; i < 3; i++ {
		entry := audit.NewEntry(audit.EventRetryAttempt, map[string]interface{}{"attempt": i + 1})
		if err := cli.sink.Append(entry); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	tests := []cliTest{
		{name: "bad n", args: []string{"tailaudit", "-n", "lol"}, wantErr: errHelp},
		{name: "negative n", args: []string{"tailaudit", "-n", "-1"}, wantErr: errHelp},
		{name: "default n", args: []string{"tailaudit"}},
		{name: "explicit n", args: []string{"tailaudit", "-n", "2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil && err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
