package main

import (
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckUsernameUniqueness(uname, email); err != nil {
		return err
	}
	if err := user.ValidatePassword(pwd, uname, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	active := true
	usr := user.User{
		Username:  uname,
		Email:     email,
		IsActive:  &active,
		Roles:     []string{user.RoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	_, err := cli.usrRepo.CreateUser(usr)
	return err
}
