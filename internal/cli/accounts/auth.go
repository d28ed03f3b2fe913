package accounts

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/healthchain/internal/cli"
)

type AuthCmd struct {
	Login    LoginCmd    `cmd:"" help:"Sign in."`
	Register RegisterCmd `cmd:"" help:"Create an account and sign in."`
	Logout   LogoutCmd   `cmd:"" help:"Sign out."`
	Whoami   WhoamiCmd   `cmd:"" help:"Show the signed-in user." default:"1"`
}

type LoginCmd struct {
	Email    string `help:"Account email." short:"e"`
	Password string `help:"Account password. Prompted for when omitted."`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	if c.Email == "" || c.Password == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Email").
					Value(&c.Email),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&c.Password),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}
	}

	if err := ctx.Auth.Login(c.Email, c.Password); err != nil {
		return err
	}
	fmt.Println(cli.Success("Signed in as " + ctx.Auth.Snapshot().User.FullName))
	return nil
}

type RegisterCmd struct {
	Name            string `help:"Full name." short:"n"`
	Email           string `help:"Account email." short:"e"`
	Password        string `help:"Password, at least 6 characters. Prompted for when omitted."`
	ConfirmPassword string `help:"Password again."`
}

func (c *RegisterCmd) Run(ctx *cli.Context) error {
	if c.Name == "" || c.Email == "" || c.Password == "" || c.ConfirmPassword == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Full name").
					Value(&c.Name),
				huh.NewInput().
					Title("Email").
					Value(&c.Email),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&c.Password),
				huh.NewInput().
					Title("Confirm password").
					EchoMode(huh.EchoModePassword).
					Value(&c.ConfirmPassword),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}
	}

	if err := ctx.Auth.Register(c.Name, c.Email, c.Password, c.ConfirmPassword); err != nil {
		return err
	}
	fmt.Println(cli.Success("Account created for " + c.Name))
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	ctx.Auth.Logout()
	fmt.Println(cli.Success("Signed out"))
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cli.Context) error {
	snap := ctx.Auth.Snapshot()
	if snap.User == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Println(cli.Rows([][2]string{
		{"Name", snap.User.FullName},
		{"Email", snap.User.Email},
		{"User ID", snap.User.ID},
		{"Since", snap.User.CreatedAt.Format("2006-01-02")},
	}))
	return nil
}
