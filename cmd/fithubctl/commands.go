package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"fithub/pkg/client"
)

const defaultRequestTimeout = 30 * time.Second

// newState builds the auth state from global flags.
func newState(c *cli.Context) (*client.AuthState, error) {
	path := c.String("token-file")
	if path == "" {
		var err error
		if path, err = client.DefaultFilePath(); err != nil {
			return nil, err
		}
	}
	api := client.New(c.String("server"), client.WithUserAgent("fithubctl/"+Version))
	return client.NewAuthState(api, client.NewFileStore(path)), nil
}

func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, c.Duration("timeout"))
}

// restore loads the saved token and requires it to still be valid.
func restore(ctx context.Context, state *client.AuthState) error {
	if err := state.Restore(ctx); err != nil {
		return err
	}
	if !state.IsAuthenticated() {
		return errors.New("not signed in; run `fithubctl login` first")
	}
	return nil
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"FITHUB_PASSWORD"}, Required: true},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true},
			&cli.IntFlag{Name: "age"},
			&cli.StringFlag{Name: "gender"},
			&cli.Float64Flag{Name: "height", Usage: "Height in cm"},
			&cli.Float64Flag{Name: "weight", Usage: "Weight in kg"},
			&cli.StringFlag{Name: "goal", Usage: "Fitness goal"},
			&cli.StringFlag{Name: "diet", Usage: "Dietary preference"},
			&cli.StringFlag{Name: "medical", Usage: "Medical issues"},
			&cli.StringFlag{Name: "device", Usage: "Device name recorded on the session"},
		},
		Action: runRegister,
	}
}

func runRegister(c *cli.Context) error {
	state, err := newState(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	reg := client.Registration{
		Email:             c.String("email"),
		Password:          c.String("password"),
		Name:              c.String("name"),
		Gender:            c.String("gender"),
		FitnessGoal:       c.String("goal"),
		DietaryPreference: c.String("diet"),
		MedicalIssues:     c.String("medical"),
		DeviceInfo:        c.String("device"),
	}
	if c.IsSet("age") {
		age := c.Int("age")
		reg.Age = &age
	}
	if c.IsSet("height") {
		h := c.Float64("height")
		reg.Height = &h
	}
	if c.IsSet("weight") {
		w := c.Float64("weight")
		reg.Weight = &w
	}

	user, err := state.Register(ctx, reg)
	if err != nil {
		return err
	}
	return printUser(c, user, state.SessionID())
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and save the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"FITHUB_PASSWORD"}, Required: true},
			&cli.StringFlag{Name: "device", Usage: "Device name recorded on the session"},
		},
		Action: runLogin,
	}
}

func runLogin(c *cli.Context) error {
	state, err := newState(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := state.SignIn(ctx, client.Credentials{
		Email:      c.String("email"),
		Password:   c.String("password"),
		DeviceInfo: c.String("device"),
	})
	if err != nil {
		return err
	}
	return printUser(c, user, state.SessionID())
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the current session and forget the token",
		Action: runLogout,
	}
}

func runLogout(c *cli.Context) error {
	state, err := newState(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	// a token the server rejects is cleared by Restore, leaving nothing to end
	if err := state.Restore(ctx); err != nil {
		return err
	}
	res, err := state.SignOut(ctx)
	if err != nil {
		return err
	}
	w := c.App.Writer
	if res == nil {
		_, err = fmt.Fprintln(w, "Signed out.")
		return err
	}
	if c.String("output") == "json" {
		return writeJSON(w, res)
	}
	_, err = fmt.Fprintf(w, "%s. Session %s lasted %d min.\n", res.Message, res.SessionID, res.SessionDuration)
	return err
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in account",
		Action: runWhoami,
	}
}

func runWhoami(c *cli.Context) error {
	state, err := newState(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := restore(ctx, state); err != nil {
		return err
	}
	return printUser(c, state.User(), state.SessionID())
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "sessions",
		Aliases: []string{"sess"},
		Usage:   "List session history, newest first",
		Action:  runSessions,
	}
}

func runSessions(c *cli.Context) error {
	state, err := newState(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := restore(ctx, state); err != nil {
		return err
	}
	sessions, err := state.Sessions(ctx)
	if err != nil {
		return err
	}

	if c.String("output") == "json" {
		return writeJSON(c.App.Writer, sessions)
	}
	return printSessions(c.App.Writer, sessions)
}

func printUser(c *cli.Context, user *client.User, sessionID string) error {
	w := c.App.Writer
	if c.String("output") == "json" {
		return writeJSON(w, map[string]any{"user": user, "sessionId": sessionID})
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\t%s\n", user.Name)
	fmt.Fprintf(tw, "EMAIL\t%s\n", user.Email)
	fmt.Fprintf(tw, "USER ID\t%s\n", user.UserID)
	if user.FitnessGoal != "" {
		fmt.Fprintf(tw, "GOAL\t%s\n", user.FitnessGoal)
	}
	fmt.Fprintf(tw, "SESSION\t%s\n", sessionID)
	return tw.Flush()
}

func printSessions(w io.Writer, sessions []client.Session) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION ID\tDEVICE\tIP\tLOGIN\tDURATION\tSTATUS")
	for _, s := range sessions {
		duration := "-"
		if s.SessionDuration != nil {
			duration = strconv.Itoa(*s.SessionDuration) + "m"
		}
		status := "ended"
		switch {
		case s.IsCurrent:
			status = "current"
		case s.IsActive:
			status = "active"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.SessionID, s.DeviceInfo, s.IPAddress,
			s.LoginTime.Local().Format("2006-01-02 15:04"), duration, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal: %d sessions\n", len(sessions))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
