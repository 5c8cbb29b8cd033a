// Command shibgate-admin manages the persisted SSO settings record from the
// command line: the master enable switch, autoprovisioning, debug logging,
// attribute header names, and the SP handler URLs. It talks directly to the
// database, so it works even when the gateway itself is down.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/campusops/shibgate/config"
	"github.com/campusops/shibgate/internal/bootstrap"
	"github.com/campusops/shibgate/internal/data"
	"github.com/campusops/shibgate/internal/domain/sso"
	"github.com/campusops/shibgate/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.Error("command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	cmds := []command{
		{"enable", "turn SSO on", cmdEnable},
		{"disable", "turn SSO off", cmdDisable},
		{"show", "print the current settings record", cmdShow},
		{"set", "update settings fields (see set -h)", cmdSet},
		{"migrate", "apply pending database migrations", cmdMigrate},
	}
	m := make(map[string]command, len(cmds))
	for _, c := range cmds {
		m[c.name] = c
	}
	return m
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: shibgate-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, cmds[name].description)
	}
	w.Flush()
}

func withSettings(ctx *commandContext, fn func(context.Context, *service.SettingsService) error) error {
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx.Ctx, service.NewSettingsService(data.NewSettingsRepo(db)))
}

func connect(ctx *commandContext) (*sql.DB, error) {
	return bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: ctx.Config.Postgres,
		Logger:   ctx.Logger,
	})
}

func cmdEnable(ctx *commandContext, _ []string) error {
	return withSettings(ctx, func(c context.Context, svc *service.SettingsService) error {
		settings, err := svc.SetEnabled(c, true)
		if err != nil {
			return err
		}
		ctx.Logger.Info("sso enabled", "autoprovision", settings.Autoprovision)
		return nil
	})
}

func cmdDisable(ctx *commandContext, _ []string) error {
	return withSettings(ctx, func(c context.Context, svc *service.SettingsService) error {
		if _, err := svc.SetEnabled(c, false); err != nil {
			return err
		}
		ctx.Logger.Info("sso disabled")
		return nil
	})
}

func cmdShow(ctx *commandContext, _ []string) error {
	return withSettings(ctx, func(c context.Context, svc *service.SettingsService) error {
		settings, err := svc.Load(c)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	})
}

func cmdSet(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	var (
		autoprovision = fs.Bool("autoprovision", false, "create local accounts for unknown asserted users")
		debug         = fs.Bool("debug", false, "log reconciliation outcomes")
		attrUsername  = fs.String("attr-username", "", "username attribute header name")
		attrEmail     = fs.String("attr-email", "", "email attribute header name")
		attrFirst     = fs.String("attr-first-name", "", "first-name attribute header name")
		attrLast      = fs.String("attr-last-name", "", "last-name attribute header name")
		initURL       = fs.String("session-init-url", "", "SP session initiator URL")
		logoutURL     = fs.String("session-logout-url", "", "SP logout URL")
		passChangeURL = fs.String("pass-change-url", "", "IdP password change URL")
		passResetURL  = fs.String("pass-reset-url", "", "IdP password reset URL")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withSettings(ctx, func(c context.Context, svc *service.SettingsService) error {
		settings, err := svc.Load(c)
		if err != nil {
			return err
		}

		// Only fields whose flags were given on the command line change.
		apply := map[string]func(*sso.Settings){
			"autoprovision":      func(s *sso.Settings) { s.Autoprovision = *autoprovision },
			"debug":              func(s *sso.Settings) { s.Debug = *debug },
			"attr-username":      func(s *sso.Settings) { s.AttrUsername = *attrUsername },
			"attr-email":         func(s *sso.Settings) { s.AttrEmail = *attrEmail },
			"attr-first-name":    func(s *sso.Settings) { s.AttrFirstName = *attrFirst },
			"attr-last-name":     func(s *sso.Settings) { s.AttrLastName = *attrLast },
			"session-init-url":   func(s *sso.Settings) { s.SessionInitURL = *initURL },
			"session-logout-url": func(s *sso.Settings) { s.SessionLogoutURL = *logoutURL },
			"pass-change-url":    func(s *sso.Settings) { s.PassChangeURL = *passChangeURL },
			"pass-reset-url":     func(s *sso.Settings) { s.PassResetURL = *passResetURL },
		}
		changed := 0
		fs.Visit(func(f *flag.Flag) {
			if set, ok := apply[f.Name]; ok {
				set(&settings)
				changed++
			}
		})
		if changed == 0 {
			return fmt.Errorf("no fields given; run 'shibgate-admin set -h' for available flags")
		}

		saved, err := svc.Save(c, settings)
		if err != nil {
			return err
		}
		ctx.Logger.Info("settings updated", "fields_changed", changed, "enabled", saved.Enabled)
		return nil
	})
}

func cmdMigrate(ctx *commandContext, _ []string) error {
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	c, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()
	return bootstrap.RunMigrations(c, db, ctx.Logger)
}
