package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yourusername/vocabot/internal/config"
	"github.com/yourusername/vocabot/internal/importer"
	"github.com/yourusername/vocabot/internal/models"
	"github.com/yourusername/vocabot/internal/pkg/logger"
	"github.com/yourusername/vocabot/internal/repository"
	"github.com/yourusername/vocabot/internal/service"
	"go.uber.org/zap"
)

const usage = `usage: admin <command> [flags]

commands:
  create-user -username NAME          create a user profile
  link-token  -username NAME          issue or show the account linking code
  unlink      -username NAME          detach the Telegram chat from the user
  import      -username NAME -file F  import words from an .xlsx or .csv file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.LogLevel, time.UTC)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	if err := cfg.ValidateDB(); err != nil {
		zap.L().Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewDB(cfg.DSN(), 2, 4)
	if err != nil {
		zap.L().Fatal("connect to PostgreSQL", zap.Error(err), zap.String("host", cfg.PostgresHost))
	}
	defer repo.Close()

	if err = repo.Up(cfg.MigrationsDir); err != nil {
		zap.L().Fatal("run migrations", zap.Error(err))
	}

	app := &admin{repo: repo, svc: service.NewService(repo)}
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type admin struct {
	repo *repository.Postgres
	svc  *service.Service
}

func (a *admin) run(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	username := fs.String("username", "", "user name")
	file := fs.String("file", "", "spreadsheet to import")
	sheet := fs.String("sheet", importer.DefaultConfig().SheetName, "sheet name for .xlsx files")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-username is required")
	}

	if command == "create-user" {
		user := &models.UserProfile{Username: *username, CreatedAt: time.Now()}
		if err := a.repo.CreateUser(ctx, user); err != nil {
			return err
		}
		fmt.Printf("created user %s (id %d)\n", user.Username, user.ID)
		return nil
	}

	user, err := a.repo.GetUserByUsername(ctx, *username)
	if err != nil {
		return err
	}

	switch command {
	case "link-token":
		token, expiresAt, err := a.svc.IssueLinkToken(ctx, user.ID)
		if err != nil {
			return err
		}
		fmt.Printf("send %s to the bot before %s\n", token, expiresAt.Format(time.RFC3339))
	case "unlink":
		if err := a.svc.UnlinkAccount(ctx, user.ID); err != nil {
			return err
		}
		fmt.Printf("user %s unlinked\n", user.Username)
	case "import":
		if *file == "" {
			return errors.New("-file is required")
		}
		cfg := importer.DefaultConfig()
		cfg.SheetName = *sheet

		result, err := importer.ReadFile(*file, cfg)
		if err != nil {
			return err
		}
		for _, msg := range result.Errors {
			fmt.Fprintln(os.Stderr, "skipped:", msg)
		}

		n, err := a.svc.ImportVocabulary(ctx, user.ID, result.Rows)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d words for %s (%d rows skipped)\n", n, user.Username, len(result.Errors))
	default:
		return fmt.Errorf("unknown command %q\n%s", command, strings.TrimSpace(usage))
	}

	return nil
}
