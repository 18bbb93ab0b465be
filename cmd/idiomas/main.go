package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/conorfennell/idiomas/internal/bundle"
	"github.com/conorfennell/idiomas/internal/config"
	"github.com/conorfennell/idiomas/internal/logging"
	"github.com/conorfennell/idiomas/internal/parser"
	"github.com/conorfennell/idiomas/internal/remote"
	"github.com/conorfennell/idiomas/internal/srs"
	isync "github.com/conorfennell/idiomas/internal/sync"
	"github.com/conorfennell/idiomas/internal/web"
)

const usage = `Usage: idiomas [flags] <command> [args]

Commands:
  serve                       Serve the app shell and the REST backend
  themes                      List vocabulary themes
  words <theme>               List the words of a theme
  weeks                       List school drill weeks
  week <label>                List the drill items of a week
  review <word-id> <grade>    Grade a flashcard (0-3 or again|hard|good|easy)
  answer <correct|wrong>      Score a game answer
  xp                          Show experience and level
  migrate                     Upload the vocabulary bundle to the remote store
  import [source...]          Import week lists from directories or git URLs
  save-week <label> [file|-]  Save one week list from a file or stdin
  diagnose                    Check the remote store connection
  whoami                      Show the profile of the signed-in user

Run with --help to list the flags.
`

func main() {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Print(usage)
			return
		}
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		os.Exit(2)
	}
	logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, args[0], args[1:]); err != nil {
		slog.Error("Command failed", "command", args[0], "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	if cmd == "serve" {
		return serve(ctx, cfg, logger)
	}
	if cmd == "diagnose" {
		return diagnose(ctx, cfg)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "themes":
		for _, th := range a.resolver.Themes(ctx) {
			fmt.Printf("%s\t%d\n", th.Name, th.Count)
		}
	case "words":
		if len(args) != 1 {
			return errors.New("usage: idiomas words <theme>")
		}
		words := a.resolver.Words(ctx, args[0])
		if len(words) == 0 {
			fmt.Printf("No words for theme %q.\n", args[0])
		}
		for _, w := range words {
			fmt.Printf("%s\t%s\t%s\n", w.ID, w.En, w.Es)
		}
	case "weeks":
		for _, w := range a.resolver.Weeks(ctx) {
			fmt.Println(w)
		}
	case "week":
		if len(args) != 1 {
			return errors.New("usage: idiomas week <label>")
		}
		for _, it := range a.resolver.WeekItems(ctx, args[0]) {
			line := fmt.Sprintf("%s\t%d\t%s", it.Kind, it.Idx, it.Word)
			if it.Sentence != nil {
				line += "\t" + *it.Sentence
			}
			fmt.Println(line)
		}
	case "review":
		if len(args) != 2 {
			return errors.New("usage: idiomas review <word-id> <grade>")
		}
		grade, err := srs.ParseGrade(strings.ToLower(args[1]))
		if err != nil {
			return err
		}
		res, err := a.practice.Grade(ctx, args[0], grade)
		if err != nil {
			return err
		}
		level, _ := srs.Level(res.XP)
		fmt.Printf("+%d xp (total %d, level %d), next review in %s\n", res.Gained, res.XP, level, res.NextDue)
	case "answer":
		if len(args) != 1 || (args[0] != "correct" && args[0] != "wrong") {
			return errors.New("usage: idiomas answer <correct|wrong>")
		}
		xp, err := a.practice.Answer(ctx, args[0] == "correct")
		if err != nil {
			return err
		}
		fmt.Printf("xp %d\n", xp)
	case "xp":
		xp := a.practice.DisplayXP(ctx)
		level, progress := srs.Level(xp)
		fmt.Printf("xp %d, level %d (%d/%d)\n", xp, level, progress, srs.XPPerLevel)
	case "migrate":
		if s, ok := a.remote.(*remote.SQLStore); ok {
			if err := s.AutoMigrate(); err != nil {
				return err
			}
		}
		report, err := isync.Migrate(ctx, a.remote, a.bundle)
		if err != nil {
			return err
		}
		return printJSON(report)
	case "import":
		sources := cfg.Import.Sources
		if len(args) > 0 {
			sources = args
		}
		report, err := isync.Import(ctx, a.remote, sources, cfg.Import.ReposDir)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d items across %d weeks, %d errors.\n", report.Items, len(report.Weeks), len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("- %s\n", e)
		}
	case "save-week":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: idiomas save-week <label> [file|-]")
		}
		var in io.Reader = os.Stdin
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		n, err := saveWeek(ctx, a.remote, args[0], in)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("Nothing to save.")
			return nil
		}
		fmt.Printf("Saved %d items for %s.\n", n, args[0])
	case "whoami":
		profile, err := remote.LookupProfile(ctx, a.remote, cfg.Remote.Token, cfg.Remote.JWTSecret)
		if err != nil {
			return err
		}
		if profile == nil {
			fmt.Println("No profile for this user.")
			return nil
		}
		fmt.Printf("%s\t%s\tadmin=%v\n", profile.ID, profile.Role, profile.IsAdmin())
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	var loader bundle.Loader
	if cfg.Server.BundleFile != "" {
		loader = bundle.FileLoader{Path: cfg.Server.BundleFile}
	}
	handler, err := web.NewServer(ctx, web.Options{Bundle: loader, Logger: logger})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// diagnosis is the diagnose command output: the auth health check on its own
// plus the staged report.
type diagnosis struct {
	Healthy bool `json:"healthy"`
	remote.Diagnostic
}

func diagnose(ctx context.Context, cfg *config.Config) error {
	c := remote.NewClient(cfg.Remote.URL, cfg.Remote.Key, nil)
	return printJSON(diagnosis{
		Healthy:    c.CheckConnection(ctx),
		Diagnostic: c.Diagnose(ctx),
	})
}

// saveWeek parses a pasted week list from r and stores it under week.
// Store errors are returned as they are.
func saveWeek(ctx context.Context, store remote.Store, week string, r io.Reader) (int, error) {
	items, err := parser.Parse(r, week)
	if err != nil {
		return 0, fmt.Errorf("failed to read week list: %w", err)
	}
	return isync.SaveWeek(ctx, store, items)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
