package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
	"github.com/xreader/xreader/pkg/books"
	"github.com/xreader/xreader/pkg/config"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/paginator"
	"github.com/xreader/xreader/pkg/search"
	"github.com/xreader/xreader/pkg/syncer"
	"github.com/xreader/xreader/pkg/tts"
	"github.com/xreader/xreader/pkg/tui"
	"github.com/xreader/xreader/pkg/version"
	"golang.org/x/term"
)

func main() {
	app := &cli.App{
		Name:    "xreader",
		Usage:   "read plain-text books aloud",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "add text files to the library",
				ArgsUsage: "<file>...",
				Action:    withApp(importBooks),
			},
			{
				Name:   "list",
				Usage:  "list books and how far into each you are",
				Action: withApp(listBooks),
			},
			{
				Name:      "delete",
				Usage:     "remove a book",
				ArgsUsage: "<id>",
				Action:    withApp(deleteBook),
			},
			{
				Name:      "read",
				Usage:     "open a book in the reader, the last one read when no id is given",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "adopt newer remote progress without asking",
					},
				},
				Action: withApp(readBook),
			},
			{
				Name:      "search",
				Usage:     "find paragraphs in a book",
				ArgsUsage: "<id> <query>",
				Action:    withApp(searchBook),
			},
			{
				Name:      "voices",
				Usage:     "list voices, optionally filtered by name or language",
				ArgsUsage: "[filter]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "use",
						Usage: "remember the first matching voice, or the current one if it matches",
					},
				},
				Action: withApp(voices),
			},
			{
				Name:      "rate",
				Usage:     "show or set the speaking rate",
				ArgsUsage: "[rate]",
				Action:    withApp(rate),
			},
			{
				Name:  "sync",
				Usage: "mirror progress to a sync server",
				Subcommands: []*cli.Command{
					{
						Name:  "configure",
						Usage: "set the server and token, checking them first",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "url", Required: true},
							&cli.StringFlag{Name: "token", Required: true},
						},
						Action: withApp(syncConfigure),
					},
					{
						Name:   "enable",
						Action: withApp(syncToggle(true)),
					},
					{
						Name:   "disable",
						Action: withApp(syncToggle(false)),
					},
					{
						Name:   "status",
						Action: withApp(syncStatus),
					},
					{
						Name:      "pull",
						Usage:     "adopt newer remote progress for a book",
						ArgsUsage: "<id>",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "yes", Usage: "don't ask"},
						},
						Action: withApp(syncPull),
					},
					{
						Name:      "push",
						Usage:     "send a book's progress now",
						ArgsUsage: "<id>",
						Action:    withApp(syncPush),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

// withApp loads config and the local store around a command.
func withApp(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if c.Command.Name == "read" {
			// The reader owns the terminal; failures show up in its status line.
			level = "fatal"
		}
		ctx := logger.NewWithLevel(level).WithContext(c.Context)
		c.Context = ctx

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		return fn(c, a)
	}
}

// errorMessage prefers the user-facing message of a coded error.
func errorMessage(err error) string {
	var e *errcodes.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func importBooks(c *cli.Context, a *app) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: xreader import <file>...", 1)
	}
	for _, path := range c.Args().Slice() {
		book, err := a.library.ImportFile(c.Context, path)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s (%d paragraphs, %d pages)\n",
			book.ID, book.ParagraphCount(), paginator.TotalPages(book.ParagraphCount(), a.cfg.PageSize))
	}
	return nil
}

func listBooks(c *cli.Context, a *app) error {
	list, err := a.books.ListBooks(c.Context, books.ListBooksOptions{})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No books yet. Add one with: xreader import <file>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPARAGRAPHS\tREAD\tSYNCED")
	for _, b := range list {
		fmt.Fprintf(w, "%s\t%d\t%d%%\t%t\n", b.ID, b.ParagraphCount(), b.PercentRead(), b.Synced)
	}
	return w.Flush()
}

func deleteBook(c *cli.Context, a *app) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: xreader delete <id>", 1)
	}
	if err := a.library.Delete(c.Context, c.Args().First()); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", c.Args().First())
	return nil
}

func readBook(c *cli.Context, a *app) error {
	ctx := c.Context

	book, err := a.bookFromArgs(c)
	if err != nil {
		return err
	}

	book, outcome, err := a.syncer.Reconcile(ctx, book, remoteConfirmer(c))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync: %s\n", errorMessage(err))
	} else if outcome == syncer.OutcomeAdopted {
		fmt.Printf("Sync: %s\n", outcome)
	}

	if err := a.startSpeech(ctx); err != nil {
		return err
	}
	if err := a.controller.Open(ctx, book); err != nil {
		return err
	}

	return tui.Run(ctx, a.controller, book, tui.Options{
		PageSize:   a.cfg.PageSize,
		SaveRate:   a.settings.SaveRate,
		PullRemote: a.pullRemote(book.ID),
	})
}

// pullRemote reconciles the open book against the sync server from inside the
// reader, where asking for it is the confirmation.
func (a *app) pullRemote(bookID string) func(ctx context.Context) (models.Progress, bool, error) {
	return func(ctx context.Context) (models.Progress, bool, error) {
		book, err := a.books.RetrieveBook(ctx, bookID)
		if err != nil {
			return models.Progress{}, false, err
		}
		book, outcome, err := a.syncer.Reconcile(ctx, book, func(_, _ models.Progress) bool { return true })
		if err != nil {
			return models.Progress{}, false, err
		}
		if outcome == syncer.OutcomeDisabled {
			return models.Progress{}, false, errcodes.InvalidInput("Sync is not enabled.")
		}
		return book.Progress, outcome == syncer.OutcomeAdopted, nil
	}
}

func (a *app) bookFromArgs(c *cli.Context) (*models.Book, error) {
	if c.NArg() > 0 {
		return a.books.RetrieveBook(c.Context, c.Args().First())
	}
	book, err := a.store.LastBook(c.Context)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, cli.Exit("Nothing to resume. Pick a book with: xreader read <id>", 1)
	}
	return book, nil
}

func searchBook(c *cli.Context, a *app) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: xreader search <id> <query>", 1)
	}
	book, err := a.books.RetrieveBook(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	results := search.Search(book.Paragraphs, strings.Join(c.Args().Tail(), " "))
	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("p%-4d #%-6d %s\n", paginator.PageOf(r.ParagraphIndex, a.cfg.PageSize)+1, r.ParagraphIndex+1, r.Text)
	}
	return nil
}

func voices(c *cli.Context, a *app) error {
	ctx := c.Context
	all, err := a.loadVoices(ctx)
	if err != nil {
		return err
	}
	filter := c.Args().First()

	current, err := a.settings.VoiceName(ctx)
	if err != nil {
		return err
	}

	if c.Bool("use") {
		v, ok := tts.SelectVoice(all, filter, current)
		if !ok {
			return errcodes.VoiceUnavailable()
		}
		if err := a.settings.SaveVoiceName(ctx, v.Name); err != nil {
			return err
		}
		fmt.Printf("Using %s (%s)\n", v.Name, v.Language)
		return nil
	}

	matches := tts.FilterVoices(all, filter)
	if len(matches) == 0 {
		fmt.Println("No matching voices.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tLANGUAGE")
	for _, v := range matches {
		mark := ""
		if v.Name == current || (current == "" && v.Default) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", mark, v.Name, v.Language)
	}
	return w.Flush()
}

func rate(c *cli.Context, a *app) error {
	ctx := c.Context
	if c.NArg() == 0 {
		r, err := a.settings.Rate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%.1f\n", r)
		return nil
	}

	r, err := strconv.ParseFloat(c.Args().First(), 64)
	if err != nil || !tts.ValidRate(r) {
		return errcodes.InvalidInput(fmt.Sprintf("Rate must be one of %s.", formatRates(tts.RateOptions())))
	}
	return a.settings.SaveRate(ctx, r)
}

func formatRates(rates []float64) string {
	parts := make([]string, 0, len(rates))
	for _, r := range rates {
		parts = append(parts, strconv.FormatFloat(r, 'f', 1, 64))
	}
	return strings.Join(parts, ", ")
}

func syncConfigure(c *cli.Context, a *app) error {
	s := models.SyncSettings{
		URL:     strings.TrimSpace(c.String("url")),
		Token:   strings.TrimSpace(c.String("token")),
		Enabled: true,
	}
	if err := a.syncer.SaveSettings(c.Context, s); err != nil {
		return err
	}
	fmt.Println("Sync configured and enabled.")
	return nil
}

func syncToggle(enabled bool) func(c *cli.Context, a *app) error {
	return func(c *cli.Context, a *app) error {
		if err := a.syncer.SetEnabled(c.Context, enabled); err != nil {
			return err
		}
		if enabled {
			fmt.Println("Sync enabled.")
		} else {
			fmt.Println("Sync disabled.")
		}
		return nil
	}
}

func syncStatus(c *cli.Context, a *app) error {
	s, err := a.settings.SyncSettings(c.Context)
	if err != nil {
		return err
	}
	if !s.Configured() {
		fmt.Println("Sync is not configured.")
		return nil
	}
	fmt.Printf("Server:  %s\nEnabled: %t\n", s.URL, s.Enabled)
	if err := a.syncer.CheckHealth(c.Context, s); err != nil {
		fmt.Printf("Health:  %s\n", errorMessage(err))
		return nil
	}
	fmt.Println("Health:  ok")
	return nil
}

func syncPull(c *cli.Context, a *app) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: xreader sync pull <id>", 1)
	}
	book, err := a.books.RetrieveBook(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	book, outcome, err := a.syncer.Reconcile(c.Context, book, remoteConfirmer(c))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s (paragraph %d)\n", book.ID, outcome, book.Progress.ParagraphIndex+1)
	return nil
}

func syncPush(c *cli.Context, a *app) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: xreader sync push <id>", 1)
	}
	s, err := a.settings.SyncSettings(c.Context)
	if err != nil {
		return err
	}
	if !s.Active() {
		return errcodes.InvalidInput("Sync is not enabled. Run: xreader sync configure --url URL --token TOKEN")
	}
	if err := a.syncer.Push(c.Context, c.Args().First()); err != nil {
		return err
	}
	fmt.Println("Pushed.")
	return nil
}

// remoteConfirmer prompts on the terminal. Without one, newer remote progress
// is only adopted with --yes.
func remoteConfirmer(c *cli.Context) syncer.ConfirmFunc {
	yes := c.Bool("yes")
	if !yes && !term.IsTerminal(int(os.Stdin.Fd())) {
		return func(_, _ models.Progress) bool {
			fmt.Fprintln(os.Stderr, "Remote progress is further along; rerun with --yes to adopt it.")
			return false
		}
	}
	return confirmRemote(yes, os.Stdin, os.Stdout)
}

// confirmRemote asks on in whether to adopt remote progress that is ahead.
func confirmRemote(yes bool, in io.Reader, out io.Writer) syncer.ConfirmFunc {
	return func(local, remote models.Progress) bool {
		if yes {
			return true
		}
		fmt.Fprintf(out, "Remote progress is further along: paragraph %d (page %d), local is paragraph %d (page %d).\nJump to the remote position? [y/N] ",
			remote.ParagraphIndex+1, remote.Page+1, local.ParagraphIndex+1, local.Page+1)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}
