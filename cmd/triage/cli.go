package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/ops"
	"github.com/hpungsan/triage/internal/upstream"
	"github.com/hpungsan/triage/internal/web"
)

// maxStdinBytes bounds markdown read from stdin by publish.
const maxStdinBytes = ops.MaxPublishedBytes

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, services *upstream.Services) *cli.App {
	app := &cli.App{
		Name:    "triage",
		Usage:   "Session content triage",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg, services),
			countsCmd(db, cfg),
			summaryCmd(db, cfg),
			systemCmd(db, cfg),
			activityCmd(db, cfg),
			itemsCmd(db),
			readyCmd(db, cfg),
			queueCmd(db, cfg),
			promoteCmd(db, cfg),
			journalCmd(db),
			publishedCmd(db),
			publishCmd(db),
			rebuildStructureCmd(db, cfg),
			structureCmd(db),
			sessionsCmd(db),
			sessionCmd(db),
			importCmd(db),
			healthCmd(services),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

var windowFlag = &cli.StringFlag{Name: "window", Usage: "Time window: 1h|24h (default: all time)"}

func projectFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: required, Usage: "Project id"}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, services *upstream.Services) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (overrides config)"},
			&cli.IntFlag{Name: "port", Usage: "Port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			serveCfg := *cfg
			if c.IsSet("bind") {
				serveCfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				serveCfg.Port = c.Int("port")
			}
			logger := slog.Default()
			srv := web.NewServer(db, &serveCfg, services, logger, Version)
			if err := web.Run(srv, logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// countsCmd creates the counts command.
func countsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "counts",
		Usage: "Per-bucket flagged/pending/finalized counts for one project",
		Flags: []cli.Flag{
			projectFlag(true),
			windowFlag,
			&cli.StringFlag{Name: "view", Value: ops.ViewPending, Usage: "pending|published"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.BucketCounts(c.Context, db, cfg, ops.BucketCountsInput{
				ProjectID: c.String("project"),
				Window:    c.String("window"),
				View:      c.String("view"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// summaryCmd creates the summary command.
func summaryCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Flagged count per bucket",
		Flags: []cli.Flag{projectFlag(false), windowFlag},
		Action: func(c *cli.Context) error {
			output, err := ops.BucketSummary(c.Context, db, cfg, ops.BucketSummaryInput{
				ProjectID: c.String("project"),
				Window:    c.String("window"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// systemCmd creates the system command.
func systemCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "system",
		Usage: "System-wide session and bucket totals",
		Flags: []cli.Flag{windowFlag},
		Action: func(c *cli.Context) error {
			output, err := ops.SystemBuckets(c.Context, db, cfg, ops.SystemBucketsInput{Window: c.String("window")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// activityCmd creates the activity command.
func activityCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Sessions and items created in the last hour or day",
		Flags: []cli.Flag{&cli.StringFlag{Name: "window", Value: ops.WindowDay, Usage: "1h|24h"}},
		Action: func(c *cli.Context) error {
			output, err := ops.Activity(c.Context, db, cfg, ops.ActivityInput{Window: c.String("window")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// itemsCmd creates the items command.
func itemsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "items",
		Usage:     "List one project's items in a bucket",
		ArgsUsage: "<bucket>",
		Flags: []cli.Flag{
			projectFlag(true),
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Exact stored status"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListItems(c.Context, db, ops.ListItemsInput{
				ProjectID: c.String("project"),
				Bucket:    c.Args().First(),
				Status:    c.String("status"),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// readyCmd creates the ready command.
func readyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "ready",
		Usage:     "Mark items ready (or not) for publishing",
		ArgsUsage: "<id>[,<id>...]",
		Flags: []cli.Flag{
			projectFlag(true),
			&cli.BoolFlag{Name: "unset", Usage: "Clear the ready flag instead of setting it"},
			&cli.StringFlag{Name: "bucket", Aliases: []string{"b"}, Usage: "Restrict the update to one bucket"},
		},
		Action: func(c *cli.Context) error {
			ready := !c.Bool("unset")
			output, err := ops.SetReady(c.Context, db, cfg, ops.SetReadyInput{
				ProjectID: c.String("project"),
				ItemIDs:   parseList(strings.Join(c.Args().Slice(), ",")),
				Ready:     &ready,
				Bucket:    c.String("bucket"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// queueCmd creates the queue command.
func queueCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Show a parent's promotion queue",
		Flags: []cli.Flag{projectFlag(true)},
		Action: func(c *cli.Context) error {
			output, err := ops.PromotionQueue(c.Context, db, cfg, ops.PromotionQueueInput{ProjectID: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// promoteCmd creates the promote command.
func promoteCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "promote",
		Usage:     "Promote ready child items to a parent",
		ArgsUsage: "<bucket>:<id> ...",
		Flags:     []cli.Flag{projectFlag(true)},
		Action: func(c *cli.Context) error {
			refs, err := parsePromoteRefs(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Promote(c.Context, db, cfg, ops.PromoteInput{
				ProjectID: c.String("project"),
				Items:     refs,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// journalCmd creates the journal command.
func journalCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Consolidated journal of a parent's children",
		Flags: []cli.Flag{
			projectFlag(true),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultJournalLimit, Usage: "Max entries"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ConsolidatedJournal(c.Context, db, ops.JournalInput{
				ProjectID: c.String("project"),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// publishedCmd creates the published command.
func publishedCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "published",
		Usage: "Print a parent's published document",
		Flags: []cli.Flag{projectFlag(true)},
		Action: func(c *cli.Context) error {
			output, err := ops.GetPublished(c.Context, db, ops.PublishedInput{ProjectID: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// publishCmd creates the publish command.
func publishCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Replace a parent's published document (reads markdown from stdin)",
		Flags: []cli.Flag{projectFlag(true)},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}
			content, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			output, err := ops.SavePublished(c.Context, db, ops.SavePublishedInput{
				ProjectID: c.String("project"),
				Content:   &content,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// rebuildStructureCmd creates the rebuild-structure command.
func rebuildStructureCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rebuild-structure",
		Usage: "Rebuild a project's path tree from its File Structure items",
		Flags: []cli.Flag{projectFlag(true)},
		Action: func(c *cli.Context) error {
			output, err := ops.RebuildStructure(c.Context, db, cfg, ops.RebuildStructureInput{ProjectID: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// structureCmd creates the structure command.
func structureCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "structure",
		Usage: "Print a project's stored path tree",
		Flags: []cli.Flag{projectFlag(true)},
		Action: func(c *cli.Context) error {
			output, err := ops.GetStructure(c.Context, db, ops.GetStructureInput{ProjectID: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// sessionsCmd creates the sessions command.
func sessionsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List captured sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by status"},
			projectFlag(false),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListSessions(c.Context, db, ops.ListSessionsInput{
				Status:    c.String("status"),
				ProjectID: c.String("project"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// sessionCmd creates the session command.
func sessionCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Show one session with its item counts",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.GetSession(c.Context, db, ops.GetSessionInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import sessions and items from a JSONL file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			output, err := ops.ImportFile(c.Context, db, ops.ImportFileInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if len(output.Errors) > 0 {
				_ = outputJSON(output)
				return cli.Exit(fmt.Sprintf("import aborted: %d invalid line(s)", len(output.Errors)), 1)
			}
			return outputJSON(output)
		},
	}
}

// healthCmd creates the health command.
func healthCmd(services *upstream.Services) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Probe the sibling ops and terminal services",
		Action: func(c *cli.Context) error {
			return outputJSON(services.Health(c.Context))
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if tErr, ok := err.(*errors.TriageError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseList splits a comma-separated string into trimmed, non-empty parts.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parsePromoteRefs parses "<bucket>:<id>" arguments. The id is everything
// after the last colon so labels with spaces survive shell quoting.
func parsePromoteRefs(args []string) ([]ops.PromoteRef, error) {
	refs := make([]ops.PromoteRef, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, ":")
		if i <= 0 || i == len(arg)-1 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("expected <bucket>:<id>, got %q", arg))
		}
		refs = append(refs, ops.PromoteRef{Bucket: arg[:i], ID: arg[i+1:]})
	}
	return refs, nil
}
