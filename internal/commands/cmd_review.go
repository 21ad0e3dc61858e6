package commands

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/perch/internal/core/review"
	"github.com/colonyops/perch/internal/tui"
	"github.com/colonyops/perch/internal/tui/notify"
	"github.com/colonyops/perch/internal/ui"
)

type ReviewCmd struct {
	flags *Flags
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags) *ReviewCmd {
	return &ReviewCmd{flags: flags}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Start an interactive review session for a pull request",
		UsageText: "perch review [pr-number]",
		Description: `Opens the review TUI: the PR's changed files, side-by-side diffs against
the merge base, and the full comment/thread list.

Without a PR number, the pull request for the checked-out branch is used.`,
		Action: cmd.run,
	})
	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, c *cli.Command) error {
	repoCtx, err := resolveRepo(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}

	number, err := prArg(c)
	if err != nil {
		return err
	}
	if number, err = resolvePRNumber(ctx, repoCtx, number); err != nil {
		return err
	}

	bus := notify.NewBus()
	host := tui.NewHost()
	layout := ui.NewLayout(host)
	surface := tui.NewSurface(layout)

	session := review.NewSession(repoCtx.Owner, repoCtx.Repo, number, review.Options{
		API:      repoCtx.GH,
		Git:      repoCtx.Git,
		Dir:      repoCtx.Dir,
		Remote:   repoCtx.Remote,
		Surface:  surface,
		Notifier: bus,
	})

	model := tui.New(session, surface, host, bus, cmd.flags.Config.Keybindings)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// prArg parses the optional positional PR number; 0 means "not given".
func prArg(c *cli.Command) (int, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid PR number %q", arg)
	}
	return n, nil
}
