package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/perch/internal/core/review"
)

type CommentsCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
}

// NewCommentsCmd creates a new comments command.
func NewCommentsCmd(flags *Flags) *CommentsCmd {
	return &CommentsCmd{flags: flags}
}

// Register adds the comments command to the application.
func (cmd *CommentsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "comments",
		Usage:     "Print a pull request's comments without starting a session",
		UsageText: "perch comments [pr-number] [--json]",
		Description: `Fetches the PR's general comments and review threads and prints them in
the same normalized order the review TUI shows.

Output is JSON when --json is given or when stdout is not a terminal.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output comments as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *CommentsCmd) run(ctx context.Context, c *cli.Command) error {
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

	pr, err := repoCtx.GH.FetchPullRequest(ctx, repoCtx.Owner, repoCtx.Repo, number)
	if err != nil {
		return fmt.Errorf("fetch PR #%d: %w", number, err)
	}
	comments := review.BuildComments(pr)

	if cmd.jsonOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(comments)
	}

	if len(comments) == 0 {
		fmt.Fprintln(os.Stderr, "No comments")
		return nil
	}
	for _, line := range review.FormatCommentLines(comments, 0) {
		fmt.Println(line)
	}
	return nil
}
