// Package cli wires the review engine into a Cobra command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jsonout "github.com/evanmcb/autoreview/internal/adapter/output/json"
	"github.com/evanmcb/autoreview/internal/adapter/output/markdown"
	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/tool"
	"github.com/evanmcb/autoreview/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and
// no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Reviewer runs a review between two refs of the local repository, or
// over a pre-computed unified diff.
type Reviewer interface {
	ReviewRefs(ctx context.Context, baseRef, targetRef string) (*domain.ReviewResult, error)
	ReviewDiff(ctx context.Context, baseRef, targetRef, diff string) (*domain.ReviewResult, error)
	CurrentBranch(ctx context.Context) (string, error)
}

// History reads stored review runs.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]review.RunRecord, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Reviewer      Reviewer
	Tools         func() []tool.Descriptor
	History       History // optional
	Args          Arguments
	DefaultOutput string
	DefaultFormat string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "arv",
		Short: "Resilient tool-orchestrated code review CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps))
	root.AddCommand(toolsCommand(deps))
	root.AddCommand(historyCommand(deps))
	root.AddCommand(versionCommand(versionString))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(deps Dependencies) *cobra.Command {
	var baseRef string
	var targetRef string
	var outputDir string
	var format string
	var toStdout bool
	var detectTarget bool
	var diffFile string

	cmd := &cobra.Command{
		Use:   "review [target]",
		Short: "Review a branch against a base reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				targetRef = args[0]
			}
			ctx := cmd.Context()

			var result *domain.ReviewResult
			var err error
			if diffFile != "" {
				raw, readErr := readDiffSource(cmd, diffFile)
				if readErr != nil {
					return readErr
				}
				if targetRef == "" {
					targetRef = "diff"
				}
				result, err = deps.Reviewer.ReviewDiff(ctx, baseRef, targetRef, raw)
			} else {
				if targetRef == "" && detectTarget {
					resolved, resolveErr := deps.Reviewer.CurrentBranch(ctx)
					if resolveErr != nil {
						return fmt.Errorf("detect target branch: %w", resolveErr)
					}
					targetRef = resolved
				}
				if targetRef == "" {
					return fmt.Errorf("target branch not specified; pass as an argument, use --target, or disable --detect-target")
				}
				result, err = deps.Reviewer.ReviewRefs(ctx, baseRef, targetRef)
			}
			if err != nil {
				return err
			}

			if result.Degraded {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(),
					"warning: review is degraded, model assessment unavailable: %s\n", result.ProviderError)
			}

			return writeResult(cmd, result, format, outputDir, toStdout)
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "main", "Base reference to diff against")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target branch to review (overrides positional)")
	if deps.DefaultOutput == "" {
		deps.DefaultOutput = "out"
	}
	if deps.DefaultFormat == "" {
		deps.DefaultFormat = "markdown"
	}
	cmd.Flags().StringVar(&outputDir, "output", deps.DefaultOutput, "Directory to write review artifacts")
	cmd.Flags().StringVar(&format, "format", deps.DefaultFormat, "Report format: markdown or json")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the report to stdout instead of a file")
	cmd.Flags().BoolVar(&detectTarget, "detect-target", true, "Automatically detect the checked out branch when no target is provided")
	cmd.Flags().StringVar(&diffFile, "diff-file", "", "Review a unified diff from a file instead of git refs (\"-\" reads stdin)")

	return cmd
}

func readDiffSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read diff from stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read diff file: %w", err)
	}
	return string(raw), nil
}

func writeResult(cmd *cobra.Command, result *domain.ReviewResult, format, outputDir string, toStdout bool) error {
	nowFunc := func() string { return time.Now().UTC().Format("20060102T150405Z") }

	switch format {
	case "markdown":
		if toStdout {
			return markdown.WriteTo(cmd.OutOrStdout(), result)
		}
		path, err := markdown.NewWriter(nowFunc).Write(result, outputDir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	case "json":
		if toStdout {
			return jsonout.WriteTo(cmd.OutOrStdout(), result)
		}
		path, err := jsonout.NewWriter(nowFunc).Write(result, outputDir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want markdown or json)", format)
	}
}

func toolsCommand(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered analysis tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := deps.Tools()
			if len(descriptors) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no tools registered")
				return nil
			}
			for _, d := range descriptors {
				langs := "all languages"
				if len(d.Languages) > 0 {
					langs = strings.Join(d.Languages, ", ")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\t%s\t%s\n", d.Name, d.Version, d.Category, langs)
			}
			return nil
		},
	}
}

func historyCommand(deps Dependencies) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent review runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.History == nil {
				return fmt.Errorf("history is disabled; enable the store in configuration")
			}
			runs, err := deps.History.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no review runs recorded")
				return nil
			}
			for _, run := range runs {
				status := "ok"
				if run.Degraded {
					status = "degraded"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s..%s\t%s\n",
					run.CreatedAt.Format(time.RFC3339), run.RunID, run.Repository,
					run.BaseRef, run.TargetRef, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func versionCommand(versionString string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return nil
		},
	}
}
