package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/commitflow/internal/config"
	"github.com/Sumatoshi-tech/commitflow/internal/ledger"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

// Report output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// ErrUnknownFormat indicates an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown format, expected table, json or yaml")

// ReportCommand holds flags for the contributor report command.
type ReportCommand struct {
	configPath string
	projectKey string
	format     string
	noColor    bool
}

// NewReportCommand builds the contributor report command.
func NewReportCommand() *cobra.Command {
	rc := &ReportCommand{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the contributor report for a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.run(cmd.Context(), os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&rc.projectKey, "project", "p", "", "project key (required)")
	cmd.Flags().StringVarP(&rc.format, "format", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func (rc *ReportCommand) run(ctx context.Context, out io.Writer) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	project, err := st.ProjectByKey(ctx, rc.projectKey)
	if err != nil {
		return err
	}

	entries, err := st.ListLedger(ctx, project.ID)
	if err != nil {
		return err
	}

	contributors := ledger.Rank(entries)

	switch rc.format {
	case formatTable:
		rc.renderTable(out, project.Key, contributors)

		return nil
	case formatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(contributors)
	case formatYAML:
		return yaml.NewEncoder(out).Encode(contributors)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, rc.format)
	}
}

func (rc *ReportCommand) renderTable(out io.Writer, projectKey string, contributors []ledger.Contributor) {
	if rc.noColor {
		color.NoColor = true
	}

	title := color.New(color.Bold).Sprintf("Contributors for %s", projectKey)
	fmt.Fprintln(out, title)

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{
		"Contributor", "Commits", "+", "~", "-", "Files",
		"Last Active", "Prod", "Qual", "Impact", "Consist",
	})

	for _, contributor := range contributors {
		entry := contributor.Entry
		scores := contributor.Scores

		name := entry.Name
		if name == "" {
			name = entry.Email
		}

		tw.AppendRow(table.Row{
			fmt.Sprintf("%s <%s>", name, entry.Email),
			entry.Commits,
			humanize.Comma(int64(entry.LinesAdded)),
			humanize.Comma(int64(entry.LinesModified)),
			humanize.Comma(int64(entry.LinesDeleted)),
			entry.FilesChanged,
			humanize.Time(entry.LastCommitAt),
			formatScore(scores.Productivity),
			formatScore(scores.Quality),
			formatScore(scores.Impact),
			formatScore(scores.Consistency),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Commits", Align: text.AlignRight},
		{Name: "+", Align: text.AlignRight},
		{Name: "~", Align: text.AlignRight},
		{Name: "-", Align: text.AlignRight},
		{Name: "Files", Align: text.AlignRight},
	})

	tw.Render()
}

// formatScore colors a 0..100 score by band.
func formatScore(score float64) string {
	formatted := fmt.Sprintf("%5.1f", score)

	switch {
	case score >= 75:
		return color.GreenString(formatted)
	case score >= 40:
		return color.YellowString(formatted)
	default:
		return color.RedString(formatted)
	}
}
