package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus size, date range and top classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := engineFor(cmd)
			if err != nil {
				return err
			}
			return PrintResult(cmd, statsOutput(e.Stats()))
		},
	}
}

// NewPatentCmd creates the patent command.
func NewPatentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patent",
		Short: "Look up patents in the corpus",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <doc_number>",
		Short: "Show one patent with up to ten claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engineFor(cmd)
			if err != nil {
				return err
			}
			r, ok := e.GetPatent(args[0])
			if !ok {
				return apperrors.Newf(apperrors.CodePatentNotFound, "Patent '%s' not found", args[0])
			}
			return PrintResult(cmd, patentOutput{search.NewSourcePatent(r)})
		},
	})
	return cmd
}

func engineFor(cmd *cobra.Command) (*search.Engine, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	app, err := cliCtx.App(cmd.Context())
	if err != nil {
		return nil, err
	}
	return app.Handle.Engine(cmd.Context())
}

type statsOutput patent.Stats

func (s statsOutput) MarshalJSON() ([]byte, error) { return json.Marshal(patent.Stats(s)) }

func (s statsOutput) TableHeaders() []string { return []string{"CLASSIFICATION", "COUNT"} }

func (s statsOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(s.ClassificationDistribution))
	for _, c := range s.ClassificationDistribution {
		rows = append(rows, []string{c.Code, strconv.Itoa(c.Count)})
	}
	return rows
}

func (s statsOutput) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total patents: %d\n", s.TotalPatents)
	fmt.Fprintf(&sb, "Date range:    %s .. %s\n", orDash(s.DateRange.Min), orDash(s.DateRange.Max))
	if len(s.ClassificationDistribution) > 0 {
		sb.WriteString("Top classifications:\n")
		for _, c := range s.ClassificationDistribution {
			fmt.Fprintf(&sb, "  %-6s %d\n", c.Code, c.Count)
		}
	}
	return sb.String()
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

type patentOutput struct{ *search.SourcePatent }

func (p patentOutput) MarshalJSON() ([]byte, error) { return json.Marshal(p.SourcePatent) }

func (p patentOutput) TableHeaders() []string { return []string{"#", "CLAIM"} }

func (p patentOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Claims))
	for i, c := range p.Claims {
		rows = append(rows, []string{strconv.Itoa(i + 1), shorten(c, 100)})
	}
	return rows
}

func (p patentOutput) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", p.DocNumber, p.Title)
	fmt.Fprintf(&sb, "Published: %s  Classification: %s\n\n", p.PublicationDate, p.Classification)
	if p.Abstract != "" {
		fmt.Fprintf(&sb, "%s\n\n", p.Abstract)
	}
	for i, c := range p.Claims {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, c)
	}
	return sb.String()
}
