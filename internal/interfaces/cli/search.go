package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whoiskiwi/PatentSearch/internal/application/search"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// commonFilters are the filter flags shared by the claim-driven scenarios.
type commonFilters struct {
	classification string
	keywords       []string
	title          string
	topK           int
}

func (f *commonFilters) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.classification, "classification", "", "classification prefix filter (e.g. B60C)")
	fs.StringSliceVar(&f.keywords, "keyword", nil, "keyword that must appear in title or abstract (repeatable)")
	fs.StringVar(&f.title, "title", "", "substring that must appear in the title")
	fs.IntVar(&f.topK, "top-k", search.DefaultTopK, fmt.Sprintf("number of results (1-%d)", search.MaxTopK))
}

// NewSearchCmd creates the search command and its scenario subcommands.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run an invalidity, infringement, patentability or by-id search",
	}
	cmd.AddCommand(
		newInvalidityCmd(),
		newInfringementCmd(),
		newPatentabilityCmd(),
		newByIDCmd(),
	)
	return cmd
}

func newInvalidityCmd() *cobra.Command {
	var (
		req     search.InvalidityRequest
		filters commonFilters
	)
	cmd := &cobra.Command{
		Use:   "invalidity",
		Short: "Find prior art against existing claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Classification, req.Keywords, req.TitleSearch, req.TopK =
				filters.classification, filters.keywords, filters.title, &filters.topK
			return runSearch(cmd, search.ScenarioInvalidity, "CLAIMS",
				func(r search.InvalidityResult) (search.Summary, string) {
					return r.Summary, strconv.Itoa(r.ClaimsCount)
				},
				func(ctx context.Context, e *search.Engine) ([]search.InvalidityResult, *search.SourcePatent, error) {
					res, err := e.Invalidity(ctx, req)
					return res, nil, err
				})
		},
	}
	cmd.Flags().StringVar(&req.QueryClaims, "claims", "", "claims to invalidate (required)")
	cmd.Flags().StringVar(&req.QueryDocNumber, "doc-number", "", "doc number of the patent under attack")
	cmd.Flags().StringVar(&req.TargetDate, "target-date", "", "only prior art published before this date (YYYY-MM-DD)")
	filters.register(cmd)
	_ = cmd.MarkFlagRequired("claims")
	return cmd
}

func newInfringementCmd() *cobra.Command {
	var (
		req           search.InfringementRequest
		filters       commonFilters
		minSimilarity float64
	)
	cmd := &cobra.Command{
		Use:   "infringement",
		Short: "Find patents your claims may infringe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Classification, req.Keywords, req.TitleSearch, req.TopK =
				filters.classification, filters.keywords, filters.title, &filters.topK
			if cmd.Flags().Changed("min-similarity") {
				req.MinSimilarity = &minSimilarity
			}
			return runSearch(cmd, search.ScenarioInfringement, "RISK",
				func(r search.InfringementResult) (search.Summary, string) {
					return r.Summary, colorRisk(r.RiskLevel)
				},
				func(ctx context.Context, e *search.Engine) ([]search.InfringementResult, *search.SourcePatent, error) {
					res, err := e.Infringement(ctx, req)
					return res, nil, err
				})
		},
	}
	cmd.Flags().StringVar(&req.MyClaims, "claims", "", "your product or patent claims (required)")
	cmd.Flags().StringVar(&req.MyDocNumber, "doc-number", "", "your own doc number, excluded from results")
	cmd.Flags().StringVar(&req.DateFrom, "date-from", "", "earliest publication date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.DateTo, "date-to", "", "latest publication date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", search.DefaultMinSimilarity, "similarity floor (0-1)")
	filters.register(cmd)
	_ = cmd.MarkFlagRequired("claims")
	return cmd
}

func newPatentabilityCmd() *cobra.Command {
	var (
		req     search.PatentabilityRequest
		filters commonFilters
	)
	cmd := &cobra.Command{
		Use:   "patentability",
		Short: "Assess the novelty of an invention disclosure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Classification, req.Keywords, req.TitleSearch, req.TopK =
				filters.classification, filters.keywords, filters.title, &filters.topK
			return runSearch(cmd, search.ScenarioPatentability, "NOVELTY",
				func(r search.PatentabilityResult) (search.Summary, string) {
					return r.Summary, colorNovelty(r.NoveltyAssessment)
				},
				func(ctx context.Context, e *search.Engine) ([]search.PatentabilityResult, *search.SourcePatent, error) {
					res, err := e.Patentability(ctx, req)
					return res, nil, err
				})
		},
	}
	cmd.Flags().StringVar(&req.InventionDescription, "description", "", "invention description (required)")
	cmd.Flags().StringVar(&req.DraftClaims, "draft-claims", "", "draft claims appended to the description")
	filters.register(cmd)
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newByIDCmd() *cobra.Command {
	var (
		req  search.PatentIDRequest
		topK int
	)
	cmd := &cobra.Command{
		Use:   "by-id <doc_number>",
		Short: "Find patents similar to one already in the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.DocNumber, req.TopK = args[0], &topK
			return runSearch(cmd, search.ScenarioPatentID, "MATCHED",
				func(r search.PatentIDResult) (search.Summary, string) {
					return r.Summary, strconv.Itoa(len(r.MatchedClaims))
				},
				func(ctx context.Context, e *search.Engine) ([]search.PatentIDResult, *search.SourcePatent, error) {
					src, res, err := e.PatentID(ctx, req)
					if err == nil && src == nil {
						return nil, nil, apperrors.Newf(apperrors.CodePatentNotFound, "Patent '%s' not found", req.DocNumber)
					}
					return res, search.NewSourcePatent(src), err
				})
		},
	}
	cmd.Flags().StringVar(&req.Classification, "classification", "", "classification prefix filter (e.g. B60C)")
	cmd.Flags().IntVar(&topK, "top-k", search.DefaultTopK, fmt.Sprintf("number of results (1-%d)", search.MaxTopK))
	return cmd
}

type searchFunc[T any] func(ctx context.Context, e *search.Engine) ([]T, *search.SourcePatent, error)

func runSearch[T any](cmd *cobra.Command, scenario search.Scenario, extraHeader string,
	view func(T) (search.Summary, string), run searchFunc[T]) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	engine, err := engineFor(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	results, source, err := run(cmd.Context(), engine)
	if err != nil {
		return err
	}
	resp := search.NewResponse(scenario, results, time.Since(start))
	resp.SourcePatent = source
	cliCtx.Logger.Debug("Search finished",
		logging.Scenario(string(scenario)),
		logging.Int("results", resp.Total),
		logging.Float64("search_time_ms", resp.SearchTimeMs))

	return PrintResult(cmd, searchOutput[T]{resp: resp, extraHeader: extraHeader, view: view})
}

// searchOutput renders a scenario response for every output format.
type searchOutput[T any] struct {
	resp        search.Response[T]
	extraHeader string
	view        func(T) (search.Summary, string)
}

func (o searchOutput[T]) MarshalJSON() ([]byte, error) { return json.Marshal(o.resp) }

func (o searchOutput[T]) TableHeaders() []string {
	return []string{"RANK", "DOC NUMBER", "SCORE", "DATE", "CLASSIFICATION", "TITLE", o.extraHeader}
}

func (o searchOutput[T]) TableRows() [][]string {
	rows := make([][]string, 0, len(o.resp.Results))
	for i, r := range o.resp.Results {
		s, extra := o.view(r)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.DocNumber,
			strconv.FormatFloat(s.SimilarityScore, 'f', 4, 64),
			s.PublicationDate,
			s.Classification,
			shorten(s.Title, 60),
			extra,
		})
	}
	return rows
}

func (o searchOutput[T]) String() string {
	var sb strings.Builder
	if src := o.resp.SourcePatent; src != nil {
		fmt.Fprintf(&sb, "Source: %s  %s\n\n", color.CyanString(src.DocNumber), src.Title)
	}
	fmt.Fprintf(&sb, "%d %s result(s) in %.2f ms\n", o.resp.Total, o.resp.Scenario, o.resp.SearchTimeMs)
	for i, r := range o.resp.Results {
		s, extra := o.view(r)
		fmt.Fprintf(&sb, "%3d. %s  %.4f  %s  [%s: %s]\n",
			i+1, color.CyanString(s.DocNumber), s.SimilarityScore, shorten(s.Title, 80),
			strings.ToLower(o.extraHeader), extra)
	}
	return sb.String()
}

func colorRisk(r search.RiskLevel) string {
	switch r {
	case search.RiskVeryHigh, search.RiskHigh:
		return color.RedString(string(r))
	case search.RiskMedium:
		return color.YellowString(string(r))
	default:
		return color.GreenString(string(r))
	}
}

func colorNovelty(n search.Novelty) string {
	switch n {
	case search.NoveltyIdentical:
		return color.RedString(string(n))
	case search.NoveltySimilar:
		return color.YellowString(string(n))
	default:
		return color.GreenString(string(n))
	}
}
