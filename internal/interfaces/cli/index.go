package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the persisted embedding index",
	}
	cmd.AddCommand(newIndexBuildCmd())
	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	var (
		force bool
		file  string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the corpus and persist the index, reusing a valid one unless --force",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := cliCtx.App(ctx)
			if err != nil {
				return err
			}
			path := file
			if path == "" {
				if path, err = app.ResolveDataFile(); err != nil {
					return err
				}
			}

			start := time.Now()
			corpus, ix, err := app.BuildIndex(ctx, path, force)
			if err != nil {
				return err
			}
			res := indexBuildResult{
				Corpus:    path,
				Location:  app.IndexStore(path).Location(),
				Patents:   corpus.Len(),
				Rows:      ix.Len(),
				Dimension: ix.Dim(),
				ModelID:   app.Provider.ModelID(),
				Forced:    force,
				ElapsedMs: time.Since(start).Milliseconds(),
			}
			cliCtx.Logger.Info("Index ready",
				logging.String("location", res.Location),
				logging.Int("rows", res.Rows))
			return PrintResult(cmd, res)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-embed every patent even if a valid index exists")
	cmd.Flags().StringVar(&file, "file", "", "corpus file to index (default: data.file or the newest file in data.dir)")
	return cmd
}

type indexBuildResult struct {
	Corpus    string `json:"corpus"`
	Location  string `json:"location"`
	Patents   int    `json:"patents"`
	Rows      int    `json:"rows"`
	Dimension int    `json:"dimension"`
	ModelID   string `json:"model_id"`
	Forced    bool   `json:"forced"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func (r indexBuildResult) TableHeaders() []string {
	return []string{"CORPUS", "LOCATION", "ROWS", "DIMENSION", "MODEL"}
}

func (r indexBuildResult) TableRows() [][]string {
	return [][]string{{r.Corpus, r.Location, fmt.Sprint(r.Rows), fmt.Sprint(r.Dimension), r.ModelID}}
}

func (r indexBuildResult) String() string {
	return fmt.Sprintf("Indexed %d patents (%d x %d, model %s) from %s\nIndex: %s\n",
		r.Patents, r.Rows, r.Dimension, r.ModelID, r.Corpus, r.Location)
}
