package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/index"
	"github.com/askdb/askdb/internal/retrieval"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and query the schema embedding index",
	}

	cmd.AddCommand(newIndexBuildCmd())
	cmd.AddCommand(newIndexSearchCmd())

	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Embed the schema corpus and write the index artifacts",
		Long: `Read one table document per rag.schema_dir/tables/*.txt file and one pattern
document per "##" block of rag.schema_dir/query_patterns.txt, embed them and
write documents.json, metadata.json and embeddings.bin to rag.index_dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Logging)

			docs, err := index.LoadDocuments(cfg.RAG.SchemaDir, logger)
			if err != nil {
				return err
			}
			engine, err := newEmbeddingEngine(cmd.Context(), cfg.Embedding)
			if err != nil {
				return fmt.Errorf("init embedding engine: %w", err)
			}
			logger.Info("embedding schema documents", "documents", len(docs), "engine", engine.Name())

			ix, err := index.Build(cmd.Context(), engine, docs)
			if err != nil {
				return err
			}
			if err := ix.Save(cfg.RAG.IndexDir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (dim %d) into %s\n", ix.Len(), ix.Dim(), cfg.RAG.IndexDir)
			return nil
		},
	}
}

func newIndexSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Show the schema documents retrieved for a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := newEmbeddingEngine(cmd.Context(), cfg.Embedding)
			if err != nil {
				return fmt.Errorf("init embedding engine: %w", err)
			}
			ix, err := index.Load(cfg.RAG.IndexDir, engine)
			if err != nil {
				return err
			}

			rc, err := retrieval.New(ix, cfg.RAG.TopK, cfg.RAG.MinScore).GetRelevantContext(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, r := range rc.Results {
				label := r.Metadata.Type
				if r.Metadata.Name != "" {
					label += " " + r.Metadata.Name
				}
				marker := " "
				if r.Score > cfg.RAG.MinScore {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %d. %.4f  %s\n", marker, i+1, r.Score, label)
			}
			fmt.Fprintf(out, "\nTables:   %v\nKeywords: %v\n", rc.Tables, rc.Keywords)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default rag.top_k)")

	return cmd
}
