package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragdoc/internal/service"
	"ragdoc/internal/tui"
)

var (
	cfgFile string
	verbose bool
	index   string
	topK    int
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Ask questions about a DOCX, Markdown or text document",
	Long: `rag chunks a document, embeds the chunks and answers questions by
retrieving the most similar chunks and handing them to a local Ollama model.

Vectors are always kept in memory. With --index they are also written to the
configured persistent store (Qdrant or SQLite) and queried from there.`,
	SilenceUsage: true,
}

var askCmd = &cobra.Command{
	Use:   "ask FILE QUESTION...",
	Short: "Ingest FILE and answer a single question",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.ingest(ctx, args[0])
			if err != nil {
				return err
			}
			a.logger.Info(res.Message(), "chunks", res.ChunksCreated, "chars", res.CharactersExtracted)

			seq, err := a.rag.Stream(ctx, strings.Join(args[1:], " "), topK, index)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for piece := range seq {
				fmt.Fprint(out, piece)
			}
			fmt.Fprintln(out)
			return nil
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat FILE",
	Short: "Ingest FILE and open an interactive chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.ingest(ctx, args[0])
			if err != nil {
				return err
			}
			m := tui.New(ctx, a.rag, filepath.Base(args[0]), res.Summary, index, topK).WithKeywords(res.Keywords)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		})
	},
}

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "List indexes in the persistent vector store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			names, err := a.rag.ListDestinations(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				a.logger.Info("no indexes", "store", a.cfg.VectorStore.Type)
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/ragdoc/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	for _, c := range []*cobra.Command{askCmd, chatCmd} {
		c.Flags().StringVarP(&index, "index", "i", "", "also store vectors in this persistent index and query it")
		c.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	}
	rootCmd.AddCommand(askCmd, chatCmd, indexesCmd)
}

func (a *app) ingest(ctx context.Context, path string) (service.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.IngestResult{}, err
	}
	res, err := a.rag.Ingest(ctx, data, filepath.Base(path), index)
	if err != nil {
		return service.IngestResult{}, fmt.Errorf("ingest %s: %w", path, err)
	}
	return res, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.closer.Close()
	return fn(ctx, a)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
