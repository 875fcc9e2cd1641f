package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andratr/bmtool1/application"
	"github.com/andratr/bmtool1/domain"
	"github.com/andratr/bmtool1/infrastructure/config"
	"github.com/andratr/bmtool1/infrastructure/httpapi"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the ingestion, ask and experiment endpoints. The process exits
when the configuration or rules file changes so a supervisor can restart
it with the new settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return runServe(cmd.Context(), a)
		})
	},
}

func runServe(parent context.Context, a *app) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	registry := application.NewJobRegistry()
	runner := application.NewJobRunner(registry, a.cfg.Ingestion.Workers)

	var experiments httpapi.ExperimentReader
	if a.experiments != nil {
		experiments = a.experiments
	}
	server := httpapi.NewServer(httpapi.Deps{
		Asker:       a.orchestrator,
		Ingester:    a.ingestion,
		Jobs:        runner,
		JobStatus:   registry,
		Experiments: experiments,
		Providers:   a.providers.IDs(),
		Defaults:    a.askDefaults(),
		ModelFor:    a.cfg.Providers.ModelFor,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, a.cfg.HTTP.Addr)
	})
	g.Go(func() error {
		return config.Watch(gctx, a.cfg.WatchedFiles(), config.DefaultDebounce, func() {
			log.Warn().Msg("configuration changed, stopping so the new settings can be loaded")
			cancel()
		})
	})

	err := g.Wait()

	closeCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if cerr := runner.Close(closeCtx); cerr != nil {
		log.Warn().Err(cerr).Msg("background jobs did not finish")
	}
	return err
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <root-dir>",
	Short: "Pair PL/SQL and Java sources and index their block mappings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			progress := application.WithProgress(func(processed, total int) {
				log.Info().Int("processed", processed).Int("total", total).Msg("ingest progress")
			})
			mappings, err := a.ingestion.IngestDirectory(cmd.Context(), args[0], progress)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d mappings ingested\n", len(mappings))
			return nil
		})
	},
}

var ingestPackages []string

var ingestFrameworkCmd = &cobra.Command{
	Use:   "ingest-framework <root-dir>",
	Short: "Index the public API of framework Java sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			n, err := a.ingestion.IngestFrameworkDirectory(cmd.Context(), args[0], ingestPackages)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d framework symbols ingested\n", n)
			return nil
		})
	},
}

// askOptions are the request flags shared by ask and chat.
type askOptions struct {
	kDocs          int
	kFramework     int
	provider       string
	llmModel       string
	embeddingModel string
	tags           []string
	prompting      string
}

func addAskFlags(cmd *cobra.Command) *askOptions {
	o := &askOptions{}
	f := cmd.Flags()
	f.IntVar(&o.kDocs, "k-docs", 6, "Mapping hits to retrieve")
	f.IntVar(&o.kFramework, "k-framework", 6, "Framework hits to retrieve")
	f.StringVar(&o.provider, "provider", "", "Chat provider (default from config)")
	f.StringVar(&o.llmModel, "llm-model", "", "Chat model override")
	f.StringVar(&o.embeddingModel, "embedding-model", "", "Embedding model label recorded with the experiment")
	f.StringSliceVar(&o.tags, "tag", nil, "Framework tag filter (repeatable)")
	f.StringVar(&o.prompting, "prompting", string(domain.TechniqueRAGStandard), "Prompt technique")
	return o
}

// request applies the flags on top of the configured defaults.
func (o *askOptions) request(a *app) (domain.AskRequest, error) {
	req := a.askDefaults()
	technique, err := domain.ParseTechnique(o.prompting)
	if err != nil {
		return req, err
	}
	req.KDocs = o.kDocs
	req.KFramework = o.kFramework
	req.Tags = o.tags
	req.Technique = technique
	if o.provider != "" {
		req.Provider = o.provider
		req.LLMModel = a.cfg.Providers.ModelFor(o.provider)
	}
	if o.llmModel != "" {
		req.LLMModel = o.llmModel
	}
	if o.embeddingModel != "" {
		req.EmbeddingModel = o.embeddingModel
	}
	return req, nil
}

var (
	askFlags  *askOptions
	chatFlags *askOptions
	showHits  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one migration question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			req, err := askFlags.request(a)
			if err != nil {
				return err
			}
			req.Question = strings.Join(args, " ")

			ans, err := a.orchestrator.Ask(cmd.Context(), req)
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), ans, showHits)
			return nil
		})
	},
}

func printAnswer(w io.Writer, ans *domain.Answer, showHits bool) {
	fmt.Fprintln(w, ans.Text)
	if !showHits {
		return
	}
	fmt.Fprintf(w, "\n-- %d mapping hits\n", len(ans.DocHits))
	for _, h := range ans.DocHits {
		fmt.Fprintf(w, "%.3f  %s  %s -> %s\n", h.Score, h.Mapping.PairName, h.Mapping.SourceType, h.Mapping.TargetType)
	}
	fmt.Fprintf(w, "-- %d framework hits\n", len(ans.FrameworkHits))
	for _, h := range ans.FrameworkHits {
		fmt.Fprintf(w, "%.3f  %s  %s\n", h.Score, h.Symbol.SymbolID, h.Symbol.Signature)
	}
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question loop on the console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			defaults, err := chatFlags.request(a)
			if err != nil {
				return err
			}
			input := application.CreateConsoleUserMessageProvider()
			chat := application.NewChatbotService(a.orchestrator, input, os.Stdout, defaults)
			err = chat.StartChatbot(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

var experimentFlags struct {
	from      string
	to        string
	embedding string
	llm       string
}

var experimentsCmd = &cobra.Command{
	Use:   "experiments",
	Short: "List recorded experiments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q := application.ExperimentQuery{EmbeddingModel: experimentFlags.embedding, LLMModel: experimentFlags.llm}
		var err error
		if q.From, err = parseDate(experimentFlags.from); err != nil {
			return err
		}
		if q.To, err = parseDate(experimentFlags.to); err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			if a.experiments == nil {
				return errors.New("experiments.dsn is not configured")
			}
			list, err := a.experiments.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printExperiments(cmd.OutOrStdout(), list)
		})
	},
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a date like 2006-01-02", domain.ErrInvalidRequest, v)
	}
	return &t, nil
}

func printExperiments(w io.Writer, list []domain.Experiment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTECHNIQUE\tLLM\tEMBEDDING\tDOCS\tFW\tLATENCY_MS\tCO2_G\tTOKENS")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d/%d\t%d/%d\t%s\t%s\t%s\n",
			e.ID, e.Date.Format(time.DateOnly), e.Technique, e.LLMModel, e.EmbeddingModel,
			e.DocHits, e.KDocs, e.FrameworkHits, e.KFramework,
			optFloat(e.LatencyMs, "%.0f"), optFloat(e.CO2Grams, "%.4f"), optInt(e.TotalTokens))
	}
	return tw.Flush()
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func init() {
	ingestFrameworkCmd.Flags().StringSliceVar(&ingestPackages, "pkg", nil, "Base package to scan (repeatable)")
	_ = ingestFrameworkCmd.MarkFlagRequired("pkg")

	askFlags = addAskFlags(askCmd)
	askCmd.Flags().BoolVar(&showHits, "hits", false, "Print the retrieved evidence")
	chatFlags = addAskFlags(chatCmd)

	ef := experimentsCmd.Flags()
	ef.StringVar(&experimentFlags.from, "from", "", "First date, YYYY-MM-DD")
	ef.StringVar(&experimentFlags.to, "to", "", "Last date, YYYY-MM-DD")
	ef.StringVar(&experimentFlags.embedding, "embedding", "", "Embedding model filter")
	ef.StringVar(&experimentFlags.llm, "llm", "", "LLM model filter")
}
