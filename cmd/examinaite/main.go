package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/generator"
	"github.com/examinaite/examinaite/internal/handler"
	appI18n "github.com/examinaite/examinaite/internal/i18n"
	"github.com/examinaite/examinaite/internal/llm"
	"github.com/examinaite/examinaite/internal/llm/prompts"
	"github.com/examinaite/examinaite/internal/model"
	"github.com/examinaite/examinaite/internal/points"
	"github.com/examinaite/examinaite/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examinaite",
		Short: "Leaving Certificate question generator and points calculator",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), subjectsCmd(), pointsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examinaite --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	def := llm.DefaultRetryPolicy()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examinaite.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Float32("llm-temperature", 0.7, "Sampling temperature for generation")
	f.Bool("llm-ping", true, "Check the LLM endpoint at startup")
	f.Int("max-attempts", def.MaxAttempts, "Generation attempts before giving up")
	f.Duration("retry-delay", def.RetryDelay, "Fixed delay between generation attempts")
	f.Duration("attempt-timeout", def.Timeout, "Timeout for a single generation attempt")
	f.String("catalog-dir", "", "Directory of subject YAML files (default: built-in catalog)")
	f.String("prompts-dir", "", "Directory of prompt template YAML files (default: built-in templates)")
	f.StringP("lang", "l", "en", "Default UI language (en, ga)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /ga)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored question sets as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examinaite.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func subjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects [subject]",
		Short: "Print the subject catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSubjects,
	}
	f := cmd.Flags()
	f.String("catalog-dir", "", "Directory of subject YAML files (default: built-in catalog)")
	f.Bool("json", false, "Print JSON instead of a tree")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func pointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Compute CAO points from a JSON file of graded subjects",
		RunE:  runPoints,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "JSON array of graded subjects (default: sample rows)")
	f.Bool("json", false, "Print JSON instead of a table")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMINAITE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examinaite")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examinaite")
	v.AddConfigPath("/etc/examinaite")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default()
	}
	return catalog.LoadDir(dir)
}

func loadPrompts(dir string) (*prompts.Registry, error) {
	if dir == "" {
		return prompts.Default()
	}
	return prompts.Load(os.DirFS(dir))
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cat, err := loadCatalog(v.GetString("catalog-dir"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	reg, err := loadPrompts(v.GetString("prompts-dir"))
	if err != nil {
		return fmt.Errorf("load prompt templates: %w", err)
	}

	genCfg := model.GeneratorConfig{
		MaxAttempts:    v.GetInt("max-attempts"),
		RetryDelay:     v.GetDuration("retry-delay"),
		AttemptTimeout: v.GetDuration("attempt-timeout"),
		Temperature:    float32(v.GetFloat64("llm-temperature")),
	}

	llmClient, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		llm.WithRetryPolicy(llm.RetryPolicy{
			MaxAttempts: genCfg.MaxAttempts,
			RetryDelay:  genCfg.RetryDelay,
			Timeout:     genCfg.AttemptTimeout,
		}),
		llm.WithTemperature(genCfg.Temperature),
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if v.GetBool("llm-ping") {
		if err := llmClient.Ping(context.Background()); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	if err := db.SetServiceInfo(model.ServiceInfo{
		Model:           v.GetString("llm-model"),
		CatalogSubjects: cat.Len(),
		StartedAt:       time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("record service info: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	genCfg.BasePath = basePath

	h, err := handler.New(cat, generator.New(cat, reg, llmClient), db, genCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	// Generation may use every attempt before responding.
	policy := llmClient.Policy()
	writeTimeout := time.Duration(policy.MaxAttempts)*(policy.Timeout+policy.RetryDelay) + 10*time.Second

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", srv.Addr,
			"model", v.GetString("llm-model"),
			"llm_url", v.GetString("llm-url"),
			"lang", lang,
			"subjects", cat.Len(),
			"max_attempts", policy.MaxAttempts,
			"retry_delay", policy.RetryDelay,
			"attempt_timeout", policy.Timeout,
			"base_path", basePath,
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllGenerations()
	if err != nil {
		return fmt.Errorf("export generations: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	return writeOutput(v.GetString("output"), data)
}

func writeOutput(outPath string, data []byte) error {
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func runSubjects(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := loadCatalog(v.GetString("catalog-dir"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	subjects := cat.Subjects()
	if len(args) == 1 {
		s, err := cat.Get(args[0])
		if err != nil {
			return err
		}
		subjects = []catalog.Subject{s}
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(subjects)
	}
	printTree(out, subjects)
	return nil
}

func printTree(w io.Writer, subjects []catalog.Subject) {
	for _, s := range subjects {
		fmt.Fprintf(w, "%s (%s)\n", s.DisplayName, s.Name)
		for _, l := range s.Levels {
			fmt.Fprintf(w, "  %s\n", l.Name)
			for _, p := range l.Papers {
				fmt.Fprintf(w, "    %s\n", p.Name)
				for _, t := range p.Topics {
					fmt.Fprintf(w, "      %s\n", t.Name)
					for _, st := range t.Subtopics {
						fmt.Fprintf(w, "        - %s\n", st.Name)
					}
				}
			}
		}
	}
}

func runPoints(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	subjects := points.DefaultSubjects()
	if path := v.GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		subjects = nil
		if err := json.Unmarshal(data, &subjects); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	res, err := points.Total(subjects)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tRESULT\tPOINTS\tCOUNTED")
	for _, r := range res.Ranked {
		counted := ""
		if r.Counted {
			counted = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Subject.Name, resultLabel(r.Subject), r.Points, counted)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d\t\n", res.Total)
	return tw.Flush()
}

func resultLabel(s points.GradedSubject) string {
	if s.Special == points.SpecialLCVP {
		return string(s.Tier)
	}
	return fmt.Sprintf("%s%d", s.Level, s.Grade)
}
