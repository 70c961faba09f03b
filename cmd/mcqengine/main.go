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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/mcqengine/internal/announce"
	"github.com/pavelanni/mcqengine/internal/handler"
	appI18n "github.com/pavelanni/mcqengine/internal/i18n"
	"github.com/pavelanni/mcqengine/internal/model"
	"github.com/pavelanni/mcqengine/internal/store"
	"github.com/pavelanni/mcqengine/internal/validate"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcqengine",
		Short: "Multiple-choice test assignment and grading service",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), addFacultyCmd(), addStudentCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "mcqengine.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default language of error messages (en, ru)")
	f.String("retake-policy", string(model.RetakeUnlimited), "Submission retake policy (unlimited, single)")
	f.Duration("request-timeout", 30*time.Second, "Per-request deadline (0 disables)")
	f.String("announce-llm-url", "", "OpenAI-compatible API base URL for announcement text (empty uses the built-in template)")
	f.String("announce-llm-key", "", "API key for the announcement LLM")
	f.String("announce-llm-model", "llama3.2", "Announcement LLM model name")
	f.Duration("announce-llm-timeout", announce.DefaultLLMTimeout, "Deadline of one announcement LLM call")
	addCommonFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-results",
		Short: "Export the submissions of one test as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("test-id", "", "Test id (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)

	_ = cmd.MarkFlagRequired("test-id")
	return cmd
}

func addFacultyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-faculty",
		Short: "Create a faculty account",
		RunE:  runAddFaculty,
	}
	f := cmd.Flags()
	f.String("id", "", "Faculty id (required)")
	f.String("institution", "", "Institution id (required)")
	f.String("name", "", "Display name")
	f.String("password", "", "Account password (or set MCQENGINE_PASSWORD)")
	addCommonFlags(cmd)

	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("institution")
	return cmd
}

func addStudentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-student",
		Short: "Create a student account",
		RunE:  runAddStudent,
	}
	f := cmd.Flags()
	f.String("enrollment-id", "", "Enrollment id (required)")
	f.String("institution", "", "Institution id (required)")
	f.String("name", "", "Display name")
	f.String("password", "", "Account password (or set MCQENGINE_PASSWORD)")
	addCommonFlags(cmd)

	_ = cmd.MarkFlagRequired("enrollment-id")
	_ = cmd.MarkFlagRequired("institution")
	return cmd
}

func setupLogging(v *viper.Viper) {
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
	opts := &slog.HandlerOptions{Level: logLevel}
	var h slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("MCQENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mcqengine")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mcqengine")
	v.AddConfigPath("/etc/mcqengine")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup reads configuration, configures logging and opens the database.
func setup(cmd *cobra.Command) (*viper.Viper, *store.Store, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return v, db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	policy := model.RetakePolicy(strings.ToLower(strings.TrimSpace(v.GetString("retake-policy"))))
	if !policy.IsValid() {
		return fmt.Errorf("invalid retake-policy %q: want unlimited or single", policy)
	}

	var composer announce.Composer
	if url := v.GetString("announce-llm-url"); url != "" {
		composer = announce.NewLLMComposer(url, v.GetString("announce-llm-key"), v.GetString("announce-llm-model"), v.GetDuration("announce-llm-timeout"))
		slog.Info("announcement LLM enabled", "url", url, "model", v.GetString("announce-llm-model"))
	}

	h, err := handler.New(db, announce.New(db, composer), handler.Config{
		RetakePolicy:   policy,
		RequestTimeout: v.GetDuration("request-timeout"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"lang", lang,
			"retake_policy", policy,
			"request_timeout", v.GetDuration("request-timeout"),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	testID, err := validate.TestID(v.GetString("test-id"))
	if err != nil {
		return err
	}
	export, err := db.ExportResults(cmd.Context(), testID)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
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
	_, _ = fmt.Fprintln(w)

	slog.Info("exported results", "test_id", testID, "submissions", len(export.Results), "output", outPath)
	return nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required: set --password flag or MCQENGINE_PASSWORD env var")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func runAddFaculty(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := validate.Ident("faculty id", v.GetString("id"))
	if err != nil {
		return err
	}
	inst, err := validate.Ident("institution id", v.GetString("institution"))
	if err != nil {
		return err
	}
	hash, err := hashPassword(v.GetString("password"))
	if err != nil {
		return err
	}
	name := v.GetString("name")
	if name == "" {
		name = id
	}
	return db.CreateFaculty(cmd.Context(), model.Faculty{
		ID:            id,
		InstitutionID: inst,
		Name:          name,
		PasswordHash:  hash,
	})
}

func runAddStudent(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := validate.Ident("enrollment id", v.GetString("enrollment-id"))
	if err != nil {
		return err
	}
	inst, err := validate.Ident("institution id", v.GetString("institution"))
	if err != nil {
		return err
	}
	hash, err := hashPassword(v.GetString("password"))
	if err != nil {
		return err
	}
	name := v.GetString("name")
	if name == "" {
		name = id
	}
	return db.CreateStudent(cmd.Context(), model.Student{
		EnrollmentID:  id,
		InstitutionID: inst,
		Name:          name,
		PasswordHash:  hash,
	})
}
