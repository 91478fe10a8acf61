package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Skufu/GlycoRisk/internal/config"
	"github.com/Skufu/GlycoRisk/internal/database"
	"github.com/Skufu/GlycoRisk/internal/features"
	"github.com/Skufu/GlycoRisk/internal/logging"
	"github.com/Skufu/GlycoRisk/internal/pipeline"
	"github.com/Skufu/GlycoRisk/internal/server"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is shared by all subcommands once config is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	rt := &app{}
	var modelPath, preprocessorPath string

	root := &cobra.Command{
		Use:           "glycorisk",
		Short:         "Diabetes risk prediction service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if modelPath != "" {
				cfg.ModelPath = modelPath
			}
			if preprocessorPath != "" {
				cfg.PreprocessorPath = preprocessorPath
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			rt.cfg = cfg
			rt.logger = logging.Init(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&modelPath, "model", "", "model artifact path (overrides MODEL_PATH)")
	root.PersistentFlags().StringVar(&preprocessorPath, "preprocessor", "", "preprocessor artifact path (overrides PREPROCESSOR_PATH)")

	serveC := serveCmd(rt)
	root.RunE = serveC.RunE
	root.Flags().AddFlagSet(serveC.Flags())

	root.AddCommand(serveC)
	root.AddCommand(predictCmd(rt))
	return root
}

func serveCmd(rt *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				rt.cfg.Port = port
			}
			return serve(cmd.Context(), rt)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, rt *app) error {
	cfg, logger := rt.cfg, rt.logger
	gin.SetMode(cfg.GinMode)

	// Artifacts are loaded once; nothing is served without them.
	pipe, err := pipeline.Load(cfg.ModelPath, cfg.PreprocessorPath, logger)
	if err != nil {
		return err
	}

	opts := server.Options{Predictor: pipe, CORSOrigins: cfg.CORSOrigins}
	if cfg.EnableDB {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()
		opts.DB = pool
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("server listening", "port", cfg.Port)
	return waitForShutdown(srv, errCh, logger)
}

func waitForShutdown(srv *http.Server, errCh <-chan error, logger *slog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}

func predictCmd(rt *app) *cobra.Command {
	in := features.DefaultInput()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a single prediction from flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := pipeline.Load(rt.cfg.ModelPath, rt.cfg.PreprocessorPath, rt.logger)
			if err != nil {
				return err
			}
			rec, err := features.Assemble(in)
			if err != nil {
				return err
			}
			res, err := pipe.Run(rec)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					pipeline.Result
					Advisory string `json:"advisory"`
				}{res, res.Tier.Advisory()})
			}
			fmt.Fprintf(out, "Predicted probability of diabetes: %.2f%%\n", res.Probability*100)
			fmt.Fprintf(out, "[%s] %s\n", res.Tier, res.Tier.Advisory())
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&in.Age, "age", in.Age, "age in years")
	f.Float64Var(&in.BMI, "bmi", in.BMI, "body mass index")
	f.Float64Var(&in.HbA1cLevel, "hba1c", in.HbA1cLevel, "HbA1c level")
	f.IntVar(&in.BloodGlucose, "glucose", in.BloodGlucose, "blood glucose level")
	f.StringVar(&in.Hypertension, "hypertension", in.Hypertension, "hypertension (yes|no)")
	f.StringVar(&in.HeartDisease, "heart-disease", in.HeartDisease, "heart disease (yes|no)")
	f.StringVar(&in.Race, "race", in.Race, "race (AfricanAmerican|Asian|Caucasian|Hispanic|Other)")
	f.StringVar(&in.Gender, "gender", in.Gender, "gender")
	f.StringVar(&in.Location, "location", in.Location, "location")
	f.StringVar(&in.SmokingHistory, "smoking-history", in.SmokingHistory, "smoking history")
	f.BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}
