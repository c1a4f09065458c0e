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

	"github.com/cmlabs-hris/hris-attendance-agent/internal/config"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	appHTTP "github.com/cmlabs-hris/hris-attendance-agent/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/location"
	attendanceService "github.com/cmlabs-hris/hris-attendance-agent/internal/service/attendance"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "hris-agent",
		Short:         "Attendance agent for the HRIS backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before the environment")

	cmd.AddCommand(
		newServeCommand(opts),
		newPunchCommand(opts),
		newStatusCommand(opts),
		newStatsCommand(opts),
		newRefreshCommand(opts),
		newReportCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newTokenCommand(opts),
	)
	return cmd
}

// withApp loads the configuration, wires the services and runs fn. CLI
// commands log to stderr so stdout stays machine readable.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.SlogLevel(), cfg.App.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local attendance API and the background refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	scheduler := cron.NewScheduler(ctx)
	jobs := cron.NewAttendanceJobs(a.store, a.clock, a.authService, a.cfg.Agent.RefreshInterval)
	jobs.RegisterJobs(scheduler)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		AllowedOrigins: a.cfg.App.AllowedOrigins,
		LogLevel:       a.cfg.SlogLevel(),
		JWTService:     a.jwtService,
	}, a.logger, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(a.store, a.clock, a.reportService),
		Geofence:   appHTTP.NewGeofenceHandler(a.cfg.Geofence.Offices, a.cfg.Geofence.Enforce),
		Session:    appHTTP.NewSessionHandler(a.authService, a.store),
		Events:     appHTTP.NewEventsHandler(a.bus),
	})

	server := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	defer scheduler.Stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("Agent API listening", "addr", server.Addr, "storage", a.cfg.Storage.Type, "auth", a.jwtService != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down agent API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type punchOptions struct {
	latitude   float64
	longitude  float64
	accuracy   float64
	permission string
	yes        bool
	noLocation bool
}

func newPunchCommand(opts *rootOptions) *cobra.Command {
	p := &punchOptions{}

	cmd := &cobra.Command{
		Use:   "punch",
		Short: "Check in, or check out when already clocked in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				var sample *attendance.LocationSample
				if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
					sample = &attendance.LocationSample{Latitude: p.latitude, Longitude: p.longitude, Accuracy: p.accuracy}
				}

				state := attendance.PermissionState(strings.ToLower(p.permission))
				if p.yes {
					state = attendance.PermissionGranted
				}

				result, err := a.clock.Punch(ctx, attendance.PunchRequest{
					Permission:      location.TerminalGate{State: state, In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()},
					Location:        location.Static{Sample: sample},
					AllowNoLocation: p.noLocation,
				})
				if attendanceService.IsUserAbort(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Punch cancelled: location permission was not granted.")
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().Float64Var(&p.latitude, "lat", 0, "device latitude")
	cmd.Flags().Float64Var(&p.longitude, "lon", 0, "device longitude")
	cmd.Flags().Float64Var(&p.accuracy, "accuracy", 0, "fix accuracy in meters")
	cmd.Flags().StringVar(&p.permission, "permission", string(attendance.PermissionGranted), "location permission state: granted or denied")
	cmd.Flags().BoolVarP(&p.yes, "yes", "y", false, "grant location permission without asking")
	cmd.Flags().BoolVar(&p.noLocation, "allow-no-location", false, "punch with a null location when no fix is available")
	return cmd
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached attendance status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return printJSON(cmd.OutOrStdout(), appHTTP.BuildStatusResponse(a.store, a.clock))
			})
		},
	}
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show attendance statistics from the cached records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return printJSON(cmd.OutOrStdout(), a.store.Stats())
			})
		},
	}
}

func newRefreshCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Replace the cached state with the backend's view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.store.Refresh(ctx); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), appHTTP.BuildStatusResponse(a.store, a.clock))
			})
		},
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var filter attendance.ReportFilter

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the monthly attendance report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				report, err := a.reportService.MonthlyReport(ctx, filter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().IntVar(&filter.Month, "month", 0, "month 1-12, defaults to the current month")
	cmd.Flags().IntVar(&filter.Year, "year", 0, "four digit year, defaults to the current year")
	return cmd
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var (
		token string
		user  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a backend token obtained from the HRIS web login",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
				if err != nil {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				token = strings.TrimSpace(string(raw))
			}

			req := auth.SessionRequest{Token: token}
			if user != "" {
				req.User = json.RawMessage(user)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				resp, err := a.authService.SaveSession(ctx, req)
				if err != nil {
					return err
				}
				if err := a.store.Refresh(ctx); err != nil {
					slog.Warn("initial refresh failed", "error", err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "backend access token, read from stdin when empty")
	cmd.Flags().StringVar(&user, "user", "", "user profile as a JSON object")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored backend session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.authService.Logout(ctx, "user")
			})
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the local agent API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			if cfg.Agent.JWTSecret == "" {
				return errors.New("AGENT_JWT_SECRET is not set; the local API is unauthenticated")
			}

			svc := jwt.NewJWTService(cfg.Agent.JWTSecret, cfg.Agent.TokenExpiration)
			token, expiresAt, err := svc.GenerateAgentToken(subject)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), auth.AgentTokenResponse{AccessToken: token, ExpiresAt: expiresAt})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	return cmd
}
