package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Vaflel/bell-ticker/config"
	"github.com/Vaflel/bell-ticker/domain"
	"github.com/Vaflel/bell-ticker/infrastructure"
	"github.com/Vaflel/bell-ticker/logging"
	"github.com/Vaflel/bell-ticker/metrics"
	"github.com/Vaflel/bell-ticker/usecases"
	"github.com/Vaflel/bell-ticker/web"
)

const defaultGeminiModel = "gemini-1.5-flash"

type app struct {
	cfg    config.Config
	log    zerolog.Logger
	ticker *usecases.TickerService
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.Setup(cfg.IsDevelopment(), cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	prefs := infrastructure.NewYAMLPreferenceRepository(cfg.School.PreferencesFile)
	ticker := usecases.NewTickerService(domain.DefaultRegistry(), prefs, cfg.DefaultSchedule(), loc, logger)

	return &app{cfg: cfg, log: logger, ticker: ticker}, nil
}

// chatProvider возвращает nil без ключа: чат отвечает 500, остальное работает
func (a *app) chatProvider(ctx context.Context) (usecases.ChatProvider, func(), error) {
	c := a.cfg.Chat
	if c.APIKey == "" {
		a.log.Warn().Str("provider", c.Provider).Msg("ключ чата не задан, чат отключён")
		return nil, func() {}, nil
	}

	timeout := config.MustDuration(c.Timeout, 30*time.Second)
	switch strings.ToLower(c.Provider) {
	case "gemini":
		model := c.Model
		if model == "" || model == config.Default().Chat.Model {
			model = defaultGeminiModel
		}
		client, err := infrastructure.NewGeminiChatClient(ctx, c.APIKey, model, c.Temperature, c.MaxTokens)
		if err != nil {
			return nil, func() {}, err
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return infrastructure.NewGroqChatClient(c.APIKey, c.BaseURL, c.Model, c.Temperature, c.MaxTokens, timeout), func() {}, nil
	}
}

func newServeCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить веб-сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			count, err := a.ticker.CheckPreferences()
			if err != nil {
				return err
			}
			a.log.Info().Int("preferences", count).Str("file", a.cfg.School.PreferencesFile).Msg("Выборы расписания загружены")

			provider, closeProvider, err := a.chatProvider(ctx)
			if err != nil {
				return err
			}
			defer closeProvider()

			weather := infrastructure.NewOpenWeatherClient(
				a.cfg.Weather.APIKey,
				a.cfg.Weather.BaseURL,
				a.cfg.Weather.Units,
				config.MustDuration(a.cfg.Weather.Timeout, 10*time.Second),
			)
			if a.cfg.Weather.APIKey == "" {
				a.log.Warn().Msg("OPENWEATHERMAP_API_KEY не задан, погода недоступна")
			}

			m := metrics.New()
			server := web.NewServer(web.Deps{
				Ticker:  a.ticker,
				Chat:    usecases.NewChatService(provider, a.cfg.Chat.SystemPrompt, usecases.NewClientLimiter(a.cfg.Chat.RatePerMin), a.log),
				Weather: infrastructure.NewCachedWeatherProvider(
					infrastructure.NewMeteredWeatherProvider(weather, m),
					config.MustDuration(a.cfg.Weather.CacheTTL, 30*time.Minute),
					a.log,
				),
				Metrics: m,
				Log:     a.log,
			}, web.Options{
				Addr:           a.cfg.HTTP.Addr,
				AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
				TickInterval:   config.MustDuration(a.cfg.HTTP.TickInterval, time.Second),
				DefaultLat:     a.cfg.Weather.Lat,
				DefaultLon:     a.cfg.Weather.Lon,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			if open {
				go func() {
					time.Sleep(500 * time.Millisecond)
					openBrowser(localURL(a.cfg.HTTP.Addr))
				}()
			}

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("ошибка запуска веб-сервера: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.MustDuration(a.cfg.HTTP.ShutdownTimeout, 10*time.Second))
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "открыть страницу в браузере после запуска")
	return cmd
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func newNowCmd() *cobra.Command {
	var (
		schedule string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "now",
		Short: "Показать текущий урок и обратный отсчёт",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			kind := a.ticker.DefaultKind()
			if schedule != "" {
				if kind, err = domain.ParseScheduleKind(schedule); err != nil {
					return err
				}
			}

			if !watch {
				d, err := a.ticker.Current(kind)
				if err != nil {
					return err
				}
				printDashboard(cmd.OutOrStdout(), d)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				d, err := a.ticker.Current(kind)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
				printDashboard(cmd.OutOrStdout(), d)

				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
				}
			}
		},
	}
	cmd.Flags().StringVarP(&schedule, "schedule", "s", "", "расписание: aLunch или bLunch")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "обновлять каждую секунду")
	return cmd
}

func printDashboard(w io.Writer, d usecases.Dashboard) {
	fmt.Fprintf(w, "%s · %s %s\n", d.ScheduleTitle, d.Date, d.Clock)
	switch d.State {
	case usecases.StateWeekend:
		fmt.Fprintf(w, "Weekend. Next school day starts in %s\n", d.UntilSchool)
	case usecases.StateOver:
		fmt.Fprintf(w, "School's out. Next school day starts in %s\n", d.UntilSchool)
	case usecases.StateBefore:
		fmt.Fprintf(w, "School starts in %s\n", d.UntilSchool)
	default:
		if d.CurrentPeriod != nil {
			fmt.Fprintf(w, "Current: %s (%s)  %s remaining  %.1f%%\n", d.CurrentName, d.CurrentRange, d.Remaining, d.Progress)
		} else {
			fmt.Fprintf(w, "Current: %s\n", d.CurrentName)
		}
		if d.NextPeriod != nil {
			fmt.Fprintf(w, "Next:    %s (%s)  %s until start\n", d.NextName, d.NextRange, d.UntilNext)
		}
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule [aLunch|bLunch]",
		Short: "Вывести расписание звонков",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			views := a.ticker.Schedules()
			if len(args) == 1 {
				kind, err := domain.ParseScheduleKind(args[0])
				if err != nil {
					return err
				}
				filtered := views[:0]
				for _, v := range views {
					if v.Kind == kind {
						filtered = append(filtered, v)
					}
				}
				if len(filtered) == 0 {
					return errors.New("расписание не найдено")
				}
				views = filtered
			}

			return printSchedules(cmd.OutOrStdout(), views)
		},
	}
}

func printSchedules(out io.Writer, views []usecases.ScheduleView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (%s)\n", v.Name, v.Kind)
		for _, p := range v.Periods {
			fmt.Fprintf(tw, "  %s\t%s\t%d min\n", p.Name, domain.FormatPeriodTimeRange(&p), int(p.Length().Minutes()))
		}
	}
	return tw.Flush()
}
