package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

// openBrowser открывает URL в браузере по умолчанию
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Msg("Не удалось открыть браузер")
		log.Info().Str("url", url).Msg("Откройте вручную")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bell-ticker",
		Short:         "Обратный отсчёт школьного расписания звонков",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "путь к YAML конфигурации")

	root.AddCommand(newServeCmd(), newNowCmd(), newScheduleCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
