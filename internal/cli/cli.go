package cli

import (
	"fmt"
	"io"
)

// Сведения о сборке, задаются через -ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command описание утилиты для --help
type Command struct {
	Name    string
	Summary string
	Details []string
}

// HandleArgs обрабатывает --version и --help. Возвращает true, если программа должна завершиться.
func HandleArgs(cmd Command, args []string, w io.Writer) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(w, "%s %s\n", cmd.Name, Version)
		fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
		return true
	case "--help", "-h", "help":
		fmt.Fprintf(w, "%s - %s\n", cmd.Name, cmd.Summary)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Usage: %s [options]\n", cmd.Name)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		fmt.Fprintln(w, "  --version, -v    Print version information")
		fmt.Fprintln(w, "  --help, -h       Print this help message")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Environment variables:")
		fmt.Fprintln(w, "  CVPIPE_CONFIG=config.yaml    Optional YAML config file")
		fmt.Fprintln(w, "  CVPIPE_LOG_DEBUG=true        Enable debug logging")
		for _, d := range cmd.Details {
			fmt.Fprintln(w, d)
		}
		return true
	}
	return false
}
