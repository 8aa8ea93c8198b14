package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lmbridge/internal/process"
	"lmbridge/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bridge service",
	Long:  `Start the chat bridge service in the foreground.`,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	if err := ensureConfigExists(); err != nil {
		return err
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("Starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"ollama_base_url", cfg.OllamaBaseURL,
		"default_model", cfg.DefaultModel,
	)

	procMgr := process.NewManager(baseDir)
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv, err := server.New(cfgMgr, logger)
	if err != nil {
		return err
	}

	return srv.Start()
}
