package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"auto_traider_go/config"
	"auto_traider_go/logs"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the config.yaml file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("Note: .env file not found, will continue using system environment variables.")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Fatal error: Unable to load config file '%s': %v\n", *configPath, err)
		return
	}

	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		fmt.Printf("Fatal error: Unable to load environment config: %v\n", err)
		return
	}

	logFilename := filepath.Join(cfg.Normal.LogDirectory, "auto_traider.log")
	stateFilename := filepath.Join(cfg.Normal.StateDirectory, "auto_traider_state.json")

	if err := logs.Init(cfg.Logs, logFilename); err != nil {
		fmt.Printf("Fatal error: Failed to initialize logging system: %v\n", err)
		return
	}
	defer logs.Close()

	logs.Infof("Configuration loaded (schema %s), logs will be written to: %s", cfg.SettingsVersion, logFilename)

	orchestrator, err := NewOrchestrator(cfg, envCfg, stateFilename)
	if err != nil {
		logs.Fatalf("Failed to initialize Orchestrator: %v", err)
	}
	orchestrator.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	orchestrator.Stop()
}
