package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/relaybot/bot"
	"github.com/m3rciful/relaybot/config"
	corecmd "github.com/m3rciful/relaybot/core/cmd"
	"github.com/m3rciful/relaybot/core/logger"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
				return nil, fmt.Errorf("logger init: %w", err)
			}
			return bot.New(cfg)
		},
	})
	if err != nil {
		log.Fatalf("relaybot: %v", err)
	}
}
