package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"teambot/bot"
	"teambot/impl/core"
	"teambot/internal/config"
	"teambot/internal/http-server/api"
	"teambot/internal/storage"
	"teambot/internal/storage/jsonfile"
	"teambot/internal/storage/sqlite"
	"teambot/lib/logger"
	"teambot/lib/sl"
)

const logFileName = "teambot.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting teambot", slog.String("config", *configPath), slog.String("env", conf.Env))

	store := mustOpenStore(conf, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("closing store", sl.Err(err))
		}
	}()

	handler := core.New(store, log)

	tgBot, err := bot.NewTgBot(conf.Telegram.Token, handler, log)
	if err != nil {
		log.Error("creating telegram bot", sl.Err(err))
		os.Exit(1)
	}

	if conf.Telegram.Mode == "webhook" {
		tgBot.StartWebhook()
	} else {
		go func() {
			if err := tgBot.Start(); err != nil {
				log.Error("telegram bot stopped", sl.Err(err))
				os.Exit(1)
			}
		}()
	}

	go func() {
		if err := api.New(conf, log, tgBot); err != nil {
			log.Error("api server stopped", sl.Err(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", slog.String("signal", sig.String()))
	tgBot.Stop()
}

func mustOpenStore(conf *config.Config, log *slog.Logger) storage.Store {
	switch conf.Storage.Backend {
	case "sqlite":
		store, err := sqlite.New(conf.Storage.SqlitePath, log)
		if err != nil {
			log.Error("opening sqlite store", sl.Err(err))
			os.Exit(1)
		}
		return store
	case "jsonfile", "":
		return jsonfile.New(conf.Storage.DataDir, log)
	default:
		log.Error("unknown storage backend", slog.String("backend", conf.Storage.Backend))
		os.Exit(1)
		return nil
	}
}
