package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"3000"`
}

type TelegramConfig struct {
	// Token has no default on purpose; the process refuses to start without it.
	Token string `yaml:"token" env:"TELEGRAM_TOKEN" env-required:"true"`
	Mode  string `yaml:"mode" env-default:"polling"` // polling or webhook
}

type StorageConfig struct {
	Backend    string `yaml:"backend" env-default:"jsonfile"` // jsonfile or sqlite
	DataDir    string `yaml:"data_dir" env-default:"./data"`
	SqlitePath string `yaml:"sqlite_path" env-default:"./data/teambot.db"`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Listen   Listen         `yaml:"listen"`
	Env      string         `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
