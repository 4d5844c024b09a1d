package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	JWT struct {
		Secret   string `mapstructure:"secret"`
		Required bool   `mapstructure:"required"`
	} `mapstructure:"jwt"`
	Game struct {
		StartingBalance int64         `mapstructure:"starting_balance"`
		RoomIdleTTL     time.Duration `mapstructure:"room_idle_ttl"`
		ReapInterval    time.Duration `mapstructure:"reap_interval"`
	} `mapstructure:"game"`
	Roulette struct {
		SpinDelay     time.Duration `mapstructure:"spin_delay"`
		ResultsDelay  time.Duration `mapstructure:"results_delay"`
		AutoSpinAfter time.Duration `mapstructure:"auto_spin_after"`
		MaxSeats      int           `mapstructure:"max_seats"`
	} `mapstructure:"roulette"`
	Blackjack struct {
		DealerDelay  time.Duration `mapstructure:"dealer_delay"`
		ResultsDelay time.Duration `mapstructure:"results_delay"`
		MaxSeats     int           `mapstructure:"max_seats"`
	} `mapstructure:"blackjack"`
	Holdem struct {
		SmallBlind   int64         `mapstructure:"small_blind"`
		BigBlind     int64         `mapstructure:"big_blind"`
		ResultsDelay time.Duration `mapstructure:"results_delay"`
		MaxSeats     int           `mapstructure:"max_seats"`
		Showdown     string        `mapstructure:"showdown"`
	} `mapstructure:"holdem"`
	InBetween struct {
		ResultsDelay time.Duration `mapstructure:"results_delay"`
		MaxSeats     int           `mapstructure:"max_seats"`
		CarryPot     bool          `mapstructure:"carry_pot"`
	} `mapstructure:"inbetween"`
}

var C Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.required", false)

	v.SetDefault("game.starting_balance", 1000)
	v.SetDefault("game.room_idle_ttl", "10m")
	v.SetDefault("game.reap_interval", "1m")

	v.SetDefault("roulette.spin_delay", "3s")
	v.SetDefault("roulette.results_delay", "5s")
	v.SetDefault("roulette.auto_spin_after", "20s")
	v.SetDefault("roulette.max_seats", 0)

	v.SetDefault("blackjack.dealer_delay", "2s")
	v.SetDefault("blackjack.results_delay", "5s")
	v.SetDefault("blackjack.max_seats", 7)

	v.SetDefault("holdem.small_blind", 5)
	v.SetDefault("holdem.big_blind", 10)
	v.SetDefault("holdem.results_delay", "5s")
	v.SetDefault("holdem.max_seats", 10)
	v.SetDefault("holdem.showdown", "split")

	v.SetDefault("inbetween.results_delay", "5s")
	v.SetDefault("inbetween.max_seats", 10)
	v.SetDefault("inbetween.carry_pot", false)
}

// Read 读取配置文件（可缺省）并叠加 CASINO_ 前缀的环境变量，如 CASINO_SERVER_PORT。
func Read(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CASINO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if c.Holdem.Showdown != "split" && c.Holdem.Showdown != "ranked" {
		return Config{}, fmt.Errorf("holdem.showdown: unknown mode %q", c.Holdem.Showdown)
	}
	return c, nil
}

// Load reads the config into C.
func Load(path string) error {
	c, err := Read(path)
	if err != nil {
		return err
	}
	C = c
	return nil
}
