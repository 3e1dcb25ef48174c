package gameserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirrezam75/racerelay/entities"
	"github.com/amirrezam75/racerelay/services"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "race"

var ErrInvalidConfig = errors.New("invalid config")

// Config contains all configuration options for the game server. Every
// field is read from a RACE_ prefixed environment variable.
type Config struct {
	Debug          bool     `envconfig:"DEBUG" default:"false"`
	Port           string   `envconfig:"PORT" default:"8081"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	MaxLaps      int           `envconfig:"MAX_LAPS" default:"3"`
	MinPlayers   int           `envconfig:"MIN_PLAYERS" default:"2"`
	Countdown    time.Duration `envconfig:"COUNTDOWN" default:"3s"`
	MusicLead    time.Duration `envconfig:"MUSIC_LEAD" default:"1s"`
	FinishGrace  time.Duration `envconfig:"FINISH_GRACE" default:"10s"`
	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"50ms"`
	Songs        []string      `envconfig:"SONGS" default:"Homecoming.mp3,Children.mp3,killing_me_softly.mp3,like_a_prayer.mp3,move_your_body.mp3"`

	// PERFORMANCE TUNING: how many envelopes may wait for fan out, and how
	// many messages a single slow client may lag behind before drops start.
	DispatchBufferSize int     `envconfig:"DISPATCH_BUFFER_SIZE" default:"500"`
	ClientBufferSize   int     `envconfig:"CLIENT_BUFFER_SIZE" default:"64"`
	InboundRate        float64 `envconfig:"INBOUND_RATE" default:"60"`
	InboundBurst       int     `envconfig:"INBOUND_BURST" default:"120"`

	ResultsCacheSize int `envconfig:"RESULTS_CACHE_SIZE" default:"64"`

	Redis RedisConfig `envconfig:"REDIS"`
}

// RedisConfig contains Redis connection configuration. An empty host
// disables publishing.
type RedisConfig struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	Channel  string `envconfig:"CHANNEL" default:"race-service"`
}

func Load() (Config, error) {
	var config Config

	if err := envconfig.Process(envPrefix, &config); err != nil {
		return Config{}, fmt.Errorf("processing the config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (config Config) Validate() error {
	if config.MaxLaps < 1 {
		return fmt.Errorf("%w: max laps must be at least 1, got %d", ErrInvalidConfig, config.MaxLaps)
	}

	if config.MinPlayers < 2 {
		return fmt.Errorf("%w: min players must be at least 2, got %d", ErrInvalidConfig, config.MinPlayers)
	}

	if config.Countdown < 0 || config.MusicLead < 0 || config.FinishGrace < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	if _, err := config.Catalog(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

func (config Config) Rules() services.Rules {
	return services.Rules{
		MaxLaps:     config.MaxLaps,
		MinPlayers:  config.MinPlayers,
		Countdown:   config.Countdown,
		MusicLead:   config.MusicLead,
		FinishGrace: config.FinishGrace,
	}
}

func (config Config) Catalog() (entities.Catalog, error) {
	return entities.NewCatalog(config.Songs)
}

func (config Config) Limits() services.Limits {
	return services.Limits{
		ClientBufferSize: config.ClientBufferSize,
		InboundRate:      config.InboundRate,
		InboundBurst:     config.InboundBurst,
	}
}
