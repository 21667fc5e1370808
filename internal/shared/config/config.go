package config

import (
	"fmt"
	"strconv"
	"time"

	"conquest-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Relay     RelayConfig
	Game      GameConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageConfig selects and configures the backing store. Backend is one of
// "redis", "postgres" or "memory"; the core only ever sees the storage.Store
// contract, never a concrete backend.
type StorageConfig struct {
	Backend  string
	Redis    RedisConfig
	Database DatabaseConfig
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RelayConfig points at the push-notification relay. An empty URL disables
// fan-out entirely; the command path never depends on the relay being up.
type RelayConfig struct {
	URL     string
	Timeout time.Duration
}

type GameConfig struct {
	BaseMovesPerTurn   int
	CombatDieSides     int
	CombatKillsOn      int
	MaxStructureLevel  int
	StartingGarrison   int
	StartingResource   int
	RecruitCost        int
	RecruitCostStep    int
	DefaultMapSize     int
	DefaultMaxPlayers  int
	DefaultTurnLimit   int
	GraceWindow        time.Duration
	PendingWriteMaxAge time.Duration
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Storage:   loadStorageConfig(),
		Relay:     loadRelayConfig(),
		Game:      loadGameConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:  utils.GetEnv("STORAGE_BACKEND", "memory"),
		Redis:    loadRedisConfig(),
		Database: loadDatabaseConfig(),
	}
}

func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "conquest"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadRelayConfig() RelayConfig {
	timeout, _ := strconv.Atoi(utils.GetEnv("RELAY_TIMEOUT_SECONDS", "5"))

	return RelayConfig{
		URL:     utils.GetEnv("RELAY_URL", ""),
		Timeout: time.Duration(timeout) * time.Second,
	}
}

func loadGameConfig() GameConfig {
	baseMoves, _ := strconv.Atoi(utils.GetEnv("GAME_BASE_MOVES_PER_TURN", "3"))
	dieSides, _ := strconv.Atoi(utils.GetEnv("GAME_COMBAT_DIE_SIDES", "6"))
	killsOn, _ := strconv.Atoi(utils.GetEnv("GAME_COMBAT_KILLS_ON", "4"))
	maxLevel, _ := strconv.Atoi(utils.GetEnv("GAME_MAX_STRUCTURE_LEVEL", "3"))
	startingGarrison, _ := strconv.Atoi(utils.GetEnv("GAME_STARTING_GARRISON", "5"))
	startingResource, _ := strconv.Atoi(utils.GetEnv("GAME_STARTING_RESOURCE", "12"))
	recruitCost, _ := strconv.Atoi(utils.GetEnv("GAME_RECRUIT_COST", "8"))
	recruitCostStep, _ := strconv.Atoi(utils.GetEnv("GAME_RECRUIT_COST_STEP", "8"))
	mapSize, _ := strconv.Atoi(utils.GetEnv("GAME_DEFAULT_MAP_SIZE", "12"))
	maxPlayers, _ := strconv.Atoi(utils.GetEnv("GAME_DEFAULT_MAX_PLAYERS", "4"))
	turnLimit, _ := strconv.Atoi(utils.GetEnv("GAME_DEFAULT_TURN_LIMIT", "0"))
	graceWindow, _ := strconv.Atoi(utils.GetEnv("GAME_GRACE_WINDOW_SECONDS", "45"))
	pendingMaxAge, _ := strconv.Atoi(utils.GetEnv("GAME_PENDING_WRITE_MAX_AGE_SECONDS", "30"))

	return GameConfig{
		BaseMovesPerTurn:   baseMoves,
		CombatDieSides:     dieSides,
		CombatKillsOn:      killsOn,
		MaxStructureLevel:  maxLevel,
		StartingGarrison:   startingGarrison,
		StartingResource:   startingResource,
		RecruitCost:        recruitCost,
		RecruitCostStep:    recruitCostStep,
		DefaultMapSize:     mapSize,
		DefaultMaxPlayers:  maxPlayers,
		DefaultTurnLimit:   turnLimit,
		GraceWindow:        time.Duration(graceWindow) * time.Second,
		PendingWriteMaxAge: time.Duration(pendingMaxAge) * time.Second,
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "") == "true",
	}
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	switch c.Storage.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of redis, postgres, memory; got %q", c.Storage.Backend)
	}

	if c.Storage.Backend == "postgres" {
		if c.Storage.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required when STORAGE_BACKEND is postgres")
		}
		if c.Storage.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required when STORAGE_BACKEND is postgres")
		}
	}

	if c.Game.CombatDieSides < 2 {
		return fmt.Errorf("GAME_COMBAT_DIE_SIDES must be at least 2")
	}

	if c.Game.CombatKillsOn < 1 || c.Game.CombatKillsOn > c.Game.CombatDieSides {
		return fmt.Errorf("GAME_COMBAT_KILLS_ON must be between 1 and GAME_COMBAT_DIE_SIDES")
	}

	if c.Game.BaseMovesPerTurn < 1 {
		return fmt.Errorf("GAME_BASE_MOVES_PER_TURN must be at least 1")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Storage.Database.Host,
		c.Storage.Database.Port,
		c.Storage.Database.User,
		c.Storage.Database.Password,
		c.Storage.Database.Name,
		c.Storage.Database.SSLMode,
	)
}
