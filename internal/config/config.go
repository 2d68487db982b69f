package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Mode selects how outbound LINE messages are delivered. It is set
// explicitly via DELIVERY_MODE and never inferred from credential values.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

type Config struct {
	Port               string
	Mode               Mode
	ChannelSecret      string
	ChannelAccessToken string
	DBDriver           string // sqlite or postgres
	DBPath             string // sqlite file path
	DBHost             string
	DBUser             string
	DBPassword         string
	DBName             string
	DBPort             string
	DBSSLMode          string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	mode := Mode(getEnv("DELIVERY_MODE", string(ModeSimulated)))
	if mode != ModeLive && mode != ModeSimulated {
		log.Fatalf("Invalid DELIVERY_MODE %q (must be %q or %q)", mode, ModeLive, ModeSimulated)
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Mode:               mode,
		ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DBPath:             getEnv("DB_PATH", "./myloop.db"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBUser:             getEnv("DB_USER", "myloop"),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", "myloop"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBSSLMode:          getEnv("DB_SSL_MODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
