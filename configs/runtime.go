package configs

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store backends understood by Runtime.StoreBackend.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Runtime is the process-level wiring of the relay and the chat client.
type Runtime struct {
	ServerAddress string
	RedisAddress  string
	DatabasePath  string
	StoreBackend  string
	LogLevel      logrus.Level

	// Client side.
	Username     string
	Peer         string
	SharedSecret string
}

// LoadRuntime reads the given dotenv files (missing files are ignored) and
// then the RATCHET_* environment variables, falling back to the package
// defaults.
func LoadRuntime(files ...string) Runtime {
	for _, f := range files {
		// Variables already present in the environment win over the file.
		_ = godotenv.Load(f)
	}

	rt := Runtime{
		ServerAddress: getenv("RATCHET_SERVER_ADDRESS", ServerAddress),
		RedisAddress:  getenv("RATCHET_REDIS_ADDRESS", RedisAddress),
		DatabasePath:  getenv("RATCHET_DATABASE_PATH", DatabasePath),
		StoreBackend:  getenv("RATCHET_STORE", StoreMemory),
		LogLevel:      logrus.InfoLevel,
		Username:      os.Getenv("RATCHET_USERNAME"),
		Peer:          os.Getenv("RATCHET_PEER"),
		SharedSecret:  os.Getenv("RATCHET_SHARED_SECRET"),
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("RATCHET_LOG_LEVEL")); err == nil {
		rt.LogLevel = lvl
	}
	return rt
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
