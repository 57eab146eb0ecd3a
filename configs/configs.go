package configs

var (
	ServerAddress = "localhost:8080"
	RedisAddress  = "localhost:6379"
	DatabasePath  = "ratchet.db"
	WebSocketPath = "/ws"
	HistoryPath   = "/history"
	BeaconPath    = "/beacon"

	// Redis keys

	HistoryKey = "history:%s:%s"
	BeaconKey  = "beacon:%s"
)
