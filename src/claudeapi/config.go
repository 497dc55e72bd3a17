package claudeapi

import (
	"log/slog"
	"time"
)

// Config holds configuration for the Claude web API client
type Config struct {
	SessionKey string        // value of the sessionKey cookie
	OrgID      string        // organization uuid; discovered by Bootstrap when empty
	BaseURL    string        // defaults to https://claude.ai
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // HTTP timeout
	RetryCount int           // Number of attempts for failed requests
	RetryDelay time.Duration // Base delay between attempts
	CacheTTL   time.Duration // How long conversation lists stay cached
	UserAgent  string
}
