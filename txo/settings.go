package txo

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultPollingInterval    time.Duration = time.Second * 10
	defaultBatchSize          int           = 100
	defaultMaxRetries         int           = 5
	defaultExchange           string        = "events"
	defaultDeadLetterExchange string        = "events.dead-letter"
)

const (
	envEnablePublisher    = "TXOUTBOX_ENABLE_PUBLISHER"
	envPollingInterval    = "TXOUTBOX_POLLING_INTERVAL"
	envBatchSize          = "TXOUTBOX_BATCH_SIZE"
	envMaxRetries         = "TXOUTBOX_MAX_RETRIES"
	envExchange           = "TXOUTBOX_EXCHANGE"
	envDeadLetterExchange = "TXOUTBOX_DEAD_LETTER_EXCHANGE"
)

// Settings holds the general module configuration.
type Settings struct {
	EnablePublisher    bool          // enables the polling publisher loop when running the module
	PollingInterval    time.Duration // interval between outbox table pollings
	BatchSize          int           // maximum number of records fetched per poll cycle
	MaxRetries         int           // delivery attempts before a record is routed to dead-letter
	Exchange           string        // broker destination for regular deliveries
	DeadLetterExchange string        // broker destination for exhausted records
}

// LoadSettings builds Settings from the TXOUTBOX_* environment variables.
// Unset or malformed variables keep their zero value so validateSettings can
// apply the defaults.
func LoadSettings() Settings {
	var s Settings
	s.EnablePublisher, _ = strconv.ParseBool(os.Getenv(envEnablePublisher))
	if v, err := time.ParseDuration(os.Getenv(envPollingInterval)); err == nil {
		s.PollingInterval = v
	}
	if v, err := strconv.Atoi(os.Getenv(envBatchSize)); err == nil {
		s.BatchSize = v
	}
	if v, err := strconv.Atoi(os.Getenv(envMaxRetries)); err == nil {
		s.MaxRetries = v
	}
	s.Exchange = os.Getenv(envExchange)
	s.DeadLetterExchange = os.Getenv(envDeadLetterExchange)
	return s
}

// validateSettings validates the established settings and sets defaults if
// needed.
func validateSettings(s *Settings) {
	if s.PollingInterval <= 0 {
		s.PollingInterval = defaultPollingInterval
	}
	if s.BatchSize <= 0 {
		s.BatchSize = defaultBatchSize
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = defaultMaxRetries
	}
	if s.Exchange == "" {
		s.Exchange = defaultExchange
	}
	if s.DeadLetterExchange == "" {
		s.DeadLetterExchange = defaultDeadLetterExchange
	}
}
