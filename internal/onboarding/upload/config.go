package upload

import (
	"time"

	"sme-onboarding/internal/common/config"
)

type Config struct {
	// Confirm enables the confirm-persist-upload call after the transfer.
	Confirm         bool
	TransferTimeout time.Duration
}

func LoadConfig(cfg config.UploadConfig) *Config {
	timeout := config.GetDuration(cfg.TransferTimeout)
	if timeout <= 0 {
		timeout = config.GetDuration(config.DefaultTransferTimeout)
	}
	return &Config{
		Confirm:         cfg.Confirm,
		TransferTimeout: timeout,
	}
}
