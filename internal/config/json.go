package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and string
// durations.
type StructuredJSONConfig struct {
	App struct {
		ClientID       string `json:"client_id"`
		MasterPassword string `json:"master_password"`
		LogLevel       string `json:"log_level"`
	} `json:"app,omitempty"`

	Target struct {
		ID             string   `json:"id"`
		Kind           string   `json:"kind"`
		Path           string   `json:"path"`
		URL            string   `json:"url"`
		Username       string   `json:"username"`
		Password       string   `json:"password"`
		Bucket         string   `json:"bucket"`
		Region         string   `json:"region"`
		UseSSL         bool     `json:"use_ssl"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"target,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`

		Files struct {
			ResourceDir string `json:"resource_dir"`
		} `json:"files,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		LockStaleAfter        Duration `json:"lock_stale_after"`
		LockSettleDelay       Duration `json:"lock_settle_delay"`
		MaxRetries            int      `json:"max_retries"`
		RetryBaseDelay        Duration `json:"retry_base_delay"`
		MaxDecryptionAttempts int      `json:"max_decryption_attempts"`
		DeltaPageSize         int      `json:"delta_page_size"`
		EncryptionEnabled     bool     `json:"encryption_enabled"`
	} `json:"sync,omitempty"`

	Workers struct {
		SyncInterval             Duration `json:"sync_interval"`
		ResourceFetchConcurrency int      `json:"resource_fetch_concurrency"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			ClientID:       jsonCfg.App.ClientID,
			MasterPassword: jsonCfg.App.MasterPassword,
			LogLevel:       jsonCfg.App.LogLevel,
		},
		Target: Target{
			ID:             jsonCfg.Target.ID,
			Kind:           jsonCfg.Target.Kind,
			Path:           jsonCfg.Target.Path,
			URL:            jsonCfg.Target.URL,
			Username:       jsonCfg.Target.Username,
			Password:       jsonCfg.Target.Password,
			Bucket:         jsonCfg.Target.Bucket,
			Region:         jsonCfg.Target.Region,
			UseSSL:         jsonCfg.Target.UseSSL,
			RequestTimeout: time.Duration(jsonCfg.Target.RequestTimeout),
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
			Files: Files{
				ResourceDir: jsonCfg.Storage.Files.ResourceDir,
			},
		},
		Sync: Sync{
			LockStaleAfter:        time.Duration(jsonCfg.Sync.LockStaleAfter),
			LockSettleDelay:       time.Duration(jsonCfg.Sync.LockSettleDelay),
			MaxRetries:            jsonCfg.Sync.MaxRetries,
			RetryBaseDelay:        time.Duration(jsonCfg.Sync.RetryBaseDelay),
			MaxDecryptionAttempts: jsonCfg.Sync.MaxDecryptionAttempts,
			DeltaPageSize:         jsonCfg.Sync.DeltaPageSize,
			EncryptionEnabled:     jsonCfg.Sync.EncryptionEnabled,
		},
		Workers: Workers{
			SyncInterval:             time.Duration(jsonCfg.Workers.SyncInterval),
			ResourceFetchConcurrency: jsonCfg.Workers.ResourceFetchConcurrency,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
