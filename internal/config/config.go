package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Gredi    struct {
		APIURL         string `json:"api_url"`
		CustomerPath   string `json:"customer_path"`
		CustomerID     string `json:"customer_id"`
		Username       string `json:"username"`
		Password       string `json:"password"`
		UploadFolderID string `json:"upload_folder_id"`
		PerPage        int    `json:"per_page"`
	} `json:"gredi"`
	Sync struct {
		Schedule   string `json:"schedule"`
		StorageDir string `json:"storage_dir"`
	} `json:"sync"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".gredidam"),
		LogLevel: "info",
	}
	cfg.Gredi.APIURL = "https://api4.materialbank.net/api/v1"
	cfg.Gredi.PerPage = 12
	cfg.Sync.Schedule = "@every 1h"
	cfg.HTTP.Listen = "127.0.0.1:8137"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Sync.StorageDir == "" {
		cfg.Sync.StorageDir = filepath.Join(cfg.DataDir, "files")
	}

	// Override from env (highest precedence)
	if apiURL := os.Getenv("GREDI_API_URL"); apiURL != "" {
		cfg.Gredi.APIURL = apiURL
	}
	if customer := os.Getenv("GREDI_CUSTOMER"); customer != "" {
		cfg.Gredi.CustomerPath = customer
	}
	if username := os.Getenv("GREDI_USERNAME"); username != "" {
		cfg.Gredi.Username = username
	}
	if password := os.Getenv("GREDI_PASSWORD"); password != "" {
		cfg.Gredi.Password = password
	}

	return cfg, nil
}

// Save writes the config to disk atomically, creating the directory as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ListValues returns the config as a flat dot-keyed map, optionally masking
// secrets for display.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads one dot-keyed value from the config file at path.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return nil, err
	}
	value, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return value, nil
}

// SetValue writes one dot-keyed value into the config file at path.
func SetValue(path, key string, value any) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return err
	}
	current, ok := flat[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	// Coerce string input for numeric and boolean keys.
	if s, isString := value.(string); isString {
		switch current.(type) {
		case bool, float64:
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return fmt.Errorf("parse value for %s: %w", key, err)
			}
			value = parsed
		}
	}
	flat[key] = value

	data, err := json.Marshal(Unflatten(flat))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	updated := &Config{}
	if err := json.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("apply config value: %w", err)
	}
	return Save(path, updated)
}
