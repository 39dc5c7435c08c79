package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ShippingConfig describes the shop location, the three delivery options and the
// delivery zones used for distance based pricing.
type ShippingConfig struct {
	Origin  Coordinates      `yaml:"origin"`
	Options []ShippingOption `yaml:"options"`
	Zones   []ShippingZone   `yaml:"zones"`
}

type Coordinates struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type ShippingOption struct {
	Method        string  `yaml:"method"`
	Label         string  `yaml:"label"`
	Cost          float64 `yaml:"cost"`
	DistanceBased bool    `yaml:"distance_based"`
}

type ShippingZone struct {
	Name        string   `yaml:"name"`
	MaxKm       float64  `yaml:"max_km"`
	Cost        float64  `yaml:"cost"`
	PostalCodes []string `yaml:"postal_codes"`
}

// DefaultShipping is used when SHIPPING_CONFIG is not set.
func DefaultShipping() ShippingConfig {
	return ShippingConfig{
		Origin: Coordinates{Lat: -34.6037, Lng: -58.3816},
		Options: []ShippingOption{
			{Method: "pickup", Label: "Retiro en tienda", Cost: 0},
			{Method: "express", Label: "Envío express (mismo día)", Cost: 4500},
			{Method: "scheduled", Label: "Envío programado", Cost: 3000, DistanceBased: true},
		},
		Zones: []ShippingZone{
			{Name: "centro", MaxKm: 5, Cost: 2000, PostalCodes: []string{"1000", "1001", "1002", "1003"}},
			{Name: "intermedia", MaxKm: 12, Cost: 3000},
			{Name: "periferia", MaxKm: 25, Cost: 4500},
		},
	}
}

// LoadShipping parses a YAML shipping file. An empty path returns the defaults.
func LoadShipping(path string) (ShippingConfig, error) {
	if path == "" {
		return DefaultShipping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ShippingConfig{}, fmt.Errorf("reading shipping config: %w", err)
	}
	return ParseShipping(data)
}

// ParseShipping decodes and validates YAML shipping configuration.
func ParseShipping(data []byte) (ShippingConfig, error) {
	var cfg ShippingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ShippingConfig{}, fmt.Errorf("parsing shipping config: %w", err)
	}
	if len(cfg.Options) == 0 {
		return ShippingConfig{}, fmt.Errorf("shipping config has no options")
	}
	for i, z := range cfg.Zones {
		if z.MaxKm <= 0 {
			return ShippingConfig{}, fmt.Errorf("zone %q: max_km must be positive", z.Name)
		}
		if i > 0 && z.MaxKm <= cfg.Zones[i-1].MaxKm {
			return ShippingConfig{}, fmt.Errorf("zones must be ordered by max_km ascending")
		}
	}
	return cfg, nil
}

// WatchShipping reloads the shipping file whenever it is written and hands the new
// configuration to onChange. It returns when ctx is cancelled.
func WatchShipping(ctx context.Context, path string, logger *zap.Logger, onChange func(ShippingConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating shipping watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so the directory is watched instead of the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := LoadShipping(path)
			if err != nil {
				logger.Warn("shipping config reload failed, keeping previous", zap.Error(err))
				continue
			}
			logger.Info("shipping config reloaded", zap.String("path", path), zap.Int("zones", len(cfg.Zones)))
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("shipping watcher error", zap.Error(err))
		}
	}
}
