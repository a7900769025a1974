package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsOptionDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"options": {"price_per_km": 20},
		"requesters": [{"id": "r1", "balance": 1000, "vehicles": [{"id": "v1", "name": "Taxi"}]}]
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Options.PricePerKm != 20 {
		t.Fatalf("price_per_km: %d", cfg.Options.PricePerKm)
	}
	if cfg.Options.ServiceChargeDay != 500 || cfg.Options.ServiceChargeNight != 800 {
		t.Fatalf("service charges not defaulted: %+v", cfg.Options)
	}
	if !cfg.Options.BypassCheckpoints || cfg.Options.UseCash {
		t.Fatalf("bool options not defaulted: %+v", cfg.Options)
	}
	if cfg.Options.CourierName != "Jeff" {
		t.Fatalf("courier_name: %q", cfg.Options.CourierName)
	}
	if cfg.Ledger.Backend != "memory" {
		t.Fatalf("ledger backend: %q", cfg.Ledger.Backend)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
options:
  use_cash: true
dispatch:
  navigate_timeout_seconds: 30
requesters:
  - id: r1
    cash: 900
    vehicles:
      - id: v1
        name: Burrito
        color: Red
        position: {x: 3, y: 4}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Options.UseCash {
		t.Fatal("use_cash not read")
	}
	if cfg.Dispatch.NavigateTimeoutSeconds != 30 {
		t.Fatalf("timeout: %d", cfg.Dispatch.NavigateTimeoutSeconds)
	}
	v := cfg.Requesters[0].Vehicles[0]
	if v.Position.Point().X != 3 || v.Position.Point().Y != 4 {
		t.Fatalf("position: %+v", v.Position)
	}
}

func TestLoadRejectsUnknownOption(t *testing.T) {
	path := writeConfig(t, "config.json", `{"options": {"free_rides": true}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("unknown option accepted")
	}
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", `a = 1`)
	if _, err := Load(path); err == nil {
		t.Fatal("unsupported format accepted")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"options": {"price_per_km": 20}}`)
	t.Setenv("CV_OPTIONS__PRICE_PER_KM", "25")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Options.PricePerKm != 25 {
		t.Fatalf("env override ignored: %d", cfg.Options.PricePerKm)
	}
}

func TestValidateRejectsDuplicateVehicles(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"requesters": [
			{"id": "r1", "vehicles": [{"id": "v1"}]},
			{"id": "r2", "vehicles": [{"id": "v1"}]}
		]
	}`)
	if _, err := Load(path); err == nil {
		t.Fatal("duplicate vehicle id accepted")
	}
}

func TestValidateRejectsNegativeRates(t *testing.T) {
	path := writeConfig(t, "config.json", `{"options": {"price_per_km": -1}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("negative rate accepted")
	}
}
