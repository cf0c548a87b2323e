package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/esim?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "esim-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "CARRIER_PURCHASE_DEADLINE_MS", "4500")
	setEnv(t, "CARRIER_EXECUTION_BUDGET_MS", "9000")
	setEnv(t, "CARRIER_SAFETY_MARGIN_MS", "1000")
	setEnv(t, "PROVISIONING_POLL_INTERVAL_SECONDS", "10")
	setEnv(t, "PROVISIONING_POLL_MAX_ATTEMPTS", "15")
	setEnv(t, "PROVISIONING_PENDING_TIMEOUT_MINUTES", "45")
	setEnv(t, "PROVISIONING_JOB_BATCH_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "esim-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.Carrier.PurchaseDeadline != 4500*time.Millisecond {
		t.Fatalf("unexpected purchase deadline: %v", cfg.Carrier.PurchaseDeadline)
	}
	if cfg.Carrier.ExecutionBudget != 9*time.Second {
		t.Fatalf("unexpected execution budget: %v", cfg.Carrier.ExecutionBudget)
	}
	if cfg.Provisioning.PollInterval != 10*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Provisioning.PollInterval)
	}
	if cfg.Provisioning.PollMaxAttempts != 15 {
		t.Fatalf("unexpected poll max attempts: %d", cfg.Provisioning.PollMaxAttempts)
	}
	if cfg.Provisioning.PendingTimeout != 45*time.Minute {
		t.Fatalf("unexpected pending timeout: %v", cfg.Provisioning.PendingTimeout)
	}
	if cfg.Provisioning.JobBatchSize != 50 {
		t.Fatalf("unexpected job batch size: %d", cfg.Provisioning.JobBatchSize)
	}
	if cfg.Provisioning.DefaultLocationCode != "US" || cfg.Provisioning.DefaultPackageCode != "US_5GB_30D" {
		t.Fatalf("unexpected default plan: %s/%s", cfg.Provisioning.DefaultLocationCode, cfg.Provisioning.DefaultPackageCode)
	}
}

func TestEffectivePurchaseDeadline(t *testing.T) {
	cases := []struct {
		name     string
		cfg      CarrierConfig
		expected time.Duration
	}{
		{
			name:     "configured deadline fits budget",
			cfg:      CarrierConfig{PurchaseDeadline: 8 * time.Second, ExecutionBudget: 10 * time.Second, SafetyMargin: 1500 * time.Millisecond},
			expected: 8 * time.Second,
		},
		{
			name:     "deadline clamped under budget",
			cfg:      CarrierConfig{PurchaseDeadline: 25 * time.Second, ExecutionBudget: 10 * time.Second, SafetyMargin: 1500 * time.Millisecond},
			expected: 8500 * time.Millisecond,
		},
		{
			name:     "missing deadline falls back to headroom",
			cfg:      CarrierConfig{ExecutionBudget: 10 * time.Second, SafetyMargin: 2 * time.Second},
			expected: 8 * time.Second,
		},
		{
			name:     "no budget leaves deadline alone",
			cfg:      CarrierConfig{PurchaseDeadline: 4500 * time.Millisecond},
			expected: 4500 * time.Millisecond,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.EffectivePurchaseDeadline(); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}
