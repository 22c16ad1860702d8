package main

import (
	"testing"
	"time"
)

func TestEnvName(t *testing.T) {
	if got := envName("ext-baud"); got != "UART_BRIDGE_EXT_BAUD" {
		t.Fatalf("envName = %s", got)
	}
	if got := envName("log-metrics-interval"); got != "UART_BRIDGE_LOG_METRICS_INTERVAL" {
		t.Fatalf("envName = %s", got)
	}
}

func TestApplyEnvOverrides_Basic(t *testing.T) {
	c := &appConfig{}
	fs := newFlagSet(c)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UART_BRIDGE_EXT_BAUD", "9600")
	t.Setenv("UART_BRIDGE_MDNS_ENABLE", "yes")
	t.Setenv("UART_BRIDGE_READ_TIMEOUT", "100ms")
	t.Setenv("UART_BRIDGE_LOG_METRICS_INTERVAL", "5s")
	t.Setenv("UART_BRIDGE_FAULT_POLICY", "halt")
	t.Setenv("UART_BRIDGE_HOST_DEV", "  ")
	if err := applyEnvOverrides(fs, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.extBaud != 9600 {
		t.Fatalf("expected ext baud override, got %d", c.extBaud)
	}
	if !c.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if c.readTO != 100*time.Millisecond {
		t.Fatalf("expected readTO 100ms got %v", c.readTO)
	}
	if c.logMetricsEvery != 5*time.Second {
		t.Fatalf("expected logMetricsEvery 5s got %v", c.logMetricsEvery)
	}
	if c.faultPolicy != "halt" {
		t.Fatalf("expected fault policy halt got %s", c.faultPolicy)
	}
	if c.hostDev != "/dev/ttyGS0" {
		t.Fatalf("blank env must not override, got %q", c.hostDev)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	c := &appConfig{}
	fs := newFlagSet(c)
	if err := fs.Parse([]string{"-ext-baud", "115200"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UART_BRIDGE_EXT_BAUD", "9600")
	if err := applyEnvOverrides(fs, map[string]struct{}{"ext-baud": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if c.extBaud != 115200 {
		t.Fatalf("expected ext baud unchanged 115200 got %d", c.extBaud)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	c := &appConfig{}
	fs := newFlagSet(c)
	t.Setenv("UART_BRIDGE_BUFFER", "notint")
	if err := applyEnvOverrides(fs, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad integer")
	}
}

func TestApplyEnvOverrides_BadBool(t *testing.T) {
	c := &appConfig{}
	fs := newFlagSet(c)
	t.Setenv("UART_BRIDGE_LOG_PAYLOAD", "maybe")
	if err := applyEnvOverrides(fs, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad bool")
	}
}

func TestParseFlags_EnvAppliedBeforeValidation(t *testing.T) {
	t.Setenv("UART_BRIDGE_HOST_DEV", "/dev/a")
	t.Setenv("UART_BRIDGE_EXT_DEV", "/dev/a")
	if _, err := parseFlags(nil); err == nil {
		t.Fatalf("expected shared device from env to fail validation")
	}
	if _, err := parseFlags([]string{"-ext-dev", "/dev/b"}); err != nil {
		t.Fatalf("flag should win over env: %v", err)
	}
}
