package main

import (
	"testing"

	"kasirlokal/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}

	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", SeedAdminPassword: "admin"})
	if err == nil {
		t.Fatalf("expected short seed password to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", SeedAdminPassword: "s3cure-admin"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
