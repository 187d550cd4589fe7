// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"testing"
)

func newTestValidator(t *testing.T, engine *fakeEngine, config *Config) *Validator {
	t.Helper()
	client := startFakeEngine(t, engine)
	return NewValidator(NewOracle(client, config), config)
}

func TestValidateAndStampServiceAcceptsOwnedCreate(t *testing.T) {
	engine := newFakeEngine()
	config := testConfig()
	validator := newTestValidator(t, engine, config)

	doc := map[string]any{
		"Name": "acme_web",
		"TaskTemplate": map[string]any{
			"ContainerSpec": map[string]any{
				"Image": "nginx",
			},
		},
	}

	if err := validator.ValidateAndStampService(context.Background(), doc, true); err != nil {
		t.Fatalf("ValidateAndStampService: %v", err)
	}

	labels := getStringMap(doc, "Labels")
	if labels[TenantLabelKey] != "acme" {
		t.Errorf("top-level tenant label = %v, want acme", labels)
	}
	containerLabels := getStringMap(doc, "TaskTemplate", "ContainerSpec", "Labels")
	if containerLabels[TenantLabelKey] != "acme" {
		t.Errorf("container-spec tenant label = %v, want acme", containerLabels)
	}
}

func TestValidateAndStampServiceRejectsMissingName(t *testing.T) {
	engine := newFakeEngine()
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"TaskTemplate": map[string]any{"ContainerSpec": map[string]any{"Image": "nginx"}},
	}
	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 400 {
		t.Fatalf("expected 400 for missing name, got %v", err)
	}
}

func TestValidateAndStampServiceRejectsNameWithoutPrefix(t *testing.T) {
	engine := newFakeEngine()
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"Name":         "foo",
		"TaskTemplate": map[string]any{"ContainerSpec": map[string]any{"Image": "nginx"}},
	}
	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 400 {
		t.Fatalf("expected 400 for name without prefix, got %v", err)
	}
}

func TestValidateAndStampServiceRejectsCrossTenantVolumeMount(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindVolume, "other_data", map[string]any{
		"Name":   "other_data",
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"Name": "acme_web",
		"TaskTemplate": map[string]any{
			"ContainerSpec": map[string]any{
				"Image": "nginx",
				"Mounts": []any{
					map[string]any{"Type": "volume", "Source": "other_data", "Target": "/data"},
				},
			},
		},
	}

	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 403 {
		t.Fatalf("expected 403 for cross-tenant volume reference, got %v", err)
	}
}

func TestValidateAndStampServiceStampsNotYetExistingVolumeMount(t *testing.T) {
	engine := newFakeEngine()
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"Name": "acme_web",
		"TaskTemplate": map[string]any{
			"ContainerSpec": map[string]any{
				"Image": "nginx",
				"Mounts": []any{
					map[string]any{"Type": "volume", "Source": "acme_data", "Target": "/data"},
				},
			},
		},
	}

	if err := validator.ValidateAndStampService(context.Background(), doc, true); err != nil {
		t.Fatalf("ValidateAndStampService: %v", err)
	}

	mounts := getSlice(doc, "TaskTemplate", "ContainerSpec", "Mounts")
	mount := mounts[0].(map[string]any)
	volumeOptions := mount["VolumeOptions"].(map[string]any)
	labels := volumeOptions["Labels"].(map[string]any)
	if labels[TenantLabelKey] != "acme" {
		t.Errorf("mount VolumeOptions.Labels = %v, want tenant label stamped", labels)
	}
}

func TestValidateAndStampServiceRejectsUnknownMountType(t *testing.T) {
	engine := newFakeEngine()
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"Name": "acme_web",
		"TaskTemplate": map[string]any{
			"ContainerSpec": map[string]any{
				"Image":  "nginx",
				"Mounts": []any{map[string]any{"Type": "exotic", "Source": "x"}},
			},
		},
	}
	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 400 {
		t.Fatalf("expected 400 for unknown mount type, got %v", err)
	}
}

func TestValidateAndStampServiceRejectsDisallowedMountType(t *testing.T) {
	engine := newFakeEngine()
	config := testConfig()
	config.AllowedMountTypes = []string{"bind"}
	validator := newTestValidator(t, engine, config)

	doc := map[string]any{
		"Name": "acme_web",
		"TaskTemplate": map[string]any{
			"ContainerSpec": map[string]any{
				"Image":  "nginx",
				"Mounts": []any{map[string]any{"Type": "volume", "Source": "acme_data"}},
			},
		},
	}
	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 400 {
		t.Fatalf("expected 400 for disallowed mount type, got %v", err)
	}
}

func TestValidateAndStampServiceRejectsPortExposeWhenDisabled(t *testing.T) {
	engine := newFakeEngine()
	config := testConfig()
	config.AllowPortExpose = false
	validator := newTestValidator(t, engine, config)

	doc := map[string]any{
		"Name":         "acme_web",
		"TaskTemplate": map[string]any{"ContainerSpec": map[string]any{"Image": "nginx"}},
		"EndpointSpec": map[string]any{
			"Ports": []any{map[string]any{"TargetPort": float64(80)}},
		},
	}
	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 403 {
		t.Fatalf("expected 403 for port expose while disabled, got %v", err)
	}
}

func TestValidateAndStampServiceRejectsUnownedNetworkReference(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindNetwork, "other_net", map[string]any{
		"Name":   "other_net",
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"Name": "acme_web",
		"TaskTemplate": map[string]any{
			"ContainerSpec": map[string]any{"Image": "nginx"},
			"Networks":      []any{map[string]any{"Target": "other_net"}},
		},
	}
	err := validator.ValidateAndStampService(context.Background(), doc, true)
	if err == nil || err.status != 403 {
		t.Fatalf("expected 403 for unowned network reference, got %v", err)
	}
}

func TestValidateAndStampVolumeRequiresAllowedDriver(t *testing.T) {
	engine := newFakeEngine()
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{"Name": "acme_data", "Driver": "nfs"}
	err := validator.ValidateAndStampVolume(context.Background(), doc)
	if err == nil || err.status != 400 {
		t.Fatalf("expected 400 for disallowed driver, got %v", err)
	}
}

func TestValidateAndStampVolumeRejectsUnownedClusterSecret(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindSecret, "other_secret", map[string]any{
		"Spec":   map[string]any{"Name": "other_secret"},
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	validator := newTestValidator(t, engine, testConfig())

	doc := map[string]any{
		"Name":   "acme_vol",
		"Driver": "local",
		"ClusterVolumeSpec": map[string]any{
			"AccessMode": map[string]any{
				"Secrets": []any{map[string]any{"Secret": "other_secret"}},
			},
		},
	}
	err := validator.ValidateAndStampVolume(context.Background(), doc)
	if err == nil || err.status != 403 {
		t.Fatalf("expected 403 for unowned cluster-volume secret, got %v", err)
	}
}
