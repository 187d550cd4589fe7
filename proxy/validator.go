// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"strings"
)

// knownMountTypes is the fixed set of mount types the engine itself
// understands (spec §4.3). A type outside this set is a structural
// error (400); a type inside this set but outside the configured
// allow-list is a policy error (400 "not allowed").
var knownMountTypes = map[string]bool{
	"bind":    true,
	"volume":  true,
	"tmpfs":   true,
	"npipe":   true,
	"cluster": true,
}

// validationError is a validate-then-stamp failure carrying the HTTP
// status and client-facing message spec §7 assigns to it.
type validationError struct {
	status  int
	message string
}

func (e *validationError) Error() string { return e.message }

func badRequest(format string, args ...any) *validationError {
	return &validationError{status: 400, message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *validationError {
	return &validationError{status: 403, message: fmt.Sprintf(format, args...)}
}

// Validator implements spec §4.3: it validates create/update bodies for
// services, networks, secrets, configs, and volumes, then stamps the
// tenant label onto every labelable position before the request reaches
// the engine. Validation and stamping run in that order — stamping never
// runs on a document that failed validation.
type Validator struct {
	oracle *Oracle
	config *Config
}

// NewValidator constructs a Validator backed by oracle and config.
func NewValidator(oracle *Oracle, config *Config) *Validator {
	return &Validator{oracle: oracle, config: config}
}

// checkName enforces spec §4.3's name-validation rule for create
// requests: a non-empty name starting with the configured prefix.
// Updates never call this — spec explicitly exempts them.
func (v *Validator) checkName(doc map[string]any) *validationError {
	name := getString(doc, "Name")
	if name == "" {
		return badRequest("Name is required")
	}
	if !strings.HasPrefix(name, v.config.NamePrefix) {
		return badRequest("Name %s must start with %s", name, v.config.NamePrefix)
	}
	return nil
}

// stampTopLevelLabels merges the tenant label into doc's top-level
// Labels object, creating it if absent. The tenant label always wins
// over any client-supplied value at the same key.
func (v *Validator) stampTopLevelLabels(doc map[string]any) {
	stampLabel(doc, TenantLabelKey, v.config.TenantLabelValue, "Labels")
}

// ValidateAndStampNetwork validates a network create/update body and, on
// success, stamps the tenant label. isCreate selects whether the
// name-prefix rule applies.
func (v *Validator) ValidateAndStampNetwork(doc map[string]any, isCreate bool) *validationError {
	if isCreate {
		if err := v.checkName(doc); err != nil {
			return err
		}
	}
	v.stampTopLevelLabels(doc)
	return nil
}

// ValidateAndStampSecret validates a secret create body (updates only
// rotate the payload and do not re-validate or re-stamp names, matching
// networks/configs/volumes) and stamps the tenant label.
func (v *Validator) ValidateAndStampSecret(doc map[string]any, isCreate bool) *validationError {
	if isCreate {
		if err := v.checkName(doc); err != nil {
			return err
		}
	}
	v.stampTopLevelLabels(doc)
	return nil
}

// ValidateAndStampConfig is ValidateAndStampSecret's twin for configs;
// configs and secrets share the same create/label shape in the engine
// API.
func (v *Validator) ValidateAndStampConfig(doc map[string]any, isCreate bool) *validationError {
	return v.ValidateAndStampSecret(doc, isCreate)
}

// ValidateAndStampVolume validates a volume create body (spec §4.3
// "Volume create validation") and stamps the tenant label. Volumes have
// no update operation in the engine API, so this is create-only.
func (v *Validator) ValidateAndStampVolume(ctx context.Context, doc map[string]any) *validationError {
	if err := v.checkName(doc); err != nil {
		return err
	}

	driver := getString(doc, "Driver")
	if driver == "" {
		return badRequest("Driver is required")
	}
	if !containsString(v.config.AllowedVolumeDrivers, driver) {
		return badRequest("Driver %s is not allowed", driver)
	}

	if secretRefs := getSlice(doc, "ClusterVolumeSpec", "AccessMode", "Secrets"); secretRefs != nil {
		for _, raw := range secretRefs {
			ref, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			secretName, _ := ref["Secret"].(string)
			if secretName == "" {
				continue
			}
			if !v.oracle.IsOwned(ctx, KindSecret, secretName) {
				return forbidden("Secret %s is not owned", secretName)
			}
		}
	}

	v.stampTopLevelLabels(doc)
	return nil
}

// ValidateAndStampService validates a service create/update body (spec
// §4.3 "Service / task-template validation" and "Endpoint-spec
// validation") and stamps the tenant label at every labelable position:
// the top-level Labels and the container-spec Labels.
func (v *Validator) ValidateAndStampService(ctx context.Context, doc map[string]any, isCreate bool) *validationError {
	if isCreate {
		if err := v.checkName(doc); err != nil {
			return err
		}
	}

	taskTemplate := getMap(doc, "TaskTemplate")
	if taskTemplate == nil {
		runtime := getString(doc, "Runtime")
		if runtime != "plugin" && runtime != "attachment" {
			return badRequest("TaskTemplate is required")
		}
	} else {
		if err := v.validateTaskTemplate(ctx, doc, taskTemplate); err != nil {
			return err
		}
	}

	if err := v.validateEndpointSpec(doc); err != nil {
		return err
	}

	v.stampTopLevelLabels(doc)
	if containerSpec := getMap(doc, "TaskTemplate", "ContainerSpec"); containerSpec != nil {
		stampLabel(doc, TenantLabelKey, v.config.TenantLabelValue, "TaskTemplate", "ContainerSpec", "Labels")
	}
	return nil
}

// validateTaskTemplate checks referenced networks, secrets, configs, and
// mounts against ownership and policy, stamping mount VolumeOptions
// labels for not-yet-materialized volumes along the way.
func (v *Validator) validateTaskTemplate(ctx context.Context, doc, taskTemplate map[string]any) *validationError {
	for _, networkAttachment := range v.referencedNetworks(doc, taskTemplate) {
		target, _ := networkAttachment["Target"].(string)
		if target == "" {
			continue
		}
		if !v.oracle.IsOwnedNetworkByName(ctx, target, true) {
			return forbidden("Network %s is not owned", target)
		}
	}

	containerSpec := getMap(taskTemplate, "ContainerSpec")
	if containerSpec == nil {
		return nil
	}

	for _, raw := range getSlice(taskTemplate, "ContainerSpec", "Secrets") {
		ref, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := ref["SecretName"].(string)
		if name == "" {
			continue
		}
		if !v.oracle.IsOwned(ctx, KindSecret, name) {
			return forbidden("Secret %s is not owned", name)
		}
	}

	for _, raw := range getSlice(taskTemplate, "ContainerSpec", "Configs") {
		ref, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := ref["ConfigName"].(string)
		if name == "" {
			continue
		}
		if !v.oracle.IsOwned(ctx, KindConfig, name) {
			return forbidden("Config %s is not owned", name)
		}
	}

	mounts := getSlice(taskTemplate, "ContainerSpec", "Mounts")
	for index, raw := range mounts {
		mount, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if err := v.validateMount(ctx, mount, index); err != nil {
			return err
		}
	}

	return nil
}

// referencedNetworks collects network-attachment entries from both the
// modern TaskTemplate.Networks location and the deprecated top-level
// Networks field the engine still accepts, so a client using either
// shape gets the same ownership enforcement.
func (v *Validator) referencedNetworks(doc, taskTemplate map[string]any) []map[string]any {
	var attachments []map[string]any
	for _, raw := range getSlice(taskTemplate, "Networks") {
		if m, ok := raw.(map[string]any); ok {
			attachments = append(attachments, m)
		}
	}
	for _, raw := range getSlice(doc, "Networks") {
		if m, ok := raw.(map[string]any); ok {
			attachments = append(attachments, m)
		}
	}
	return attachments
}

// validateMount applies spec §4.3's mount rules to one entry of
// ContainerSpec.Mounts, mutating it in place to stamp VolumeOptions
// labels when appropriate.
func (v *Validator) validateMount(ctx context.Context, mount map[string]any, index int) *validationError {
	mountType, _ := mount["Type"].(string)
	if mountType == "" {
		mountType = "volume"
	}
	lowerType := strings.ToLower(mountType)

	if !knownMountTypes[lowerType] {
		return badRequest("Mount %d: type %s is not supported", index, mountType)
	}
	if !containsString(v.config.AllowedMountTypes, lowerType) {
		return badRequest("Mount %d: type %s is not allowed", index, mountType)
	}

	if lowerType != "volume" && lowerType != "cluster" {
		return nil
	}

	source, _ := mount["Source"].(string)
	if source == "" {
		return nil
	}

	owned, doc, err := v.oracle.inspectOwnership(ctx, KindVolume, source)
	if err != nil {
		return forbidden("Volume %s is not owned", source)
	}
	found := doc != nil
	if found && !owned {
		return forbidden("Volume %s is not owned", source)
	}
	if !found {
		// The volume does not exist yet; stamp the tenant label into
		// VolumeOptions.Labels so the engine creates it as owned when it
		// materializes the mount.
		volumeOptions, ok := mount["VolumeOptions"].(map[string]any)
		if !ok {
			volumeOptions = make(map[string]any)
			mount["VolumeOptions"] = volumeOptions
		}
		labels, ok := volumeOptions["Labels"].(map[string]any)
		if !ok {
			labels = make(map[string]any)
			volumeOptions["Labels"] = labels
		}
		labels[TenantLabelKey] = v.config.TenantLabelValue
	}
	return nil
}

// validateEndpointSpec enforces spec §4.3's port-exposure rule.
func (v *Validator) validateEndpointSpec(doc map[string]any) *validationError {
	ports := getSlice(doc, "EndpointSpec", "Ports")
	if len(ports) == 0 {
		return nil
	}
	if !v.config.AllowPortExpose {
		return forbidden("Exposing ports is not allowed")
	}
	return nil
}
