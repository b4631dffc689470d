/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// keyTemplates is the YAML form of per-table key overrides:
//
//	tables:
//	  SentNotificationData:
//	    pk: "NOTIFICATION#{PartitionKey}"
//	    sk: "{RowKey}"
type keyTemplates struct {
	Tables map[string]struct {
		PK string `yaml:"pk"`
		SK string `yaml:"sk"`
	} `yaml:"tables"`
}

// LoadKeyTemplates applies key template overrides to registered tables.
// Every named table must already be registered. A partition key template must
// expand from {PartitionKey} alone.
func LoadKeyTemplates(data []byte) error {
	var doc keyTemplates
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("table registry: invalid key templates: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for name, tpl := range doc.Tables {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("table registry: no table registered as %q", name)
		}
		if err := checkPartitionTemplate(tpl.PK); err != nil {
			return fmt.Errorf("table registry: %s: %w", name, err)
		}
	}
	for name, tpl := range doc.Tables {
		t := byName[name]
		def := byType[t]
		def.PartitionKeyTemplate = tpl.PK
		def.SortKeyTemplate = tpl.SK
		byType[t] = def
	}
	return nil
}

func checkPartitionTemplate(template string) error {
	if template == "" {
		return nil
	}
	macros := macroPattern.FindAllStringSubmatch(template, -1)
	if len(macros) == 0 {
		return fmt.Errorf("pk template %q must contain {PartitionKey}", template)
	}
	for _, m := range macros {
		if m[1] != "PartitionKey" {
			return fmt.Errorf("pk template %q uses {%s}; only {PartitionKey} is allowed", template, m[1])
		}
	}
	return nil
}
