/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gamma struct{}

func TestLoadKeyTemplates(t *testing.T) {
	RegisterTable[gamma](TableDefinition{Name: "GammaTable", DefaultPartition: "g"})

	err := LoadKeyTemplates([]byte(`
tables:
  GammaTable:
    pk: "GAMMA#{PartitionKey}"
    sk: "{RowKey}"
`))
	require.NoError(t, err)

	def, ok := TableFor[gamma]()
	require.True(t, ok)
	assert.Equal(t, "GAMMA#{PartitionKey}", def.PartitionKeyTemplate)
	assert.Equal(t, "{RowKey}", def.SortKeyTemplate)
	assert.Equal(t, "g", def.DefaultPartition)
}

func TestLoadKeyTemplates_Errors(t *testing.T) {
	assert.Error(t, LoadKeyTemplates([]byte("tables: [")))
	assert.Error(t, LoadKeyTemplates([]byte("tables:\n  Unknown:\n    pk: x\n")))
}

type delta struct{}

func TestLoadKeyTemplates_PartitionTemplateMacros(t *testing.T) {
	RegisterTable[delta](TableDefinition{Name: "DeltaTable", DefaultPartition: "d"})

	tests := []struct {
		name string
		pk   string
	}{
		{"row key in pk", "{PartitionKey}#{RowKey}"},
		{"only row key", "{RowKey}"},
		{"no macro", "FIXED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadKeyTemplates([]byte("tables:\n  DeltaTable:\n    pk: \"" + tt.pk + "\"\n    sk: \"{RowKey}\"\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "DeltaTable")
		})
	}

	def, ok := TableFor[delta]()
	require.True(t, ok)
	assert.Empty(t, def.PartitionKeyTemplate, "rejected templates must not be applied")
}
