/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "mem", opts.Driver)
	assert.Equal(t, "default", opts.Dataset)
	assert.NoError(t, opts.validate())
}

func TestOptionsValidate(t *testing.T) {
	assert.Error(t, Options{Dataset: "ds"}.validate())
	assert.Error(t, Options{Driver: "mem"}.validate())
	assert.NoError(t, Options{Driver: "mem", Dataset: "ds"}.validate())
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docstore.yaml")
	data := []byte(`driver: dynamodb
dataset: prod
namespace: tenant-a
ambient_transactions: true
params:
  table: docs
  region: us-east-1
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "dynamodb", opts.Driver)
	assert.Equal(t, "prod", opts.Dataset)
	assert.Equal(t, "tenant-a", opts.Namespace)
	assert.True(t, opts.AmbientTransactions)
	assert.Equal(t, map[string]string{"table": "docs", "region": "us-east-1"}, opts.Params)
}

func TestLoadOptionsKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: tenant-b\n"), 0o600))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "mem", opts.Driver)
	assert.Equal(t, "default", opts.Dataset)
	assert.Equal(t, "tenant-b", opts.Namespace)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("DOCSTORE_DRIVER", "dynamodb")
	t.Setenv("DOCSTORE_DATASET", "staging")
	t.Setenv("DOCSTORE_NAMESPACE", "tenant-c")
	t.Setenv("DOCSTORE_PARAM_TABLE", "docs")
	t.Setenv("DOCSTORE_PARAM_REGION", "eu-west-1")

	opts := OptionsFromEnv()
	assert.Equal(t, "dynamodb", opts.Driver)
	assert.Equal(t, "staging", opts.Dataset)
	assert.Equal(t, "tenant-c", opts.Namespace)
	assert.Equal(t, "docs", opts.Params["table"])
	assert.Equal(t, "eu-west-1", opts.Params["region"])
}
