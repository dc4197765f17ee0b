package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobs(t *testing.T) {
	jobs, err := parseJobs([]string{"wh-1=a.xml", "wh-2=dir/b.xml"})
	require.NoError(t, err)
	assert.Equal(t, []job{{"wh-1", "a.xml"}, {"wh-2", "dir/b.xml"}}, jobs)

	_, err = parseJobs([]string{"solo-archivo.xml"})
	assert.Error(t, err)
	_, err = parseJobs([]string{"=a.xml"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.xml")
	require.NoError(t, os.WriteFile(ok, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<WarehouseLayout xmlns="urn:layout-api:layout:1" warehouseId="wh-1">
  <Element id="z1" kind="zone" code="Z1" name="Recepción">
    <Element id="r1" kind="rack" code="A-01" name="Rack"/>
  </Element>
</WarehouseLayout>`), 0o600))
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<WarehouseLayout xmlns="urn:layout-api:layout:1" warehouseId="wh-1">
  <Element id="r1" kind="rack" code="A-01" name="Rack sin zona"/>
</WarehouseLayout>`), 0o600))

	assert.NoError(t, validate([]job{{"wh-1", ok}}))
	assert.Error(t, validate([]job{{"wh-1", ok}, {"wh-1", bad}}))
}
