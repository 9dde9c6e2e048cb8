package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestReadRowsCSV(t *testing.T) {
	p := writeFile(t, "export.CSV", "\ufeffCode,item name(with num),Start,finished\n"+
		"CAM-001,Camera 1,2025-01-01 00:00:00,2025-01-04 00:00:00\n"+
		"CAM-002,Camera 2,2025-01-02 00:00:00,\n")

	rows, err := readRows(p)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CAM-001", rows[0]["Code"])
	assert.Equal(t, "2025-01-04 00:00:00", rows[0]["finished"])
	assert.Equal(t, "", rows[1]["finished"])
}

func TestReadRowsJSON(t *testing.T) {
	p := writeFile(t, "feed.json", `{"rows":[
		{"Time":"2025-01-02 00:00:30","NetID":"ab1","Code":"CAM-002","Action":"Check Out","Qty":1}
	]}`)

	rows, err := readRows(p)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Check Out", rows[0]["Action"])
	assert.Equal(t, "1", rows[0]["Qty"])
}

func TestReadRowsErrors(t *testing.T) {
	_, err := readRows(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = readRows(writeFile(t, "broken.json", `[{"Code":`))
	assert.Error(t, err)
}

func TestIngestRequiresFiles(t *testing.T) {
	historicalFiles, realtimeFiles = nil, nil
	err := runIngest(ingestCmd, nil)
	assert.ErrorContains(t, err, "nothing to ingest")
}
