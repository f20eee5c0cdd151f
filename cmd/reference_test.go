package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ancientfall/logistics-enrich/internal/reference"
	"github.com/ancientfall/logistics-enrich/internal/reference/reftest"
)

func writeReferenceYAML(t *testing.T, tables reference.Tables) string {
	t.Helper()
	data, err := yaml.Marshal(tables)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://config.example.com/reference.yaml", true},
		{"http://localhost:8080/ref.yaml", true},
		{"reference.yaml", false},
		{"/etc/enrich/reference.yaml", false},
		{"ftp://example.com/ref.yaml", false},
		{"https://", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isURL(tt.in))
		})
	}
}

func TestLoadReference_File(t *testing.T) {
	t.Parallel()

	path := writeReferenceYAML(t, reftest.Tables())

	tables, idx, err := loadReference(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Len(t, tables.Facilities, len(reftest.Tables().Facilities))
	assert.Len(t, idx.Facilities(), len(tables.Facilities))
}

func TestLoadReference_URL(t *testing.T) {
	t.Parallel()

	data, err := yaml.Marshal(reftest.Tables())
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	tables, idx, err := loadReference(context.Background(), srv.URL+"/reference.yaml")
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Len(t, tables.Vessels, len(reftest.Tables().Vessels))
}

func TestLoadReference_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := loadReference(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load reference")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, _, err = loadReference(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestFormatReferenceSummary(t *testing.T) {
	t.Parallel()

	tables := reftest.Tables()

	var buf bytes.Buffer
	formatReferenceSummary(&buf, tables)

	output := buf.String()
	assert.Contains(t, output, "Facilities:")
	assert.Contains(t, output, "Vessels:")
	assert.Contains(t, output, "Rate entries:")
	assert.Contains(t, output, "Fluid categories:")
	for _, tier := range tables.DefaultTiers {
		assert.Contains(t, output, tier.Label)
	}
}
