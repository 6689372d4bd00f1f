package importer

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/tabular"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	st := newStore()
	app := fiber.New()
	feature := &Feature{}
	svc := newService(t, st, componentsDoc, reconcile.Config{LOD: "ALL_MID"})
	feature.service, feature.handler = svc, NewHandler(svc)
	assert.Equal(t, "importer", feature.Name())
	assert.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app
}

func workbookBody(t *testing.T) (*bytes.Buffer, string) {
	wb := tabular.NewWorkbook()
	defer wb.Close()
	require.NoError(t, wb.WriteTable("Components", []string{"name", "weight"}, [][]string{{"A", "1"}}, tabular.Hints{}))
	var xlsx bytes.Buffer
	require.NoError(t, wb.Write(&xlsx))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("workbook", "book.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHandleImport(t *testing.T) {
	app := setupTestApp(t)
	body, contentType := workbookBody(t)

	req := httptest.NewRequest("POST", "/import?mode=dry_run", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "ALL_MID", decoded["lod"])
	datasets := decoded["datasets"].([]any)
	require.Len(t, datasets, 1)
	entries := datasets[0].(map[string]any)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "MATCHED_EQUAL", entries[0].(map[string]any)["status"])
}

func TestHandleImport_BadRequests(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name string
		url  string
	}{
		{"BadMode", "/import?mode=apply"},
		{"BadLOD", "/import?lod=9"},
		{"MissingFile", "/import"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("POST", tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}
