package vector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicebrief/backend/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

func newAdapter(t *testing.T, handler http.HandlerFunc) (*vector.SchemaAdapter, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	assert.NoError(t, err)
	return vector.NewSchemaAdapter(client), ts
}

func TestSchemaAdapter_ClassExists(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		adapter, ts := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/meta" {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"version": "1.19.0"}`))
				return
			}
			assert.Equal(t, "/v1/schema/TranscriptChunk", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(&models.Class{Class: vector.ClassTranscriptChunk})
		})
		defer ts.Close()

		exists, err := adapter.ClassExists(context.Background(), vector.ClassTranscriptChunk)
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("NotFound", func(t *testing.T) {
		adapter, ts := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/meta" {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"version": "1.19.0"}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})
		defer ts.Close()

		exists, err := adapter.ClassExists(context.Background(), vector.ClassTranscriptChunk)
		assert.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestSchemaAdapter_CreateClass(t *testing.T) {
	adapter, ts := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "/v1/schema", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		w.WriteHeader(http.StatusOK)
	})
	defer ts.Close()

	err := adapter.CreateClass(context.Background(), &models.Class{Class: vector.ClassTranscriptChunk})
	assert.NoError(t, err)
}

func TestSchemaAdapter_AddProperty(t *testing.T) {
	adapter, ts := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "/v1/schema/TranscriptChunk/properties", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		w.WriteHeader(http.StatusOK)
	})
	defer ts.Close()

	err := adapter.AddProperty(context.Background(), vector.ClassTranscriptChunk,
		&models.Property{Name: "language", DataType: []string{"string"}})
	assert.NoError(t, err)
}
