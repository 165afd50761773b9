package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

func TestCreateEventPostsCalendarPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/events", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	rc, err := rest.New(rest.Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	err = New(rc).CreateEvent(context.Background(), models.CalendarEvent{
		Title:       "ET - Bella",
		Date:        models.NewDate(2025, time.March, 10),
		Time:        "09:00",
		Type:        "et",
		Animals:     []models.AnimalRef{{ID: "A1", Name: "Bella"}},
		AssignedVet: "vet-7",
		Priority:    models.PriorityHigh,
		Status:      "SCHEDULED",
		WorkflowRef: "wf-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", got["date"])
	assert.Equal(t, "09:00", got["time"])
	assert.Equal(t, "wf-1", got["workflowRef"])
	animals, ok := got["animals"].([]interface{})
	require.True(t, ok)
	assert.Len(t, animals, 1)
}
