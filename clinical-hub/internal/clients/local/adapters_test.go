package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

func TestLocalAdaptersAcceptAndLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := New(zap.New(core))
	ctx := context.Background()

	require.NoError(t, a.CreateEvent(ctx, models.CalendarEvent{Title: "ET - Bella", Date: models.NewDate(2025, time.March, 10)}))
	require.NoError(t, a.ScheduleInjection(ctx, models.InjectionOrder{AnimalID: "A1", Medication: "GnRH"}))
	require.NoError(t, a.UpdateModule(ctx, "embryo-transfer", models.ModuleUpdate{AnimalID: "A1"}))
	require.NoError(t, a.SendNotification(ctx, models.Notification{RecipientID: "vet-7"}))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "calendar event accepted", entries[0].Message)
	assert.Equal(t, "2025-03-10", entries[0].ContextMap()["date"])
	assert.Equal(t, "embryo-transfer", entries[2].ContextMap()["module"])
}
