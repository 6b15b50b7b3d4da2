package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func newExportFixture(t *testing.T) (*ExportService, *timetableStoreStub, *slotStoreStub) {
	t.Helper()
	timetables := &timetableStoreStub{}
	slots := &slotStoreStub{}

	svc := NewExportService(
		timetables, slots,
		subjectStub{subjects: []models.Subject{{ID: "math", Name: "Mathematics"}}},
		classStub{classes: []models.Class{{ID: "10a", Name: "10A"}}},
		teacherStub{teachers: []models.Teacher{{ID: "t1", FullName: "T One", Active: true}}},
		nil, nil, nil,
		ExportServiceConfig{ArtifactTTL: time.Minute},
	)
	return svc, timetables, slots
}

func TestExportServiceEnqueueValidates(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.Enqueue(context.Background(), dto.ExportTimetableRequest{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Enqueue(context.Background(), dto.ExportTimetableRequest{
		TimetableID: "11111111-2222-3333-4444-555555555555",
		Format:      "xlsx",
	})
	require.Error(t, err)
}

func TestExportServiceEnqueueUnknownTimetable(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.Enqueue(context.Background(), dto.ExportTimetableRequest{
		TimetableID: "11111111-2222-3333-4444-555555555555",
		Format:      "csv",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRendersCSV(t *testing.T) {
	svc, timetables, slots := newExportFixture(t)
	timetables.found = &models.Timetable{
		ID: "tt-1", Name: "Teaching 2026/2027 T1",
		AcademicYear: "2026/2027", Term: 1, Version: 3,
		Type: models.TimetableTypeTeaching, Status: models.TimetableStatusDraft,
	}
	slots.listed = []models.TimetableSlot{
		{ID: "s1", TimetableID: "tt-1", ClassID: "10a", SubjectID: "math", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480, EndMinute: 520},
	}

	svc.Start(context.Background())
	defer svc.Stop()

	job, err := svc.Enqueue(context.Background(), dto.ExportTimetableRequest{
		TimetableID: "11111111-2222-3333-4444-555555555555",
		Format:      "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, ExportStatusPending, job.Status)

	var artifact *ExportArtifact
	require.Eventually(t, func() bool {
		artifact, err = svc.Get(job.JobID)
		return err == nil && artifact.Status == ExportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "text/csv", artifact.ContentType)
	assert.Equal(t, "timetable-2026-2027-t1-v3.csv", artifact.Filename)
	content := string(artifact.Payload)
	assert.True(t, strings.HasPrefix(content, "Day,Start,End,Class,Subject,Teacher,Kind"))
	assert.Contains(t, content, "Monday,08:00,08:40,10A,Mathematics,T One,Teaching")
}

func TestExportServiceGetExpiredArtifact(t *testing.T) {
	svc, _, _ := newExportFixture(t)
	svc.mu.Lock()
	svc.artifacts["stale"] = &ExportArtifact{
		JobID:     "stale",
		Status:    ExportStatusCompleted,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc.mu.Unlock()

	_, err := svc.Get("stale")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGetUnknownJob(t *testing.T) {
	svc, _, _ := newExportFixture(t)
	_, err := svc.Get("nope")
	assert.Error(t, err)
}
