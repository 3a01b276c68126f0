package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0.0, ProgressPercent(0, 0))
	assert.Equal(t, 0.0, ProgressPercent(3, 0))
	assert.Equal(t, 50.0, ProgressPercent(2, 4))
	assert.Equal(t, 33.33, ProgressPercent(1, 3))
	assert.Equal(t, 100.0, ProgressPercent(5, 4))
}

func TestCompleteLessonStampsCompletionOnce(t *testing.T) {
	e := &Enrollment{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.False(t, e.CompleteLesson("a", 2, now))
	assert.Equal(t, 50.0, e.Progress)
	assert.Nil(t, e.CompletedAt)

	assert.False(t, e.CompleteLesson("a", 2, now))
	assert.Equal(t, 50.0, e.Progress)
	assert.Len(t, e.CompletedLessons, 1)

	assert.True(t, e.CompleteLesson("b", 2, now))
	assert.Equal(t, 100.0, e.Progress)
	if assert.NotNil(t, e.CompletedAt) {
		assert.Equal(t, now, *e.CompletedAt)
	}

	later := now.Add(time.Hour)
	assert.False(t, e.CompleteLesson("b", 2, later))
	assert.Equal(t, now, *e.CompletedAt)
}

func TestCompleteLessonWithoutLessons(t *testing.T) {
	e := &Enrollment{}
	assert.False(t, e.CompleteLesson("orphan", 0, time.Now()))
	assert.Equal(t, 0.0, e.Progress)
	assert.Nil(t, e.CompletedAt)
}
