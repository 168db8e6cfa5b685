package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/kmp"
)

func writeSampleCourse(t *testing.T, path string) {
	t.Helper()
	course := kmp.NewCourseMap()
	course.StartPoints.Add(&kmp.StartPoint{Position: kmp.Vec3{X: 10}})
	data, err := kmp.Write(course)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func assertStartPointX(t *testing.T, path string, want float32) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	course, err := kmp.Read(data)
	require.NoError(t, err)
	require.Equal(t, 1, course.StartPoints.Len())
	assert.Equal(t, want, course.StartPoints.Get(0).Position.X)
}
