package main

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestOrElseSuiteScenariosAllPass(t *testing.T) {
	for _, sc := range orElseSuite(discardLogger()).scenarios {
		require.NoError(t, sc.run(), "scenario %q", sc.name)
	}
}

func TestRetrySuiteScenariosAllPass(t *testing.T) {
	for _, sc := range retrySuite(discardLogger()).scenarios {
		require.NoError(t, sc.run(), "scenario %q", sc.name)
	}
}

func TestSelectSuitesRejectsUnknownName(t *testing.T) {
	_, err := selectSuites([]string{"nope"}, discardLogger())
	require.Error(t, err)
}

func TestSelectSuitesReturnsRequestedSuites(t *testing.T) {
	got, err := selectSuites([]string{"orElse", "Retry"}, discardLogger())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "orElse", got[0].name)
	require.Equal(t, "Retry", got[1].name)
}
