package ics

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportErrFoldsWarnings(t *testing.T) {
	var empty Report
	assert.NoError(t, empty.Err())
	assert.NoError(t, (*Report)(nil).Err())

	r := &Report{}
	r.Add(Warning{Kind: MalformedSummary, Line: 4, Summary: "OnlyTwo-Parts"})
	r.Add(Warning{Kind: MissingEndTime, Line: 12, Summary: "T-S-C-A"})

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), `line 4: malformed summary "OnlyTwo-Parts"`)
	assert.Contains(t, err.Error(), `line 12: missing end time "T-S-C-A"`)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)

	var w Warning
	require.True(t, errors.As(merr.Errors[1], &w))
	assert.Equal(t, MissingEndTime, w.Kind)
}
