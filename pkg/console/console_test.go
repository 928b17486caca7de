package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAltitudeSpeedHeading(t *testing.T) {
	cmd, err := Parse("ALTITUDE AC001 20000")
	require.NoError(t, err)
	assert.Equal(t, VerbAltitude, cmd.Verb)
	assert.Equal(t, "AC001", cmd.TargetID)
	assert.Equal(t, 20000.0, cmd.Value)

	cmd, err = Parse("speed ac002 300")
	require.NoError(t, err)
	assert.Equal(t, VerbSpeed, cmd.Verb, "verbs are case-insensitive")
	assert.Equal(t, "ac002", cmd.TargetID, "the target id itself keeps its original case")
}

func TestParseAltitudeAcceptsTrailingOverride(t *testing.T) {
	cmd, err := Parse("ALTITUDE AC001 20000 OVERRIDE")
	require.NoError(t, err)
	assert.True(t, cmd.Override)

	cmd, err = Parse("HEADING AC001 90 override")
	require.NoError(t, err)
	assert.True(t, cmd.Override, "OVERRIDE is case-insensitive")

	_, err = Parse("SPEED AC001 300 NOW")
	assert.Error(t, err, "an unrecognized third argument is rejected")
}

func TestParseEmergencyRequiresOnOrOff(t *testing.T) {
	cmd, err := Parse("EMERGENCY AC001 ON")
	require.NoError(t, err)
	assert.True(t, cmd.Flag)

	cmd, err = Parse("EMERGENCY AC001 OFF")
	require.NoError(t, err)
	assert.False(t, cmd.Flag)

	_, err = Parse("EMERGENCY AC001 MAYBE")
	assert.Error(t, err)
}

func TestParseStatusOptionalArg(t *testing.T) {
	cmd, err := Parse("STATUS")
	require.NoError(t, err)
	assert.Equal(t, "", cmd.Arg)

	cmd, err = Parse("STATUS AC001")
	require.NoError(t, err)
	assert.Equal(t, "AC001", cmd.Arg)

	_, err = Parse("STATUS AC001 AC002")
	assert.Error(t, err)
}

func TestParseTrackRequiresExactlyOneArg(t *testing.T) {
	cmd, err := Parse("TRACK NONE")
	require.NoError(t, err)
	assert.Equal(t, "NONE", cmd.Arg)

	_, err = Parse("TRACK")
	assert.Error(t, err)
}

func TestParseExitTakesNoArguments(t *testing.T) {
	_, err := Parse("EXIT now")
	assert.Error(t, err)

	cmd, err := Parse("EXIT")
	require.NoError(t, err)
	assert.Equal(t, VerbExit, cmd.Verb)
}

func TestParseRejectsUnrecognizedVerb(t *testing.T) {
	_, err := Parse("DESCEND AC001 1000")
	assert.Error(t, err)
}

func TestParseRejectsEmptyLine(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)
}

func TestParseRejectsNonNumericValue(t *testing.T) {
	_, err := Parse("ALTITUDE AC001 high")
	assert.Error(t, err)
}
