// Package console parses controller CLI input into typed commands with
// a tokenize-then-dispatch loop. Terminal raw-mode handling is out of
// scope: input arrives line-buffered from stdin or a test reader.
package console

import (
	"strconv"
	"strings"

	"github.com/l3itisys/ATC-system/pkg/errs"
)

// Verb names the recognized command, already uppercased by Parse.
type Verb string

const (
	VerbAltitude  Verb = "ALTITUDE"
	VerbSpeed     Verb = "SPEED"
	VerbHeading   Verb = "HEADING"
	VerbEmergency Verb = "EMERGENCY"
	VerbStatus    Verb = "STATUS"
	VerbTrack     Verb = "TRACK"
	VerbHelp      Verb = "HELP"
	VerbExit      Verb = "EXIT"
)

// Command is one parsed line of controller input.
type Command struct {
	Verb     Verb
	TargetID string  // aircraft callsign, or "" where not applicable
	Value    float64 // ALTITUDE/SPEED/HEADING numeric parameter
	Flag     bool    // EMERGENCY ON/OFF
	Override bool    // ALTITUDE/SPEED/HEADING: trailing OVERRIDE to act on an Emergency aircraft
	Arg      string  // STATUS/TRACK/HELP free-text parameter, or "NONE" for TRACK
}

const HelpText = `Available Air Traffic Control Commands:
----------------------------------------
ALTITUDE <id> <feet> [OVERRIDE]    - Set aircraft altitude (15000-25000)
SPEED <id> <units> [OVERRIDE]      - Set aircraft speed (150-500 units)
HEADING <id> <deg> [OVERRIDE]      - Set aircraft heading (0-359 degrees)
EMERGENCY <id> ON|OFF              - Declare or cancel an emergency
STATUS [id]                        - Display system or per-aircraft status
TRACK <id>|NONE                    - Set display focus
HELP [cmd]                         - Show this help message
EXIT                               - Request shutdown

OVERRIDE authorizes a maneuver on an aircraft currently in Emergency,
which is otherwise denied.
Example: ALTITUDE AC001 20000`

// Parse tokenizes line and validates it into a Command. Verbs are
// case-insensitive; the returned Verb is always uppercased. Parameter
// range validation (e.g. altitude within bounds) is left to the
// mutator the command is eventually applied to, since the valid range
// is owned by the airspace package, not this one.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errs.Validationf("console.Parse", "empty command")
	}

	verb := Verb(strings.ToUpper(fields[0]))
	args := fields[1:]

	switch verb {
	case VerbAltitude, VerbSpeed, VerbHeading:
		if len(args) != 2 && len(args) != 3 {
			return Command{}, errs.Validationf("console.Parse", "%s requires <id> <value> [OVERRIDE]", verb)
		}
		override := false
		if len(args) == 3 {
			if strings.ToUpper(args[2]) != "OVERRIDE" {
				return Command{}, errs.Validationf("console.Parse", "%s: unexpected trailing argument %q", verb, args[2])
			}
			override = true
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return Command{}, errs.Validationf("console.Parse", "%s: invalid numeric value %q", verb, args[1])
		}
		return Command{Verb: verb, TargetID: args[0], Value: v, Override: override}, nil

	case VerbEmergency:
		if len(args) != 2 {
			return Command{}, errs.Validationf("console.Parse", "EMERGENCY requires <id> ON|OFF")
		}
		state := strings.ToUpper(args[1])
		if state != "ON" && state != "OFF" {
			return Command{}, errs.Validationf("console.Parse", "EMERGENCY: expected ON or OFF, got %q", args[1])
		}
		return Command{Verb: verb, TargetID: args[0], Flag: state == "ON"}, nil

	case VerbStatus:
		if len(args) > 1 {
			return Command{}, errs.Validationf("console.Parse", "STATUS takes at most one id")
		}
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		return Command{Verb: verb, Arg: arg}, nil

	case VerbTrack:
		if len(args) != 1 {
			return Command{}, errs.Validationf("console.Parse", "TRACK requires <id>|NONE")
		}
		return Command{Verb: verb, Arg: args[0]}, nil

	case VerbHelp:
		arg := ""
		if len(args) == 1 {
			arg = strings.ToUpper(args[0])
		}
		return Command{Verb: verb, Arg: arg}, nil

	case VerbExit:
		if len(args) != 0 {
			return Command{}, errs.Validationf("console.Parse", "EXIT takes no arguments")
		}
		return Command{Verb: verb}, nil

	default:
		return Command{}, errs.Validationf("console.Parse", "unrecognized command %q", fields[0])
	}
}
