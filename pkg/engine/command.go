package engine

import "strings"

// Verb is the first word of a player command.
type Verb string

const (
	VerbExit      Verb = "exit"
	VerbUse       Verb = "use"
	VerbExamine   Verb = "examine"
	VerbTake      Verb = "take"
	VerbInventory Verb = "inventory"
	VerbHelp      Verb = "help"
	VerbNone      Verb = "" // Unrecognized or empty input
)

var knownVerbs = map[Verb]bool{
	VerbExit:      true,
	VerbUse:       true,
	VerbExamine:   true,
	VerbTake:      true,
	VerbInventory: true,
	VerbHelp:      true,
}

// Command is a parsed player command: a verb and the rest of the line.
type Command struct {
	Verb Verb
	Arg  string
}

// ParseCommand splits input into a verb and an argument once.
// Surrounding and repeated whitespace is ignored and the verb is case-insensitive.
// Input that does not start with a known verb yields VerbNone with the whole
// line as the argument.
func ParseCommand(input string) Command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}
	}
	verb := Verb(strings.ToLower(fields[0]))
	if !knownVerbs[verb] {
		return Command{Verb: VerbNone, Arg: strings.Join(fields, " ")}
	}
	return Command{Verb: verb, Arg: strings.Join(fields[1:], " ")}
}

// String renders the command the way it appears in the action list.
func (c Command) String() string {
	if c.Arg == "" {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + c.Arg
}

// key is the exact lookup form of a command.
func (c Command) key() string {
	return c.String()
}

// foldedKey matches commands whose entity name differs only in case.
func (c Command) foldedKey() string {
	return strings.ToLower(c.String())
}
