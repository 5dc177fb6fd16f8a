package types

// CommandSuggestion is one entry of the command autocomplete list.
type CommandSuggestion struct {
	Command     string
	Aliases     []string
	Syntax      string
	Description string
}
