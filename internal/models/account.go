package models

// Account is one monitored Gmail account as supplied by the external
// account-configuration tooling. Fields other than the cursor state are
// read-only for the lifetime of the process.
type Account struct {
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	TokenFile  string `yaml:"token_file"`
	CursorFile string `yaml:"cursor_file"`
}

// CursorState is the per-account reconciliation cursor. LastHistoryId is
// never rolled backward once set; LastSeenMessageId is only advanced by the
// snapshot fallback path.
type CursorState struct {
	LastHistoryId     string
	LastSeenMessageId string
}

// Empty reports whether this is a first-run cursor with no persisted state.
func (c CursorState) Empty() bool {
	return c.LastHistoryId == "" && c.LastSeenMessageId == ""
}
