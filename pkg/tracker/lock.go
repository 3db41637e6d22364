package tracker

import "strings"

// LockLevel is a Postgres table lock mode, ordered from weakest to
// strongest. The zero value is AccessShare.
type LockLevel int

// Lock levels.
const (
	AccessShare LockLevel = iota
	RowShare
	RowExclusive
	ShareUpdateExclusive
	Share
	ShareRowExclusive
	Exclusive
	AccessExclusive
)

var lockNames = [...]string{
	AccessShare:          "AccessShare",
	RowShare:             "RowShare",
	RowExclusive:         "RowExclusive",
	ShareUpdateExclusive: "ShareUpdateExclusive",
	Share:                "Share",
	ShareRowExclusive:    "ShareRowExclusive",
	Exclusive:            "Exclusive",
	AccessExclusive:      "AccessExclusive",
}

var lockSQLNames = [...]string{
	AccessShare:          "ACCESS SHARE",
	RowShare:             "ROW SHARE",
	RowExclusive:         "ROW EXCLUSIVE",
	ShareUpdateExclusive: "SHARE UPDATE EXCLUSIVE",
	Share:                "SHARE",
	ShareRowExclusive:    "SHARE ROW EXCLUSIVE",
	Exclusive:            "EXCLUSIVE",
	AccessExclusive:      "ACCESS EXCLUSIVE",
}

func (l LockLevel) String() string {
	if l < AccessShare || l > AccessExclusive {
		return "LockLevel(?)"
	}
	return lockNames[l]
}

// SQLName returns the mode as written in LOCK TABLE, e.g. "ACCESS EXCLUSIVE".
func (l LockLevel) SQLName() string {
	if l < AccessShare || l > AccessExclusive {
		return ""
	}
	return lockSQLNames[l]
}

// ParseLockMode parses a LOCK TABLE mode such as "share row exclusive".
func ParseLockMode(mode string) (LockLevel, bool) {
	mode = strings.Join(strings.Fields(strings.ToUpper(mode)), " ")
	for l, name := range lockSQLNames {
		if name == mode {
			return LockLevel(l), true
		}
	}
	return AccessExclusive, false
}

// Mode is the transaction mode the tracker believes a statement runs in.
type Mode int

// Transaction modes.
const (
	// Implicit is the initial mode: the file is assumed to run inside the
	// single transaction a migration runner wraps it in.
	Implicit Mode = iota
	// Explicit is entered with BEGIN or START TRANSACTION.
	Explicit
)

func (m Mode) String() string {
	if m == Explicit {
		return "explicit"
	}
	return "implicit"
}

// ScopePolicy decides where transaction scopes begin and end.
type ScopePolicy int

// Scope policies.
const (
	// ScopeTransaction starts a new scope at BEGIN from implicit mode and
	// ends it at COMMIT or ROLLBACK of an explicit transaction.
	ScopeTransaction ScopePolicy = iota
	// ScopeFile treats the whole file as one scope.
	ScopeFile
)

func (p ScopePolicy) String() string {
	if p == ScopeFile {
		return "file"
	}
	return "transaction"
}

// ParseScopePolicy parses "transaction" or "file".
func ParseScopePolicy(s string) (ScopePolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transaction":
		return ScopeTransaction, true
	case "file":
		return ScopeFile, true
	}
	return ScopeTransaction, false
}
