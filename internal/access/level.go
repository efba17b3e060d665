package access

import "strings"

// Level is the capability a user holds over a section.
// Values are ordered: a higher level implies every capability of the lower ones.
type Level uint8

const (
	NoAccess Level = iota
	Viewer
	Editor
)

// stored values as they appear in user rows
const (
	storedEditor   = "editor"
	storedViewer   = "visualizador"
	storedNoAccess = "sin_acceso"
)

// ParseLevel maps a stored permission value to a Level.
// Anything it does not recognise is NoAccess.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case storedEditor:
		return Editor
	case storedViewer, "viewer":
		return Viewer
	default:
		return NoAccess
	}
}

// ParseLevelPtr is ParseLevel for nullable columns.
func ParseLevelPtr(s *string) Level {
	if s == nil {
		return NoAccess
	}
	return ParseLevel(*s)
}

// Stored returns the value written to the permission columns.
func (l Level) Stored() string {
	switch l {
	case Editor:
		return storedEditor
	case Viewer:
		return storedViewer
	default:
		return storedNoAccess
	}
}

func (l Level) String() string {
	switch l {
	case Editor:
		return "editor"
	case Viewer:
		return "viewer"
	default:
		return "no_access"
	}
}

// Valid reports whether l is one of the declared levels.
func (l Level) Valid() bool { return l <= Editor }

// CanView is true for viewer and editor.
func (l Level) CanView() bool { return l.normalize() >= Viewer }

// CanEdit is true only for editor.
func (l Level) CanEdit() bool { return l.normalize() == Editor }

// Allows reports whether l grants at least the capability of need.
func (l Level) Allows(need Level) bool { return Compare(l, need) >= 0 }

func (l Level) normalize() Level {
	if !l.Valid() {
		return NoAccess
	}
	return l
}

// Compare orders two levels: -1 if a < b, 0 if equal, 1 if a > b.
// Out-of-range values compare as NoAccess.
func Compare(a, b Level) int {
	a, b = a.normalize(), b.normalize()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "no_access":
		*l = NoAccess
	default:
		*l = ParseLevel(string(b))
	}
	return nil
}
