package access

// Section is a functional area of the club app gated by its own access level.
// The constant order is the registry order and therefore the redirect priority.
type Section uint8

const (
	SeniorFootball Section = iota
	Football
	MedicalPlayers
	MedicalStaff
	Physical
	YouthRecords
	Staff

	sectionCount
)

// FallbackPath is where users with no accessible section are sent.
const FallbackPath = "/no-access"

// LoginPath is where unauthenticated users are sent.
const LoginPath = "/login"

type sectionInfo struct {
	key   string
	label string
	field string
	path  string
}

var registry = [sectionCount]sectionInfo{
	SeniorFootball: {key: "senior_football", label: "Senior Football", field: "senior_football_access", path: "/dashboard/senior"},
	Football:       {key: "football", label: "Youth Football", field: "football_access", path: "/dashboard"},
	MedicalPlayers: {key: "medical_players", label: "Medical - Players", field: "medical_players_access", path: "/dashboard/medical"},
	MedicalStaff:   {key: "medical_staff", label: "Medical - Staff", field: "medical_staff_access", path: "/dashboard/medical-staff"},
	Physical:       {key: "physical", label: "Physical", field: "physical_access", path: "/dashboard/physical"},
	YouthRecords:   {key: "youth_records", label: "Youth Records", field: "youth_records_access", path: "/dashboard/youth-records"},
	Staff:          {key: "staff", label: "Staff", field: "staff_access", path: "/dashboard/staff"},
}

// Sections returns every section in priority order.
func Sections() []Section {
	out := make([]Section, 0, sectionCount)
	for s := Section(0); s < sectionCount; s++ {
		out = append(out, s)
	}
	return out
}

// SectionByKey looks a section up by its stable key.
func SectionByKey(key string) (Section, bool) {
	for s := Section(0); s < sectionCount; s++ {
		if registry[s].key == key {
			return s, true
		}
	}
	return 0, false
}

func (s Section) Valid() bool { return s < sectionCount }

func (s Section) Key() string {
	if !s.Valid() {
		return ""
	}
	return registry[s].key
}

func (s Section) Label() string {
	if !s.Valid() {
		return ""
	}
	return registry[s].label
}

// Field is the user-record column holding this section's level.
func (s Section) Field() string {
	if !s.Valid() {
		return ""
	}
	return registry[s].field
}

// Path is the default navigation target.
func (s Section) Path() string {
	if !s.Valid() {
		return FallbackPath
	}
	return registry[s].path
}

func (s Section) String() string { return s.Key() }

// Levels holds one Level per registered section.
// The zero value denies everything.
type Levels [sectionCount]Level

// Get returns the level for s; unknown sections are NoAccess.
func (l Levels) Get(s Section) Level {
	if !s.Valid() {
		return NoAccess
	}
	return l[s].normalize()
}

// Set stores lvl for s. Unknown sections are ignored.
func (l *Levels) Set(s Section, lvl Level) {
	if !s.Valid() {
		return
	}
	l[s] = lvl.normalize()
}

// ByKey renders the levels keyed by section key, in the shape the API returns.
func (l Levels) ByKey() map[string]Level {
	out := make(map[string]Level, sectionCount)
	for s := Section(0); s < sectionCount; s++ {
		out[registry[s].key] = l.Get(s)
	}
	return out
}

// LevelsFromFields builds Levels from permission field name → stored value pairs.
// Missing fields stay NoAccess.
func LevelsFromFields(fields map[string]string) Levels {
	var l Levels
	for s := Section(0); s < sectionCount; s++ {
		if v, ok := fields[registry[s].field]; ok {
			l[s] = ParseLevel(v)
		}
	}
	return l
}
