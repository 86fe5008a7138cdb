package types

// Snapshot is the full replace-the-world competition dataset pushed by the
// origin. It is replaced wholesale on every full-snapshot message; individual
// fields are never patched in place.
type Snapshot struct {
	CompetitionName string     `json:"competition_name,omitempty"`
	Athletes        []Athlete  `json:"athletes"`
	Sessions        []Session  `json:"sessions"`
	Teams           []Team     `json:"teams"`
	Categories      []Category `json:"categories"`
	Records         []Record   `json:"records"`
}

type Athlete struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Team        string `json:"team,omitempty"`
	Category    string `json:"category,omitempty"`
	Session     string `json:"session,omitempty"`
	Platform    string `json:"platform,omitempty"`
	StartNumber int    `json:"start_number,omitempty"`
	Entry       int    `json:"entry,omitempty"`
}

type Session struct {
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
	Weighin  string `json:"weighin,omitempty"`
	Start    string `json:"start,omitempty"`
}

type Team struct {
	Name   string `json:"name"`
	Abbrev string `json:"abbrev,omitempty"`
	Flag   string `json:"flag,omitempty"`
}

type Category struct {
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
	MaxKg  int    `json:"max_kg,omitempty"`
}

type Record struct {
	Federation string `json:"federation,omitempty"`
	Category   string `json:"category"`
	Lift       string `json:"lift"`
	WeightKg   int    `json:"weight_kg"`
	Holder     string `json:"holder,omitempty"`
}
