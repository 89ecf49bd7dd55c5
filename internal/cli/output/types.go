package output

// ListOutput is the JSON shape of the list command.
type ListOutput struct {
	Classes []ClassInfo `json:"classes"`
	Summary ListSummary `json:"summary"`
}

// ClassInfo describes one class from the class list.
type ClassInfo struct {
	Class   string      `json:"class"`
	Status  string      `json:"status"`
	Field   string      `json:"field,omitempty"`
	Origin  string      `json:"origin,omitempty"`
	Macros  []MacroInfo `json:"macros"`
	Skipped string      `json:"skipped,omitempty"`
}

// MacroInfo describes one registered macro.
type MacroInfo struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Static    bool   `json:"static"`
	Resolved  bool   `json:"resolved"`
}

// ListSummary totals the list output.
type ListSummary struct {
	TotalClasses int `json:"total_classes"`
	WithMacros   int `json:"with_macros"`
	TotalMacros  int `json:"total_macros"`
}

// GenerateOutput is the JSON shape of the macros command.
type GenerateOutput struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Classes  int    `json:"classes"`
	Macros   int    `json:"macros"`
	Skipped  int    `json:"skipped"`
}
