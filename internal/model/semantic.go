package model

import "time"

// Modality is the deontic modality of the textual-fact layer.
type Modality string

const (
	ModalityObligatory  Modality = "obligatory"
	ModalityRecommended Modality = "recommended"
	ModalityPermitted   Modality = "permitted"
	ModalityDiscouraged Modality = "discouraged"
	ModalityForbidden   Modality = "forbidden"
	ModalityInformative Modality = "informative"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityObligatory, ModalityRecommended, ModalityPermitted,
		ModalityDiscouraged, ModalityForbidden, ModalityInformative:
		return true
	}
	return false
}

// FunctionalRole is the primary communicative function of a passage.
type FunctionalRole string

const (
	RoleNormative       FunctionalRole = "Normative"
	RoleDescriptive     FunctionalRole = "Descriptive"
	RoleExplanatory     FunctionalRole = "Explanatory"
	RoleCorrective      FunctionalRole = "Corrective"
	RoleExemplary       FunctionalRole = "Exemplary"
	RolePropheticState  FunctionalRole = "Prophetic State"
	RoleDivineAddress   FunctionalRole = "Divine Address"
	RoleDivineAttribute FunctionalRole = "Divine Attribute"
)

func (r FunctionalRole) Valid() bool {
	switch r {
	case RoleNormative, RoleDescriptive, RoleExplanatory, RoleCorrective,
		RoleExemplary, RolePropheticState, RoleDivineAddress, RoleDivineAttribute:
		return true
	}
	return false
}

// Scope of application for an interpretive stratum.
type Scope string

const (
	ScopeIndividual Scope = "individual"
	ScopeCommunal   Scope = "communal"
	ScopeUniversal  Scope = "universal"
)

func (s Scope) Valid() bool {
	return s == ScopeIndividual || s == ScopeCommunal || s == ScopeUniversal
}

// Certainty is the epistemic certainty of an interpretive stratum.
type Certainty string

const (
	CertaintyQati   Certainty = "qatʿī"  // Certain
	CertaintyDhanni Certainty = "ẓannī"  // Probable
	CertaintyIshari Certainty = "ishārī" // Allusive
)

func (c Certainty) Valid() bool {
	return c == CertaintyQati || c == CertaintyDhanni || c == CertaintyIshari
}

// Conditionality marks whether a stratum applies absolutely or only in
// context.
type Conditionality string

const (
	ConditionAbsolute   Conditionality = "absolute"
	ConditionContextual Conditionality = "contextual"
)

func (c Conditionality) Valid() bool {
	return c == ConditionAbsolute || c == ConditionContextual
}

// Stratum is one populated level of an interpretive axis. A nil *Stratum
// means the level was not assigned; a non-nil one must carry a
// proposition.
type Stratum struct {
	Proposition    string         `json:"proposition"`
	Scope          Scope          `json:"scope,omitempty"`
	Certainty      Certainty      `json:"certainty,omitempty"`
	Conditionality Conditionality `json:"conditionality,omitempty"`
}

// StratumLevel pairs a level name with its (possibly nil) stratum.
// Axis traversal goes through ordered slices of these so that problem
// and issue lists come out in a stable order.
type StratumLevel struct {
	Level   string
	Stratum *Stratum
}

// AxisA holds the four hermeneutic strata.
type AxisA struct {
	Zahir  *Stratum `json:"zahir,omitempty"`  // Literal meaning
	Ishara *Stratum `json:"ishara,omitempty"` // Indicative meaning
	Akhlaq *Stratum `json:"akhlaq,omitempty"` // Moral dimension
	Haqiqa *Stratum `json:"haqiqa,omitempty"` // Metaphysical dimension
}

// Strata returns the axis levels in fixed order, nils included.
func (a AxisA) Strata() []StratumLevel {
	return []StratumLevel{
		{"zahir", a.Zahir}, {"ishara", a.Ishara}, {"akhlaq", a.Akhlaq}, {"haqiqa", a.Haqiqa},
	}
}

// AxisB holds the four spiritual-ascent strata.
type AxisB struct {
	Amal   *Stratum `json:"amal,omitempty"`   // Outward action
	Niyya  *Stratum `json:"niyya,omitempty"`  // Inward intention
	Hadd   *Stratum `json:"hadd,omitempty"`   // Limit
	Marifa *Stratum `json:"marifa,omitempty"` // Ascent
}

func (b AxisB) Strata() []StratumLevel {
	return []StratumLevel{
		{"amal", b.Amal}, {"niyya", b.Niyya}, {"hadd", b.Hadd}, {"marifa", b.Marifa},
	}
}

// ThematicVectors is the free-form but schema-shaped thematic layer.
type ThematicVectors struct {
	DivineAttributes   []string `json:"divine_attributes,omitempty"`
	FacultiesAddressed []string `json:"faculties_addressed,omitempty"`
	MaqamHal           string   `json:"maqam_hal,omitempty"`
	LegalCause         string   `json:"legal_cause,omitempty"`
	Objective          string   `json:"objective,omitempty"`
	Values             []string `json:"values,omitempty"`
	Vices              []string `json:"vices,omitempty"`
}

// SemanticTags is the semantic stage's output for one corpus item under
// one version, layered per the tagging methodology: textual facts,
// categories, functional role, two interpretive axes, thematic vectors.
type SemanticTags struct {
	ItemID  int64  `json:"item_id"`
	Version string `json:"version"`

	// Textual fact layer.
	Speaker   string   `json:"speaker,omitempty"`
	Addressee string   `json:"addressee,omitempty"`
	VerbType  string   `json:"verb_type,omitempty"`
	Modality  Modality `json:"modality,omitempty"`

	Categories []string       `json:"categories"` // Controlled vocabulary, non-empty
	Role       FunctionalRole `json:"role"`

	AxisA   *AxisA          `json:"axis_a,omitempty"`
	AxisB   *AxisB          `json:"axis_b,omitempty"`
	Vectors ThematicVectors `json:"vectors"`

	LLMModel  string        `json:"llm_model,omitempty"`
	CostUSD   float64       `json:"llm_cost_usd,omitempty"`
	Duration  time.Duration `json:"processing_duration,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// CheckInvariants verifies the semantic-layer invariants: non-empty
// category set, closed-vocabulary membership, and a proposition on every
// populated stratum.
func (s SemanticTags) CheckInvariants() []string {
	var problems []string

	if len(s.Categories) == 0 {
		problems = append(problems, "category set is empty")
	}
	if !s.Role.Valid() {
		problems = append(problems, "functional role "+string(s.Role)+" not in closed vocabulary")
	}
	if s.Modality != "" && !s.Modality.Valid() {
		problems = append(problems, "modality "+string(s.Modality)+" not in closed vocabulary")
	}

	checkAxis := func(name string, strata []StratumLevel) {
		for _, sl := range strata {
			st := sl.Stratum
			if st == nil {
				continue
			}
			field := name + "." + sl.Level
			if st.Proposition == "" {
				problems = append(problems, field+" populated without a proposition")
			}
			if st.Scope != "" && !st.Scope.Valid() {
				problems = append(problems, field+" scope "+string(st.Scope)+" not in closed vocabulary")
			}
			if st.Certainty != "" && !st.Certainty.Valid() {
				problems = append(problems, field+" certainty "+string(st.Certainty)+" not in closed vocabulary")
			}
			if st.Conditionality != "" && !st.Conditionality.Valid() {
				problems = append(problems, field+" conditionality "+string(st.Conditionality)+" not in closed vocabulary")
			}
		}
	}
	if s.AxisA != nil {
		checkAxis("axis_a", s.AxisA.Strata())
	}
	if s.AxisB != nil {
		checkAxis("axis_b", s.AxisB.Strata())
	}

	return problems
}

// AxisPopulated reports whether at least one stratum of the axis holds a
// value.
func AxisPopulated(strata []StratumLevel) bool {
	for _, sl := range strata {
		if sl.Stratum != nil {
			return true
		}
	}
	return false
}
