package prompt

// Stage system instructions. These are part of the cache fingerprint:
// editing them invalidates every cached response for the stage.

const temporalSystem = `You assign a chronological interval to one hadith passage.

Work only from the passage, its narrator chain, its pre-extracted markers,
and the timeline anchors listed below. Reply with exactly one JSON object:

{
  "era_id": "E0".."E3" or a dotted sub-era like "E2.3",
  "sub_era_id": optional dotted sub-era,
  "event_window_id": optional anchor id for a specific event window,
  "earliest_ah": number in [-53, 11] or null,
  "latest_ah": number in [-53, 11] or null, never below earliest_ah,
  "anchor_before": [anchor ids this passage must precede],
  "anchor_after": [anchor ids this passage must follow],
  "evidence_type": one of "explicit_text", "explicit_event",
      "isnad_generation", "sirah_alignment", "contextual_order",
      "speculative",
  "posterior_confidence": number in [0, 1],
  "reasoning": short justification
}

Confidence must reflect evidence strength: explicit statements warrant
high confidence, speculative placement warrants low confidence. Cite only
anchor ids from the list below.`

const semanticSystem = `You tag one hadith passage with layered semantic structure.

The passage's committed temporal context is included. Reply with exactly
one JSON object:

{
  "speaker": who speaks, "addressee": who is addressed,
  "verb_type": e.g. "command", "report",
  "modality": one of "obligatory", "recommended", "permitted",
      "discouraged", "forbidden", "informative",
  "categories": non-empty list of ontological categories,
  "role": one of "Normative", "Descriptive", "Explanatory", "Corrective",
      "Exemplary", "Prophetic State", "Divine Address", "Divine Attribute",
  "axis_a": {"zahir"|"ishara"|"akhlaq"|"haqiqa": {"proposition", "scope",
      "certainty", "conditionality"}, populate only supported strata},
  "axis_b": {"amal"|"niyya"|"hadd"|"marifa": same stratum shape},
  "vectors": {"divine_attributes": [], "faculties_addressed": [],
      "maqam_hal": "", "legal_cause": "", "objective": "",
      "values": [], "vices": []}
}

scope is "individual", "communal" or "universal"; certainty is "qatʿī",
"ẓannī" or "ishārī"; conditionality is "absolute" or "contextual". Every
populated stratum needs a proposition. Populate at least one stratum per
axis when the text supports it.`

// Few-shot exemplars, as alternating user/assistant turns.
var temporalExemplars = []string{
	`Item 0 (group 1, item-in-group 1)
Primary text:
إنما الأعمال بالنيات
Translation:
Actions are but by intentions.
Narrator chain: Umar bin Al-Khattab`,
	`{"era_id": "E1", "sub_era_id": null, "event_window_id": null,
"earliest_ah": -13, "latest_ah": 11, "anchor_before": [], "anchor_after": [],
"evidence_type": "contextual_order", "posterior_confidence": 0.35,
"reasoning": "No explicit date or event; general teaching attested across the mission period."}`,
}

var semanticExemplars = []string{
	`Item 0 (group 1, item-in-group 1)
Temporal context: era E1
Primary text:
إنما الأعمال بالنيات
Translation:
Actions are but by intentions.`,
	`{"speaker": "Prophet", "addressee": "Companions", "verb_type": "report",
"modality": "informative", "categories": ["Ethics", "Worship"],
"role": "Normative",
"axis_a": {"zahir": {"proposition": "Deeds are judged by their intentions",
"scope": "universal", "certainty": "qatʿī", "conditionality": "absolute"}},
"axis_b": {"niyya": {"proposition": "Inner intention determines the worth of outward action",
"scope": "individual", "certainty": "qatʿī", "conditionality": "absolute"}},
"vectors": {"divine_attributes": [], "faculties_addressed": ["will", "heart"],
"maqam_hal": "ikhlas", "legal_cause": "", "objective": "sincerity of worship",
"values": ["sincerity"], "vices": ["ostentation"]}}`,
}
