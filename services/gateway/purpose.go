package gateway

// Purpose identifies which calling use-case issued a generation request.
// It drives route selection and logging only; it never appears in prompts.
type Purpose string

const (
	// PurposeGenerate is the typed fallback for callers that do not declare
	// a more specific purpose, and for unrecognized purpose strings.
	PurposeGenerate Purpose = "generate"

	// PurposeAnalyzeTicket covers full ticket analysis (intent, sentiment,
	// summary, field proposals)
	PurposeAnalyzeTicket Purpose = "analyze_ticket"

	// PurposeProposeFieldsOnly covers the lightweight field-proposal call
	PurposeProposeFieldsOnly Purpose = "propose_fields_only"

	// PurposeProposeSolution covers solution drafting from search results
	PurposeProposeSolution Purpose = "propose_solution"

	// PurposeChat covers conversational responses
	PurposeChat Purpose = "chat"
)

var knownPurposes = map[Purpose]bool{
	PurposeGenerate:          true,
	PurposeAnalyzeTicket:     true,
	PurposeProposeFieldsOnly: true,
	PurposeProposeSolution:   true,
	PurposeChat:              true,
}

// Known reports whether p belongs to the closed purpose set
func (p Purpose) Known() bool {
	return knownPurposes[p]
}

// ParsePurpose maps a raw string onto the closed purpose set.
// Unknown values fall back to PurposeGenerate so routing stays deterministic.
func ParsePurpose(s string) Purpose {
	p := Purpose(s)
	if p.Known() {
		return p
	}
	return PurposeGenerate
}
