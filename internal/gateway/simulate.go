package gateway

// Canned evaluation returned for recruiter_eval prompts in simulation
// mode, so the downstream pipeline can be exercised end to end without
// network I/O or spend.
const simulatedEvaluation = `{
  "score": 82,
  "pros": ["Relevant core skills", "Solid project experience", "Clear career progression"],
  "cons": ["Limited leadership exposure", "Few quantified results", "No domain certifications"],
  "rationale": "Simulated evaluation generated without contacting any provider."
}`

const simulatedName = `{"name": null, "confidence": 0}`

// simulatedResponse returns deterministic, category-specific canned text.
// Summaries are derived from the input and truncated; every other
// category maps to fixed placeholder text.
func simulatedResponse(prompt, category string) string {
	switch category {
	case CategorySummarize:
		if len(prompt) > 200 {
			return "SIMULATED SUMMARY: " + prompt[:200] + "."
		}
		return "SIMULATED SUMMARY: " + prompt
	case CategoryEvaluation:
		return simulatedEvaluation
	case CategoryName:
		return simulatedName
	case CategoryEmail:
		return "SIMULATED EMAIL: Subject: Application Update\n\nThank you for your application. We will be in touch shortly."
	default:
		return "SIMULATED ANSWER: I would search documentation or ask a clarifying question."
	}
}
