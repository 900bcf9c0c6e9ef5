package advisory

// Request is what the eligibility checker asks of an applicant.
type Request struct {
	Name     string `json:"name"`
	Years    string `json:"years"`
	Industry string `json:"industry"`
	Goal     string `json:"goal"`
}

func (r *Request) key() string {
	return r.Name + "\x00" + r.Years + "\x00" + r.Industry + "\x00" + r.Goal
}

// Result is the advisory verdict. It is informational only.
type Result struct {
	Eligible       bool   `json:"eligible"`
	Score          int    `json:"score"`
	Reasoning      string `json:"reasoning"`
	Recommendation string `json:"recommendation"`
}

const (
	SourceModel    = "model"
	SourceMock     = "mock"
	SourceFallback = "fallback"
)

// FallbackResult is returned whenever the model call fails in any way.
var FallbackResult = Result{
	Eligible:       false,
	Score:          0,
	Reasoning:      "We couldn't process your request at this time.",
	Recommendation: "Please contact support manually.",
}

// MockResult is the demo-mode verdict.
var MockResult = Result{
	Eligible:       true,
	Score:          85,
	Reasoning:      "Based on your 3+ years in the fashion industry, you align perfectly with our target demographic.",
	Recommendation: "You should apply immediately. Focus your application on your sustainable supply chain.",
}
