package datatypes

// Message is a single turn in an LLM exchange. Role is "system", "user",
// or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	UserName  string `json:"user_name"`
}

// AnswerResponse is the body returned by POST /v1/answer.
//
// Cached is true when the answer was served from the response cache without
// touching retrieval or the LLM. Confidence is the pipeline's grounding
// confidence in [0, 1]; declined answers carry 0.
type AnswerResponse struct {
	Answer     string  `json:"answer"`
	SessionID  string  `json:"session_id"`
	Cached     bool    `json:"cached"`
	Confidence float64 `json:"confidence"`
}

// ValidateRequest is the body of POST /v1/validate. It runs the grounding
// validator against an arbitrary answer/source pair, for offline evaluation
// of transcripts.
type ValidateRequest struct {
	ResponseText  string `json:"response_text" binding:"required"`
	SourceContent string `json:"source_content"`
}

// ValidateResponse reports the validator outcome. When Accepted is false,
// Text holds the substituted decline and Reason names the violation class.
type ValidateResponse struct {
	Accepted bool   `json:"accepted"`
	Text     string `json:"text"`
	Reason   string `json:"reason,omitempty"`
}
