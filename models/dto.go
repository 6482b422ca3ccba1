package models

// EvaluateRequest is the body accepted by the evaluate and transcript endpoints.
type EvaluateRequest struct {
	URL string `json:"url"`
}

type EvaluationResponse struct {
	VideoID          string           `json:"video_id"`
	URL              string           `json:"url"`
	Status           Status           `json:"status"`
	Summary          string           `json:"summary,omitempty"`
	SummaryModel     string           `json:"summary_model,omitempty"`
	TranscriptSource TranscriptSource `json:"transcript_source,omitempty"`
	Error            string           `json:"error,omitempty"`
}

type TranscriptResponse struct {
	VideoID    string           `json:"video_id"`
	URL        string           `json:"url"`
	Transcript string           `json:"transcript"`
	Source     TranscriptSource `json:"source"`
}

func NewEvaluationResponse(e *Evaluation) *EvaluationResponse {
	return &EvaluationResponse{
		VideoID:          e.VideoID,
		URL:              e.URL,
		Status:           e.Status,
		Summary:          e.Summary,
		SummaryModel:     e.SummaryModel,
		TranscriptSource: e.TranscriptSource,
		Error:            e.Error,
	}
}
