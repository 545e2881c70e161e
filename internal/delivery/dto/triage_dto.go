package dto

type AnalyzeRequest struct {
	Complaint string        `json:"complaint" validate:"required,min=3"`
	Age       int           `json:"age" validate:"omitempty,gt=0,lte=150"`
	Symptoms  []string      `json:"symptoms" validate:"max=20,dive,max=50"`
	Vitals    VitalsRequest `json:"vitals"`
}

type AnalyzeResponse struct {
	Urgency           string   `json:"urgency"`
	UrgencyLabel      string   `json:"urgency_label"`
	Source            string   `json:"source"`
	Confidence        *float64 `json:"confidence,omitempty"`
	Rationale         string   `json:"rationale"`
	Indicators        []string `json:"indicators"`
	DetectedSymptoms  []string `json:"detected_symptoms,omitempty"`
	SuggestedSymptoms []string `json:"suggested_symptoms,omitempty"`
	AdvisoryAvailable bool     `json:"advisory_available"`
}
