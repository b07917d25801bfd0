package model

// Job is one unit of work submitted to a scheduling cycle. Priority is carried
// through to snapshots for display but never read by node selection.
type Job struct {
	ID           string                 `json:"id"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Prompt       string                 `json:"prompt,omitempty"`
	Priority     int                    `json:"priority"`
	Requirements []string               `json:"requirements,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ResolvePrompt returns the job's prompt, falling back to payload["prompt"]
// then payload["text"] when the field is empty.
func (j *Job) ResolvePrompt() string {
	if j.Prompt != "" {
		return j.Prompt
	}
	for _, key := range []string{"prompt", "text"} {
		if v, ok := j.Payload[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
