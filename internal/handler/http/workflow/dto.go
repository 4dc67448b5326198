package workflow

// processRequest is the request body for POST /workflow/process.
//
// Callers either send the shorthand form with just a URL, or a full
// message envelope with payload_type and payload.
type processRequest struct {
	URL            string         `json:"url,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	PayloadType    string         `json:"payload_type,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
}

// processResponse is the response envelope for the workflow endpoint.
type processResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
