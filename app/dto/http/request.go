package http

type GenerateKeyRequest struct {
	ProjectID uint64 `json:"projectId"`
	Prefix    string `json:"prefix,omitempty"`
}

type ValidateKeyRequest struct {
	APIKey string `json:"apiKey"`
}
